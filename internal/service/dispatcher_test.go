package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-autodelete/internal/models"
)

func newTestDispatcher(store ConfigStore) (*Dispatcher, *fakePending, *fakeDeleter) {
	pending := &fakePending{}
	deleter := &fakeDeleter{}
	scheduler := NewScheduler(store, pending, deleter)
	allowlist := NewAllowlistManager(store)
	return NewDispatcher(scheduler, allowlist, store), pending, deleter
}

func TestDispatcherProcessesChatEventsInOrder(t *testing.T) {
	store := newFakeStore()
	store.put(protectedChat(1, 42))
	d, _, _ := newTestDispatcher(store)

	// Mutations on the same chat run on one worker in arrival order
	for i := 0; i < 10; i++ {
		d.Dispatch(AllowlistEvent{
			ChatID:          1,
			RequestingAdmin: 42,
			Action:          AllowlistAdd,
			TargetUserID:    int64(100 + i),
		})
	}

	done := make(chan []int64, 1)
	d.Dispatch(AllowlistEvent{
		ChatID:          1,
		RequestingAdmin: 42,
		Action:          AllowlistList,
		Respond: func(users []int64, err error) {
			require.NoError(t, err)
			done <- users
		},
	})

	select {
	case users := <-done:
		expected := make([]int64, 0, 10)
		for i := 0; i < 10; i++ {
			expected = append(expected, int64(100+i))
		}
		assert.Equal(t, expected, users)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for allow-list response")
	}

	d.Stop()
}

func TestDispatcherConcurrentChats(t *testing.T) {
	store := newFakeStore()
	for id := int64(1); id <= 5; id++ {
		store.put(protectedChat(id, 42))
	}
	d, pending, _ := newTestDispatcher(store)

	var wg sync.WaitGroup
	for id := int64(1); id <= 5; id++ {
		chatID := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := 1; m <= 10; m++ {
				d.Dispatch(MessageEvent{Message: incoming(chatID, m, 99)})
			}
		}()
	}
	wg.Wait()
	d.Stop()

	assert.Equal(t, 50, pending.count())
}

func TestDispatcherSetDelay(t *testing.T) {
	store := newFakeStore()
	store.put(protectedChat(1, 42))
	d, _, _ := newTestDispatcher(store)

	done := make(chan int, 1)
	d.Dispatch(DelayEvent{
		ChatID:          1,
		RequestingAdmin: 42,
		Seconds:         600,
		Respond: func(applied int, err error) {
			require.NoError(t, err)
			done <- applied
		},
	})

	select {
	case applied := <-done:
		assert.Equal(t, 600, applied)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delay response")
	}
	d.Stop()

	cfg, err := store.Get(1)
	require.NoError(t, err)
	assert.Equal(t, 600, cfg.DeleteDelay)
}

func TestDispatcherSetDelayClampsOutOfRange(t *testing.T) {
	store := newFakeStore()
	store.put(protectedChat(1, 42))
	d, _, _ := newTestDispatcher(store)

	done := make(chan int, 1)
	d.Dispatch(DelayEvent{
		ChatID:          1,
		RequestingAdmin: 42,
		Seconds:         999999,
		Respond: func(applied int, err error) {
			require.NoError(t, err)
			done <- applied
		},
	})

	select {
	case applied := <-done:
		assert.Equal(t, models.MaxDeleteDelay, applied)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delay response")
	}
	d.Stop()
}

func TestDispatcherSetDelayPermissionDenied(t *testing.T) {
	store := newFakeStore()
	store.put(protectedChat(1, 42))
	d, _, _ := newTestDispatcher(store)

	done := make(chan error, 1)
	d.Dispatch(DelayEvent{
		ChatID:          1,
		RequestingAdmin: 99,
		Seconds:         600,
		Respond: func(_ int, err error) {
			done <- err
		},
	})

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrPermissionDenied)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delay response")
	}
	d.Stop()
}

func TestDispatcherDeactivateCancelsPending(t *testing.T) {
	store := newFakeStore()
	store.put(protectedChat(1, 42))
	d, pending, _ := newTestDispatcher(store)

	d.Dispatch(MessageEvent{Message: incoming(1, 10, 99)})

	done := make(chan error, 1)
	d.Dispatch(DeactivateEvent{
		ChatID:          1,
		RequestingAdmin: 42,
		Respond: func(err error) {
			done <- err
		},
	})

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for deactivate response")
	}
	d.Stop()

	cfg, err := store.Get(1)
	require.NoError(t, err)
	assert.False(t, cfg.Active)
	assert.Equal(t, 0, pending.count())
}

type bogusEvent struct{ chatID int64 }

func (e bogusEvent) EventChatID() int64 { return e.chatID }

func TestDispatcherDropsMalformedEvents(t *testing.T) {
	store := newFakeStore()
	d, pending, _ := newTestDispatcher(store)

	d.Dispatch(nil)
	d.Dispatch(MessageEvent{})
	d.Dispatch(bogusEvent{chatID: 1})
	d.Stop()

	assert.Equal(t, 0, pending.count())
}

func TestDispatcherStopDropsLateEvents(t *testing.T) {
	store := newFakeStore()
	store.put(protectedChat(1, 42))
	d, pending, _ := newTestDispatcher(store)
	d.Stop()

	d.Dispatch(MessageEvent{Message: incoming(1, 10, 99)})
	assert.Equal(t, 0, pending.count())
}
