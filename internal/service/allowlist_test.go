package service

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-autodelete/internal/storage"
)

func TestAllowlistAddAndRemove(t *testing.T) {
	store := newFakeStore()
	store.put(protectedChat(1, 42))
	m := NewAllowlistManager(store)

	require.NoError(t, m.Add(1, 7, 42))
	users, err := m.List(1)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, users)

	// Adding again is a no-op
	require.NoError(t, m.Add(1, 7, 42))
	users, err = m.List(1)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, users)

	require.NoError(t, m.Remove(1, 7, 42))
	users, err = m.List(1)
	require.NoError(t, err)
	assert.Empty(t, users)

	// Removing an absent user is a no-op
	require.NoError(t, m.Remove(1, 7, 42))
}

func TestAllowlistPermissionDenied(t *testing.T) {
	store := newFakeStore()
	store.put(protectedChat(1, 42))
	m := NewAllowlistManager(store)

	err := m.Add(1, 7, 99)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	err = m.Remove(1, 7, 99)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestAllowlistAllowedSenderMayManage(t *testing.T) {
	store := newFakeStore()
	cfg := protectedChat(1, 42)
	cfg.AllowedSenders = []int64{7}
	store.put(cfg)
	m := NewAllowlistManager(store)

	// Non-admin allowed senders can manage the list too
	require.NoError(t, m.Add(1, 8, 7))
	users, err := m.List(1)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 8}, users)
}

func TestAllowlistUnknownChat(t *testing.T) {
	m := NewAllowlistManager(newFakeStore())

	err := m.Add(1, 7, 42)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = m.List(1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAllowlistStorageErrorPropagates(t *testing.T) {
	store := newFakeStore()
	store.put(protectedChat(1, 42))
	store.upsertErr = fmt.Errorf("db gone: %w", storage.ErrStorageUnavailable)
	m := NewAllowlistManager(store)

	err := m.Add(1, 7, 42)
	assert.True(t, errors.Is(err, storage.ErrStorageUnavailable))
}
