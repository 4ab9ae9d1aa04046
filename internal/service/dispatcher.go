package service

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"tg-autodelete/internal/crash"
	"tg-autodelete/internal/logger"
	"tg-autodelete/internal/metrics"
	"tg-autodelete/internal/models"
)

// queueDepth is the per-chat event buffer
const queueDepth = 128

// Event is a typed platform event routed by the dispatcher
type Event interface {
	EventChatID() int64
}

// MessageEvent carries an incoming chat message
type MessageEvent struct {
	Message IncomingMessage
}

func (e MessageEvent) EventChatID() int64 { return e.Message.ChatID }

// AllowlistAction names an allow-list mutation
type AllowlistAction string

const (
	AllowlistAdd    AllowlistAction = "add"
	AllowlistRemove AllowlistAction = "remove"
	AllowlistList   AllowlistAction = "list"
)

// AllowlistEvent carries an admin button press targeting the allow-list.
// Respond, when set, is invoked on the chat's worker goroutine with the
// resulting list (for AllowlistList) and error.
type AllowlistEvent struct {
	ChatID          int64
	RequestingAdmin int64
	Action          AllowlistAction
	TargetUserID    int64
	Respond         func(users []int64, err error)
}

func (e AllowlistEvent) EventChatID() int64 { return e.ChatID }

// DelayEvent carries an admin request to change the deletion delay
type DelayEvent struct {
	ChatID          int64
	RequestingAdmin int64
	Seconds         int
	Respond         func(applied int, err error)
}

func (e DelayEvent) EventChatID() int64 { return e.ChatID }

// DeactivateEvent carries an admin request to stop protecting a chat
type DeactivateEvent struct {
	ChatID          int64
	RequestingAdmin int64
	Respond         func(err error)
}

func (e DeactivateEvent) EventChatID() int64 { return e.ChatID }

// Dispatcher consumes typed events and routes them to the scheduler and
// the allow-list manager. Events for the same chat are processed by a
// single worker in arrival order; different chats run concurrently.
// No event is allowed to kill the loop.
type Dispatcher struct {
	scheduler *Scheduler
	allowlist *AllowlistManager
	store     ConfigStore

	mu      sync.RWMutex
	queues  map[int64]chan Event
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher
func NewDispatcher(scheduler *Scheduler, allowlist *AllowlistManager, store ConfigStore) *Dispatcher {
	return &Dispatcher{
		scheduler: scheduler,
		allowlist: allowlist,
		store:     store,
		queues:    make(map[int64]chan Event),
	}
}

// Dispatch enqueues an event into its chat partition. Malformed events
// are dropped with a diagnostic.
func (d *Dispatcher) Dispatch(ev Event) {
	if ev == nil || ev.EventChatID() == 0 {
		metrics.DispatcherDropped.Inc()
		logger.Warningf("Dropping malformed event without chat ID: %+v", ev)
		return
	}
	chatID := ev.EventChatID()

	d.mu.RLock()
	if d.stopped {
		d.mu.RUnlock()
		metrics.DispatcherDropped.Inc()
		logger.Warningf("Dispatcher stopped, dropping event for chat %d", chatID)
		return
	}
	q, ok := d.queues[chatID]
	if ok {
		q <- ev
		d.mu.RUnlock()
		return
	}
	d.mu.RUnlock()

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		metrics.DispatcherDropped.Inc()
		return
	}
	q, ok = d.queues[chatID]
	if !ok {
		q = make(chan Event, queueDepth)
		d.queues[chatID] = q
		d.wg.Add(1)
		crash.SafeGoroutine(fmt.Sprintf("dispatch-%d", chatID), func() {
			defer d.wg.Done()
			d.worker(q)
		})
	}
	q <- ev
	d.mu.Unlock()
}

// Stop closes all chat partitions and waits for in-flight events
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) worker(q chan Event) {
	for ev := range q {
		d.route(ev)
	}
}

// route handles a single event. Errors are chat-scoped: reported through
// the event's Respond callback or logged, never propagated.
func (d *Dispatcher) route(ev Event) {
	defer crash.RecoverWithStack("dispatcher-route")

	switch e := ev.(type) {
	case MessageEvent:
		if err := d.scheduler.HandleMessage(e.Message); err != nil {
			// Retryable storage failure: defer, the next event retries
			logger.Warningf("Deferring message %d in chat %d: %v", e.Message.MessageID, e.Message.ChatID, err)
		}

	case AllowlistEvent:
		d.routeAllowlist(e)

	case DelayEvent:
		applied, err := d.setDelay(e)
		if e.Respond != nil {
			e.Respond(applied, err)
		} else if err != nil {
			logger.Warningf("Error setting delay for chat %d: %v", e.ChatID, err)
		}

	case DeactivateEvent:
		err := d.deactivate(e)
		if e.Respond != nil {
			e.Respond(err)
		} else if err != nil {
			logger.Warningf("Error deactivating chat %d: %v", e.ChatID, err)
		}

	default:
		metrics.DispatcherDropped.Inc()
		logger.Warningf("Dropping unrecognized event type %T for chat %d", ev, ev.EventChatID())
	}
}

func (d *Dispatcher) routeAllowlist(e AllowlistEvent) {
	var users []int64
	var err error

	switch e.Action {
	case AllowlistAdd:
		err = d.allowlist.Add(e.ChatID, e.TargetUserID, e.RequestingAdmin)
	case AllowlistRemove:
		err = d.allowlist.Remove(e.ChatID, e.TargetUserID, e.RequestingAdmin)
	case AllowlistList:
		users, err = d.allowlist.List(e.ChatID)
	default:
		metrics.DispatcherDropped.Inc()
		logger.Warningf("Dropping allow-list event with unknown action %q for chat %d", e.Action, e.ChatID)
		return
	}

	if e.Respond != nil {
		e.Respond(users, err)
	} else if err != nil {
		logger.Warningf("Allow-list %s failed for chat %d: %v", e.Action, e.ChatID, err)
	}
}

func (d *Dispatcher) setDelay(e DelayEvent) (int, error) {
	cfg, err := d.store.Get(e.ChatID)
	if err != nil {
		return 0, errors.Wrap(err, "loading chat config")
	}
	if !canManage(cfg, e.RequestingAdmin) {
		return 0, ErrPermissionDenied
	}

	updated, err := d.store.Upsert(e.ChatID, func(c *models.ChatConfig) error {
		c.DeleteDelay = e.Seconds
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "persisting delay")
	}
	logger.Infof("Deletion delay for chat %d set to %ds by %d", e.ChatID, updated.DeleteDelay, e.RequestingAdmin)
	return updated.DeleteDelay, nil
}

func (d *Dispatcher) deactivate(e DeactivateEvent) error {
	cfg, err := d.store.Get(e.ChatID)
	if err != nil {
		return errors.Wrap(err, "loading chat config")
	}
	if !canManage(cfg, e.RequestingAdmin) {
		return ErrPermissionDenied
	}

	if _, err := d.store.Upsert(e.ChatID, func(c *models.ChatConfig) error {
		c.Active = false
		return nil
	}); err != nil {
		return errors.Wrap(err, "persisting deactivation")
	}

	logger.Infof("Protection deactivated for chat %d by %d", e.ChatID, e.RequestingAdmin)
	return d.scheduler.CancelChat(e.ChatID)
}
