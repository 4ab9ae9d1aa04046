package service

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"tg-autodelete/internal/crash"
	"tg-autodelete/internal/logger"
	"tg-autodelete/internal/metrics"
	"tg-autodelete/internal/models"
	"tg-autodelete/internal/storage"
)

// deleteTimeout bounds a single platform delete call
const deleteTimeout = 10 * time.Second

// MessageDeleter performs the platform delete action
type MessageDeleter interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// PendingStore persists scheduled deletions so they survive restarts
type PendingStore interface {
	Add(pd *models.PendingDeletion) error
	Remove(chatID int64, messageID int) error
	RemoveByChat(chatID int64) error
	GetAll() ([]models.PendingDeletion, error)
}

// IncomingMessage is the platform message event consumed by the scheduler
type IncomingMessage struct {
	ChatID    int64
	MessageID int
	SenderID  int64
	SentAt    time.Time
}

type pendingKey struct {
	chatID    int64
	messageID int
}

// Scheduler enqueues a delayed delete for every message from a
// non-approved sender. Each pending deletion is independent; timers only
// share the read-only ChatConfig snapshot taken at fire time.
type Scheduler struct {
	store   ConfigStore
	pending PendingStore
	deleter MessageDeleter

	// now is swappable in tests
	now func() time.Time

	mu     sync.Mutex
	timers map[pendingKey]*time.Timer
}

// NewScheduler creates a Scheduler
func NewScheduler(store ConfigStore, pending PendingStore, deleter MessageDeleter) *Scheduler {
	return &Scheduler{
		store:   store,
		pending: pending,
		deleter: deleter,
		now:     time.Now,
		timers:  make(map[pendingKey]*time.Timer),
	}
}

// HandleMessage checks an incoming message against the chat's protection
// rules and schedules a delayed deletion when it qualifies. A storage
// failure defers the message; the caller retries on the next event.
func (s *Scheduler) HandleMessage(msg IncomingMessage) error {
	metrics.MessagesChecked.Inc()

	cfg, err := s.store.Get(msg.ChatID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// chat is not protected
			return nil
		}
		return errors.Wrap(err, "loading chat config")
	}

	if !cfg.Active {
		return nil
	}
	if cfg.IsAllowed(msg.SenderID) {
		return nil
	}
	// Messages sent before protection began are never targeted
	if !cfg.ActivatedAt.IsZero() && msg.SentAt.Before(cfg.ActivatedAt) {
		return nil
	}

	delay := time.Duration(models.ClampDelay(cfg.DeleteDelay)) * time.Second
	pd := &models.PendingDeletion{
		ChatID:    msg.ChatID,
		MessageID: msg.MessageID,
		FireAt:    s.now().Add(delay),
	}
	if err := s.pending.Add(pd); err != nil {
		return errors.Wrap(err, "persisting pending deletion")
	}

	metrics.DeletionsScheduled.Inc()
	logger.Infof("Scheduled deletion of message %d in chat %d in %v", msg.MessageID, msg.ChatID, delay)
	s.arm(msg.ChatID, msg.MessageID, delay)
	return nil
}

// arm starts the single-shot timer for a pending deletion
func (s *Scheduler) arm(chatID int64, messageID int, delay time.Duration) {
	key := pendingKey{chatID: chatID, messageID: messageID}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.timers[key]; ok {
		return
	}
	s.timers[key] = time.AfterFunc(delay, func() {
		defer crash.RecoverWithStack("deletion-timer")
		s.fire(chatID, messageID)
	})
}

// fire re-checks the chat state and attempts the deletion. Cancellation is
// lazy: a deactivated or deleted chat drops the record here instead of
// stopping timers eagerly.
func (s *Scheduler) fire(chatID int64, messageID int) {
	key := pendingKey{chatID: chatID, messageID: messageID}
	s.mu.Lock()
	delete(s.timers, key)
	s.mu.Unlock()

	cfg, err := s.store.Get(chatID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// chat was deactivated, cancel silently
			s.removePending(chatID, messageID)
			return
		}
		// storage down: keep the record, Restore picks it up later
		logger.Warningf("Skipping deletion of message %d in chat %d, config unavailable: %v", messageID, chatID, err)
		return
	}

	if !cfg.Active {
		s.removePending(chatID, messageID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
	defer cancel()

	if err := s.deleter.DeleteMessage(ctx, chatID, messageID); err != nil {
		// Already deleted or permission revoked: the end state is the
		// same, so the failure is logged and swallowed
		metrics.DeletionFailures.Inc()
		logger.Warningf("Failed to delete message %d in chat %d: %v", messageID, chatID, err)
	} else {
		metrics.DeletionsExecuted.Inc()
		logger.Infof("Deleted message %d in chat %d", messageID, chatID)
	}

	s.removePending(chatID, messageID)
}

func (s *Scheduler) removePending(chatID int64, messageID int) {
	if err := s.pending.Remove(chatID, messageID); err != nil {
		logger.Warningf("Error removing pending deletion record for message %d in chat %d: %v", messageID, chatID, err)
	}
}

// Restore re-arms timers for all persisted pending deletions, typically
// after a restart. Overdue entries fire immediately.
func (s *Scheduler) Restore() (int, error) {
	pds, err := s.pending.GetAll()
	if err != nil {
		return 0, errors.Wrap(err, "loading pending deletions")
	}

	for _, pd := range pds {
		delay := pd.FireAt.Sub(s.now())
		if delay < 0 {
			delay = 0
		}
		s.arm(pd.ChatID, pd.MessageID, delay)
	}
	if len(pds) > 0 {
		logger.Infof("Restored %d pending deletions", len(pds))
	}
	return len(pds), nil
}

// CancelChat drops all persisted pending deletions for a chat. Armed
// timers still fire but find the chat deactivated and exit.
func (s *Scheduler) CancelChat(chatID int64) error {
	return errors.Wrap(s.pending.RemoveByChat(chatID), "cancelling pending deletions")
}

// Stop stops all armed timers; pending records stay persisted for the
// next Restore.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, t := range s.timers {
		t.Stop()
		delete(s.timers, key)
	}
}

// PendingCount returns the number of armed timers
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
