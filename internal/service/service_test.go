package service

import (
	"context"
	"sync"
	"time"

	"tg-autodelete/internal/models"
	"tg-autodelete/internal/storage"
)

// fakeStore is an in-memory ConfigStore with the same upsert semantics as
// the repository: default record on first write, delay clamping, immutable
// activation time.
type fakeStore struct {
	mu        sync.Mutex
	configs   map[int64]*models.ChatConfig
	getErr    error
	upsertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{configs: make(map[int64]*models.ChatConfig)}
}

func (s *fakeStore) put(cfg *models.ChatConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[cfg.ChatID] = cfg.Clone()
}

func (s *fakeStore) Get(chatID int64) (*models.ChatConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	cfg, ok := s.configs[chatID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cfg.Clone(), nil
}

func (s *fakeStore) Upsert(chatID int64, mutator func(*models.ChatConfig) error) (*models.ChatConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return nil, s.upsertErr
	}

	cfg, ok := s.configs[chatID]
	if !ok {
		cfg = &models.ChatConfig{
			ChatID:      chatID,
			DeleteDelay: models.DefaultDeleteDelay,
			Active:      true,
		}
	}
	work := cfg.Clone()
	priorActivatedAt := work.ActivatedAt

	if err := mutator(work); err != nil {
		return nil, err
	}
	if !priorActivatedAt.IsZero() {
		work.ActivatedAt = priorActivatedAt
	}
	work.DeleteDelay = models.ClampDelay(work.DeleteDelay)

	s.configs[chatID] = work
	return work.Clone(), nil
}

func (s *fakeStore) Delete(chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.configs, chatID)
	return nil
}

// fakePending is an in-memory PendingStore
type fakePending struct {
	mu      sync.Mutex
	records []models.PendingDeletion
	addErr  error
}

func (p *fakePending) Add(pd *models.PendingDeletion) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.addErr != nil {
		return p.addErr
	}
	p.records = append(p.records, *pd)
	return nil
}

func (p *fakePending) Remove(chatID int64, messageID int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, pd := range p.records {
		if pd.ChatID == chatID && pd.MessageID == messageID {
			p.records = append(p.records[:i], p.records[i+1:]...)
			return nil
		}
	}
	return nil
}

func (p *fakePending) RemoveByChat(chatID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.records[:0]
	for _, pd := range p.records {
		if pd.ChatID != chatID {
			kept = append(kept, pd)
		}
	}
	p.records = kept
	return nil
}

func (p *fakePending) GetAll() ([]models.PendingDeletion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.PendingDeletion(nil), p.records...), nil
}

func (p *fakePending) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.records)
}

// fakeDeleter records delete calls
type fakeDeleter struct {
	mu      sync.Mutex
	deleted []pendingKey
	err     error
}

func (d *fakeDeleter) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.deleted = append(d.deleted, pendingKey{chatID: chatID, messageID: messageID})
	return nil
}

func (d *fakeDeleter) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.deleted)
}

// protectedChat returns an active config with an activation time in the
// past so fresh messages qualify for deletion
func protectedChat(chatID, adminID int64) *models.ChatConfig {
	return &models.ChatConfig{
		ChatID:      chatID,
		AdminID:     adminID,
		DeleteDelay: models.DefaultDeleteDelay,
		ActivatedAt: time.Now().Add(-time.Hour),
		Active:      true,
	}
}
