package service

import (
	"github.com/pkg/errors"

	"tg-autodelete/internal/logger"
	"tg-autodelete/internal/models"
	"tg-autodelete/internal/storage"
)

// ConfigStore is the Settings Store contract consumed by the scheduler,
// allow-list manager and dispatcher.
type ConfigStore interface {
	Get(chatID int64) (*models.ChatConfig, error)
	Upsert(chatID int64, mutator func(*models.ChatConfig) error) (*models.ChatConfig, error)
	Delete(chatID int64) error
}

// SettingsStore persists per-chat configuration through the repository
// and keeps a write-through in-memory cache in front of it.
type SettingsStore struct {
	repo  *storage.ChatConfigRepository
	cache *models.ChatConfigManager
}

// NewSettingsStore creates a SettingsStore over the given repository
func NewSettingsStore(repo *storage.ChatConfigRepository) *SettingsStore {
	return &SettingsStore{
		repo:  repo,
		cache: models.NewChatConfigManager(),
	}
}

// WarmCache loads all chat configurations from the database into the cache
func (s *SettingsStore) WarmCache() (int, error) {
	configs, err := s.repo.GetAll()
	if err != nil {
		return 0, errors.Wrap(err, "warming chat config cache")
	}
	for _, cfg := range configs {
		s.cache.Put(cfg)
	}
	return len(configs), nil
}

// Get returns the configuration for a chat, storage.ErrNotFound when the
// chat was never set up
func (s *SettingsStore) Get(chatID int64) (*models.ChatConfig, error) {
	if cfg := s.cache.Get(chatID); cfg != nil {
		return cfg, nil
	}

	cfg, err := s.repo.Get(chatID)
	if err != nil {
		return nil, err
	}
	s.cache.Put(cfg)
	return cfg, nil
}

// Upsert applies an atomic read-modify-write and refreshes the cache on
// success. On failure the cache is left untouched, so readers keep seeing
// the last persisted state.
func (s *SettingsStore) Upsert(chatID int64, mutator func(*models.ChatConfig) error) (*models.ChatConfig, error) {
	cfg, err := s.repo.Upsert(chatID, mutator)
	if err != nil {
		return nil, err
	}
	s.cache.Put(cfg)
	return cfg, nil
}

// Delete removes all persisted state for a chat
func (s *SettingsStore) Delete(chatID int64) error {
	if err := s.repo.Delete(chatID); err != nil {
		return err
	}
	s.cache.Remove(chatID)
	logger.Infof("Removed configuration for chat %d", chatID)
	return nil
}

// CachedCount returns the number of chats currently cached
func (s *SettingsStore) CachedCount() int {
	return s.cache.Count()
}
