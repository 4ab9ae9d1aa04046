package service

import (
	"github.com/pkg/errors"

	"tg-autodelete/internal/logger"
	"tg-autodelete/internal/metrics"
	"tg-autodelete/internal/models"
)

// AllowlistManager exposes allow-list mutations over the Settings Store.
// Only the chat's super-admin or users already on the allow-list may
// mutate it.
type AllowlistManager struct {
	store ConfigStore
}

// NewAllowlistManager creates an AllowlistManager over the given store
func NewAllowlistManager(store ConfigStore) *AllowlistManager {
	return &AllowlistManager{store: store}
}

func canManage(cfg *models.ChatConfig, userID int64) bool {
	return userID == cfg.AdminID || cfg.IsAllowed(userID)
}

// Add puts userID on the chat's allow-list. Adding a present user is a
// no-op. Returns ErrPermissionDenied when requestingAdmin may not manage
// the list.
func (m *AllowlistManager) Add(chatID, userID, requestingAdmin int64) error {
	cfg, err := m.store.Get(chatID)
	if err != nil {
		return errors.Wrap(err, "loading chat config")
	}
	if !canManage(cfg, requestingAdmin) {
		return ErrPermissionDenied
	}

	_, err = m.store.Upsert(chatID, func(c *models.ChatConfig) error {
		if c.AddAllowedSender(userID) {
			logger.Infof("User %d added to allow-list of chat %d by %d", userID, chatID, requestingAdmin)
			metrics.AllowlistMutations.WithLabelValues("add").Inc()
		}
		return nil
	})
	return errors.Wrap(err, "persisting allow-list")
}

// Remove takes userID off the chat's allow-list. Removing an absent user
// is a no-op.
func (m *AllowlistManager) Remove(chatID, userID, requestingAdmin int64) error {
	cfg, err := m.store.Get(chatID)
	if err != nil {
		return errors.Wrap(err, "loading chat config")
	}
	if !canManage(cfg, requestingAdmin) {
		return ErrPermissionDenied
	}

	_, err = m.store.Upsert(chatID, func(c *models.ChatConfig) error {
		if c.RemoveAllowedSender(userID) {
			logger.Infof("User %d removed from allow-list of chat %d by %d", userID, chatID, requestingAdmin)
			metrics.AllowlistMutations.WithLabelValues("remove").Inc()
		}
		return nil
	})
	return errors.Wrap(err, "persisting allow-list")
}

// List returns the chat's allowed sender IDs
func (m *AllowlistManager) List(chatID int64) ([]int64, error) {
	cfg, err := m.store.Get(chatID)
	if err != nil {
		return nil, errors.Wrap(err, "loading chat config")
	}
	return append([]int64(nil), cfg.AllowedSenders...), nil
}
