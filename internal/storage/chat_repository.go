package storage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"tg-autodelete/internal/models"

	"gorm.io/gorm"
)

// ChatConfigRepository handles database operations for ChatConfig
type ChatConfigRepository struct {
	db *gorm.DB

	// per-chat locks serialize read-modify-write cycles; one writer
	// per chat at a time
	locks sync.Map
}

// NewChatConfigRepository creates a new ChatConfigRepository
func NewChatConfigRepository(db *gorm.DB) *ChatConfigRepository {
	return &ChatConfigRepository{db: db}
}

// MigrateTable ensures the ChatConfig table exists with the right schema
func (r *ChatConfigRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.ChatConfig{})
}

func (r *ChatConfigRepository) chatLock(chatID int64) *sync.Mutex {
	mu, _ := r.locks.LoadOrStore(chatID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Get retrieves chat configuration by ChatID
func (r *ChatConfigRepository) Get(chatID int64) (*models.ChatConfig, error) {
	var cfg models.ChatConfig
	result := r.db.Where("chat_id = ?", chatID).First(&cfg)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get chat %d: %w: %v", chatID, ErrStorageUnavailable, result.Error)
	}
	return &cfg, nil
}

// Upsert applies an atomic read-modify-write for a chat's configuration.
// A fresh record with defaults is handed to the mutator when the chat is
// unknown. A mutator error aborts the write, nothing is persisted.
func (r *ChatConfigRepository) Upsert(chatID int64, mutator func(*models.ChatConfig) error) (*models.ChatConfig, error) {
	mu := r.chatLock(chatID)
	mu.Lock()
	defer mu.Unlock()

	var updated *models.ChatConfig
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var cfg models.ChatConfig
		result := tx.Where("chat_id = ?", chatID).First(&cfg)
		if result.Error != nil {
			if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return fmt.Errorf("read chat %d: %w: %v", chatID, ErrStorageUnavailable, result.Error)
			}
			cfg = models.ChatConfig{
				ChatID:      chatID,
				DeleteDelay: models.DefaultDeleteDelay,
				Active:      true,
			}
		}

		priorActivatedAt := cfg.ActivatedAt

		if err := mutator(&cfg); err != nil {
			return err
		}

		// ActivatedAt is immutable once set
		if !priorActivatedAt.IsZero() {
			cfg.ActivatedAt = priorActivatedAt
		}
		cfg.DeleteDelay = models.ClampDelay(cfg.DeleteDelay)
		cfg.UpdatedAt = time.Now()

		if err := tx.Save(&cfg).Error; err != nil {
			return fmt.Errorf("save chat %d: %w: %v", chatID, ErrStorageUnavailable, err)
		}
		updated = &cfg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetAll retrieves all chat configurations
func (r *ChatConfigRepository) GetAll() ([]*models.ChatConfig, error) {
	var configs []*models.ChatConfig
	result := r.db.Find(&configs)
	if result.Error != nil {
		return nil, fmt.Errorf("list chats: %w: %v", ErrStorageUnavailable, result.Error)
	}
	return configs, nil
}

// Delete removes a chat configuration by ChatID
func (r *ChatConfigRepository) Delete(chatID int64) error {
	mu := r.chatLock(chatID)
	mu.Lock()
	defer mu.Unlock()

	result := r.db.Where("chat_id = ?", chatID).Delete(&models.ChatConfig{})
	if result.Error != nil {
		return fmt.Errorf("delete chat %d: %w: %v", chatID, ErrStorageUnavailable, result.Error)
	}
	return nil
}
