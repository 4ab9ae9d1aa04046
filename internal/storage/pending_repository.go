package storage

import (
	"fmt"

	"tg-autodelete/internal/models"

	"gorm.io/gorm"
)

// PendingDeletionRepository handles database operations for PendingDeletion
type PendingDeletionRepository struct {
	db *gorm.DB
}

// NewPendingDeletionRepository creates a new PendingDeletionRepository
func NewPendingDeletionRepository(db *gorm.DB) *PendingDeletionRepository {
	return &PendingDeletionRepository{db: db}
}

// MigrateTable ensures the PendingDeletion table exists
func (r *PendingDeletionRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.PendingDeletion{})
}

// Add persists a new pending deletion record
func (r *PendingDeletionRepository) Add(pd *models.PendingDeletion) error {
	if err := r.db.Create(pd).Error; err != nil {
		return fmt.Errorf("add pending deletion: %w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Remove deletes a pending deletion record by ChatID and MessageID
func (r *PendingDeletionRepository) Remove(chatID int64, messageID int) error {
	result := r.db.Where("chat_id = ? AND message_id = ?", chatID, messageID).Delete(&models.PendingDeletion{})
	if result.Error != nil {
		return fmt.Errorf("remove pending deletion: %w: %v", ErrStorageUnavailable, result.Error)
	}
	return nil
}

// RemoveByChat deletes all pending deletion records for a chat
func (r *PendingDeletionRepository) RemoveByChat(chatID int64) error {
	result := r.db.Where("chat_id = ?", chatID).Delete(&models.PendingDeletion{})
	if result.Error != nil {
		return fmt.Errorf("remove pending deletions for chat %d: %w: %v", chatID, ErrStorageUnavailable, result.Error)
	}
	return nil
}

// GetAll retrieves all pending deletion records
func (r *PendingDeletionRepository) GetAll() ([]models.PendingDeletion, error) {
	var pds []models.PendingDeletion
	result := r.db.Find(&pds)
	if result.Error != nil {
		return nil, fmt.Errorf("list pending deletions: %w: %v", ErrStorageUnavailable, result.Error)
	}
	return pds, nil
}
