package models

import "time"

// PendingDeletion represents a message scheduled for deletion.
type PendingDeletion struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time

	ChatID    int64     `gorm:"index:idx_chat_message,unique"`
	MessageID int       `gorm:"index:idx_chat_message,unique"`
	FireAt    time.Time `gorm:"index"`
}
