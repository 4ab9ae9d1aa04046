package models

import (
	"sync"
	"time"
)

// Deletion delay bounds in seconds
const (
	MinDeleteDelay     = 60
	MaxDeleteDelay     = 1800
	DefaultDeleteDelay = 300
)

// ChatConfig holds the per-chat protection settings
type ChatConfig struct {
	ID        uint `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time
	UpdatedAt time.Time

	ChatID    int64  `gorm:"uniqueIndex;not null"`
	ChatTitle string `gorm:"type:varchar(255)"`
	// AdminID is the user who activated protection; always allowed to
	// post and to manage the allow-list
	AdminID        int64
	AllowedSenders []int64 `gorm:"serializer:json"`
	// DeleteDelay is in seconds, kept within [MinDeleteDelay, MaxDeleteDelay]
	DeleteDelay int `gorm:"default:300"`
	// ActivatedAt marks when protection began; messages sent before it
	// are never deleted. Immutable once set.
	ActivatedAt time.Time
	Active      bool `gorm:"default:true"`
}

// ClampDelay forces a delay value into the allowed range
func ClampDelay(seconds int) int {
	if seconds < MinDeleteDelay {
		return MinDeleteDelay
	}
	if seconds > MaxDeleteDelay {
		return MaxDeleteDelay
	}
	return seconds
}

// IsAllowed reports whether userID may post without deletion
func (c *ChatConfig) IsAllowed(userID int64) bool {
	if userID == c.AdminID {
		return true
	}
	for _, id := range c.AllowedSenders {
		if id == userID {
			return true
		}
	}
	return false
}

// AddAllowedSender adds userID to the allow-list, reporting whether the
// set changed
func (c *ChatConfig) AddAllowedSender(userID int64) bool {
	for _, id := range c.AllowedSenders {
		if id == userID {
			return false
		}
	}
	c.AllowedSenders = append(c.AllowedSenders, userID)
	return true
}

// RemoveAllowedSender removes userID from the allow-list, reporting
// whether the set changed
func (c *ChatConfig) RemoveAllowedSender(userID int64) bool {
	for i, id := range c.AllowedSenders {
		if id == userID {
			c.AllowedSenders = append(c.AllowedSenders[:i], c.AllowedSenders[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a copy safe to hand to other goroutines
func (c *ChatConfig) Clone() *ChatConfig {
	cp := *c
	cp.AllowedSenders = append([]int64(nil), c.AllowedSenders...)
	return &cp
}

// ChatConfigManager is an in-memory cache of chat configurations
type ChatConfigManager struct {
	configs map[int64]*ChatConfig
	mu      sync.RWMutex
}

func NewChatConfigManager() *ChatConfigManager {
	return &ChatConfigManager{
		configs: make(map[int64]*ChatConfig),
	}
}

func (m *ChatConfigManager) Get(chatID int64) *ChatConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg := m.configs[chatID]
	if cfg == nil {
		return nil
	}
	return cfg.Clone()
}

func (m *ChatConfigManager) Put(cfg *ChatConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs[cfg.ChatID] = cfg.Clone()
}

func (m *ChatConfigManager) Remove(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.configs, chatID)
}

// Count returns the number of cached chats
func (m *ChatConfigManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.configs)
}
