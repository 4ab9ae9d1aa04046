package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampDelay(t *testing.T) {
	assert.Equal(t, MinDeleteDelay, ClampDelay(0))
	assert.Equal(t, MinDeleteDelay, ClampDelay(-5))
	assert.Equal(t, MinDeleteDelay, ClampDelay(59))
	assert.Equal(t, 60, ClampDelay(60))
	assert.Equal(t, 300, ClampDelay(300))
	assert.Equal(t, 1800, ClampDelay(1800))
	assert.Equal(t, MaxDeleteDelay, ClampDelay(1801))
	assert.Equal(t, MaxDeleteDelay, ClampDelay(1000000))
}

func TestIsAllowed(t *testing.T) {
	cfg := &ChatConfig{
		ChatID:         -100123,
		AdminID:        42,
		AllowedSenders: []int64{7, 8},
	}

	assert.True(t, cfg.IsAllowed(42), "admin is always allowed")
	assert.True(t, cfg.IsAllowed(7))
	assert.True(t, cfg.IsAllowed(8))
	assert.False(t, cfg.IsAllowed(9))
	assert.False(t, cfg.IsAllowed(0))
}

func TestAddAllowedSenderIdempotent(t *testing.T) {
	cfg := &ChatConfig{}

	assert.True(t, cfg.AddAllowedSender(7))
	assert.False(t, cfg.AddAllowedSender(7), "second add is a no-op")
	assert.Equal(t, []int64{7}, cfg.AllowedSenders)

	assert.True(t, cfg.AddAllowedSender(8))
	assert.Equal(t, []int64{7, 8}, cfg.AllowedSenders)
}

func TestRemoveAllowedSenderIdempotent(t *testing.T) {
	cfg := &ChatConfig{AllowedSenders: []int64{7, 8, 9}}

	assert.True(t, cfg.RemoveAllowedSender(8))
	assert.Equal(t, []int64{7, 9}, cfg.AllowedSenders)

	assert.False(t, cfg.RemoveAllowedSender(8), "removing an absent user is a no-op")
	assert.False(t, cfg.RemoveAllowedSender(100))
	assert.Equal(t, []int64{7, 9}, cfg.AllowedSenders)
}

func TestCloneIsIndependent(t *testing.T) {
	cfg := &ChatConfig{ChatID: 1, AllowedSenders: []int64{7}}
	cp := cfg.Clone()

	cp.AddAllowedSender(8)
	cp.ChatTitle = "changed"

	assert.Equal(t, []int64{7}, cfg.AllowedSenders)
	assert.Equal(t, "", cfg.ChatTitle)
}

func TestChatConfigManager(t *testing.T) {
	m := NewChatConfigManager()
	assert.Nil(t, m.Get(1))
	assert.Equal(t, 0, m.Count())

	m.Put(&ChatConfig{ChatID: 1, AllowedSenders: []int64{7}})
	assert.Equal(t, 1, m.Count())

	got := m.Get(1)
	assert.NotNil(t, got)

	// Mutating the returned copy must not leak into the cache
	got.AddAllowedSender(99)
	assert.Equal(t, []int64{7}, m.Get(1).AllowedSenders)

	m.Remove(1)
	assert.Nil(t, m.Get(1))
	assert.Equal(t, 0, m.Count())
}
