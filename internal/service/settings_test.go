package service

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tg-autodelete/internal/models"
	"tg-autodelete/internal/storage"
)

func newTestSettingsStore(t *testing.T) *SettingsStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	repo := storage.NewChatConfigRepository(db)
	require.NoError(t, repo.MigrateTable())
	return NewSettingsStore(repo)
}

func TestSettingsStoreRoundTrip(t *testing.T) {
	s := newTestSettingsStore(t)

	_, err := s.Get(1)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	cfg, err := s.Upsert(1, func(c *models.ChatConfig) error {
		c.AdminID = 42
		c.ChatTitle = "Test Group"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.AdminID)

	got, err := s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "Test Group", got.ChatTitle)
	assert.Equal(t, 1, s.CachedCount())
}

func TestSettingsStoreWarmCache(t *testing.T) {
	s := newTestSettingsStore(t)

	for _, id := range []int64{1, 2, 3} {
		_, err := s.Upsert(id, func(c *models.ChatConfig) error { return nil })
		require.NoError(t, err)
	}

	// A fresh store over the same repository starts cold
	fresh := NewSettingsStore(s.repo)
	assert.Equal(t, 0, fresh.CachedCount())

	n, err := fresh.WarmCache()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, fresh.CachedCount())
}

func TestSettingsStoreDelete(t *testing.T) {
	s := newTestSettingsStore(t)

	_, err := s.Upsert(1, func(c *models.ChatConfig) error { return nil })
	require.NoError(t, err)

	require.NoError(t, s.Delete(1))
	_, err = s.Get(1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, 0, s.CachedCount())
}
