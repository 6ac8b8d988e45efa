// Package storagetest opens throwaway stores for tests.
package storagetest

import (
	"path/filepath"
	"testing"

	"healthportal/backend/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New returns a migrated SQLite store in t.TempDir without Redis.
func New(t *testing.T) *storage.Service {
	t.Helper()

	path := filepath.Join(t.TempDir(), "portal.db")
	db, err := storage.Open("sqlite://"+path, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, storage.AutoMigrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return storage.NewStorageService(db, nil)
}

// NewWithRedis is New plus an in-process Redis. The miniredis handle is
// returned so tests can fast-forward TTLs.
func NewWithRedis(t *testing.T) (*storage.Service, *miniredis.Miniredis) {
	t.Helper()

	s := New(t)
	mr := miniredis.RunT(t)
	s.Redis = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { s.Redis.Close() })
	return s, mr
}
