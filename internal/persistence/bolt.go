package persistence

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// ErrBoltClosed is returned when the store was never opened.
var ErrBoltClosed = errors.New("bolt store not open")

// Bolt wraps the shared bbolt handle used by the local store and the sync outbox.
type Bolt struct {
	DB *bolt.DB
}

// OpenBolt creates the parent directory and opens the database file.
func OpenBolt(path string, logger *zap.Logger) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	logger.Info("opened bolt store", zap.String("path", path))
	return &Bolt{DB: db}, nil
}

// Close releases the file lock.
func (b *Bolt) Close() error {
	if b == nil || b.DB == nil {
		return nil
	}
	return b.DB.Close()
}

// Ping opens a read transaction to prove the file is usable.
func (b *Bolt) Ping(_ context.Context) error {
	if b == nil || b.DB == nil {
		return ErrBoltClosed
	}
	return b.DB.View(func(*bolt.Tx) error { return nil })
}
