package services

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/username/datadissem/src/config"
	"github.com/username/datadissem/src/database"
	"github.com/username/datadissem/src/logger"
	"github.com/username/datadissem/src/model"
	"github.com/username/datadissem/src/models"
)

type keyEntry struct {
	createdAt time.Time
	lastUsed  *time.Time
	callCount int64
}

// MemoryRegistry is the default APIKeyRegistry. State lives only as long as
// the process.
type MemoryRegistry struct {
	mu    sync.RWMutex
	keys  map[string]*keyEntry
	order []string
	now   func() time.Time
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		keys: make(map[string]*keyEntry),
		now:  time.Now,
	}
}

func (r *MemoryRegistry) Generate() (string, models.APIKeyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := model.NewKey()
	for r.keys[key] != nil {
		key = model.NewKey()
	}
	entry := &keyEntry{createdAt: r.now().UTC()}
	r.keys[key] = entry
	r.order = append(r.order, key)
	return key, models.APIKeyRecord{Key: models.MaskKey(key), CreatedAt: entry.createdAt}, nil
}

func (r *MemoryRegistry) Validate(key string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.keys[key]
	return ok, nil
}

func (r *MemoryRegistry) RecordUsage(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.keys[key]
	if !ok {
		return nil
	}
	now := r.now().UTC()
	entry.lastUsed = &now
	entry.callCount++
	return nil
}

func (r *MemoryRegistry) List() ([]models.APIKeyRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]models.APIKeyRecord, 0, len(r.order))
	for _, key := range r.order {
		entry := r.keys[key]
		rec := models.APIKeyRecord{
			Key:       models.MaskKey(key),
			CreatedAt: entry.createdAt,
			CallCount: entry.callCount,
		}
		if entry.lastUsed != nil {
			t := *entry.lastUsed
			rec.LastUsed = &t
		}
		records = append(records, rec)
	}
	return records, nil
}

// NewAPIKeyRegistry builds the registry selected by cfg.KeyStore. The returned
// closer releases any underlying store and is never nil.
func NewAPIKeyRegistry(cfg *config.AppConfig) (APIKeyRegistry, io.Closer, error) {
	switch cfg.KeyStore {
	case config.KeyStoreSQLite:
		db, err := database.OpenAndMigrate(cfg.DatabasePath)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite key store: %w", err)
		}
		store := model.NewSQLiteKeyStore(db)
		logger.L.Info("Using SQLite API key store", "path", cfg.DatabasePath)
		return store, store, nil
	case config.KeyStoreBadger:
		store, err := model.OpenBadgerKeyStore(cfg.BadgerPath)
		if err != nil {
			return nil, nil, fmt.Errorf("badger key store: %w", err)
		}
		logger.L.Info("Using Badger API key store", "path", cfg.BadgerPath)
		return store, store, nil
	default:
		logger.L.Info("Using in-memory API key store; keys are lost on restart")
		return NewMemoryRegistry(), nopCloser{}, nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
