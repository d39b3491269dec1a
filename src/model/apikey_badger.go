package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/username/datadissem/src/models"
)

var (
	badgerKeyPrefix = []byte("apikey/")
	badgerSeqKey    = []byte("seq/apikey")
)

type badgerRecord struct {
	Seq       uint64     `json:"seq"`
	Masked    string     `json:"masked"`
	CreatedAt time.Time  `json:"created_at"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
	CallCount int64      `json:"call_count"`
}

// BadgerKeyStore keeps API key records in an embedded Badger key-value store,
// keyed by "apikey/" + HashKey(key). A Badger sequence preserves creation order.
type BadgerKeyStore struct {
	db  *badger.DB
	seq *badger.Sequence
	now func() time.Time

	// usageMu serializes RecordUsage so concurrent calls on one key queue up
	// instead of colliding at commit.
	usageMu sync.Mutex
}

// OpenBadgerKeyStore opens (or creates) a store in dir. An empty dir opens an
// in-memory store.
func OpenBadgerKeyStore(dir string) (*BadgerKeyStore, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}
	seq, err := db.GetSequence(badgerSeqKey, 100)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open key sequence: %w", err)
	}
	return &BadgerKeyStore{db: db, seq: seq, now: time.Now}, nil
}

func badgerKey(key string) []byte {
	return append(append([]byte{}, badgerKeyPrefix...), HashKey(key)...)
}

// Generate stores a fresh record and returns the full key with its masked
// record.
func (s *BadgerKeyStore) Generate() (string, models.APIKeyRecord, error) {
	n, err := s.seq.Next()
	if err != nil {
		return "", models.APIKeyRecord{}, fmt.Errorf("next key sequence: %w", err)
	}
	key := NewKey()
	rec := badgerRecord{
		Seq:       n,
		Masked:    models.MaskKey(key),
		CreatedAt: s.now().UTC(),
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return "", models.APIKeyRecord{}, err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(key), payload)
	})
	if err != nil {
		return "", models.APIKeyRecord{}, fmt.Errorf("store api key: %w", err)
	}
	return key, models.APIKeyRecord{Key: rec.Masked, CreatedAt: rec.CreatedAt}, nil
}

// Validate reports whether key exists.
func (s *BadgerKeyStore) Validate(key string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(badgerKey(key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup api key: %w", err)
	}
	return true, nil
}

// maxConflictRetries bounds how often a conflicting usage update is retried.
const maxConflictRetries = 100

// RecordUsage bumps the counters in one read-modify-write transaction,
// retrying when a concurrent update wins the commit. Unknown keys are ignored.
func (s *BadgerKeyStore) RecordUsage(key string) error {
	s.usageMu.Lock()
	defer s.usageMu.Unlock()

	k := badgerKey(key)
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = s.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(k)
			if err != nil {
				return err
			}
			var rec badgerRecord
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &rec) }); err != nil {
				return err
			}
			now := s.now().UTC()
			rec.LastUsed = &now
			rec.CallCount++
			payload, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			return txn.Set(k, payload)
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("record api key usage: %w", err)
	}
	return nil
}

// List returns masked records in creation order.
func (s *BadgerKeyStore) List() ([]models.APIKeyRecord, error) {
	var recs []badgerRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = badgerKeyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var rec badgerRecord
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &rec) }); err != nil {
				return err
			}
			recs = append(recs, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}

	sort.Slice(recs, func(i, j int) bool { return recs[i].Seq < recs[j].Seq })
	out := make([]models.APIKeyRecord, 0, len(recs))
	for _, r := range recs {
		out = append(out, models.APIKeyRecord{
			Key:       r.Masked,
			CreatedAt: r.CreatedAt,
			LastUsed:  r.LastUsed,
			CallCount: r.CallCount,
		})
	}
	return out, nil
}

// Close releases the sequence lease and closes the database.
func (s *BadgerKeyStore) Close() error {
	if err := s.seq.Release(); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}
