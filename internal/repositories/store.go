package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/desertthunder/synclify/internal/models"
)

// Store is a persistent backend for resolutions.
type Store interface {
	// Lookup returns [ErrNotFound] when key has no resolution.
	Lookup(key string) (string, error)
	Save(entries map[string]string) error
	// Entries lists resolutions, optionally filtered by service.
	Entries(service string) ([]*models.Resolution, error)
	Remove(key string) error
	Clear(service string) (int64, error)
	Count() (map[string]int, error)
	Close() error
}

// SQLiteStore adapts a [ResolutionRepository] to [Store].
type SQLiteStore struct {
	repo *ResolutionRepository
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{repo: NewResolutionRepository(db)}
}

func (s *SQLiteStore) Lookup(key string) (string, error) {
	res, err := s.repo.GetByKey(key)
	if err != nil {
		return "", err
	}
	return res.Identifier, nil
}

func (s *SQLiteStore) Save(entries map[string]string) error { return s.repo.UpsertAll(entries) }

func (s *SQLiteStore) Entries(service string) ([]*models.Resolution, error) {
	return s.repo.List(map[string]any{"service": service})
}

func (s *SQLiteStore) Remove(key string) error             { return s.repo.DeleteByKey(key) }
func (s *SQLiteStore) Clear(service string) (int64, error) { return s.repo.Clear(service) }
func (s *SQLiteStore) Count() (map[string]int, error)      { return s.repo.Count() }
func (s *SQLiteStore) Close() error                        { return nil }

var bucketResolutions = []byte("resolutions")

type boltEntry struct {
	Service    string    `json:"service"`
	Identifier string    `json:"identifier"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// BoltStore keeps resolutions in a single bbolt file keyed by cache key.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens or creates the bbolt file at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketResolutions)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Lookup(key string) (string, error) {
	var entry boltEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketResolutions).Get([]byte(key))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return json.Unmarshal(data, &entry)
	})
	return entry.Identifier, err
}

func (s *BoltStore) Save(entries map[string]string) error {
	ts := time.Now().UTC()
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketResolutions)
		for key, identifier := range entries {
			entry := boltEntry{Service: serviceOf(key), Identifier: identifier, CreatedAt: ts, UpdatedAt: ts}
			if prev := b.Get([]byte(key)); prev != nil {
				var old boltEntry
				if json.Unmarshal(prev, &old) == nil && !old.CreatedAt.IsZero() {
					entry.CreatedAt = old.CreatedAt
				}
			}
			data, err := json.Marshal(entry)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(key), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) Entries(service string) ([]*models.Resolution, error) {
	var out []*models.Resolution
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketResolutions).ForEach(func(k, v []byte) error {
			var entry boltEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("corrupt entry %q: %w", k, err)
			}
			if service != "" && entry.Service != service {
				return nil
			}
			key := string(k)
			out = append(out, models.RestoreResolution(key, key, entry.Service, entry.Identifier, entry.CreatedAt, entry.UpdatedAt))
			return nil
		})
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, err
}

func (s *BoltStore) Remove(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketResolutions)
		if b.Get([]byte(key)) == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return b.Delete([]byte(key))
	})
}

func (s *BoltStore) Clear(service string) (int64, error) {
	entries, err := s.Entries(service)
	if err != nil {
		return 0, err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketResolutions)
		for _, e := range entries {
			if err := b.Delete([]byte(e.Key)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int64(len(entries)), nil
}

func (s *BoltStore) Count() (map[string]int, error) {
	entries, err := s.Entries("")
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, e := range entries {
		counts[e.Service]++
	}
	return counts, nil
}

func (s *BoltStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// IsNotFound reports whether err means a missing resolution.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
