package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/pebble"
)

// PebbleStore keeps records in a pebble database using the same plain-text
// value encoding as FileStore.
type PebbleStore struct {
	db *pebble.DB
}

var _ Store = (*PebbleStore)(nil)

// NewPebbleStore opens (or creates) <dir>/<name>.pebble.
func NewPebbleStore(dir, name string) (*PebbleStore, error) {
	db, err := pebble.Open(filepath.Join(dir, name+".pebble"), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("opening pebble db: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

// OpenPebbleStoreReadOnly opens an existing <dir>/<name>.pebble read-only.
// It returns ErrNotFound when the database does not exist.
func OpenPebbleStoreReadOnly(dir, name string) (*PebbleStore, error) {
	path := filepath.Join(dir, name+".pebble")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("stat pebble db: %w", err)
	}

	db, err := pebble.Open(path, &pebble.Options{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("opening pebble db: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

// Put stores rec under key.
func (s *PebbleStore) Put(key string, rec Record) error {
	if err := validKey(key); err != nil {
		return err
	}
	if err := s.db.Set([]byte(key), Encode(rec), pebble.Sync); err != nil {
		return fmt.Errorf("setting cache record: %w", err)
	}
	return nil
}

// Get loads the record stored under key.
func (s *PebbleStore) Get(key string) (Record, error) {
	value, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("getting cache record: %w", err)
	}
	defer closer.Close()

	return Decode(value)
}

// Keys lists stored keys.
func (s *PebbleStore) Keys() ([]string, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, fmt.Errorf("creating iterator: %w", err)
	}
	defer iter.Close()

	var keys []string
	for iter.First(); iter.Valid(); iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	sortKeys(keys)
	return keys, nil
}

// Close closes the database.
func (s *PebbleStore) Close() error {
	return s.db.Close()
}

func validKey(key string) error {
	if key == AggregateKey {
		return nil
	}
	if _, ok := ParseWorkerKey(key); ok {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidKey, key)
}
