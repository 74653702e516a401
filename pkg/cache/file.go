package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Layouts supported by FileStore.
const (
	// LayoutPerWorker writes each worker to its own file next to the aggregate file.
	LayoutPerWorker = "per_worker"
	// LayoutShared writes every record to one file. Writes are serialized, so
	// the file always holds one complete record: whichever was written last.
	LayoutShared = "shared"
)

// FileStore keeps records as plain-text files under dir.
//
//	per_worker: <dir>/<name>.txt (aggregate), <dir>/<name>-worker-<id>.txt
//	shared:     <dir>/<name>.txt for every key
type FileStore struct {
	dir    string
	name   string
	layout string
	// readOnly stores refuse Put.
	readOnly bool
	mu       sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir, name, layout string) (*FileStore, error) {
	s, err := newFileStore(dir, name, layout)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return s, nil
}

// OpenFileStoreReadOnly returns a store over an existing dir without creating
// anything. It returns ErrNotFound when dir does not exist.
func OpenFileStoreReadOnly(dir, name, layout string) (*FileStore, error) {
	s, err := newFileStore(dir, name, layout)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat cache dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("cache dir %s is not a directory", dir)
	}
	s.readOnly = true
	return s, nil
}

func newFileStore(dir, name, layout string) (*FileStore, error) {
	switch layout {
	case "":
		layout = LayoutPerWorker
	case LayoutPerWorker, LayoutShared:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownLayout, layout)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty cache name", ErrInvalidKey)
	}
	return &FileStore{dir: dir, name: name, layout: layout}, nil
}

// Path returns the file a key is stored in.
func (s *FileStore) Path(key string) (string, error) {
	if key == AggregateKey || s.layout == LayoutShared {
		if key != AggregateKey {
			if _, ok := ParseWorkerKey(key); !ok {
				return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
			}
		}
		return filepath.Join(s.dir, s.name+".txt"), nil
	}

	id, ok := ParseWorkerKey(key)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	return filepath.Join(s.dir, fmt.Sprintf("%s-worker-%d.txt", s.name, id)), nil
}

// Put writes rec, replacing any previous content of the target file.
func (s *FileStore) Put(key string, rec Record) error {
	if s.readOnly {
		return ErrReadOnly
	}
	path, err := s.Path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Write to a sibling temp file and rename so readers never see a torn record.
	tmp, err := os.CreateTemp(s.dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(Encode(rec)); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write cache record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close cache record: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace cache record: %w", err)
	}
	return nil
}

// Get reads the record stored under key.
func (s *FileStore) Get(key string) (Record, error) {
	path, err := s.Path(key)
	if err != nil {
		return Record{}, err
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path built from configured dir and name
	if errors.Is(err, os.ErrNotExist) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to read cache record: %w", err)
	}
	return Decode(data)
}

// Keys lists stored records.
func (s *FileStore) Keys() ([]string, error) {
	var keys []string

	aggPath, _ := s.Path(AggregateKey)
	if _, err := os.Stat(aggPath); err == nil {
		keys = append(keys, AggregateKey)
	}

	if s.layout == LayoutPerWorker {
		matches, err := filepath.Glob(filepath.Join(s.dir, s.name+"-worker-*.txt"))
		if err != nil {
			return nil, fmt.Errorf("failed to list cache dir: %w", err)
		}
		prefix := s.name + "-worker-"
		for _, m := range matches {
			base := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), prefix), ".txt")
			id, err := strconv.Atoi(base)
			if err != nil {
				continue
			}
			keys = append(keys, WorkerKey(id))
		}
	}

	sortKeys(keys)
	return keys, nil
}

// Close is a no-op for files.
func (s *FileStore) Close() error {
	return nil
}
