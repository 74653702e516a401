package cache

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Options selects and configures a Store.
type Options struct {
	Backend string // "file" or "pebble"
	Dir     string
	Name    string
	Layout  string // file backend only
}

// Open returns the store described by opts.
func Open(opts Options) (Store, error) {
	switch strings.ToLower(opts.Backend) {
	case "", "file":
		return NewFileStore(opts.Dir, opts.Name, opts.Layout)
	case "pebble":
		return NewPebbleStore(opts.Dir, opts.Name)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, opts.Backend)
	}
}

// OpenReadOnly opens the store described by opts without creating any
// cache state. It returns ErrNotFound when the cache does not exist yet.
func OpenReadOnly(opts Options) (Store, error) {
	switch strings.ToLower(opts.Backend) {
	case "", "file":
		return OpenFileStoreReadOnly(opts.Dir, opts.Name, opts.Layout)
	case "pebble":
		return OpenPebbleStoreReadOnly(opts.Dir, opts.Name)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, opts.Backend)
	}
}

// Dump writes every stored record to w, aggregate first. It returns
// ErrNotFound when the store is empty.
func Dump(w io.Writer, store Store) error {
	keys, err := store.Keys()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return ErrNotFound
	}

	for i, key := range keys {
		rec, err := store.Get(key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if len(keys) > 1 {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "# %s\n", key)
		}
		if _, err := w.Write(Encode(rec)); err != nil {
			return err
		}
	}
	return nil
}
