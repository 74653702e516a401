package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_Format(t *testing.T) {
	rec := Record{Mean: 67234.56789, Samples: []float64{67234.5, 0, 67235.13579}}

	assert.Equal(t, "67234.5679\n67234.5000\n0.0000\n67235.1358\n", string(Encode(rec)))
}

func TestDecode(t *testing.T) {
	rec, err := Decode([]byte("10.5000\n10.0000\n11.0000\n"))
	require.NoError(t, err)
	assert.Equal(t, 10.5, rec.Mean)
	assert.Equal(t, []float64{10, 11}, rec.Samples)

	_, err = Decode([]byte(""))
	assert.ErrorIs(t, err, ErrCorruptRecord)

	_, err = Decode([]byte("10.0\nabc\n"))
	assert.ErrorIs(t, err, ErrCorruptRecord)
}

func TestWorkerKey(t *testing.T) {
	id, ok := ParseWorkerKey(WorkerKey(7))
	assert.True(t, ok)
	assert.Equal(t, 7, id)

	_, ok = ParseWorkerKey(AggregateKey)
	assert.False(t, ok)
	_, ok = ParseWorkerKey("worker/x")
	assert.False(t, ok)
}

func TestFileStore_PerWorker(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "btc_price_data", LayoutPerWorker)
	require.NoError(t, err)

	require.NoError(t, store.Put(WorkerKey(2), Record{Mean: 2, Samples: []float64{2}}))
	require.NoError(t, store.Put(WorkerKey(10), Record{Mean: 10, Samples: []float64{10}}))
	require.NoError(t, store.Put(WorkerKey(1), Record{Mean: 1, Samples: []float64{1}}))
	require.NoError(t, store.Put(AggregateKey, Record{Mean: 4.3333, Samples: []float64{1, 2, 10}}))

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{AggregateKey, WorkerKey(1), WorkerKey(2), WorkerKey(10)}, keys)

	data, err := os.ReadFile(filepath.Join(dir, "btc_price_data-worker-10.txt"))
	require.NoError(t, err)
	assert.Equal(t, "10.0000\n10.0000\n", string(data))

	rec, err := store.Get(AggregateKey)
	require.NoError(t, err)
	assert.Equal(t, 4.3333, rec.Mean)
	assert.Equal(t, []float64{1, 2, 10}, rec.Samples)
}

func TestFileStore_OverwritesPriorContent(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "cache", LayoutPerWorker)
	require.NoError(t, err)

	require.NoError(t, store.Put(WorkerKey(1), Record{Mean: 5, Samples: []float64{4, 5, 6}}))
	require.NoError(t, store.Put(WorkerKey(1), Record{Mean: 1, Samples: []float64{1}}))

	rec, err := store.Get(WorkerKey(1))
	require.NoError(t, err)
	assert.Equal(t, Record{Mean: 1, Samples: []float64{1}}, rec)
}

func TestFileStore_SharedLayoutSerializesWriters(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "shared", LayoutShared)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			samples := make([]float64, 50)
			for j := range samples {
				samples[j] = float64(id)
			}
			assert.NoError(t, store.Put(WorkerKey(id), Record{Mean: float64(id), Samples: samples}))
		}(i)
	}
	wg.Wait()

	// Exactly one complete record survives: the last writer's.
	rec, err := store.Get(AggregateKey)
	require.NoError(t, err)
	require.Len(t, rec.Samples, 50)
	for _, s := range rec.Samples {
		assert.Equal(t, rec.Mean, s)
	}

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{AggregateKey}, keys)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStore_Errors(t *testing.T) {
	_, err := NewFileStore(t.TempDir(), "x", "merged")
	assert.ErrorIs(t, err, ErrUnknownLayout)

	store, err := NewFileStore(t.TempDir(), "x", "")
	require.NoError(t, err)

	_, err = store.Get(WorkerKey(1))
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.Put("bogus", Record{}), ErrInvalidKey)
}

func TestPebbleStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPebbleStore(dir, "cache")
	require.NoError(t, err)

	require.NoError(t, store.Put(WorkerKey(3), Record{Mean: 3, Samples: []float64{3, 3}}))
	require.NoError(t, store.Put(AggregateKey, Record{Mean: 3, Samples: []float64{3}}))

	rec, err := store.Get(WorkerKey(3))
	require.NoError(t, err)
	assert.Equal(t, Record{Mean: 3, Samples: []float64{3, 3}}, rec)

	_, err = store.Get(WorkerKey(4))
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.Put("nope", Record{}), ErrInvalidKey)

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{AggregateKey, WorkerKey(3)}, keys)

	require.NoError(t, store.Close())

	// Reopen: records survive.
	store, err = NewPebbleStore(dir, "cache")
	require.NoError(t, err)
	defer store.Close()

	rec, err = store.Get(AggregateKey)
	require.NoError(t, err)
	assert.Equal(t, 3.0, rec.Mean)
}

func TestOpen(t *testing.T) {
	s, err := Open(Options{Backend: "file", Dir: t.TempDir(), Name: "a"})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	p, err := Open(Options{Backend: "pebble", Dir: t.TempDir(), Name: "a"})
	require.NoError(t, err)
	assert.IsType(t, &PebbleStore{}, p)
	require.NoError(t, p.Close())

	_, err = Open(Options{Backend: "s3"})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestDump(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "dump", LayoutPerWorker)
	require.NoError(t, err)

	var buf bytes.Buffer
	assert.ErrorIs(t, Dump(&buf, store), ErrNotFound)

	require.NoError(t, store.Put(AggregateKey, Record{Mean: 1.5, Samples: []float64{1, 2}}))

	buf.Reset()
	require.NoError(t, Dump(&buf, store))
	assert.Equal(t, "1.5000\n1.0000\n2.0000\n", buf.String(), "single record dumps like the raw file")

	require.NoError(t, store.Put(WorkerKey(1), Record{Mean: 1, Samples: []float64{1}}))

	buf.Reset()
	require.NoError(t, Dump(&buf, store))
	assert.Equal(t, "# aggregate\n1.5000\n1.0000\n2.0000\n\n# worker/1\n1.0000\n1.0000\n", buf.String())
}

func TestOpenReadOnly_MissingCacheCreatesNothing(t *testing.T) {
	root := t.TempDir()

	for _, backend := range []string{"file", "pebble"} {
		t.Run(backend, func(t *testing.T) {
			dir := filepath.Join(root, backend)

			_, err := OpenReadOnly(Options{Backend: backend, Dir: dir, Name: "btc_price_data"})
			assert.ErrorIs(t, err, ErrNotFound)

			_, statErr := os.Stat(dir)
			assert.True(t, os.IsNotExist(statErr), "read-only open must not create %s", dir)
		})
	}

	// Existing dir without a pebble database.
	_, err := OpenReadOnly(Options{Backend: "pebble", Dir: root, Name: "btc_price_data"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, statErr := os.Stat(filepath.Join(root, "btc_price_data.pebble"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestOpenReadOnly_ReadsExistingRecords(t *testing.T) {
	dir := t.TempDir()
	rec := Record{Mean: 2, Samples: []float64{1, 3}}

	fs, err := NewFileStore(dir, "c", LayoutPerWorker)
	require.NoError(t, err)
	require.NoError(t, fs.Put(AggregateKey, rec))

	ps, err := NewPebbleStore(dir, "c")
	require.NoError(t, err)
	require.NoError(t, ps.Put(AggregateKey, rec))
	require.NoError(t, ps.Close())

	for _, backend := range []string{"file", "pebble"} {
		t.Run(backend, func(t *testing.T) {
			store, err := OpenReadOnly(Options{Backend: backend, Dir: dir, Name: "c"})
			require.NoError(t, err)
			defer store.Close()

			got, err := store.Get(AggregateKey)
			require.NoError(t, err)
			assert.Equal(t, rec, got)
		})
	}

	ro, err := OpenFileStoreReadOnly(dir, "c", LayoutPerWorker)
	require.NoError(t, err)
	assert.ErrorIs(t, ro.Put(WorkerKey(1), rec), ErrReadOnly)
}
