package cache

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	// AggregateKey is the key of the final trusted result.
	AggregateKey = "aggregate"

	workerKeyPrefix = "worker/"
)

// Record is one cached result: a mean followed by the values it was computed from.
type Record struct {
	Mean    float64
	Samples []float64
}

// Store persists records by key.
type Store interface {
	Put(key string, rec Record) error
	Get(key string) (Record, error)
	// Keys lists stored keys, aggregate first, then workers by ascending id.
	Keys() ([]string, error)
	Close() error
}

// WorkerKey returns the key under which a worker's record is stored.
func WorkerKey(workerID int) string {
	return workerKeyPrefix + strconv.Itoa(workerID)
}

// ParseWorkerKey extracts the worker id from a worker key.
func ParseWorkerKey(key string) (int, bool) {
	if !strings.HasPrefix(key, workerKeyPrefix) {
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimPrefix(key, workerKeyPrefix))
	if err != nil {
		return 0, false
	}
	return id, true
}

// Encode renders rec in the plain-text cache format: the mean on the first
// line, then one sample per line, all with four decimal places.
func Encode(rec Record) []byte {
	var buf bytes.Buffer
	buf.Grow((len(rec.Samples) + 1) * 16)
	writeValue(&buf, rec.Mean)
	for _, s := range rec.Samples {
		writeValue(&buf, s)
	}
	return buf.Bytes()
}

func writeValue(buf *bytes.Buffer, v float64) {
	buf.Write(strconv.AppendFloat(nil, v, 'f', 4, 64))
	buf.WriteByte('\n')
}

// Decode parses the plain-text cache format.
func Decode(data []byte) (Record, error) {
	var (
		rec   Record
		first = true
		line  int
	)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Record{}, fmt.Errorf("%w: line %d: %v", ErrCorruptRecord, line, err)
		}
		if first {
			rec.Mean = v
			first = false
			continue
		}
		rec.Samples = append(rec.Samples, v)
	}
	if err := scanner.Err(); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if first {
		return Record{}, fmt.Errorf("%w: empty record", ErrCorruptRecord)
	}
	return rec, nil
}

// sortKeys orders keys aggregate first, then workers by id, then anything else lexically.
func sortKeys(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		ki, kj := keys[i], keys[j]
		if ki == AggregateKey || kj == AggregateKey {
			return ki == AggregateKey && kj != AggregateKey
		}
		ii, iok := ParseWorkerKey(ki)
		ij, jok := ParseWorkerKey(kj)
		if iok && jok {
			return ii < ij
		}
		if iok != jok {
			return iok
		}
		return ki < kj
	})
}
