package storage

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound is returned when a requested key does not exist.
var ErrNotFound = errors.New("not found")

// Keys under which the logbook state is persisted. The names match the keys
// the browser version wrote to localStorage so exported blobs stay compatible.
const (
	KeyReports             = "visitReports"
	KeyRecentEntries       = "recentEntries"
	KeyCustomerSuggestions = "customerSuggestions"
	KeyPurposeSuggestions  = "purposeSuggestions"
)

// Blobs is a key-value store of opaque values. Every Put overwrites the whole
// value stored under the key.
type Blobs interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Close() error
}

// Driver names accepted by OpenDriver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// OpenDriver opens the blob store selected by driver. dataDir is used by
// sqlite, dsn by postgres.
func OpenDriver(driver, dataDir, dsn string) (Blobs, error) {
	switch driver {
	case "", DriverSQLite:
		return Open(dataDir)
	case DriverPostgres:
		return OpenPostgres(dsn)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

// Memory is an in-process Blobs implementation used by tests and dry runs.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// Keys returns the stored keys in ascending order.
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *Memory) Close() error { return nil }
