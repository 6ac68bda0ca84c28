package testing

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// MockSnapshotStore is an in-memory snapshot store for testing
type MockSnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
	fetchedAt map[string]time.Time
	expiresAt map[string]time.Time
	stores    int
	err       error
}

// NewMockSnapshotStore creates a new mock snapshot store
func NewMockSnapshotStore() *MockSnapshotStore {
	return &MockSnapshotStore{
		snapshots: make(map[string][]byte),
		fetchedAt: make(map[string]time.Time),
		expiresAt: make(map[string]time.Time),
	}
}

// SetError sets the error to return
func (m *MockSnapshotStore) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Store saves items
func (m *MockSnapshotStore) Store(collection string, items interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	now := time.Now()
	m.snapshots[collection] = data
	m.fetchedAt[collection] = now
	m.expiresAt[collection] = now.Add(ttl)
	m.stores++
	return nil
}

// Get decodes a stored snapshot into out
func (m *MockSnapshotStore) Get(collection string, out interface{}) (time.Time, bool, error) {
	return m.load(collection, out, false)
}

// GetIfFresh decodes a stored snapshot into out unless it expired
func (m *MockSnapshotStore) GetIfFresh(collection string, out interface{}) (time.Time, bool, error) {
	return m.load(collection, out, true)
}

func (m *MockSnapshotStore) load(collection string, out interface{}, freshOnly bool) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return time.Time{}, false, m.err
	}
	data, ok := m.snapshots[collection]
	if !ok || (freshOnly && !time.Now().Before(m.expiresAt[collection])) {
		return time.Time{}, false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return time.Time{}, false, errors.Join(errors.New("corrupt snapshot"), err)
	}
	return m.fetchedAt[collection], true, nil
}

// Has reports whether a snapshot was stored for collection
func (m *MockSnapshotStore) Has(collection string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.snapshots[collection]
	return ok
}

// Stores returns how many snapshots were written
func (m *MockSnapshotStore) Stores() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stores
}
