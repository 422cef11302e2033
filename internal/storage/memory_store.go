package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// MemoryStore is an in-memory ObjectStore used by tests and when the render
// cache directory is disabled.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]*Object
	puts    int
	gets    int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]*Object)}
}

func (m *MemoryStore) Put(_ context.Context, obj *Object) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++

	hash := obj.Hash
	if hash == "" {
		sum := sha256.Sum256(obj.Data)
		hash = hex.EncodeToString(sum[:])
	}
	if _, ok := m.objects[hash]; ok {
		return hash, nil
	}

	data := make([]byte, len(obj.Data))
	copy(data, obj.Data)
	now := time.Now()
	m.objects[hash] = &Object{
		Hash: hash,
		Type: obj.Type,
		Size: int64(len(data)),
		Data: data,
		Metadata: Metadata{
			CreatedAt:    now,
			LastAccessed: now,
			Custom:       obj.Metadata.Custom,
		},
	}
	return hash, nil
}

func (m *MemoryStore) Get(_ context.Context, hash string) (*Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++

	obj, ok := m.objects[hash]
	if !ok {
		return nil, ErrNotFound{Hash: hash}
	}
	obj.Metadata.LastAccessed = time.Now()
	cp := *obj
	return &cp, nil
}

func (m *MemoryStore) Exists(_ context.Context, hash string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[hash]
	return ok, nil
}

func (m *MemoryStore) Delete(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[hash]; !ok {
		return ErrNotFound{Hash: hash}
	}
	delete(m.objects, hash)
	return nil
}

func (m *MemoryStore) List(_ context.Context, objectType ObjectType) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var hashes []string
	for hash, obj := range m.objects {
		if objectType == "" || obj.Type == objectType {
			hashes = append(hashes, hash)
		}
	}
	return hashes, nil
}

func (m *MemoryStore) GC(_ context.Context, keep map[string]bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for hash := range m.objects {
		if !keep[hash] {
			delete(m.objects, hash)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryStore) Close() error { return nil }

// Counts returns how many Put and Get calls the store has served.
func (m *MemoryStore) Counts() (puts, gets int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts, m.gets
}
