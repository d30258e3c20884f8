// Package memory stores objects in-memory for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/civicledger/actas-harvester/internal/harvest"
)

// ObjectStore keeps uploaded objects in a map. A failure error can be injected
// to exercise upload error paths.
type ObjectStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	failErr error
}

// NewObjectStore creates an in-memory object store.
func NewObjectStore() *ObjectStore {
	return &ObjectStore{objects: make(map[string][]byte)}
}

// FailWith makes every subsequent Put return err. Pass nil to heal the store.
func (s *ObjectStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

// Put stores data under key and reports the full length to progress.
func (s *ObjectStore) Put(_ context.Context, key string, data []byte, progress harvest.ProgressFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.objects[key] = append([]byte(nil), data...)
	if progress != nil {
		progress(int64(len(data)))
	}
	return nil
}

// Size returns the stored byte size of key.
func (s *ObjectStore) Size(_ context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return 0, fmt.Errorf("object %s not found", key)
	}
	return int64(len(data)), nil
}

// Delete removes key.
func (s *ObjectStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return fmt.Errorf("object %s not found", key)
	}
	delete(s.objects, key)
	return nil
}

// Object returns a copy of the stored bytes for key, or nil if absent.
func (s *ObjectStore) Object(key string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return nil
	}
	return append([]byte(nil), data...)
}

// Len reports the number of stored objects.
func (s *ObjectStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
