package kvstore

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Store persists one JSON document per key as a file under dir.
// I/O failures never escape: a failed write keeps the value in an
// in-memory fallback so the session continues degraded, and a failed
// read reports "no data".
type Store struct {
	dir string

	mu       sync.Mutex
	fallback map[string][]byte
}

func New(dir string) *Store {
	return &Store{
		dir:      dir,
		fallback: make(map[string][]byte),
	}
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Get returns the stored document for key, or nil when the key is
// missing or unreadable.
func (s *Store) Get(key string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.fallback[key]; ok {
		return b
	}

	b, err := os.ReadFile(s.path(key))
	if err != nil {
		if !os.IsNotExist(err) {
			zap.S().Warnw("kvstore read failed", "key", key, "error", err)
		}
		return nil
	}
	return b
}

// Set replaces the document for key. When the filesystem write fails the
// value is retained in memory and served by subsequent Gets.
func (s *Store) Set(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		zap.S().Warnw("kvstore mkdir failed, keeping value in memory", "key", key, "error", err)
		s.fallback[key] = value
		return
	}

	if err := os.WriteFile(s.path(key), value, 0o644); err != nil {
		zap.S().Warnw("kvstore write failed, keeping value in memory", "key", key, "error", err)
		s.fallback[key] = value
		return
	}
	delete(s.fallback, key)
}

// Delete removes the document for key.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.fallback, key)
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		zap.S().Warnw("kvstore delete failed", "key", key, "error", err)
	}
}
