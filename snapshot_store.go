package slingshot

import (
	"context"
	"os"
	"path/filepath"
	"sync"
)

// DefaultSnapshotKey matches the storage key the product's browser client
// persists its auth state under.
const DefaultSnapshotKey = "authState"

// MemorySnapshotStore keeps the snapshot in process memory.
type MemorySnapshotStore struct {
	mu   sync.RWMutex
	data []byte
	set  bool
}

var _ SnapshotStore = (*MemorySnapshotStore)(nil)

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{}
}

func (s *MemorySnapshotStore) Load(_ context.Context) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return nil, false, nil
	}
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out, true, nil
}

func (s *MemorySnapshotStore) Save(_ context.Context, snapshot []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make([]byte, len(snapshot))
	copy(s.data, snapshot)
	s.set = true
	return nil
}

func (s *MemorySnapshotStore) Remove(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	s.set = false
	return nil
}

// FileSnapshotStore persists the snapshot to a single file so the session
// survives process restarts. Writes go through a temp file rename to keep
// the overwrite atomic.
type FileSnapshotStore struct {
	mu   sync.Mutex
	path string
}

var _ SnapshotStore = (*FileSnapshotStore)(nil)

// NewFileSnapshotStore stores the snapshot at dir/<DefaultSnapshotKey>.json.
func NewFileSnapshotStore(dir string) *FileSnapshotStore {
	return &FileSnapshotStore{
		path: filepath.Join(dir, DefaultSnapshotKey+".json"),
	}
}

func (s *FileSnapshotStore) Load(_ context.Context) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (s *FileSnapshotStore) Save(_ context.Context, snapshot []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, snapshot, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileSnapshotStore) Remove(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
