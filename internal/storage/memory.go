package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"calmkit/internal/model"
)

var errNotInitialized = errors.New("store is not initialized")

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	models      map[string]model.ModelRecord
	libraries   map[string]model.LibraryRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.models = make(map[string]model.ModelRecord)
	s.libraries = make(map[string]model.LibraryRecord)
	return nil
}

func (s *MemoryStore) SaveModel(_ context.Context, record model.ModelRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return err
	}
	record.Data = append([]byte(nil), record.Data...)
	s.models[record.Name] = record
	return nil
}

func (s *MemoryStore) GetModel(_ context.Context, name string) (model.ModelRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.models[name]
	if ok {
		record.Data = append([]byte(nil), record.Data...)
	}
	return record, ok, nil
}

func (s *MemoryStore) ListModels(_ context.Context) ([]model.ModelRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.ModelRecord, 0, len(s.models))
	for _, record := range s.models {
		record.Data = append([]byte(nil), record.Data...)
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) DeleteModel(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.models, name)
	return nil
}

func (s *MemoryStore) SaveLibrary(_ context.Context, record model.LibraryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return err
	}
	record.Behaviors = append([]model.Behavior(nil), record.Behaviors...)
	s.libraries[record.Name] = record
	return nil
}

func (s *MemoryStore) GetLibrary(_ context.Context, name string) (model.LibraryRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.libraries[name]
	return record, ok, nil
}

func (s *MemoryStore) ListLibraries(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.libraries))
	for name := range s.libraries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
