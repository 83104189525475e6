package store

import (
	"context"
	"sort"
	"sync"

	"github.com/trustfabric/replayseal/pkg/contracts"
)

// MemoryStore is a transient Store for tests and embedded use.
type MemoryStore struct {
	mu       sync.RWMutex
	logs     map[string]contracts.ExecutionLog
	seals    map[string]contracts.Seal
	bindings map[string]contracts.TrustLogBinding
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		logs:     make(map[string]contracts.ExecutionLog),
		seals:    make(map[string]contracts.Seal),
		bindings: make(map[string]contracts.TrustLogBinding),
	}
}

func (s *MemoryStore) SaveLog(ctx context.Context, log *contracts.ExecutionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[log.ExecutionID] = *log
	return nil
}

func (s *MemoryStore) LoadLog(ctx context.Context, executionID string) (*contracts.ExecutionLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log, ok := s.logs[executionID]
	if !ok {
		return nil, contracts.ErrNotFound
	}
	out := log
	out.Entries = append([]contracts.LogEntry(nil), log.Entries...)
	return &out, nil
}

func (s *MemoryStore) SaveSeal(ctx context.Context, seal *contracts.Seal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seals[seal.ExecutionID] = *seal
	return nil
}

func (s *MemoryStore) LoadSeal(ctx context.Context, executionID string) (*contracts.Seal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seal, ok := s.seals[executionID]
	if !ok {
		return nil, contracts.ErrNotFound
	}
	out := seal
	return &out, nil
}

func (s *MemoryStore) SaveBinding(ctx context.Context, binding *contracts.TrustLogBinding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings[binding.BindingID] = *binding
	return nil
}

func (s *MemoryStore) LoadBinding(ctx context.Context, bindingID string) (*contracts.TrustLogBinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	binding, ok := s.bindings[bindingID]
	if !ok {
		return nil, contracts.ErrNotFound
	}
	out := binding
	return &out, nil
}

func (s *MemoryStore) ListExecutionIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.logs))
	for id := range s.logs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
