package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/trustfabric/replayseal/pkg/contracts"
)

// FileStore persists each resource as one JSON file under a data directory:
//
//	<dir>/logs/<execution_id>.json
//	<dir>/seals/<execution_id>.json
//	<dir>/bindings/<binding_id>.json
//
// Writes go to a temp file in the same directory and are renamed into
// place, so readers never observe a partial resource.
type FileStore struct {
	mu  sync.RWMutex
	dir string
}

// NewFileStore creates a FileStore rooted at dir, creating the resource
// subdirectories if needed.
func NewFileStore(dir string) (*FileStore, error) {
	for _, sub := range []string{"logs", "seals", "bindings"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o700); err != nil {
			return nil, storageErr("init", sub, err)
		}
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) SaveLog(ctx context.Context, log *contracts.ExecutionLog) error {
	return s.write("logs", log.ExecutionID, log)
}

func (s *FileStore) LoadLog(ctx context.Context, executionID string) (*contracts.ExecutionLog, error) {
	var log contracts.ExecutionLog
	if err := s.read("logs", executionID, &log); err != nil {
		return nil, err
	}
	return &log, nil
}

func (s *FileStore) SaveSeal(ctx context.Context, seal *contracts.Seal) error {
	return s.write("seals", seal.ExecutionID, seal)
}

func (s *FileStore) LoadSeal(ctx context.Context, executionID string) (*contracts.Seal, error) {
	var seal contracts.Seal
	if err := s.read("seals", executionID, &seal); err != nil {
		return nil, err
	}
	return &seal, nil
}

func (s *FileStore) SaveBinding(ctx context.Context, binding *contracts.TrustLogBinding) error {
	return s.write("bindings", binding.BindingID, binding)
}

func (s *FileStore) LoadBinding(ctx context.Context, bindingID string) (*contracts.TrustLogBinding, error) {
	var binding contracts.TrustLogBinding
	if err := s.read("bindings", bindingID, &binding); err != nil {
		return nil, err
	}
	return &binding, nil
}

func (s *FileStore) ListExecutionIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(s.dir, "logs"))
	if err != nil {
		return nil, storageErr("list", "logs", err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *FileStore) path(kind, id string) string {
	return filepath.Join(s.dir, kind, id+".json")
}

// write marshals v and atomically replaces the target file.
func (s *FileStore) write(kind, id string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return storageErr("encode", id, err)
	}

	target := s.path(kind, id)
	tmp, err := os.CreateTemp(filepath.Dir(target), ".tmp-"+id+"-*")
	if err != nil {
		return storageErr("write", id, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return storageErr("write", id, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return storageErr("write", id, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return storageErr("write", id, err)
	}
	return nil
}

func (s *FileStore) read(kind, id string, v any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(kind, id))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s %q: %w", kind, id, contracts.ErrNotFound)
		}
		return storageErr("read", id, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return storageErr("decode", id, err)
	}
	return nil
}
