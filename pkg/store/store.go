// Package store provides the durable persistence layer for execution logs,
// seals, and trust log bindings. Implementations guarantee that a failed
// write never leaves a partial resource visible to readers.
package store

import (
	"context"

	"github.com/trustfabric/replayseal/pkg/contracts"
)

// Store is the durable interface for engine resources. Logs and seals are
// keyed by execution ID, bindings by binding ID. Lookups that miss return
// contracts.ErrNotFound.
type Store interface {
	// SaveLog persists an execution log.
	SaveLog(ctx context.Context, log *contracts.ExecutionLog) error

	// LoadLog retrieves an execution log by execution ID.
	LoadLog(ctx context.Context, executionID string) (*contracts.ExecutionLog, error)

	// SaveSeal persists a seal.
	SaveSeal(ctx context.Context, seal *contracts.Seal) error

	// LoadSeal retrieves a seal by execution ID.
	LoadSeal(ctx context.Context, executionID string) (*contracts.Seal, error)

	// SaveBinding persists a trust log binding.
	SaveBinding(ctx context.Context, binding *contracts.TrustLogBinding) error

	// LoadBinding retrieves a binding by binding ID.
	LoadBinding(ctx context.Context, bindingID string) (*contracts.TrustLogBinding, error)

	// ListExecutionIDs returns every execution ID with a persisted log,
	// in stable order.
	ListExecutionIDs(ctx context.Context) ([]string, error)
}

func storageErr(op, key string, err error) error {
	return &contracts.StorageError{Op: op, Key: key, Err: err}
}
