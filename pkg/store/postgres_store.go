package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/trustfabric/replayseal/pkg/contracts"
)

// PostgresStore is the Postgres-backed Store. The caller opens the
// connection (lib/pq driver) and passes it in; tests substitute sqlmock.
type PostgresStore struct {
	db *sql.DB
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS execution_logs (
	execution_id TEXT PRIMARY KEY,
	trigger_type TEXT,
	trigger_id TEXT,
	document JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS seals (
	execution_id TEXT PRIMARY KEY,
	log_hash TEXT,
	document JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS bindings (
	binding_id TEXT PRIMARY KEY,
	execution_id TEXT,
	document JSONB NOT NULL
);`

// NewPostgresStore wraps db without touching the schema; call Init to
// migrate.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Init creates the tables if they do not exist.
func (s *PostgresStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, pgSchema); err != nil {
		return storageErr("migrate", "postgres", err)
	}
	return nil
}

func (s *PostgresStore) SaveLog(ctx context.Context, log *contracts.ExecutionLog) error {
	doc, err := json.Marshal(log)
	if err != nil {
		return storageErr("encode", log.ExecutionID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO execution_logs (execution_id, trigger_type, trigger_id, document)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (execution_id) DO UPDATE SET document = EXCLUDED.document`,
		log.ExecutionID, string(log.Metadata.TriggerType), log.Metadata.TriggerID, string(doc),
	)
	if err != nil {
		return storageErr("write", log.ExecutionID, err)
	}
	return nil
}

func (s *PostgresStore) LoadLog(ctx context.Context, executionID string) (*contracts.ExecutionLog, error) {
	var log contracts.ExecutionLog
	if err := s.loadDoc(ctx,
		`SELECT document FROM execution_logs WHERE execution_id = $1`,
		executionID, &log); err != nil {
		return nil, err
	}
	return &log, nil
}

func (s *PostgresStore) SaveSeal(ctx context.Context, seal *contracts.Seal) error {
	doc, err := json.Marshal(seal)
	if err != nil {
		return storageErr("encode", seal.ExecutionID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO seals (execution_id, log_hash, document) VALUES ($1, $2, $3)
		 ON CONFLICT (execution_id) DO UPDATE SET document = EXCLUDED.document`,
		seal.ExecutionID, seal.LogHash, string(doc),
	)
	if err != nil {
		return storageErr("write", seal.ExecutionID, err)
	}
	return nil
}

func (s *PostgresStore) LoadSeal(ctx context.Context, executionID string) (*contracts.Seal, error) {
	var seal contracts.Seal
	if err := s.loadDoc(ctx,
		`SELECT document FROM seals WHERE execution_id = $1`,
		executionID, &seal); err != nil {
		return nil, err
	}
	return &seal, nil
}

func (s *PostgresStore) SaveBinding(ctx context.Context, binding *contracts.TrustLogBinding) error {
	doc, err := json.Marshal(binding)
	if err != nil {
		return storageErr("encode", binding.BindingID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO bindings (binding_id, execution_id, document) VALUES ($1, $2, $3)`,
		binding.BindingID, binding.ReplayLog.ExecutionID, string(doc),
	)
	if err != nil {
		return storageErr("write", binding.BindingID, err)
	}
	return nil
}

func (s *PostgresStore) LoadBinding(ctx context.Context, bindingID string) (*contracts.TrustLogBinding, error) {
	var binding contracts.TrustLogBinding
	if err := s.loadDoc(ctx,
		`SELECT document FROM bindings WHERE binding_id = $1`,
		bindingID, &binding); err != nil {
		return nil, err
	}
	return &binding, nil
}

func (s *PostgresStore) ListExecutionIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT execution_id FROM execution_logs ORDER BY execution_id`)
	if err != nil {
		return nil, storageErr("list", "execution_logs", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storageErr("list", "execution_logs", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list", "execution_logs", err)
	}
	return ids, nil
}

func (s *PostgresStore) loadDoc(ctx context.Context, query, key string, v any) error {
	var doc string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return contracts.ErrNotFound
	}
	if err != nil {
		return storageErr("read", key, err)
	}
	if err := json.Unmarshal([]byte(doc), v); err != nil {
		return storageErr("decode", key, err)
	}
	return nil
}
