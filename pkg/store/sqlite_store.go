package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/trustfabric/replayseal/pkg/contracts"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists resources as JSON documents in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS execution_logs (
	execution_id TEXT PRIMARY KEY,
	trigger_type TEXT,
	trigger_id TEXT,
	document JSON NOT NULL
);
CREATE TABLE IF NOT EXISTS seals (
	execution_id TEXT PRIMARY KEY,
	log_hash TEXT,
	document JSON NOT NULL
);
CREATE TABLE IF NOT EXISTS bindings (
	binding_id TEXT PRIMARY KEY,
	execution_id TEXT,
	document JSON NOT NULL
);`

// NewSQLiteStore creates a store over db, migrating the schema on open.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if _, err := db.ExecContext(context.Background(), sqliteSchema); err != nil {
		return nil, storageErr("migrate", "sqlite", err)
	}
	return s, nil
}

// OpenSQLiteStore opens (or creates) a SQLite database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storageErr("open", path, err)
	}
	return NewSQLiteStore(db)
}

func (s *SQLiteStore) SaveLog(ctx context.Context, log *contracts.ExecutionLog) error {
	doc, err := json.Marshal(log)
	if err != nil {
		return storageErr("encode", log.ExecutionID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO execution_logs (execution_id, trigger_type, trigger_id, document)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(execution_id) DO UPDATE SET document = excluded.document`,
		log.ExecutionID, string(log.Metadata.TriggerType), log.Metadata.TriggerID, string(doc),
	)
	if err != nil {
		return storageErr("write", log.ExecutionID, err)
	}
	return nil
}

func (s *SQLiteStore) LoadLog(ctx context.Context, executionID string) (*contracts.ExecutionLog, error) {
	var log contracts.ExecutionLog
	if err := s.loadDoc(ctx,
		`SELECT document FROM execution_logs WHERE execution_id = ?`,
		executionID, &log); err != nil {
		return nil, err
	}
	return &log, nil
}

func (s *SQLiteStore) SaveSeal(ctx context.Context, seal *contracts.Seal) error {
	doc, err := json.Marshal(seal)
	if err != nil {
		return storageErr("encode", seal.ExecutionID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO seals (execution_id, log_hash, document) VALUES (?, ?, ?)
		 ON CONFLICT(execution_id) DO UPDATE SET document = excluded.document`,
		seal.ExecutionID, seal.LogHash, string(doc),
	)
	if err != nil {
		return storageErr("write", seal.ExecutionID, err)
	}
	return nil
}

func (s *SQLiteStore) LoadSeal(ctx context.Context, executionID string) (*contracts.Seal, error) {
	var seal contracts.Seal
	if err := s.loadDoc(ctx,
		`SELECT document FROM seals WHERE execution_id = ?`,
		executionID, &seal); err != nil {
		return nil, err
	}
	return &seal, nil
}

func (s *SQLiteStore) SaveBinding(ctx context.Context, binding *contracts.TrustLogBinding) error {
	doc, err := json.Marshal(binding)
	if err != nil {
		return storageErr("encode", binding.BindingID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO bindings (binding_id, execution_id, document) VALUES (?, ?, ?)`,
		binding.BindingID, binding.ReplayLog.ExecutionID, string(doc),
	)
	if err != nil {
		return storageErr("write", binding.BindingID, err)
	}
	return nil
}

func (s *SQLiteStore) LoadBinding(ctx context.Context, bindingID string) (*contracts.TrustLogBinding, error) {
	var binding contracts.TrustLogBinding
	if err := s.loadDoc(ctx,
		`SELECT document FROM bindings WHERE binding_id = ?`,
		bindingID, &binding); err != nil {
		return nil, err
	}
	return &binding, nil
}

func (s *SQLiteStore) ListExecutionIDs(ctx context.Context) ([]string, error) {
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

func (s *SQLiteStore) loadDoc(ctx context.Context, query, key string, v any) error {
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
