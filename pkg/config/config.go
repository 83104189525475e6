// Package config loads engine configuration from environment variables,
// optionally layered with a YAML engine profile.
package config

import (
	"os"
	"strconv"
	"time"
)

// Store driver names accepted in REPLAYSEAL_STORE.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds engine configuration.
type Config struct {
	// StoreDriver selects the persistence backend: memory, file, sqlite
	// or postgres.
	StoreDriver string
	// DataDir is the root for the file store and the sqlite database.
	DataDir string
	// DatabaseURL is the postgres connection string; only read when
	// StoreDriver is postgres.
	DatabaseURL string

	// LockPath is the contract descriptor lock file the tether checker
	// reads. SchemaDir holds the schema resources the descriptor's
	// registry points at.
	LockPath  string
	SchemaDir string

	// ContractVersion is the version every module expects the lock file
	// to carry. A YAML profile overrides it when loaded.
	ContractVersion string

	// NodeID names this verifier in consensus details.
	NodeID string

	// SignatureTimeout bounds a single seal signature check.
	SignatureTimeout time.Duration

	LogLevel     string
	OTLPEndpoint string
}

// Load reads configuration from environment variables, applying defaults
// for anything unset.
func Load() *Config {
	cfg := &Config{
		StoreDriver:      envOr("REPLAYSEAL_STORE", DriverFile),
		DataDir:          envOr("REPLAYSEAL_DATA_DIR", "./data"),
		DatabaseURL:      envOr("DATABASE_URL", "postgres://replayseal@localhost:5432/replayseal?sslmode=disable"),
		LockPath:         envOr("REPLAYSEAL_LOCK_PATH", "./contract.lock.json"),
		SchemaDir:        envOr("REPLAYSEAL_SCHEMA_DIR", "./schemas"),
		ContractVersion:  envOr("REPLAYSEAL_CONTRACT_VERSION", "v2"),
		NodeID:           envOr("REPLAYSEAL_NODE_ID", "replayseal-local"),
		SignatureTimeout: 2 * time.Second,
		LogLevel:         envOr("LOG_LEVEL", "INFO"),
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if raw := os.Getenv("REPLAYSEAL_SIGNATURE_TIMEOUT_MS"); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil && ms > 0 {
			cfg.SignatureTimeout = time.Duration(ms) * time.Millisecond
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
