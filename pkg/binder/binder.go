// Package binder packages a verified execution log into a read-only,
// schema-validated trust log binding for presentation layers. The binding
// is created once; a re-verification produces a new binding rather than
// updating an existing one.
package binder

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/text/unicode/norm"

	"github.com/trustfabric/replayseal/pkg/canonicalize"
	"github.com/trustfabric/replayseal/pkg/contracts"
	"github.com/trustfabric/replayseal/pkg/observability"
	"github.com/trustfabric/replayseal/pkg/store"
	"github.com/trustfabric/replayseal/pkg/tether"
	"github.com/trustfabric/replayseal/pkg/verifier"
)

// ModuleID identifies the binder to the tether checker. Distinct from the
// verification service's module ID.
const ModuleID = "trust_log_binder"

// SchemaID is the binding's entry in the contract descriptor's schema
// registry.
const SchemaID = "trust_log_binding"

// DefaultSchemaJSON is the embedded binding schema. Deployments may
// override it via WithSchemaJSON, but the shipped engine and its tests
// validate against this document.
//
//go:embed trust_log_binding.schema.json
var DefaultSchemaJSON string

// Binder builds and persists trust log bindings.
type Binder struct {
	store   store.Store
	checker *tether.Checker
	exp     tether.Expectation
	schema  *jsonschema.Schema
	clock   func() time.Time
	newID   func() string
	obs     *observability.Provider
	logger  *slog.Logger

	schemaJSON string
}

// Option configures a Binder.
type Option func(*Binder)

// WithClock overrides the clock for testing.
func WithClock(clock func() time.Time) Option {
	return func(b *Binder) { b.clock = clock }
}

// WithIDSource overrides binding/log ID generation for testing.
func WithIDSource(newID func() string) Option {
	return func(b *Binder) { b.newID = newID }
}

// WithSchemaJSON replaces the embedded binding schema.
func WithSchemaJSON(schemaJSON string) Option {
	return func(b *Binder) { b.schemaJSON = schemaJSON }
}

// WithObservability attaches tracing and RED metrics.
func WithObservability(obs *observability.Provider) Option {
	return func(b *Binder) { b.obs = obs }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Binder) { b.logger = logger }
}

// New creates a Binder and compiles its schema.
func New(st store.Store, checker *tether.Checker, exp tether.Expectation, opts ...Option) (*Binder, error) {
	b := &Binder{
		store:      st,
		checker:    checker,
		exp:        exp,
		clock:      time.Now,
		newID:      func() string { return uuid.NewString() },
		obs:        observability.Noop(),
		logger:     slog.Default(),
		schemaJSON: DefaultSchemaJSON,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.exp.ModuleID = ModuleID

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	schemaURL := "https://replayseal.schemas.local/trust_log_binding.schema.json"
	if err := compiler.AddResource(schemaURL, bytes.NewReader([]byte(b.schemaJSON))); err != nil {
		return nil, fmt.Errorf("binding schema load failed: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("binding schema compile failed: %w", err)
	}
	b.schema = schema
	return b, nil
}

// Bind sanitizes log, recomputes its Merkle root, snapshots the
// verification status from result, validates the assembled binding
// against the external schema, and persists it. A schema failure aborts
// the operation; nothing is persisted.
func (b *Binder) Bind(ctx context.Context, log *contracts.ExecutionLog, result *contracts.VerificationResult) (binding *contracts.TrustLogBinding, err error) {
	ctx, end := b.obs.Span(ctx, "binder.Bind")
	defer func() { end(err) }()

	if b.checker != nil {
		if err = b.checker.Gate(b.exp); err != nil {
			return nil, err
		}
	}

	entries := sanitizeEntries(log.Entries)

	// The Merkle root is always recomputed over the sanitized entries,
	// never copied from the supplied result, so the binding stays
	// self-consistent even against a stale VerificationResult.
	hashes := make([]string, len(entries))
	for i, e := range entries {
		hashes[i] = e.CurrentHash
	}
	root := verifier.MerkleRoot(hashes)

	binding = &contracts.TrustLogBinding{
		BindingID:       b.newID(),
		ContractVersion: b.exp.ContractVersion,
		Timestamp:       b.clock().UTC().Format(time.RFC3339Nano),
		ReplayLog: contracts.ReplayLog{
			LogID:       b.newID(),
			ExecutionID: log.ExecutionID,
			Entries:     entries,
			MerkleRoot:  root,
			VerificationStatus: contracts.VerificationStatus{
				IsVerified:            result.Passed(),
				VerificationTimestamp: result.Timestamp,
				VerificationMethod:    result.VerificationMethod,
				VerificationID:        result.VerificationID,
			},
		},
		UIBinding: contracts.UIBinding{
			ModuleID:    "trust_log_viewer",
			ViewID:      "replay_log_detail",
			BindingType: "replay_log",
			DisplayOptions: map[string]any{
				"order": "chronological",
			},
			AccessControl: contracts.AccessControl{
				ReadOnly:      true,
				RequiredRoles: []string{contracts.RoleOperator, contracts.RoleAuditor},
			},
		},
		// Never nil: the schema requires an array, and empty clause sets
		// must serialize as [].
		CodexClauses: append([]string{}, b.exp.Clauses...),
	}

	if err = b.validate(binding); err != nil {
		return nil, err
	}

	if err = b.store.SaveBinding(ctx, binding); err != nil {
		return nil, err
	}

	b.logger.Info("trust log binding created",
		"binding_id", binding.BindingID,
		"execution_id", log.ExecutionID,
		"merkle_root", root,
		"is_verified", binding.ReplayLog.VerificationStatus.IsVerified)
	return binding, nil
}

// validate checks the binding against the compiled schema via a JSON
// round trip, so exactly the wire shape is validated.
func (b *Binder) validate(binding *contracts.TrustLogBinding) error {
	raw, err := json.Marshal(binding)
	if err != nil {
		return &contracts.SchemaValidationError{Resource: SchemaID, Err: err}
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return &contracts.SchemaValidationError{Resource: SchemaID, Err: err}
	}
	if err := b.schema.Validate(doc); err != nil {
		return &contracts.SchemaValidationError{Resource: SchemaID, Err: err}
	}
	return nil
}

// sanitizeEntries normalizes entries for external consumers: malformed
// hash strings are replaced with the genesis hash and string payload
// values are NFC-normalized. Sanitization is presentation-side defense
// only; it never decides chain validity.
func sanitizeEntries(entries []contracts.LogEntry) []contracts.LogEntry {
	out := make([]contracts.LogEntry, len(entries))
	for i, e := range entries {
		s := e
		if !canonicalize.IsHexDigest(s.PreviousHash) {
			s.PreviousHash = canonicalize.GenesisHash
		}
		if !canonicalize.IsHexDigest(s.CurrentHash) {
			s.CurrentHash = canonicalize.GenesisHash
		}
		if s.EventData != nil {
			s.EventData = normalizeMap(s.EventData)
		}
		out[i] = s
	}
	return out
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[norm.NFC.String(k)] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case string:
		return norm.NFC.String(t)
	case map[string]any:
		return normalizeMap(t)
	case []any:
		out := make([]any, len(t))
		for i, elem := range t {
			out[i] = normalizeValue(elem)
		}
		return out
	default:
		return v
	}
}
