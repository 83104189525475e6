// Package recorder owns one execution's append-only, hash-chained event
// log: it records entries during a live run and seals the finished log
// into an immutable digest set.
package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trustfabric/replayseal/pkg/canonicalize"
	"github.com/trustfabric/replayseal/pkg/contracts"
	"github.com/trustfabric/replayseal/pkg/store"
	"github.com/trustfabric/replayseal/pkg/tether"
)

// ModuleID identifies the recorder to the tether checker.
const ModuleID = "execution_log_recorder"

// state is the recorder lifecycle: Idle -> Recording -> Sealed.
type state int

const (
	stateIdle state = iota
	stateRecording
	stateSealed
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateRecording:
		return "recording"
	case stateSealed:
		return "sealed"
	}
	return "unknown"
}

// Recorder records one execution at a time. Appends are serialized by an
// internal mutex (single writer per execution); separate Recorder
// instances are independent.
type Recorder struct {
	mu sync.Mutex

	st      state
	log     contracts.ExecutionLog
	prev    string
	nextSeq uint64

	store   store.Store
	checker *tether.Checker
	exp     tether.Expectation
	clock   func() time.Time
	newID   func() string
	logger  *slog.Logger
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock overrides the clock for testing.
func WithClock(clock func() time.Time) Option {
	return func(r *Recorder) { r.clock = clock }
}

// WithIDSource overrides execution ID generation for testing.
func WithIDSource(newID func() string) Option {
	return func(r *Recorder) { r.newID = newID }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) { r.logger = logger }
}

// New creates an idle Recorder. checker gates Start; st receives the log
// and seal at finalization.
func New(st store.Store, checker *tether.Checker, exp tether.Expectation, opts ...Option) *Recorder {
	r := &Recorder{
		st:      stateIdle,
		store:   st,
		checker: checker,
		exp:     exp,
		clock:   time.Now,
		newID:   func() string { return uuid.NewString() },
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.exp.ModuleID = ModuleID
	return r
}

// Start begins recording a fresh execution and returns its execution ID.
// Fails closed if the tether check does not pass.
func (r *Recorder) Start(triggerType contracts.TriggerType, triggerID string, seed int64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.st != stateIdle {
		return "", fmt.Errorf("start from %s: %w", r.st, contracts.ErrInvalidState)
	}
	if r.checker != nil {
		if err := r.checker.Gate(r.exp); err != nil {
			return "", err
		}
	}

	envHash, err := environmentHash()
	if err != nil {
		return "", fmt.Errorf("environment fingerprint: %w", err)
	}

	executionID := r.newID()
	r.log = contracts.ExecutionLog{
		ExecutionID: executionID,
		Entries:     []contracts.LogEntry{},
		Metadata: contracts.LogMetadata{
			ContractVersion: r.exp.ContractVersion,
			PhaseID:         "execution",
			TriggerType:     triggerType,
			TriggerID:       triggerID,
			StartTime:       r.timestamp(),
			RandomSeed:      seed,
			EnvironmentHash: envHash,
		},
	}
	r.prev = canonicalize.GenesisHash
	r.nextSeq = 0
	r.st = stateRecording

	r.logger.Info("recording started",
		"execution_id", executionID,
		"trigger_type", string(triggerType),
		"trigger_id", triggerID)
	return executionID, nil
}

// Append records one event and advances the hash chain. Event types
// outside the closed set are rejected.
func (r *Recorder) Append(eventType contracts.EventType, data map[string]any) (*contracts.LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.st != stateRecording {
		return nil, fmt.Errorf("append from %s: %w", r.st, contracts.ErrInvalidState)
	}
	if !contracts.ValidEventType(eventType) {
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}

	current, err := canonicalize.ChainHash(r.prev, data)
	if err != nil {
		return nil, fmt.Errorf("chain hash: %w", err)
	}

	entry := contracts.LogEntry{
		EntryID:      r.nextSeq,
		Timestamp:    r.timestamp(),
		EventType:    eventType,
		EventData:    data,
		PreviousHash: r.prev,
		CurrentHash:  current,
	}
	r.log.Entries = append(r.log.Entries, entry)
	r.prev = current
	r.nextSeq++

	return &entry, nil
}

// Finalize seals the log: computes the seal hash triple, stamps the end
// time, persists both the log and the seal, and transitions to Sealed.
// Only valid while Recording.
func (r *Recorder) Finalize(ctx context.Context) (*contracts.Seal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.st != stateRecording {
		return nil, fmt.Errorf("finalize from %s: %w", r.st, contracts.ErrInvalidState)
	}

	r.log.Metadata.EndTime = r.timestamp()

	hashes, err := contracts.ComputeSealHashes(&r.log)
	if err != nil {
		return nil, fmt.Errorf("seal hashes: %w", err)
	}

	seal := &contracts.Seal{
		ExecutionID:     r.log.ExecutionID,
		InputHash:       hashes.Input,
		OutputHash:      hashes.Output,
		LogHash:         hashes.Log,
		Timestamp:       r.log.Metadata.EndTime,
		ContractVersion: r.log.Metadata.ContractVersion,
		PhaseID:         r.log.Metadata.PhaseID,
		TriggerMetadata: contracts.TriggerMetadata{
			TriggerID:   r.log.Metadata.TriggerID,
			TriggerType: r.log.Metadata.TriggerType,
		},
		SealVersion: contracts.SealVersion,
	}

	if err := r.store.SaveLog(ctx, &r.log); err != nil {
		return nil, err
	}
	if err := r.store.SaveSeal(ctx, seal); err != nil {
		return nil, err
	}

	r.st = stateSealed
	r.logger.Info("execution sealed",
		"execution_id", r.log.ExecutionID,
		"entries", len(r.log.Entries),
		"log_hash", seal.LogHash)
	return seal, nil
}

// Log returns a snapshot of the current log.
func (r *Recorder) Log() contracts.ExecutionLog {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.log
	out.Entries = append([]contracts.LogEntry(nil), r.log.Entries...)
	return out
}

func (r *Recorder) timestamp() string {
	return r.clock().UTC().Format(time.RFC3339Nano)
}

// environmentHash fingerprints the runtime environment the execution ran
// in. Stable within one host and toolchain.
func environmentHash() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return canonicalize.CanonicalHash(map[string]string{
		"go_version": runtime.Version(),
		"goarch":     runtime.GOARCH,
		"goos":       runtime.GOOS,
		"hostname":   hostname,
	})
}
