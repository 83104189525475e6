// Package seals orchestrates seal verification: it resolves persisted
// (log, seal) pairs, gates on the contract tether, delegates to the replay
// verifier, layers seal-level integrity and signature checks on top, and
// keeps an append-only verification history.
package seals

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/trustfabric/replayseal/pkg/canonicalize"
	"github.com/trustfabric/replayseal/pkg/contracts"
	"github.com/trustfabric/replayseal/pkg/crypto"
	"github.com/trustfabric/replayseal/pkg/observability"
	"github.com/trustfabric/replayseal/pkg/store"
	"github.com/trustfabric/replayseal/pkg/tether"
	"github.com/trustfabric/replayseal/pkg/verifier"
)

// ModuleID identifies the verification service to the tether checker.
const ModuleID = "seal_verification_service"

// DefaultSignatureTimeout bounds the injected signature capability call.
const DefaultSignatureTimeout = 2 * time.Second

// Service verifies seals against their logs. Verification is idempotent
// and read-only with respect to the stored log and seal; only the
// in-memory history grows.
type Service struct {
	store    store.Store
	checker  *tether.Checker
	exp      tether.Expectation
	verifier *verifier.Verifier

	sealVerifier crypto.SealVerifier
	sigTimeout   time.Duration

	mu      sync.RWMutex
	history []contracts.VerificationResult

	obs    *observability.Provider
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithSealVerifier injects the signature verification capability.
func WithSealVerifier(v crypto.SealVerifier) Option {
	return func(s *Service) { s.sealVerifier = v }
}

// WithSignatureTimeout bounds the signature capability call.
func WithSignatureTimeout(d time.Duration) Option {
	return func(s *Service) { s.sigTimeout = d }
}

// WithObservability attaches tracing and RED metrics.
func WithObservability(obs *observability.Provider) Option {
	return func(s *Service) { s.obs = obs }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New creates a Service over st, gated by checker and delegating to v.
func New(st store.Store, checker *tether.Checker, exp tether.Expectation, v *verifier.Verifier, opts ...Option) *Service {
	s := &Service{
		store:      st,
		checker:    checker,
		exp:        exp,
		verifier:   v,
		sigTimeout: DefaultSignatureTimeout,
		obs:        observability.Noop(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.exp.ModuleID = ModuleID
	return s
}

// VerifySeal loads the (log, seal) pair for executionID, re-verifies the
// chain and seal hashes, checks seal integrity and signature, and appends
// the result to the history. The stored log and seal are never altered.
func (s *Service) VerifySeal(ctx context.Context, executionID string) (res *contracts.VerificationResult, err error) {
	ctx, end := s.obs.Span(ctx, "seals.VerifySeal")
	defer func() { end(err) }()

	if s.checker != nil {
		if err = s.checker.Gate(s.exp); err != nil {
			return nil, err
		}
	}

	log, err := s.store.LoadLog(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("load log %s: %w", executionID, err)
	}
	seal, err := s.store.LoadSeal(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("load seal %s: %w", executionID, err)
	}

	result := s.verifier.Verify(executionID, log, seal)
	result.SealCheck = s.checkSeal(ctx, seal)

	s.mu.Lock()
	s.history = append(s.history, *result)
	s.mu.Unlock()

	s.logger.Info("seal verified",
		"execution_id", executionID,
		"verification_id", result.VerificationID,
		"chain_valid", result.ChainVerification.IsValid,
		"hashes_match", result.HashVerification.AllMatch(),
		"signature_status", result.SealCheck.SignatureStatus)
	return result, nil
}

// checkSeal validates seal-level integrity: required fields, the optional
// embedded data/data_hash pair, and the signature via the injected
// capability.
func (s *Service) checkSeal(ctx context.Context, seal *contracts.Seal) *contracts.SealCheck {
	check := &contracts.SealCheck{DataHashMatch: true}

	required := map[string]string{
		"execution_id": seal.ExecutionID,
		"input_hash":   seal.InputHash,
		"output_hash":  seal.OutputHash,
		"log_hash":     seal.LogHash,
		"timestamp":    seal.Timestamp,
		"seal_version": seal.SealVersion,
	}
	for field, value := range required {
		if value == "" {
			check.FieldErrors = append(check.FieldErrors, fmt.Sprintf("missing %s", field))
		}
	}
	if seal.SealVersion != "" {
		if _, err := semver.NewVersion(seal.SealVersion); err != nil {
			check.FieldErrors = append(check.FieldErrors,
				fmt.Sprintf("seal_version %q is not a valid version", seal.SealVersion))
		}
	}
	check.FieldsValid = len(check.FieldErrors) == 0

	if seal.DataHash != "" {
		recomputed, err := canonicalize.CanonicalHash(seal.Data)
		check.DataHashMatch = err == nil && recomputed == seal.DataHash
	}

	check.SignatureStatus = s.signatureStatus(ctx, seal)
	return check
}

// signatureStatus runs the signature capability with a bounded timeout.
// A hung or slow capability is surfaced as "unavailable" rather than
// blocking verification.
func (s *Service) signatureStatus(ctx context.Context, seal *contracts.Seal) string {
	if seal.Signature == "" {
		return contracts.SignatureStatusAbsent
	}
	if s.sealVerifier == nil {
		return contracts.SignatureStatusUnavailable
	}

	type outcome struct {
		ok  bool
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		ok, err := s.sealVerifier.VerifySeal(seal)
		done <- outcome{ok: ok, err: err}
	}()

	timer := time.NewTimer(s.sigTimeout)
	defer timer.Stop()

	select {
	case out := <-done:
		if out.err != nil {
			s.logger.Warn("signature capability failed",
				"execution_id", seal.ExecutionID, "error", out.err)
			return contracts.SignatureStatusUnavailable
		}
		if !out.ok {
			return contracts.SignatureStatusInvalid
		}
		return contracts.SignatureStatusValid
	case <-timer.C:
		s.logger.Warn("signature capability timed out",
			"execution_id", seal.ExecutionID, "timeout", s.sigTimeout)
		return contracts.SignatureStatusUnavailable
	case <-ctx.Done():
		return contracts.SignatureStatusUnavailable
	}
}

// ListExecutions returns a summary of every known execution.
func (s *Service) ListExecutions(ctx context.Context) ([]contracts.ExecutionSummary, error) {
	ids, err := s.store.ListExecutionIDs(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]contracts.ExecutionSummary, 0, len(ids))
	for _, id := range ids {
		log, err := s.store.LoadLog(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load log %s: %w", id, err)
		}
		summary := contracts.ExecutionSummary{
			ExecutionID: id,
			TriggerType: log.Metadata.TriggerType,
			TriggerID:   log.Metadata.TriggerID,
			Status:      "recorded",
		}
		if seal, err := s.store.LoadSeal(ctx, id); err == nil {
			summary.LogHash = seal.LogHash
			summary.Timestamp = seal.Timestamp
			summary.Status = "sealed"
		}
		if latest := s.latestResult(id); latest != nil {
			if latest.Passed() {
				summary.Status = "verified"
			} else {
				summary.Status = "verification_failed"
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// History returns a copy of the verification history, oldest first.
func (s *Service) History() []contracts.VerificationResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]contracts.VerificationResult(nil), s.history...)
}

// ResultByID looks up a historical result by verification ID.
func (s *Service) ResultByID(verificationID string) (*contracts.VerificationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.history {
		if s.history[i].VerificationID == verificationID {
			out := s.history[i]
			return &out, nil
		}
	}
	return nil, contracts.ErrNotFound
}

func (s *Service) latestResult(executionID string) *contracts.VerificationResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].ExecutionID == executionID {
			out := s.history[i]
			return &out
		}
	}
	return nil
}
