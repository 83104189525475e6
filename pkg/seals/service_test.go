package seals

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustfabric/replayseal/pkg/canonicalize"
	"github.com/trustfabric/replayseal/pkg/contracts"
	"github.com/trustfabric/replayseal/pkg/crypto"
	"github.com/trustfabric/replayseal/pkg/recorder"
	"github.com/trustfabric/replayseal/pkg/store"
	"github.com/trustfabric/replayseal/pkg/tether"
	"github.com/trustfabric/replayseal/pkg/verifier"
)

// slowVerifier blocks longer than any test timeout.
type slowVerifier struct{ delay time.Duration }

func (s *slowVerifier) VerifySeal(*contracts.Seal) (bool, error) {
	time.Sleep(s.delay)
	return true, nil
}

func sealExecution(t *testing.T, mem *store.MemoryStore) string {
	t.Helper()
	rec := recorder.New(mem, nil, tether.Expectation{ContractVersion: "v2"})
	executionID, err := rec.Start(contracts.TriggerTypeCLI, "t-1", 42)
	require.NoError(t, err)
	_, err = rec.Append(contracts.EventTypeInput, map[string]any{"v": 1})
	require.NoError(t, err)
	_, err = rec.Append(contracts.EventTypeOutput, map[string]any{"v": 2})
	require.NoError(t, err)
	_, err = rec.Finalize(context.Background())
	require.NoError(t, err)
	return executionID
}

func newService(mem *store.MemoryStore, opts ...Option) *Service {
	return New(mem, nil, tether.Expectation{ContractVersion: "v2"}, verifier.New(), opts...)
}

func TestVerifySeal_RoundTrip(t *testing.T) {
	mem := store.NewMemoryStore()
	executionID := sealExecution(t, mem)
	svc := newService(mem)

	result, err := svc.VerifySeal(context.Background(), executionID)
	require.NoError(t, err)

	assert.True(t, result.ChainVerification.IsValid)
	assert.True(t, result.HashVerification.AllMatch())
	assert.True(t, result.Passed())
	require.NotNil(t, result.SealCheck)
	assert.True(t, result.SealCheck.FieldsValid)
	assert.Equal(t, contracts.SignatureStatusAbsent, result.SealCheck.SignatureStatus)
}

func TestVerifySeal_ExecutionNotFound(t *testing.T) {
	svc := newService(store.NewMemoryStore())

	_, err := svc.VerifySeal(context.Background(), "missing")
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestVerifySeal_DoesNotAlterStoredResources(t *testing.T) {
	mem := store.NewMemoryStore()
	executionID := sealExecution(t, mem)
	ctx := context.Background()

	before, err := mem.LoadLog(ctx, executionID)
	require.NoError(t, err)
	sealBefore, err := mem.LoadSeal(ctx, executionID)
	require.NoError(t, err)

	svc := newService(mem)
	_, err = svc.VerifySeal(ctx, executionID)
	require.NoError(t, err)
	_, err = svc.VerifySeal(ctx, executionID)
	require.NoError(t, err)

	after, err := mem.LoadLog(ctx, executionID)
	require.NoError(t, err)
	sealAfter, err := mem.LoadSeal(ctx, executionID)
	require.NoError(t, err)

	assert.Equal(t, before, after)
	assert.Equal(t, sealBefore, sealAfter)
	assert.Len(t, svc.History(), 2)
}

func TestVerifySeal_SignatureValid(t *testing.T) {
	mem := store.NewMemoryStore()
	executionID := sealExecution(t, mem)
	ctx := context.Background()

	signer, err := crypto.NewEd25519Signer("key-1")
	require.NoError(t, err)
	seal, err := mem.LoadSeal(ctx, executionID)
	require.NoError(t, err)
	require.NoError(t, signer.SignSeal(seal))
	require.NoError(t, mem.SaveSeal(ctx, seal))

	svc := newService(mem, WithSealVerifier(signer))
	result, err := svc.VerifySeal(ctx, executionID)
	require.NoError(t, err)
	assert.Equal(t, contracts.SignatureStatusValid, result.SealCheck.SignatureStatus)
}

func TestVerifySeal_SignatureInvalid(t *testing.T) {
	mem := store.NewMemoryStore()
	executionID := sealExecution(t, mem)
	ctx := context.Background()

	signer, err := crypto.NewEd25519Signer("key-1")
	require.NoError(t, err)
	other, err := crypto.NewEd25519Signer("key-2")
	require.NoError(t, err)

	seal, err := mem.LoadSeal(ctx, executionID)
	require.NoError(t, err)
	require.NoError(t, signer.SignSeal(seal))
	require.NoError(t, mem.SaveSeal(ctx, seal))

	svc := newService(mem, WithSealVerifier(other))
	result, err := svc.VerifySeal(ctx, executionID)
	require.NoError(t, err)
	assert.Equal(t, contracts.SignatureStatusInvalid, result.SealCheck.SignatureStatus)
}

func TestVerifySeal_SignatureUnavailableOnTimeout(t *testing.T) {
	mem := store.NewMemoryStore()
	executionID := sealExecution(t, mem)
	ctx := context.Background()

	seal, err := mem.LoadSeal(ctx, executionID)
	require.NoError(t, err)
	seal.Signature = "deadbeef"
	require.NoError(t, mem.SaveSeal(ctx, seal))

	svc := newService(mem,
		WithSealVerifier(&slowVerifier{delay: time.Second}),
		WithSignatureTimeout(10*time.Millisecond))

	result, err := svc.VerifySeal(ctx, executionID)
	require.NoError(t, err)
	assert.Equal(t, contracts.SignatureStatusUnavailable, result.SealCheck.SignatureStatus)
}

func TestVerifySeal_DataHashRecompute(t *testing.T) {
	mem := store.NewMemoryStore()
	executionID := sealExecution(t, mem)
	ctx := context.Background()

	seal, err := mem.LoadSeal(ctx, executionID)
	require.NoError(t, err)
	seal.Data = map[string]any{"note": "embedded"}
	digest, err := canonicalize.CanonicalHash(seal.Data)
	require.NoError(t, err)
	seal.DataHash = digest
	require.NoError(t, mem.SaveSeal(ctx, seal))

	svc := newService(mem)
	result, err := svc.VerifySeal(ctx, executionID)
	require.NoError(t, err)
	assert.True(t, result.SealCheck.DataHashMatch)

	// Corrupt the embedded payload.
	seal.Data["note"] = "altered"
	require.NoError(t, mem.SaveSeal(ctx, seal))
	result, err = svc.VerifySeal(ctx, executionID)
	require.NoError(t, err)
	assert.False(t, result.SealCheck.DataHashMatch)
}

func TestVerifySeal_MissingFieldsReported(t *testing.T) {
	mem := store.NewMemoryStore()
	executionID := sealExecution(t, mem)
	ctx := context.Background()

	seal, err := mem.LoadSeal(ctx, executionID)
	require.NoError(t, err)
	seal.Timestamp = ""
	seal.SealVersion = "not-a-version"
	require.NoError(t, mem.SaveSeal(ctx, seal))

	svc := newService(mem)
	result, err := svc.VerifySeal(ctx, executionID)
	require.NoError(t, err)
	assert.False(t, result.SealCheck.FieldsValid)
	assert.NotEmpty(t, result.SealCheck.FieldErrors)
}

func TestVerifySeal_TetherGateFailsClosed(t *testing.T) {
	mem := store.NewMemoryStore()
	executionID := sealExecution(t, mem)

	dir := t.TempDir()
	lock := filepath.Join(dir, "contract.lock.json")
	desc, _ := json.Marshal(contracts.ContractDescriptor{ContractVersion: "v1"})
	require.NoError(t, os.WriteFile(lock, desc, 0o600))
	checker := tether.NewChecker(lock, dir, nil)

	svc := New(mem, checker, tether.Expectation{ContractVersion: "v2"}, verifier.New())
	_, err := svc.VerifySeal(context.Background(), executionID)

	var terr *contracts.TetherError
	require.ErrorAs(t, err, &terr)
	assert.Empty(t, svc.History(), "a gated failure must leave no trace")
}

func TestListExecutions(t *testing.T) {
	mem := store.NewMemoryStore()
	id1 := sealExecution(t, mem)
	id2 := sealExecution(t, mem)
	ctx := context.Background()

	svc := newService(mem)
	_, err := svc.VerifySeal(ctx, id1)
	require.NoError(t, err)

	summaries, err := svc.ListExecutions(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	byID := map[string]contracts.ExecutionSummary{}
	for _, s := range summaries {
		byID[s.ExecutionID] = s
	}
	assert.Equal(t, "verified", byID[id1].Status)
	assert.Equal(t, "sealed", byID[id2].Status)
	assert.Equal(t, contracts.TriggerTypeCLI, byID[id1].TriggerType)
	assert.NotEmpty(t, byID[id1].LogHash)
}

func TestResultByID(t *testing.T) {
	mem := store.NewMemoryStore()
	executionID := sealExecution(t, mem)
	ctx := context.Background()

	svc := newService(mem)
	result, err := svc.VerifySeal(ctx, executionID)
	require.NoError(t, err)

	found, err := svc.ResultByID(result.VerificationID)
	require.NoError(t, err)
	assert.Equal(t, result.VerificationID, found.VerificationID)
	assert.Equal(t, executionID, found.ExecutionID)

	_, err = svc.ResultByID("nope")
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}
