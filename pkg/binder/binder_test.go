package binder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustfabric/replayseal/pkg/canonicalize"
	"github.com/trustfabric/replayseal/pkg/contracts"
	"github.com/trustfabric/replayseal/pkg/recorder"
	"github.com/trustfabric/replayseal/pkg/store"
	"github.com/trustfabric/replayseal/pkg/tether"
	"github.com/trustfabric/replayseal/pkg/verifier"
)

func verifiedLog(t *testing.T) (*contracts.ExecutionLog, *contracts.VerificationResult, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	ctx := context.Background()

	rec := recorder.New(mem, nil, tether.Expectation{ContractVersion: "v2"})
	executionID, err := rec.Start(contracts.TriggerTypeCLI, "t-1", 42)
	require.NoError(t, err)
	_, err = rec.Append(contracts.EventTypeInput, map[string]any{"v": 1})
	require.NoError(t, err)
	_, err = rec.Append(contracts.EventTypeOutput, map[string]any{"v": 2})
	require.NoError(t, err)
	_, err = rec.Finalize(ctx)
	require.NoError(t, err)

	log, err := mem.LoadLog(ctx, executionID)
	require.NoError(t, err)
	seal, err := mem.LoadSeal(ctx, executionID)
	require.NoError(t, err)
	result := verifier.New().Verify(executionID, log, seal)
	require.True(t, result.Passed())
	return log, result, mem
}

func newBinder(t *testing.T, mem *store.MemoryStore, opts ...Option) *Binder {
	t.Helper()
	b, err := New(mem, nil, tether.Expectation{
		ContractVersion: "v2",
		Clauses:         []string{"C-1"},
	}, opts...)
	require.NoError(t, err)
	return b
}

func TestBind_RoundTrip(t *testing.T) {
	log, result, mem := verifiedLog(t)
	ctx := context.Background()

	b := newBinder(t, mem)
	binding, err := b.Bind(ctx, log, result)
	require.NoError(t, err)

	assert.Equal(t, "v2", binding.ContractVersion)
	assert.Equal(t, log.ExecutionID, binding.ReplayLog.ExecutionID)
	assert.Len(t, binding.ReplayLog.Entries, 2)
	assert.True(t, binding.UIBinding.AccessControl.ReadOnly)
	assert.Equal(t, []string{contracts.RoleOperator, contracts.RoleAuditor},
		binding.UIBinding.AccessControl.RequiredRoles)
	assert.Equal(t, []string{"C-1"}, binding.CodexClauses)

	status := binding.ReplayLog.VerificationStatus
	assert.True(t, status.IsVerified)
	assert.Equal(t, result.VerificationID, status.VerificationID)
	assert.Equal(t, result.VerificationMethod, status.VerificationMethod)

	// Persisted and loadable by binding_id.
	stored, err := mem.LoadBinding(ctx, binding.BindingID)
	require.NoError(t, err)
	assert.Equal(t, binding.BindingID, stored.BindingID)
}

func TestBind_MerkleRootRecomputed(t *testing.T) {
	log, result, mem := verifiedLog(t)
	result.ConsensusDetails.MerkleRoot = "stale-root"

	b := newBinder(t, mem)
	binding, err := b.Bind(context.Background(), log, result)
	require.NoError(t, err)

	hashes := make([]string, len(log.Entries))
	for i, e := range log.Entries {
		hashes[i] = e.CurrentHash
	}
	assert.Equal(t, verifier.MerkleRoot(hashes), binding.ReplayLog.MerkleRoot)
	assert.NotEqual(t, "stale-root", binding.ReplayLog.MerkleRoot)
}

func TestBind_SanitizesMalformedHashes(t *testing.T) {
	log, result, mem := verifiedLog(t)
	log.Entries[0].PreviousHash = "garbage"
	log.Entries[1].CurrentHash = "ALSO-GARBAGE"

	b := newBinder(t, mem)
	binding, err := b.Bind(context.Background(), log, result)
	require.NoError(t, err)

	assert.Equal(t, canonicalize.GenesisHash, binding.ReplayLog.Entries[0].PreviousHash)
	assert.Equal(t, canonicalize.GenesisHash, binding.ReplayLog.Entries[1].CurrentHash)

	// Root covers the sanitized hashes.
	hashes := []string{binding.ReplayLog.Entries[0].CurrentHash, canonicalize.GenesisHash}
	assert.Equal(t, verifier.MerkleRoot(hashes), binding.ReplayLog.MerkleRoot)
}

func TestBind_NormalizesPayloadText(t *testing.T) {
	log, result, mem := verifiedLog(t)
	log.Entries[0].EventData["name"] = "José" // decomposed é

	b := newBinder(t, mem)
	binding, err := b.Bind(context.Background(), log, result)
	require.NoError(t, err)

	assert.Equal(t, "José", binding.ReplayLog.Entries[0].EventData["name"])
}

func TestBind_SchemaFailureAbortsPersistence(t *testing.T) {
	log, result, mem := verifiedLog(t)
	log.ExecutionID = "not-a-uuid" // violates the schema's uuid pattern

	ids := 0
	b := newBinder(t, mem, WithIDSource(func() string {
		ids++
		return fmt.Sprintf("00000000-0000-4000-8000-%012d", ids)
	}))

	_, err := b.Bind(context.Background(), log, result)
	require.Error(t, err)

	var serr *contracts.SchemaValidationError
	assert.ErrorAs(t, err, &serr)

	_, err = mem.LoadBinding(context.Background(), "00000000-0000-4000-8000-000000000001")
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestBind_UnverifiedResultStillBindsWithFlag(t *testing.T) {
	log, result, mem := verifiedLog(t)
	result.HashVerification.Log.Match = false // snapshot says not verified

	b := newBinder(t, mem)
	binding, err := b.Bind(context.Background(), log, result)
	require.NoError(t, err)
	assert.False(t, binding.ReplayLog.VerificationStatus.IsVerified)
}

func TestBind_TetherGateFailsClosed(t *testing.T) {
	log, result, _ := verifiedLog(t)

	dir := t.TempDir()
	lock := filepath.Join(dir, "contract.lock.json")
	desc, _ := json.Marshal(contracts.ContractDescriptor{ContractVersion: "v1"})
	require.NoError(t, os.WriteFile(lock, desc, 0o600))
	checker := tether.NewChecker(lock, dir, nil)

	mem := store.NewMemoryStore()
	b, err := New(mem, checker, tether.Expectation{ContractVersion: "v2"})
	require.NoError(t, err)

	_, err = b.Bind(context.Background(), log, result)
	var terr *contracts.TetherError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, ModuleID, terr.ModuleID)
}

func TestNew_BadSchemaRejected(t *testing.T) {
	mem := store.NewMemoryStore()
	_, err := New(mem, nil, tether.Expectation{ContractVersion: "v2"},
		WithSchemaJSON(`{"type": 42}`))
	assert.Error(t, err)
}
