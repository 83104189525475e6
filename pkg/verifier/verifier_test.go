package verifier

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustfabric/replayseal/pkg/canonicalize"
	"github.com/trustfabric/replayseal/pkg/contracts"
)

// buildSealedLog constructs a valid chained log with n alternating
// input/output entries plus its matching seal.
func buildSealedLog(t *testing.T, n int) (*contracts.ExecutionLog, *contracts.Seal) {
	t.Helper()

	log := &contracts.ExecutionLog{
		ExecutionID: "11111111-2222-4333-8444-555555555555",
		Entries:     []contracts.LogEntry{},
		Metadata: contracts.LogMetadata{
			ContractVersion: "v2",
			TriggerType:     contracts.TriggerTypeCLI,
			TriggerID:       "t-1",
		},
	}

	prev := canonicalize.GenesisHash
	for i := 0; i < n; i++ {
		eventType := contracts.EventTypeInput
		if i%2 == 1 {
			eventType = contracts.EventTypeOutput
		}
		data := map[string]any{"v": i}
		current, err := canonicalize.ChainHash(prev, data)
		require.NoError(t, err)
		log.Entries = append(log.Entries, contracts.LogEntry{
			EntryID:      uint64(i),
			Timestamp:    "2025-06-01T12:00:00Z",
			EventType:    eventType,
			EventData:    data,
			PreviousHash: prev,
			CurrentHash:  current,
		})
		prev = current
	}

	hashes, err := contracts.ComputeSealHashes(log)
	require.NoError(t, err)
	seal := &contracts.Seal{
		ExecutionID: log.ExecutionID,
		InputHash:   hashes.Input,
		OutputHash:  hashes.Output,
		LogHash:     hashes.Log,
		Timestamp:   "2025-06-01T12:00:01Z",
		SealVersion: contracts.SealVersion,
	}
	return log, seal
}

func TestVerify_RoundTrip(t *testing.T) {
	log, seal := buildSealedLog(t, 6)
	v := New()

	result := v.Verify(log.ExecutionID, log, seal)

	assert.True(t, result.ChainVerification.IsValid)
	assert.Equal(t, 6, result.ChainVerification.EntriesVerified)
	assert.Empty(t, result.ChainVerification.Errors)
	assert.True(t, result.HashVerification.Input.Match)
	assert.True(t, result.HashVerification.Output.Match)
	assert.True(t, result.HashVerification.Log.Match)
	assert.True(t, result.Passed())
}

func TestVerify_TamperSensitivity(t *testing.T) {
	const n, k = 8, 3
	log, seal := buildSealedLog(t, n)
	log.Entries[k].EventData["v"] = "tampered"

	result := New().Verify(log.ExecutionID, log, seal)

	assert.False(t, result.ChainVerification.IsValid)
	assert.False(t, result.Passed())

	// Entry k flips its current_hash check; entries before k stay clean.
	byEntry := map[uint64][]string{}
	for _, e := range result.ChainVerification.Errors {
		byEntry[e.EntryID] = append(byEntry[e.EntryID], e.ErrorKind)
	}
	for i := 0; i < k; i++ {
		assert.Empty(t, byEntry[uint64(i)], "entry %d should be clean", i)
	}
	assert.Contains(t, byEntry[uint64(k)], contracts.ChainErrorCurrentHashMismatch)

	// The recomputed chain diverges at k, so every later previous_hash
	// check fails as well.
	for i := k + 1; i < n; i++ {
		assert.Contains(t, byEntry[uint64(i)], contracts.ChainErrorPreviousHashMismatch,
			"entry %d should report a previous_hash break", i)
	}

	// Seal hash checks: the tampered payload changes input/log recomputation.
	assert.False(t, result.HashVerification.Log.Match)
}

func TestVerify_ReportsAllBreaks(t *testing.T) {
	log, seal := buildSealedLog(t, 4)
	log.Entries[1].EventData["v"] = "x"
	log.Entries[3].EventData["v"] = "y"

	result := New().Verify(log.ExecutionID, log, seal)

	kinds := map[string]int{}
	for _, e := range result.ChainVerification.Errors {
		kinds[e.ErrorKind]++
	}
	assert.GreaterOrEqual(t, kinds[contracts.ChainErrorCurrentHashMismatch], 2,
		"both tampered entries must be reported")
}

func TestVerify_Idempotent(t *testing.T) {
	log, seal := buildSealedLog(t, 5)
	v := New()

	r1 := v.Verify(log.ExecutionID, log, seal)
	r2 := v.Verify(log.ExecutionID, log, seal)

	assert.NotEqual(t, r1.VerificationID, r2.VerificationID)
	assert.Equal(t, r1.ChainVerification, r2.ChainVerification)
	assert.Equal(t, r1.HashVerification, r2.HashVerification)
	assert.Equal(t, r1.ConsensusDetails.MerkleRoot, r2.ConsensusDetails.MerkleRoot)
}

func TestVerify_NilSeal(t *testing.T) {
	log, _ := buildSealedLog(t, 2)

	result := New().Verify(log.ExecutionID, log, nil)

	assert.True(t, result.ChainVerification.IsValid)
	assert.False(t, result.HashVerification.Input.Match)
	assert.False(t, result.Passed())
}

func TestVerify_EmptyLog(t *testing.T) {
	log, seal := buildSealedLog(t, 0)

	result := New().Verify(log.ExecutionID, log, seal)

	assert.True(t, result.ChainVerification.IsValid)
	assert.Zero(t, result.ChainVerification.EntriesVerified)
	assert.True(t, result.Passed())
	assert.Equal(t, canonicalize.GenesisHash, result.ConsensusDetails.MerkleRoot)
}

func TestMerkleRoot_Determinism(t *testing.T) {
	h := func(s string) string { return canonicalize.HashBytes([]byte(s)) }

	assert.Equal(t, canonicalize.GenesisHash, MerkleRoot(nil))
	assert.Equal(t, h("a"), MerkleRoot([]string{h("a")}))

	two := []string{h("a"), h("b")}
	assert.Equal(t, canonicalize.HashBytes([]byte(h("a")+h("b"))), MerkleRoot(two))

	// Odd count duplicates the last hash before combining.
	three := []string{h("a"), h("b"), h("c")}
	left := canonicalize.HashBytes([]byte(h("a") + h("b")))
	right := canonicalize.HashBytes([]byte(h("c") + h("c")))
	assert.Equal(t, canonicalize.HashBytes([]byte(left+right)), MerkleRoot(three))

	// Recomputing yields the same value.
	for _, n := range []int{1, 2, 3, 7, 16} {
		var hashes []string
		for i := 0; i < n; i++ {
			hashes = append(hashes, h(fmt.Sprintf("leaf-%d", i)))
		}
		assert.Equal(t, MerkleRoot(hashes), MerkleRoot(hashes), "n=%d", n)
	}
}

func TestMerkleRoot_DoesNotMutateInput(t *testing.T) {
	h := func(s string) string { return canonicalize.HashBytes([]byte(s)) }
	hashes := []string{h("a"), h("b"), h("c")}
	snapshot := append([]string(nil), hashes...)

	MerkleRoot(hashes)

	assert.Equal(t, snapshot, hashes)
}
