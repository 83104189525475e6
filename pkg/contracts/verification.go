package contracts

// Chain error kinds reported inside a VerificationResult.
const (
	ChainErrorPreviousHashMismatch = "previous_hash_mismatch"
	ChainErrorCurrentHashMismatch  = "current_hash_mismatch"
)

// Signature statuses reported inside a VerificationResult.
const (
	SignatureStatusValid       = "valid"
	SignatureStatusInvalid     = "invalid"
	SignatureStatusAbsent      = "absent"
	SignatureStatusUnavailable = "unavailable"
)

// ChainError describes a single hash-chain break.
type ChainError struct {
	EntryID   uint64 `json:"entry_id"`
	ErrorKind string `json:"error_kind"`
	Expected  string `json:"expected"`
	Actual    string `json:"actual"`
}

// ChainVerification is the per-entry chain walk outcome.
type ChainVerification struct {
	IsValid         bool         `json:"is_valid"`
	EntriesVerified int          `json:"entries_verified"`
	Errors          []ChainError `json:"errors,omitempty"`
}

// HashCheck compares a recomputed hash against the seal's recorded value.
type HashCheck struct {
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Match    bool   `json:"match"`
}

// HashVerification holds the three independent seal hash checks.
type HashVerification struct {
	Input  HashCheck `json:"input"`
	Output HashCheck `json:"output"`
	Log    HashCheck `json:"log"`
}

// AllMatch reports whether every seal hash check matched.
func (h HashVerification) AllMatch() bool {
	return h.Input.Match && h.Output.Match && h.Log.Match
}

// ConsensusDetails carries the Merkle root plus quorum metadata.
//
// The quorum fields are inert single-process metadata: no multi-node
// consensus protocol backs them.
type ConsensusDetails struct {
	MerkleRoot         string   `json:"merkle_root"`
	QuorumSize         int      `json:"quorum_size"`
	ParticipatingNodes []string `json:"participating_nodes"`
	ConsensusAchieved  bool     `json:"consensus_achieved"`
}

// SealCheck reports seal-level integrity and signature findings.
type SealCheck struct {
	FieldsValid     bool     `json:"fields_valid"`
	FieldErrors     []string `json:"field_errors,omitempty"`
	DataHashMatch   bool     `json:"data_hash_match"`
	SignatureStatus string   `json:"signature_status"`
}

// VerificationResult is the full outcome of one verification call.
// Produced fresh on every call and never mutated afterwards.
type VerificationResult struct {
	VerificationID     string            `json:"verification_id"`
	ExecutionID        string            `json:"execution_id"`
	Timestamp          string            `json:"timestamp"` // RFC 3339 UTC
	VerificationMethod string            `json:"verification_method"`
	ChainVerification  ChainVerification `json:"chain_verification"`
	HashVerification   HashVerification  `json:"hash_verification"`
	ConsensusDetails   ConsensusDetails  `json:"consensus_details"`
	SealCheck          *SealCheck        `json:"seal_check,omitempty"`
}

// Passed reports overall success: chain validity plus all three hash
// matches. Callers wanting detail inspect the sub-results directly.
func (r *VerificationResult) Passed() bool {
	return r.ChainVerification.IsValid && r.HashVerification.AllMatch()
}

// ExecutionSummary is the list view of one known execution.
type ExecutionSummary struct {
	ExecutionID string      `json:"execution_id"`
	TriggerType TriggerType `json:"trigger_type"`
	TriggerID   string      `json:"trigger_id"`
	LogHash     string      `json:"log_hash"`
	Timestamp   string      `json:"timestamp"`
	Status      string      `json:"status"`
}
