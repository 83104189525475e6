package contracts

// SealVersion is the current seal format version.
const SealVersion = "1.0.0"

// TriggerMetadata records what initiated the sealed execution.
type TriggerMetadata struct {
	TriggerID   string      `json:"trigger_id"`
	TriggerType TriggerType `json:"trigger_type"`
}

// Seal is the finalized digest set of a completed execution log.
// It is created exactly once, at finalization, and is immutable thereafter.
type Seal struct {
	ExecutionID     string          `json:"execution_id"`
	InputHash       string          `json:"input_hash"`
	OutputHash      string          `json:"output_hash"`
	LogHash         string          `json:"log_hash"`
	Timestamp       string          `json:"timestamp"` // RFC 3339 UTC
	ContractVersion string          `json:"contract_version"`
	PhaseID         string          `json:"phase_id"`
	TriggerMetadata TriggerMetadata `json:"trigger_metadata"`
	SealVersion     string          `json:"seal_version"`

	// Optional embedded payload with its own digest. When present the
	// verification service recomputes DataHash from Data.
	Data     map[string]any `json:"data,omitempty"`
	DataHash string         `json:"data_hash,omitempty"`

	// Signature over the canonical seal content, produced by the injected
	// signing capability. Empty when the seal was never signed.
	Signature      string `json:"signature,omitempty"`
	SignatureKeyID string `json:"signature_key_id,omitempty"`
}

// SigningContent returns a copy of the seal with its signature fields
// cleared. The canonical hash of this copy is the signed payload.
func (s Seal) SigningContent() Seal {
	s.Signature = ""
	s.SignatureKeyID = ""
	return s
}
