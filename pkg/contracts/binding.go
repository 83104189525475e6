package contracts

// Roles granted read access to a trust log binding.
const (
	RoleOperator = "operator"
	RoleAuditor  = "auditor"
)

// VerificationStatus is the snapshot of a VerificationResult embedded in a
// binding at bind time.
type VerificationStatus struct {
	IsVerified            bool   `json:"is_verified"`
	VerificationTimestamp string `json:"verification_timestamp"`
	VerificationMethod    string `json:"verification_method"`
	VerificationID        string `json:"verification_id"`
}

// ReplayLog is the sanitized log payload of a binding.
type ReplayLog struct {
	LogID              string             `json:"log_id"`
	ExecutionID        string             `json:"execution_id"`
	Entries            []LogEntry         `json:"entries"`
	MerkleRoot         string             `json:"merkle_root"`
	VerificationStatus VerificationStatus `json:"verification_status"`
}

// AccessControl restricts who may read a binding. Bindings are always
// read-only.
type AccessControl struct {
	ReadOnly      bool     `json:"read_only"`
	RequiredRoles []string `json:"required_roles"`
}

// UIBinding is the presentation contract a consumer renders the replay log
// through. The engine produces it; it never renders anything itself.
type UIBinding struct {
	ModuleID       string         `json:"module_id"`
	ViewID         string         `json:"view_id"`
	BindingType    string         `json:"binding_type"`
	DisplayOptions map[string]any `json:"display_options,omitempty"`
	AccessControl  AccessControl  `json:"access_control"`
}

// TrustLogBinding is the schema-validated, read-only packaging of a
// verified execution log. Created once; a re-verification produces a new
// binding rather than updating an existing one.
type TrustLogBinding struct {
	BindingID       string    `json:"binding_id"`
	ContractVersion string    `json:"contract_version"`
	Timestamp       string    `json:"timestamp"` // RFC 3339 UTC
	ReplayLog       ReplayLog `json:"replay_log"`
	UIBinding       UIBinding `json:"ui_binding"`
	CodexClauses    []string  `json:"codex_clauses"`
}
