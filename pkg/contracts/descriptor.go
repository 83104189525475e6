package contracts

// ContractDescriptor is the persisted "lock" record the tether checker
// compares running-code expectations against. Read-only, loaded once per
// check.
type ContractDescriptor struct {
	ContractVersion string   `json:"contract_version"`
	CodexClauses    []string `json:"codex_clauses"`
	SchemaRegistry  []string `json:"schema_registry"`
}
