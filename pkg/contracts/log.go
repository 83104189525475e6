// Package contracts defines the shared data contracts of the replay-sealing
// engine: execution logs, seals, verification results, and trust bindings.
package contracts

// EventType classifies what kind of execution event an entry records.
type EventType string

const (
	EventTypeInput           EventType = "input"
	EventTypeStateTransition EventType = "state_transition"
	EventTypeDecision        EventType = "decision"
	EventTypeOutput          EventType = "output"
	EventTypeAPICall         EventType = "api_call"
	EventTypeRandomValue     EventType = "random_value"
	EventTypeOverride        EventType = "override"
	EventTypeTrustEvaluation EventType = "trust_evaluation"
)

// ValidEventType reports whether t is a member of the closed event type set.
func ValidEventType(t EventType) bool {
	switch t {
	case EventTypeInput, EventTypeStateTransition, EventTypeDecision,
		EventTypeOutput, EventTypeAPICall, EventTypeRandomValue,
		EventTypeOverride, EventTypeTrustEvaluation:
		return true
	}
	return false
}

// TriggerType identifies what initiated an execution.
type TriggerType string

const (
	TriggerTypeCLI      TriggerType = "cli"
	TriggerTypeWebhook  TriggerType = "webhook"
	TriggerTypeSaaSFlow TriggerType = "saas_flow"
	TriggerTypeReplay   TriggerType = "replay"
)

// LogEntry is a single hash-chained event in an execution log.
//
// For i > 0, entry[i].PreviousHash == entry[i-1].CurrentHash; the first
// entry's PreviousHash is the genesis hash.
type LogEntry struct {
	EntryID      uint64         `json:"entry_id"`
	Timestamp    string         `json:"timestamp"` // RFC 3339 UTC
	EventType    EventType      `json:"event_type"`
	EventData    map[string]any `json:"event_data"`
	PreviousHash string         `json:"previous_hash"`
	CurrentHash  string         `json:"current_hash"`
}

// LogMetadata carries the execution-level context of a log.
type LogMetadata struct {
	ContractVersion string      `json:"contract_version"`
	PhaseID         string      `json:"phase_id"`
	TriggerType     TriggerType `json:"trigger_type"`
	TriggerID       string      `json:"trigger_id"`
	StartTime       string      `json:"start_time"`
	EndTime         string      `json:"end_time,omitempty"`
	RandomSeed      int64       `json:"random_seed"`
	EnvironmentHash string      `json:"environment_hash"`
}

// ExecutionLog is one execution's ordered, hash-chained entry sequence.
// Entry order is semantic and immutable once the log is persisted.
type ExecutionLog struct {
	ExecutionID string      `json:"execution_id"`
	Entries     []LogEntry  `json:"entries"`
	Metadata    LogMetadata `json:"metadata"`
}

// InputEntries returns the ordered subsequence of input entries.
func (l *ExecutionLog) InputEntries() []LogEntry {
	return l.entriesOfType(EventTypeInput)
}

// OutputEntries returns the ordered subsequence of output entries.
func (l *ExecutionLog) OutputEntries() []LogEntry {
	return l.entriesOfType(EventTypeOutput)
}

func (l *ExecutionLog) entriesOfType(t EventType) []LogEntry {
	var out []LogEntry
	for _, e := range l.Entries {
		if e.EventType == t {
			out = append(out, e)
		}
	}
	return out
}
