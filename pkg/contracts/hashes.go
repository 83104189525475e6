package contracts

import (
	"github.com/trustfabric/replayseal/pkg/canonicalize"
)

// SealHashes is the recomputable hash triple of a log.
type SealHashes struct {
	Input  string
	Output string
	Log    string
}

// ComputeSealHashes derives the seal hash triple from a log. The input and
// output hashes cover the ordered event_data payloads of the matching
// entries; the log hash covers the full entry sequence. The sealing path
// and the verifier both go through this function, so the two can never
// drift apart.
func ComputeSealHashes(log *ExecutionLog) (SealHashes, error) {
	inputHash, err := hashPayloads(log.InputEntries())
	if err != nil {
		return SealHashes{}, err
	}
	outputHash, err := hashPayloads(log.OutputEntries())
	if err != nil {
		return SealHashes{}, err
	}

	entries := log.Entries
	if entries == nil {
		entries = []LogEntry{}
	}
	logHash, err := canonicalize.CanonicalHash(entries)
	if err != nil {
		return SealHashes{}, err
	}

	return SealHashes{Input: inputHash, Output: outputHash, Log: logHash}, nil
}

func hashPayloads(entries []LogEntry) (string, error) {
	payloads := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		payloads = append(payloads, e.EventData)
	}
	return canonicalize.CanonicalHash(payloads)
}
