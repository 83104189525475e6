// Package tether implements the fail-closed contract tether check.
//
// Before any recording, verification, or binding operation proceeds, the
// running code's expectations (contract version, required clauses, required
// schemas) are compared against the persisted contract descriptor ("lock").
// Any load failure or mismatch blocks the operation.
package tether

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/trustfabric/replayseal/pkg/contracts"
)

// Expectation is what a gated module requires of the descriptor.
type Expectation struct {
	ModuleID        string
	ContractVersion string
	Clauses         []string
	Schemas         []string
}

// Result is the outcome of one tether check.
type Result struct {
	OK       bool   `json:"ok"`
	ModuleID string `json:"module_id"`
	Reason   string `json:"reason,omitempty"`
}

// Checker loads the descriptor and evaluates expectations against it.
// The descriptor is re-read on every check so a changed lock takes effect
// immediately.
type Checker struct {
	lockPath  string
	schemaDir string
	logger    *slog.Logger
}

// NewChecker creates a Checker over the given lock file and schema
// resource directory.
func NewChecker(lockPath, schemaDir string, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{lockPath: lockPath, schemaDir: schemaDir, logger: logger}
}

// Check evaluates exp against the persisted descriptor. It never returns an
// error: every failure mode is a not-OK Result with a reason.
func (c *Checker) Check(exp Expectation) Result {
	fail := func(reason string) Result {
		c.logger.Warn("tether check failed",
			"module_id", exp.ModuleID, "reason", reason)
		return Result{OK: false, ModuleID: exp.ModuleID, Reason: reason}
	}

	desc, err := c.load()
	if err != nil {
		return fail(fmt.Sprintf("descriptor unavailable: %v", err))
	}

	if desc.ContractVersion != exp.ContractVersion {
		return fail(fmt.Sprintf("contract version mismatch: descriptor %q, expected %q",
			desc.ContractVersion, exp.ContractVersion))
	}

	for _, clause := range exp.Clauses {
		if !clauseMatch(desc.CodexClauses, clause) {
			return fail(fmt.Sprintf("required clause %q not in descriptor", clause))
		}
	}

	registered := make(map[string]bool, len(desc.SchemaRegistry))
	for _, id := range desc.SchemaRegistry {
		registered[id] = true
	}
	for _, id := range exp.Schemas {
		if !registered[id] {
			return fail(fmt.Sprintf("required schema %q not in registry", id))
		}
		if _, err := os.Stat(c.schemaPath(id)); err != nil {
			return fail(fmt.Sprintf("schema resource for %q missing: %v", id, err))
		}
	}

	return Result{OK: true, ModuleID: exp.ModuleID}
}

// Gate runs Check and converts a failure into a TetherError.
func (c *Checker) Gate(exp Expectation) error {
	res := c.Check(exp)
	if !res.OK {
		return &contracts.TetherError{ModuleID: exp.ModuleID, Reason: res.Reason}
	}
	return nil
}

// SchemaPath returns the on-disk path for a registered schema ID.
func (c *Checker) SchemaPath(id string) string {
	return c.schemaPath(id)
}

func (c *Checker) schemaPath(id string) string {
	return filepath.Join(c.schemaDir, id+".schema.json")
}

func (c *Checker) load() (*contracts.ContractDescriptor, error) {
	data, err := os.ReadFile(c.lockPath)
	if err != nil {
		return nil, err
	}
	var desc contracts.ContractDescriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("malformed descriptor: %w", err)
	}
	if desc.ContractVersion == "" {
		return nil, fmt.Errorf("descriptor missing contract_version")
	}
	return &desc, nil
}

// clauseMatch reports whether want matches any descriptor clause: either
// exact equality, or the descriptor clause extends want with a ":" suffix
// (e.g. want "C-7" matches "C-7:replay-integrity").
func clauseMatch(clauses []string, want string) bool {
	for _, have := range clauses {
		if have == want || strings.HasPrefix(have, want+":") {
			return true
		}
	}
	return false
}
