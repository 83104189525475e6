package main

import (
	"fmt"
	"io"

	"github.com/trustfabric/replayseal/pkg/binder"
	"github.com/trustfabric/replayseal/pkg/recorder"
	"github.com/trustfabric/replayseal/pkg/seals"
)

// runDoctorCmd checks the contract tether for every engine module and
// reports which would be allowed to run.
func runDoctorCmd(stdout, stderr io.Writer) int {
	e, err := newEngine()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	_, _ = fmt.Fprintf(stdout, "Contract lock: %s\n", e.cfg.LockPath)
	_, _ = fmt.Fprintf(stdout, "Schema dir:    %s\n", e.cfg.SchemaDir)
	_, _ = fmt.Fprintln(stdout, "")

	healthy := true
	for _, moduleID := range []string{recorder.ModuleID, seals.ModuleID, binder.ModuleID} {
		res := e.checker.Check(e.expectation(moduleID))
		if res.OK {
			_, _ = fmt.Fprintf(stdout, "  %sok%s      %s\n", ColorGreen, ColorReset, moduleID)
			continue
		}
		healthy = false
		_, _ = fmt.Fprintf(stdout, "  %sBLOCKED%s %s: %s\n", ColorBold, ColorReset, moduleID, res.Reason)
	}

	if !healthy {
		_, _ = fmt.Fprintln(stdout, "\nTether violations found; gated operations will refuse to run.")
		return 1
	}
	_, _ = fmt.Fprintln(stdout, "\nAll modules tethered.")
	return 0
}
