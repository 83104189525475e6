package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/trustfabric/replayseal/pkg/seals"
	"github.com/trustfabric/replayseal/pkg/verifier"
)

// runListCmd prints every known execution with its seal status.
func runListCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("list", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var jsonOutput bool
	cmd.BoolVar(&jsonOutput, "json", false, "Output the execution list as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	e, err := newEngine()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	svc := seals.New(e.store, e.checker,
		e.expectation(seals.ModuleID),
		verifier.New(verifier.WithNodeID(e.cfg.NodeID)),
		seals.WithObservability(e.obs),
		seals.WithLogger(e.logger))

	summaries, err := svc.ListExecutions(context.Background())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(summaries, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
		return 0
	}

	if len(summaries) == 0 {
		_, _ = fmt.Fprintln(stdout, "No executions recorded.")
		return 0
	}
	for _, s := range summaries {
		_, _ = fmt.Fprintf(stdout, "%s  %-8s  %-19s  %s\n",
			s.ExecutionID, s.TriggerType, s.Status, s.Timestamp)
	}
	return 0
}
