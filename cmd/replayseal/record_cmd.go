package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/trustfabric/replayseal/pkg/contracts"
	"github.com/trustfabric/replayseal/pkg/recorder"
)

// runRecordCmd records and seals a small deterministic execution. The
// same seed always produces the same entry payloads, so two runs with
// one seed are byte-comparable after replay.
func runRecordCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("record", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		seed      int64
		triggerID string
		replay    bool
	)
	cmd.Int64Var(&seed, "seed", 42, "Random seed for the deterministic run")
	cmd.StringVar(&triggerID, "trigger-id", "cli-demo", "Trigger identifier recorded in metadata")
	cmd.BoolVar(&replay, "replay", false, "Record as a replay run")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	e, err := newEngine()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	rec := recorder.New(e.store, e.checker,
		e.expectation(recorder.ModuleID),
		recorder.WithLogger(e.logger))
	ctrl := recorder.NewController(rec, seed, replay)

	executionID, err := ctrl.Start(contracts.TriggerTypeCLI, triggerID)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: start: %v\n", err)
		return 1
	}

	if code := recordDemoRun(ctrl, stderr); code != 0 {
		return code
	}

	seal, err := ctrl.Finalize(context.Background())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: finalize: %v\n", err)
		return 1
	}

	_, _ = fmt.Fprintf(stdout, "Sealed execution %s\n", executionID)
	_, _ = fmt.Fprintf(stdout, "  log hash:    %s\n", seal.LogHash)
	_, _ = fmt.Fprintf(stdout, "  input hash:  %s\n", seal.InputHash)
	_, _ = fmt.Fprintf(stdout, "  output hash: %s\n", seal.OutputHash)
	return 0
}

// recordDemoRun drives the controller through one representative run:
// input, a deterministic draw, a decision on it, and an output.
func recordDemoRun(ctrl *recorder.Controller, stderr io.Writer) int {
	steps := []func() error{
		func() error {
			_, err := ctrl.LogInput(map[string]any{"request": "demo", "seed": ctrl.Seed()})
			return err
		},
		func() error {
			_, err := ctrl.LogStateTransition(map[string]any{"from": "idle", "to": "processing"})
			return err
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: record: %v\n", err)
			return 1
		}
	}

	draw, err := ctrl.DeterministicRandom(1, 100)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: record: %v\n", err)
		return 1
	}
	if _, err := ctrl.LogDecision(map[string]any{
		"rule":    "threshold",
		"value":   draw,
		"granted": draw > 50,
	}); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: record: %v\n", err)
		return 1
	}
	if _, err := ctrl.LogOutput(map[string]any{"result": draw, "granted": draw > 50}); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: record: %v\n", err)
		return 1
	}
	return 0
}
