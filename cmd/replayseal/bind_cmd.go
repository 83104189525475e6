package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/trustfabric/replayseal/pkg/binder"
	"github.com/trustfabric/replayseal/pkg/contracts"
	"github.com/trustfabric/replayseal/pkg/seals"
	"github.com/trustfabric/replayseal/pkg/verifier"
)

// runBindCmd verifies a sealed execution and packages the result as a
// schema-validated trust log binding.
func runBindCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("bind", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var executionID string
	cmd.StringVar(&executionID, "execution", "", "Execution ID to bind (REQUIRED)")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if executionID == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --execution is required")
		return 2
	}

	e, err := newEngine()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	ctx := context.Background()

	svc := seals.New(e.store, e.checker,
		e.expectation(seals.ModuleID),
		verifier.New(verifier.WithNodeID(e.cfg.NodeID)),
		seals.WithObservability(e.obs),
		seals.WithLogger(e.logger))

	result, err := svc.VerifySeal(ctx, executionID)
	if err != nil {
		if errors.Is(err, contracts.ErrNotFound) {
			_, _ = fmt.Fprintf(stderr, "Error: execution %s not found\n", executionID)
			return 2
		}
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	log, err := e.store.LoadLog(ctx, executionID)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	b, err := binder.New(e.store, e.checker,
		e.expectation(binder.ModuleID),
		binder.WithObservability(e.obs),
		binder.WithLogger(e.logger))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	binding, err := b.Bind(ctx, log, result)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: bind: %v\n", err)
		return 1
	}

	_, _ = fmt.Fprintf(stdout, "Created binding %s\n", binding.BindingID)
	_, _ = fmt.Fprintf(stdout, "  execution:   %s\n", executionID)
	_, _ = fmt.Fprintf(stdout, "  merkle root: %s\n", binding.ReplayLog.MerkleRoot)
	_, _ = fmt.Fprintf(stdout, "  verified:    %t\n", binding.ReplayLog.VerificationStatus.IsVerified)
	return 0
}
