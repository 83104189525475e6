package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/trustfabric/replayseal/pkg/contracts"
	"github.com/trustfabric/replayseal/pkg/seals"
	"github.com/trustfabric/replayseal/pkg/verifier"
)

// runVerifyCmd replays a sealed execution's hash chain and checks the
// seal against it.
//
// Exit codes:
//
//	0 = verification passed
//	1 = verification failed
//	2 = runtime error
func runVerifyCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		executionID string
		jsonOutput  bool
	)
	cmd.StringVar(&executionID, "execution", "", "Execution ID to verify (REQUIRED)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output the verification result as JSON")

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

	svc := seals.New(e.store, e.checker,
		e.expectation(seals.ModuleID),
		verifier.New(verifier.WithNodeID(e.cfg.NodeID)),
		seals.WithSignatureTimeout(e.cfg.SignatureTimeout),
		seals.WithObservability(e.obs),
		seals.WithLogger(e.logger))

	result, err := svc.VerifySeal(context.Background(), executionID)
	if err != nil {
		if errors.Is(err, contracts.ErrNotFound) {
			_, _ = fmt.Fprintf(stderr, "Error: execution %s not found\n", executionID)
			return 2
		}
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(result, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
	} else {
		printResult(stdout, result)
	}

	if !result.Passed() {
		return 1
	}
	return 0
}

func printResult(w io.Writer, r *contracts.VerificationResult) {
	verdict := "PASSED"
	if !r.Passed() {
		verdict = "FAILED"
	}
	_, _ = fmt.Fprintf(w, "Verification %s\n", verdict)
	_, _ = fmt.Fprintf(w, "  execution:   %s\n", r.ExecutionID)
	_, _ = fmt.Fprintf(w, "  method:      %s\n", r.VerificationMethod)
	_, _ = fmt.Fprintf(w, "  entries:     %d verified\n", r.ChainVerification.EntriesVerified)
	_, _ = fmt.Fprintf(w, "  merkle root: %s\n", r.ConsensusDetails.MerkleRoot)

	for _, ce := range r.ChainVerification.Errors {
		_, _ = fmt.Fprintf(w, "  chain break at entry %d: %s\n", ce.EntryID, ce.ErrorKind)
	}
	for name, check := range map[string]contracts.HashCheck{
		"input":  r.HashVerification.Input,
		"output": r.HashVerification.Output,
		"log":    r.HashVerification.Log,
	} {
		if !check.Match {
			_, _ = fmt.Fprintf(w, "  %s hash mismatch: sealed %s, recomputed %s\n",
				name, check.Expected, check.Actual)
		}
	}
	if r.SealCheck != nil {
		_, _ = fmt.Fprintf(w, "  signature:   %s\n", r.SealCheck.SignatureStatus)
		for _, fe := range r.SealCheck.FieldErrors {
			_, _ = fmt.Fprintf(w, "  seal field: %s\n", fe)
		}
	}
}
