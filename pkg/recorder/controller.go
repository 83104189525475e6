package recorder

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/trustfabric/replayseal/pkg/contracts"
)

// Controller wraps a Recorder with a seeded pseudo-random source and
// semantic logging helpers. Given the same seed and the same call
// sequence, DeterministicRandom yields identical values across a live run
// and a later replay.
type Controller struct {
	rec      *Recorder
	seed     int64
	rng      *rand.Rand
	isReplay bool
}

// NewController creates a controller over rec. isReplay marks a
// re-execution against a prior seed; the flag is metadata only and does
// not change hashing.
func NewController(rec *Recorder, seed int64, isReplay bool) *Controller {
	return &Controller{
		rec:      rec,
		seed:     seed,
		rng:      rand.New(rand.NewSource(seed)),
		isReplay: isReplay,
	}
}

// Start begins the wrapped recording with the controller's seed.
func (c *Controller) Start(triggerType contracts.TriggerType, triggerID string) (string, error) {
	if c.isReplay {
		triggerType = contracts.TriggerTypeReplay
	}
	return c.rec.Start(triggerType, triggerID, c.seed)
}

// DeterministicRandom returns a reproducible value in [low, high] and
// records it as a random_value entry.
func (c *Controller) DeterministicRandom(low, high int64) (int64, error) {
	if high < low {
		return 0, fmt.Errorf("invalid range [%d, %d]", low, high)
	}
	value := low + c.rng.Int63n(high-low+1)

	_, err := c.rec.Append(contracts.EventTypeRandomValue, map[string]any{
		"low":   low,
		"high":  high,
		"value": value,
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}

// LogInput records an input event.
func (c *Controller) LogInput(data map[string]any) (*contracts.LogEntry, error) {
	return c.rec.Append(contracts.EventTypeInput, data)
}

// LogStateTransition records a state_transition event.
func (c *Controller) LogStateTransition(data map[string]any) (*contracts.LogEntry, error) {
	return c.rec.Append(contracts.EventTypeStateTransition, data)
}

// LogDecision records a decision event.
func (c *Controller) LogDecision(data map[string]any) (*contracts.LogEntry, error) {
	return c.rec.Append(contracts.EventTypeDecision, data)
}

// LogOutput records an output event.
func (c *Controller) LogOutput(data map[string]any) (*contracts.LogEntry, error) {
	return c.rec.Append(contracts.EventTypeOutput, data)
}

// Finalize seals the wrapped recording.
func (c *Controller) Finalize(ctx context.Context) (*contracts.Seal, error) {
	return c.rec.Finalize(ctx)
}

// IsReplay reports whether this controller re-executes a prior run.
func (c *Controller) IsReplay() bool { return c.isReplay }

// Seed returns the deterministic seed.
func (c *Controller) Seed() int64 { return c.seed }
