package search

import (
	"context"

	"github.com/solvanity/pkg/address"
)

// Device is one unit of parallel execution: a compute device that can
// evaluate a batch's full candidate range. Implementations live in
// pkg/device; the scheduler only depends on this interface.
type Device interface {
	// ID uniquely identifies the device within a session, e.g. "opencl:0".
	ID() string

	// Name is a human-readable description for logs and device listings.
	Name() string

	// Evaluate derives, encodes and matches every candidate of the batch.
	// Offsets within a batch are independent and may be processed in any
	// order. Evaluate returns the candidates actually evaluated even on
	// error, so progress accounting stays exact; on context cancellation
	// it returns promptly with a partial report and ctx.Err().
	Evaluate(ctx context.Context, batch *Batch, m *address.Matcher) (Report, error)
}

// Report is the outcome of one batch evaluation.
type Report struct {
	// Matches holds every verified match found in the batch, in offset
	// order. GenerationCount is filled in by the scheduler.
	Matches []MatchResult

	// Evaluated is the exact number of candidates processed.
	Evaluated uint64
}
