package search

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvanity/pkg/address"
)

// fakeDevice is a scriptable in-memory device: it claims to evaluate the
// full batch and fabricates a configurable number of matches per batch.
type fakeDevice struct {
	id             string
	matchesPerRun  int
	failures       int32 // fail this many Evaluate calls before succeeding
	alwaysFail     bool
	blockUntilDone bool // park until ctx is cancelled, then report partial work
	delay          time.Duration

	calls     atomic.Int64
	evaluated atomic.Uint64
}

func (d *fakeDevice) ID() string   { return d.id }
func (d *fakeDevice) Name() string { return "fake " + d.id }

func (d *fakeDevice) Evaluate(ctx context.Context, b *Batch, m *address.Matcher) (Report, error) {
	d.calls.Add(1)

	if d.blockUntilDone {
		<-ctx.Done()
		d.evaluated.Add(100)
		return Report{Evaluated: 100}, ctx.Err()
	}
	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return Report{}, ctx.Err()
		}
	}
	if d.alwaysFail || atomic.AddInt32(&d.failures, -1) >= 0 {
		return Report{}, errors.New("injected device fault")
	}

	rep := Report{Evaluated: b.Count()}
	d.evaluated.Add(b.Count())
	for i := 0; i < d.matchesPerRun; i++ {
		seed := b.SeedAt(uint64(i))
		rep.Matches = append(rep.Matches, MatchResult{
			Seed:    seed,
			Address: fmt.Sprintf("CMYK%s%d", d.id, i),
		})
	}
	return rep, nil
}

func testSpec(target int) Spec {
	return Spec{Prefix: "CMYK", TargetCount: target, IterationBits: 16}
}

func TestRunRejectsInvalidSpecBeforeDispatch(t *testing.T) {
	dev := &fakeDevice{id: "dev0", matchesPerRun: 1}
	_, err := Run(context.Background(), Spec{TargetCount: 1, IterationBits: 20}, []Device{dev}, Options{})
	require.Error(t, err)
	assert.True(t, IsInvalidSpec(err))
	assert.Zero(t, dev.calls.Load())
}

func TestRunRequiresComputeDevice(t *testing.T) {
	_, err := Run(context.Background(), testSpec(1), nil, Options{})
	assert.ErrorIs(t, err, ErrNoComputeDevice)
}

func TestRunDeviceFilterCanEmptyActiveSet(t *testing.T) {
	spec := testSpec(1)
	spec.Devices = []string{"opencl:7"}
	_, err := Run(context.Background(), spec, []Device{&fakeDevice{id: "dev0"}}, Options{})
	assert.ErrorIs(t, err, ErrNoComputeDevice)
}

func TestSessionDeliversExactlyTargetCount(t *testing.T) {
	dev := &fakeDevice{id: "dev0", matchesPerRun: 3}
	sess, err := Run(context.Background(), testSpec(5), []Device{dev}, Options{})
	require.NoError(t, err)

	var results []MatchResult
	for m := range sess.Results() {
		results = append(results, m)
	}
	require.NoError(t, sess.Wait())

	// 3 matches per batch, target 5: exactly 5 delivered, never 6.
	assert.Len(t, results, 5)
	snap := sess.Snapshot()
	assert.Equal(t, uint64(5), snap.MatchesFound)
	assert.Equal(t, uint64(5), snap.MatchesRequested)
}

func TestTotalGeneratedMatchesEvaluated(t *testing.T) {
	dev := &fakeDevice{id: "dev0", matchesPerRun: 1}
	sess, err := Run(context.Background(), testSpec(3), []Device{dev}, Options{})
	require.NoError(t, err)

	for range sess.Results() {
	}
	require.NoError(t, sess.Wait())

	assert.Equal(t, dev.evaluated.Load(), sess.Snapshot().TotalGenerated)
}

func TestMatchGenerationCountIsSet(t *testing.T) {
	dev := &fakeDevice{id: "dev0", matchesPerRun: 1}
	sess, err := Run(context.Background(), testSpec(2), []Device{dev}, Options{})
	require.NoError(t, err)

	var counts []uint64
	for m := range sess.Results() {
		counts = append(counts, m.GenerationCount)
	}
	require.NoError(t, sess.Wait())

	require.Len(t, counts, 2)
	assert.NotZero(t, counts[0])
	assert.GreaterOrEqual(t, counts[1], counts[0])
}

func TestDeviceFailureIsIsolated(t *testing.T) {
	bad := &fakeDevice{id: "bad", alwaysFail: true}
	good := &fakeDevice{id: "good", matchesPerRun: 1, delay: time.Millisecond}

	sess, err := Run(context.Background(), testSpec(3), []Device{bad, good},
		Options{MaxDeviceFailures: 2, MaxBatchRetries: 1})
	require.NoError(t, err)

	var results []MatchResult
	for m := range sess.Results() {
		results = append(results, m)
	}
	require.NoError(t, sess.Wait())
	assert.Len(t, results, 3)

	// The bad device is reported once, not per batch.
	var deviceErrs int
	for w := range sess.Warnings() {
		var de *DeviceError
		if errors.As(w, &de) {
			assert.Equal(t, "bad", de.DeviceID)
			deviceErrs++
		}
	}
	assert.Equal(t, 1, deviceErrs)
}

func TestAllDevicesFailedEndsSession(t *testing.T) {
	bad := &fakeDevice{id: "bad", alwaysFail: true}
	sess, err := Run(context.Background(), testSpec(1), []Device{bad},
		Options{MaxDeviceFailures: 2, MaxBatchRetries: 1})
	require.NoError(t, err)

	var results []MatchResult
	for m := range sess.Results() {
		results = append(results, m)
	}
	assert.Empty(t, results)
	assert.ErrorIs(t, sess.Wait(), ErrAllDevicesFailed)
}

func TestTransientFailureIsRetried(t *testing.T) {
	flaky := &fakeDevice{id: "flaky", matchesPerRun: 1, failures: 2}
	sess, err := Run(context.Background(), testSpec(1), []Device{flaky},
		Options{MaxDeviceFailures: 5, MaxBatchRetries: 3})
	require.NoError(t, err)

	var results []MatchResult
	for m := range sess.Results() {
		results = append(results, m)
	}
	require.NoError(t, sess.Wait())
	assert.Len(t, results, 1)
	assert.GreaterOrEqual(t, flaky.calls.Load(), int64(3))
}

func TestCancellationReturnsWithinBoundedTime(t *testing.T) {
	dev := &fakeDevice{id: "dev0", blockUntilDone: true}
	ctx, cancel := context.WithCancel(context.Background())

	sess, err := Run(ctx, testSpec(1), []Device{dev}, Options{DrainTimeout: time.Second})
	require.NoError(t, err)

	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	var results []MatchResult
	for m := range sess.Results() {
		results = append(results, m)
	}
	err = sess.Wait()
	elapsed := time.Since(start)

	// No partial results, control returned promptly, and the in-flight
	// batch's partial work still landed in the counters.
	assert.Empty(t, results)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, elapsed, 3*time.Second)
	assert.Equal(t, uint64(100), sess.Snapshot().TotalGenerated)
}

func TestDerivationFaultSurfacesAsWarning(t *testing.T) {
	faulty := &derivationFaultDevice{id: "dev0"}
	good := &fakeDevice{id: "dev1", matchesPerRun: 1, delay: time.Millisecond}

	sess, err := Run(context.Background(), testSpec(1), []Device{faulty, good},
		Options{MaxDeviceFailures: 10, MaxBatchRetries: 1})
	require.NoError(t, err)

	for range sess.Results() {
	}
	require.NoError(t, sess.Wait())

	var derivs int
	for w := range sess.Warnings() {
		var de *DerivationError
		if errors.As(w, &de) {
			derivs++
		}
	}
	assert.GreaterOrEqual(t, derivs, 1)
}

// derivationFaultDevice reports a derivation invariant violation on its
// first batch and completes cleanly (without matches) afterwards.
type derivationFaultDevice struct {
	id    string
	calls atomic.Int64
}

func (d *derivationFaultDevice) ID() string   { return d.id }
func (d *derivationFaultDevice) Name() string { return "faulty " + d.id }

func (d *derivationFaultDevice) Evaluate(ctx context.Context, b *Batch, m *address.Matcher) (Report, error) {
	if d.calls.Add(1) == 1 {
		return Report{Evaluated: 17}, &DerivationError{
			DeviceID: d.id,
			Offset:   17,
			Err:      errors.New("public key mismatch"),
		}
	}
	return Report{Evaluated: b.Count()}, nil
}
