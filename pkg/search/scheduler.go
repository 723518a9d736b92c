package search

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// completion is the result of one asynchronously dispatched batch, the
// per-batch completion handle the scheduling loop awaits.
type completion struct {
	batch   *Batch
	attempt int
	report  Report
	latency time.Duration
	err     error
}

// retryItem is a failed batch waiting for redispatch of its offset range.
type retryItem struct {
	batch   *Batch
	attempt int
}

// run is the scheduling loop. It is the single writer of delivery state:
// batches are dispatched to idle devices, completions are collected over
// one channel, and counters are published atomically, so no two batches
// ever share an offset range and totalGenerated stays race-free.
func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.warnings)
	defer close(s.results)

	matcher := s.spec.Matcher()
	target := s.spec.TargetCount

	// Buffered to the device count so in-flight evaluation goroutines
	// can always deliver their completion, even after a forced abort.
	comp := make(chan completion, s.coord.active())

	inflight := 0
	delivered := 0
	var retries []retryItem
	var terminal error

	dispatch := func(d Device, b *Batch, attempt int) {
		inflight++
		go func() {
			start := time.Now()
			report, err := d.Evaluate(ctx, b, matcher)
			comp <- completion{
				batch:   b,
				attempt: attempt,
				report:  report,
				latency: time.Since(start),
				err:     err,
			}
		}()
	}

	// fill hands a batch to every idle active device, draining the retry
	// queue before drawing fresh batches.
	fill := func() {
		for delivered < target && ctx.Err() == nil {
			d := s.coord.acquire()
			if d == nil {
				return
			}
			if len(retries) > 0 {
				item := retries[0]
				retries = retries[1:]
				b := item.batch.Reassign(d.ID())
				s.log.Debug("redispatching failed batch",
					zap.String("device", d.ID()), zap.Int("attempt", item.attempt))
				dispatch(d, b, item.attempt)
				continue
			}
			b, err := NewBatch(d.ID(), s.spec.IterationBits)
			if err != nil {
				// The secure random source is unavailable; nothing any
				// device can do, end the session.
				s.coord.observe(d.ID(), 0, false)
				terminal = err
				return
			}
			dispatch(d, b, 0)
		}
	}

	handle := func(c completion) {
		// Progress accounting is exact: partial batches report exactly
		// what they evaluated.
		s.state.AddGenerated(c.report.Evaluated)

		if c.err != nil {
			if errors.Is(c.err, context.Canceled) || errors.Is(c.err, context.DeadlineExceeded) {
				s.coord.observe(c.batch.DeviceID, c.latency, false)
				return
			}

			removed := s.coord.observe(c.batch.DeviceID, c.latency, true)

			var derr *DerivationError
			if errors.As(c.err, &derr) {
				// Invariant violation in one candidate: the batch is
				// aborted and surfaced, the session continues.
				s.warn(derr)
			}
			if removed {
				s.warn(&DeviceError{DeviceID: c.batch.DeviceID, Err: c.err})
				s.log.Warn("device removed from active set",
					zap.String("device", c.batch.DeviceID), zap.Error(c.err))
			} else {
				s.log.Debug("batch failed",
					zap.String("device", c.batch.DeviceID), zap.Error(c.err))
			}

			if c.attempt < s.opts.MaxBatchRetries && s.coord.active() > 0 {
				retries = append(retries, retryItem{batch: c.batch, attempt: c.attempt + 1})
			} else if s.coord.active() > 0 {
				// Abandon the range; batch seeds are independent, so a
				// fresh batch covers the keyspace just as well.
				s.log.Warn("abandoning batch after repeated failures",
					zap.String("device", c.batch.DeviceID), zap.Int("attempts", c.attempt+1))
			}
			return
		}

		s.coord.observe(c.batch.DeviceID, c.latency, false)

		total := s.state.TotalGenerated()
		for _, m := range c.report.Matches {
			if delivered >= target {
				break
			}
			m.GenerationCount = total
			s.results <- m
			delivered++
			s.state.AddMatch()
			s.log.Info("match found",
				zap.String("address", m.Address),
				zap.String("device", c.batch.DeviceID),
				zap.Uint64("generated", total))
		}
	}

loop:
	for delivered < target && terminal == nil {
		if ctx.Err() != nil {
			break
		}
		fill()
		if terminal != nil {
			break
		}
		if inflight == 0 {
			if s.coord.active() == 0 {
				terminal = ErrAllDevicesFailed
			}
			break
		}
		select {
		case c := <-comp:
			inflight--
			handle(c)
		case <-ctx.Done():
			break loop
		}
	}

	// Stop issuing new batches and wait boundedly for in-flight ones so
	// their evaluated counts land in the totals. After the timeout the
	// batches are abandoned; comp is buffered, so their goroutines still
	// terminate.
	if inflight > 0 {
		timer := time.NewTimer(s.opts.DrainTimeout)
		defer timer.Stop()
	drain:
		for inflight > 0 {
			select {
			case c := <-comp:
				inflight--
				s.state.AddGenerated(c.report.Evaluated)
				s.coord.observe(c.batch.DeviceID, c.latency, false)
			case <-timer.C:
				s.log.Warn("abandoning in-flight batches", zap.Int("count", inflight))
				break drain
			}
		}
	}

	if terminal == nil && delivered < target {
		terminal = ctx.Err()
	}
	s.setErr(terminal)

	s.log.Info("session finished",
		zap.Uint64("generated", s.state.TotalGenerated()),
		zap.Int("matches", delivered),
		zap.Error(terminal))
}
