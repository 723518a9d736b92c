package device

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/solvanity/pkg/address"
	"github.com/solvanity/pkg/keypair"
	"github.com/solvanity/pkg/search"
)

// cancelCheckInterval is how many offsets a worker processes between
// context checks.
const cancelCheckInterval = 4096

// CPU evaluates batches on the host, splitting the offset range across
// worker goroutines. Each offset is independent, so workers share
// nothing but the progress counter.
type CPU struct {
	id      string
	workers int
}

// NewCPU creates a CPU device. If workers is 0 it defaults to the number
// of CPU cores.
func NewCPU(index, workers int) *CPU {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &CPU{
		id:      fmt.Sprintf("cpu:%d", index),
		workers: workers,
	}
}

// ID implements search.Device.
func (c *CPU) ID() string { return c.id }

// Name implements search.Device.
func (c *CPU) Name() string {
	return fmt.Sprintf("CPU (%d workers)", c.workers)
}

// Evaluate derives, encodes and matches the batch's full candidate
// range. On cancellation it returns promptly with the exact number of
// candidates evaluated so far.
func (c *CPU) Evaluate(ctx context.Context, batch *search.Batch, m *address.Matcher) (search.Report, error) {
	count := batch.Count()
	workers := c.workers
	if uint64(workers) > count {
		workers = int(count)
	}

	// A derivation fault in any worker aborts the whole batch.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg        sync.WaitGroup
		evaluated uint64
		mu        sync.Mutex
		faultErr  error
	)
	matches := make([][]search.MatchResult, workers)

	chunk := count / uint64(workers)
	rem := count % uint64(workers)

	start := uint64(0)
	for w := 0; w < workers; w++ {
		n := chunk
		if uint64(w) < rem {
			n++
		}
		lo, hi := start, start+n
		start = hi

		wg.Add(1)
		go func(w int, lo, hi uint64) {
			defer wg.Done()
			local := uint64(0)
			defer func() { atomic.AddUint64(&evaluated, local) }()

			for off := lo; off < hi; off++ {
				if local%cancelCheckInterval == 0 && ctx.Err() != nil {
					return
				}

				seed := batch.SeedAt(off)
				kp, err := keypair.Derive(seed[:])
				if err != nil {
					mu.Lock()
					if faultErr == nil {
						faultErr = &search.DerivationError{
							DeviceID: c.id,
							Offset:   off,
							Err:      err,
						}
					}
					mu.Unlock()
					cancel()
					return
				}
				local++

				addr := address.Encode(kp.PublicKey[:])
				if m.Matches(addr) {
					matches[w] = append(matches[w], search.MatchResult{
						Seed:      kp.Seed,
						PublicKey: kp.PublicKey,
						Address:   addr,
					})
				}
			}
		}(w, lo, hi)
	}
	wg.Wait()

	report := search.Report{Evaluated: atomic.LoadUint64(&evaluated)}
	for _, ms := range matches {
		report.Matches = append(report.Matches, ms...)
	}

	mu.Lock()
	fault := faultErr
	mu.Unlock()
	if fault != nil {
		return report, fault
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}
