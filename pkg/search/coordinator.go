package search

import (
	"sync"
	"time"
)

// ewmaWeight is the smoothing factor for per-device completion latency.
const ewmaWeight = 0.3

// coordinator tracks the session's active device set. Dispatch is
// completion-driven: an idle device is handed a new batch as soon as its
// previous one finishes, so faster devices naturally receive
// proportionally more batches. The smoothed latency additionally orders
// devices when several are idle (e.g. when picking a reassignment
// target), replacing the static round-robin of older designs.
//
// A device that fails maxConsecutiveFailures batches in a row is removed
// from the active set for the remainder of the session and reported
// exactly once.
type coordinator struct {
	mu    sync.Mutex
	slots []*deviceSlot

	maxConsecutiveFailures int
}

type deviceSlot struct {
	dev      Device
	busy     bool
	removed  bool
	latency  time.Duration // EWMA of batch completion time; 0 = unmeasured
	failures int           // consecutive failures
}

func newCoordinator(devices []Device, maxConsecutiveFailures int) *coordinator {
	c := &coordinator{maxConsecutiveFailures: maxConsecutiveFailures}
	for _, d := range devices {
		c.slots = append(c.slots, &deviceSlot{dev: d})
	}
	return c
}

// acquire marks an idle active device busy and returns it. Unmeasured
// devices are picked first so every device gets a latency sample, then
// the fastest idle device wins. Returns nil when no device is available.
func (c *coordinator) acquire() Device {
	c.mu.Lock()
	defer c.mu.Unlock()

	var best *deviceSlot
	for _, s := range c.slots {
		if s.busy || s.removed {
			continue
		}
		if s.latency == 0 {
			best = s
			break
		}
		if best == nil || s.latency < best.latency {
			best = s
		}
	}
	if best == nil {
		return nil
	}
	best.busy = true
	return best.dev
}

// observe records a batch completion for the device. It returns true
// exactly once, when the completion's failure pushes the device past the
// consecutive-failure limit and out of the active set.
func (c *coordinator) observe(deviceID string, latency time.Duration, failed bool) (removed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.find(deviceID)
	if s == nil {
		return false
	}
	s.busy = false

	if failed {
		s.failures++
		if !s.removed && s.failures >= c.maxConsecutiveFailures {
			s.removed = true
			return true
		}
		return false
	}

	s.failures = 0
	if s.latency == 0 {
		s.latency = latency
	} else {
		s.latency = time.Duration(ewmaWeight*float64(latency) + (1-ewmaWeight)*float64(s.latency))
	}
	return false
}

// active returns the number of devices still in the active set.
func (c *coordinator) active() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, s := range c.slots {
		if !s.removed {
			n++
		}
	}
	return n
}

func (c *coordinator) find(deviceID string) *deviceSlot {
	for _, s := range c.slots {
		if s.dev.ID() == deviceID {
			return s
		}
	}
	return nil
}
