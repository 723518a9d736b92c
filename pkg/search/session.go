package search

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Options tunes scheduler behavior. The zero value is usable; defaults
// are applied by Run.
type Options struct {
	// Logger receives scheduler diagnostics. Defaults to a no-op logger.
	Logger *zap.Logger

	// MaxBatchRetries bounds how often a failed batch's offset range is
	// redispatched before it is abandoned. Default 3.
	MaxBatchRetries int

	// MaxDeviceFailures is the number of consecutive batch failures after
	// which a device is removed from the active set. Default 3.
	MaxDeviceFailures int

	// DrainTimeout bounds how long the scheduler waits for in-flight
	// batches after cancellation or completion before abandoning them.
	// Default 5s.
	DrainTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.MaxBatchRetries == 0 {
		o.MaxBatchRetries = 3
	}
	if o.MaxDeviceFailures == 0 {
		o.MaxDeviceFailures = 3
	}
	if o.DrainTimeout == 0 {
		o.DrainTimeout = 5 * time.Second
	}
	return o
}

// Session is one running search. The consumer reads verified matches
// from Results until it closes (target reached, cancellation, or all
// devices failed), may poll Snapshot for throughput display, and may
// drain Warnings for non-fatal device diagnostics.
type Session struct {
	spec  Spec
	opts  Options
	state *State
	coord *coordinator
	log   *zap.Logger

	results  chan MatchResult
	warnings chan error
	done     chan struct{}

	mu  sync.Mutex
	err error
}

// Run validates the spec and starts the scheduling loop on its own
// goroutine, so the caller is never blocked waiting on device
// completion. InvalidSpec and ErrNoComputeDevice are returned
// synchronously before any batch is dispatched.
func Run(ctx context.Context, spec Spec, devices []Device, opts Options) (*Session, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	devices = filterDevices(devices, spec.Devices)
	if len(devices) == 0 {
		return nil, ErrNoComputeDevice
	}

	opts = opts.withDefaults()
	s := &Session{
		spec:  spec,
		opts:  opts,
		state: NewState(spec.TargetCount),
		coord: newCoordinator(devices, opts.MaxDeviceFailures),
		log:   opts.Logger,

		// The results buffer is bounded by the requested match count, so
		// the scheduler never blocks on a slow consumer and never drops
		// a result.
		results:  make(chan MatchResult, spec.TargetCount),
		warnings: make(chan error, 2*len(devices)+4),
		done:     make(chan struct{}),
	}

	go s.run(ctx)
	return s, nil
}

// Results returns the stream of matches, ordered by discovery time. It
// is closed when TargetCount matches have been delivered, the session is
// cancelled, or all devices have failed.
func (s *Session) Results() <-chan MatchResult {
	return s.results
}

// Warnings returns asynchronous non-fatal diagnostics: one *DeviceError
// per removed device and any *DerivationError. The channel is closed
// with the session.
func (s *Session) Warnings() <-chan error {
	return s.warnings
}

// Snapshot returns current progress for throughput display.
func (s *Session) Snapshot() Snapshot {
	return s.state.snapshot(s.coord.active())
}

// Done is closed when the session has fully terminated.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err reports why the session ended: nil after normal completion, the
// context error after cancellation, or ErrAllDevicesFailed. Valid once
// Done is closed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Wait blocks until the session terminates and returns Err.
func (s *Session) Wait() error {
	<-s.done
	return s.Err()
}

func (s *Session) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// warn delivers a non-fatal diagnostic without ever blocking the
// scheduling loop; an unread backlog is only logged.
func (s *Session) warn(err error) {
	select {
	case s.warnings <- err:
	default:
		s.log.Warn("warning dropped, channel backlog full", zap.Error(err))
	}
}

func filterDevices(devices []Device, allow []string) []Device {
	if len(allow) == 0 {
		return devices
	}
	allowed := make(map[string]bool, len(allow))
	for _, id := range allow {
		allowed[id] = true
	}
	var out []Device
	for _, d := range devices {
		if allowed[d.ID()] {
			out = append(out, d)
		}
	}
	return out
}
