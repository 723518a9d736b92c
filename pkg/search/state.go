package search

import (
	"sync/atomic"
	"time"
)

// MatchResult is one verified keypair whose address satisfies the spec.
// Immutable once produced; ownership passes from the scheduler to the
// consumer of Session.Results.
type MatchResult struct {
	// Seed is the raw 32-byte private-key seed. The consumer persists it
	// (e.g. as a keyfile); the engine never stores it.
	Seed [32]byte

	// PublicKey is the derived Ed25519 public key.
	PublicKey [32]byte

	// Address is the base58 encoding of PublicKey.
	Address string

	// GenerationCount is the session's total generated counter at the
	// moment the match was recorded.
	GenerationCount uint64
}

// State holds the session-wide progress counters. It is created when a
// session starts, updated by completing batches, and discarded with the
// session. Counters are updated atomically; TotalGenerated is
// monotonically non-decreasing and increases by exactly the number of
// candidates actually evaluated.
type State struct {
	totalGenerated   uint64
	matchesFound     uint64
	matchesRequested uint64
	started          time.Time
}

// NewState creates the counters for a session requesting the given
// number of matches.
func NewState(matchesRequested int) *State {
	return &State{
		matchesRequested: uint64(matchesRequested),
		started:          time.Now(),
	}
}

// AddGenerated records n evaluated candidates and returns the new total.
func (s *State) AddGenerated(n uint64) uint64 {
	return atomic.AddUint64(&s.totalGenerated, n)
}

// TotalGenerated returns the candidates evaluated so far.
func (s *State) TotalGenerated() uint64 {
	return atomic.LoadUint64(&s.totalGenerated)
}

// AddMatch records one delivered match and returns the new count.
func (s *State) AddMatch() uint64 {
	return atomic.AddUint64(&s.matchesFound, 1)
}

// MatchesFound returns the matches delivered so far.
func (s *State) MatchesFound() uint64 {
	return atomic.LoadUint64(&s.matchesFound)
}

// MatchesRequested returns the session's target count.
func (s *State) MatchesRequested() uint64 {
	return s.matchesRequested
}

// Snapshot is a point-in-time view of session progress for throughput
// display. The consumer may poll it at any rate.
type Snapshot struct {
	TotalGenerated   uint64
	MatchesFound     uint64
	MatchesRequested uint64
	Elapsed          time.Duration
	DevicesActive    int
}

// Rate returns the average candidates per second since session start.
func (s Snapshot) Rate() float64 {
	secs := s.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.TotalGenerated) / secs
}

func (s *State) snapshot(devicesActive int) Snapshot {
	return Snapshot{
		TotalGenerated:   s.TotalGenerated(),
		MatchesFound:     s.MatchesFound(),
		MatchesRequested: s.matchesRequested,
		Elapsed:          time.Since(s.started),
		DevicesActive:    devicesActive,
	}
}
