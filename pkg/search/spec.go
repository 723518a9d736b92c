// Package search drives the vanity keypair search: it validates search
// specifications, partitions the keyspace into batches, schedules batches
// across compute devices and streams verified matches back to the caller.
package search

import (
	"fmt"

	"github.com/solvanity/pkg/address"
)

// Iteration-bits bounds. One batch evaluates 2^bits candidates, so the
// parameter trades per-dispatch device memory and latency against
// dispatch overhead.
const (
	MinIterationBits     = 16
	MaxIterationBits     = 28
	DefaultIterationBits = 24
)

// Spec describes one search session as supplied by the external UI/CLI.
type Spec struct {
	// Prefix and Suffix are the required affixes over the base58
	// alphabet. At least one must be non-empty.
	Prefix string
	Suffix string

	// CaseSensitive selects exact matching. When false the match is
	// case-folded on both sides, which is a strictly looser constraint
	// (see address.Matcher).
	CaseSensitive bool

	// TargetCount is how many matching keypairs to produce before the
	// session terminates normally.
	TargetCount int

	// IterationBits is log2 of the candidates evaluated per batch.
	IterationBits int

	// Devices optionally restricts the session to the listed device IDs.
	// Empty means all enumerated devices.
	Devices []string
}

// Validate rejects malformed or unsatisfiable specs before any batch is
// dispatched. All failures are *SpecError.
func (s *Spec) Validate() error {
	if s.Prefix == "" && s.Suffix == "" {
		return &SpecError{Field: "prefix/suffix", Reason: "at least one affix is required"}
	}
	if bad := address.InvalidChars(s.Prefix); len(bad) > 0 {
		return &SpecError{
			Field:  "prefix",
			Reason: fmt.Sprintf("characters %q are not in the base58 alphabet", string(bad)),
		}
	}
	if bad := address.InvalidChars(s.Suffix); len(bad) > 0 {
		return &SpecError{
			Field:  "suffix",
			Reason: fmt.Sprintf("characters %q are not in the base58 alphabet", string(bad)),
		}
	}
	if total := len(s.Prefix) + len(s.Suffix); total > address.MaxLen {
		return &SpecError{
			Field:  "prefix/suffix",
			Reason: fmt.Sprintf("combined affix length %d exceeds the %d-character address maximum", total, address.MaxLen),
		}
	}
	if s.TargetCount < 1 {
		return &SpecError{Field: "targetCount", Reason: "must be at least 1"}
	}
	if s.IterationBits < MinIterationBits || s.IterationBits > MaxIterationBits {
		return &SpecError{
			Field:  "iterationBits",
			Reason: fmt.Sprintf("%d outside [%d, %d]", s.IterationBits, MinIterationBits, MaxIterationBits),
		}
	}
	return nil
}

// Matcher builds the affix matcher for this spec.
func (s *Spec) Matcher() *address.Matcher {
	return address.NewMatcher(s.Prefix, s.Suffix, s.CaseSensitive)
}

// Difficulty estimates the expected number of candidates per match, the
// 58^len heuristic shown to the user at search start. It saturates at
// the maximum uint64 for very long affixes.
func (s *Spec) Difficulty() uint64 {
	chars := len(s.Prefix) + len(s.Suffix)
	difficulty := uint64(1)
	for i := 0; i < chars; i++ {
		next := difficulty * 58
		if next/58 != difficulty {
			return ^uint64(0)
		}
		difficulty = next
	}
	return difficulty
}
