package search

import (
	"crypto/rand"
	"fmt"
)

// Batch is one bounded, independently dispatchable unit of candidate
// evaluation. It pairs a fresh random base seed with the offset range
// [0, 2^IterationBits); exactly one device processes a given batch, and
// a batch is immutable once dispatched.
//
// Base seeds are drawn from a secure random source per batch and are
// statistically independent across batches. A match therefore reveals
// nothing about the discarded candidates of any other batch, and within
// a batch only the trailing offset bytes vary.
type Batch struct {
	// DeviceID names the device the batch is assigned to.
	DeviceID string

	// BaseSeed is the random 32-byte seed with the trailing offset bytes
	// zeroed; SeedAt fills them per candidate.
	BaseSeed [32]byte

	// IterationBits bounds the offset range to 2^IterationBits.
	IterationBits int
}

// NewBatch draws a cryptographically random base seed and binds the
// batch to a device. The trailing ceil(IterationBits/8) bytes of the
// seed are reserved for the offset and zeroed.
func NewBatch(deviceID string, iterationBits int) (*Batch, error) {
	if iterationBits < MinIterationBits || iterationBits > MaxIterationBits {
		return nil, fmt.Errorf("search: iteration bits %d outside [%d, %d]",
			iterationBits, MinIterationBits, MaxIterationBits)
	}

	b := &Batch{DeviceID: deviceID, IterationBits: iterationBits}
	if _, err := rand.Read(b.BaseSeed[:]); err != nil {
		return nil, fmt.Errorf("search: drawing batch seed: %w", err)
	}
	for i := 32 - b.offsetWidth(); i < 32; i++ {
		b.BaseSeed[i] = 0
	}
	return b, nil
}

// Reassign returns a copy of the batch bound to another device, used
// when the original device aborted before completing the offset range.
func (b *Batch) Reassign(deviceID string) *Batch {
	nb := *b
	nb.DeviceID = deviceID
	return &nb
}

// Count returns the number of candidates in the batch, 2^IterationBits.
func (b *Batch) Count() uint64 {
	return 1 << b.IterationBits
}

// SeedAt expands the batch into the private-key seed for one offset.
// It is a pure function: the offset occupies the fixed trailing bytes of
// the base seed big-endian, so every offset in [0, Count()) yields a
// distinct seed and the same offset always yields the same seed.
func (b *Batch) SeedAt(offset uint64) [32]byte {
	seed := b.BaseSeed
	for i := 0; i < b.offsetWidth(); i++ {
		seed[31-i] = byte(offset >> (8 * i))
	}
	return seed
}

// offsetWidth is the number of trailing seed bytes the offset occupies.
func (b *Batch) offsetWidth() int {
	return (b.IterationBits + 7) / 8
}
