// Package keypair implements Ed25519 seed-to-keypair derivation for
// Solana-style addresses. The derivation pipeline (seed -> SHA-512 ->
// scalar clamping -> base-point multiplication -> point compression) is
// spelled out on filippo.io/edwards25519 rather than hidden behind
// crypto/ed25519, so compute-device backends can verify candidates
// against the exact same steps the kernel performs.
package keypair

import (
	"crypto/sha512"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

const (
	// SeedSize is the length of a private-key seed in bytes.
	SeedSize = 32
	// PublicKeySize is the length of a compressed Ed25519 public key.
	PublicKeySize = 32
	// PrivateKeySize is the length of the expanded private key
	// (seed followed by public key), the form Solana tooling stores.
	PrivateKeySize = SeedSize + PublicKeySize
)

// ErrSeedLength is returned when a seed is not exactly 32 bytes.
// Seeds are fixed-size by construction, so hitting this indicates a
// programming error in the caller, not a runtime condition.
var ErrSeedLength = errors.New("keypair: seed must be exactly 32 bytes")

// Keypair holds a derived Ed25519 keypair.
type Keypair struct {
	Seed      [SeedSize]byte
	PublicKey [PublicKeySize]byte
}

// Derive derives the Ed25519 keypair for a 32-byte seed.
//
// The result is bit-for-bit identical to crypto/ed25519.NewKeyFromSeed:
// the seed is hashed with SHA-512, the low 32 bytes are clamped into a
// scalar, and the public key is the compressed encoding of that scalar
// times the curve base point. Derivation is deterministic; the same seed
// always yields the same public key.
func Derive(seed []byte) (Keypair, error) {
	if len(seed) != SeedSize {
		return Keypair{}, fmt.Errorf("%w (got %d)", ErrSeedLength, len(seed))
	}

	digest := sha512.Sum512(seed)
	scalar, err := edwards25519.NewScalar().SetBytesWithClamping(digest[:32])
	if err != nil {
		// SetBytesWithClamping only fails on wrong input length.
		return Keypair{}, fmt.Errorf("keypair: clamping scalar: %w", err)
	}

	var kp Keypair
	copy(kp.Seed[:], seed)
	point := new(edwards25519.Point).ScalarBaseMult(scalar)
	copy(kp.PublicKey[:], point.Bytes())
	return kp, nil
}

// PrivateKey returns the 64-byte expanded private key (seed || public key).
// The layout matches crypto/ed25519.PrivateKey, so the result can be used
// directly for signing.
func (k Keypair) PrivateKey() []byte {
	out := make([]byte, 0, PrivateKeySize)
	out = append(out, k.Seed[:]...)
	return append(out, k.PublicKey[:]...)
}

// PrivateKeyBase58 returns the base58 encoding of the expanded private key,
// the textual form wallet importers expect.
func (k Keypair) PrivateKeyBase58() string {
	return base58.Encode(k.PrivateKey())
}
