// Package address encodes Ed25519 public keys as Solana-style base58
// addresses and tests them against affix constraints.
package address

import (
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// Alphabet is the standard base58 alphabet (Bitcoin/Solana style -
// excludes 0, O, I, l).
const Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

const (
	// PublicKeySize is the length of the raw public key being encoded.
	PublicKeySize = 32
	// MinLen and MaxLen bound the encoding of a 32-byte value: 44
	// characters when no byte is zero, down to 32 for an all-zero key.
	MinLen = 32
	MaxLen = 44
)

// Encode returns the bare base58 encoding of a public key. Solana
// addresses carry no checksum; each leading zero byte of the key maps to
// a leading '1' character.
func Encode(pub []byte) string {
	return base58.Encode(pub)
}

// Decode is the inverse of Encode. Decode(Encode(pub)) reproduces pub
// exactly, including leading zero bytes.
func Decode(s string) ([]byte, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("address: decoding %q: %w", s, err)
	}
	return raw, nil
}

// IsValidAlphabet reports whether s contains only base58 characters.
func IsValidAlphabet(s string) bool {
	for _, c := range s {
		if !strings.ContainsRune(Alphabet, c) {
			return false
		}
	}
	return true
}

// InvalidChars returns the characters of s outside the base58 alphabet,
// for error messages. Base58 excludes 0 (zero), O (uppercase o),
// I (uppercase i) and l (lowercase L).
func InvalidChars(s string) []rune {
	var invalid []rune
	for _, c := range s {
		if !strings.ContainsRune(Alphabet, c) {
			invalid = append(invalid, c)
		}
	}
	return invalid
}
