package keypair

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// MarshalKeyfile renders the keypair in the Solana CLI keyfile format:
// a JSON array of the 64 expanded private-key bytes.
func MarshalKeyfile(k Keypair) ([]byte, error) {
	raw := k.PrivateKey()
	ints := make([]int, len(raw))
	for i, b := range raw {
		ints[i] = int(b)
	}
	return json.Marshal(ints)
}

// UnmarshalKeyfile parses a Solana CLI keyfile and re-derives the keypair
// from its seed, verifying that the stored public key matches.
func UnmarshalKeyfile(data []byte) (Keypair, error) {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return Keypair{}, fmt.Errorf("keypair: parsing keyfile: %w", err)
	}
	if len(ints) != PrivateKeySize {
		return Keypair{}, fmt.Errorf("keypair: keyfile holds %d bytes, want %d", len(ints), PrivateKeySize)
	}
	raw := make([]byte, PrivateKeySize)
	for i, v := range ints {
		if v < 0 || v > 255 {
			return Keypair{}, fmt.Errorf("keypair: keyfile byte %d out of range: %d", i, v)
		}
		raw[i] = byte(v)
	}

	kp, err := Derive(raw[:SeedSize])
	if err != nil {
		return Keypair{}, err
	}
	for i := 0; i < PublicKeySize; i++ {
		if kp.PublicKey[i] != raw[SeedSize+i] {
			return Keypair{}, fmt.Errorf("keypair: keyfile public key does not match its seed")
		}
	}
	return kp, nil
}

// WriteKeyfile writes the keypair to path in the Solana CLI format with
// owner-only permissions, creating parent directories as needed.
func WriteKeyfile(k Keypair, path string) error {
	data, err := MarshalKeyfile(k)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("keypair: creating keyfile directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("keypair: writing keyfile: %w", err)
	}
	return nil
}

// ReadKeyfile loads and verifies a keypair from a Solana CLI keyfile.
func ReadKeyfile(path string) (Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Keypair{}, fmt.Errorf("keypair: reading keyfile: %w", err)
	}
	return UnmarshalKeyfile(data)
}
