package keypair

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveMatchesStdlib(t *testing.T) {
	for i := 0; i < 256; i++ {
		seed := make([]byte, SeedSize)
		_, err := rand.Read(seed)
		require.NoError(t, err)

		kp, err := Derive(seed)
		require.NoError(t, err)

		ref := ed25519.NewKeyFromSeed(seed)
		assert.Equal(t, []byte(ref.Public().(ed25519.PublicKey)), kp.PublicKey[:])
		assert.Equal(t, []byte(ref), kp.PrivateKey())
	}
}

func TestDeriveDeterministic(t *testing.T) {
	seed := make([]byte, SeedSize)
	_, err := rand.Read(seed)
	require.NoError(t, err)

	a, err := Derive(seed)
	require.NoError(t, err)
	b, err := Derive(seed)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

// RFC 8032, section 7.1, TEST 1.
func TestDeriveRFC8032Vector(t *testing.T) {
	seed, err := hex.DecodeString("9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60")
	require.NoError(t, err)

	kp, err := Derive(seed)
	require.NoError(t, err)
	assert.Equal(t, "d75a980182b10ab7d54bfed3c964073a0ee172f3daa62325af021a68f707511a",
		hex.EncodeToString(kp.PublicKey[:]))
}

func TestDeriveRejectsBadSeedLength(t *testing.T) {
	for _, n := range []int{0, 16, 31, 33, 64} {
		_, err := Derive(make([]byte, n))
		assert.ErrorIs(t, err, ErrSeedLength, "seed length %d", n)
	}
}

// A derived keypair must be usable for signing: the expanded private key
// signs and the public key verifies.
func TestDerivedKeypairSignsAndVerifies(t *testing.T) {
	seed := make([]byte, SeedSize)
	_, err := rand.Read(seed)
	require.NoError(t, err)

	kp, err := Derive(seed)
	require.NoError(t, err)

	msg := []byte("vanity address ownership proof")
	sig := ed25519.Sign(ed25519.PrivateKey(kp.PrivateKey()), msg)
	assert.True(t, ed25519.Verify(ed25519.PublicKey(kp.PublicKey[:]), msg, sig))
}

func TestKeyfileRoundTrip(t *testing.T) {
	seed := make([]byte, SeedSize)
	_, err := rand.Read(seed)
	require.NoError(t, err)

	kp, err := Derive(seed)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "keys", "wallet.json")
	require.NoError(t, WriteKeyfile(kp, path))

	loaded, err := ReadKeyfile(path)
	require.NoError(t, err)
	assert.Equal(t, kp, loaded)
}

func TestUnmarshalKeyfileRejectsCorruptPublicKey(t *testing.T) {
	seed := make([]byte, SeedSize)
	_, err := rand.Read(seed)
	require.NoError(t, err)

	kp, err := Derive(seed)
	require.NoError(t, err)
	kp.PublicKey[0] ^= 0xff

	data, err := MarshalKeyfile(kp)
	require.NoError(t, err)

	_, err = UnmarshalKeyfile(data)
	assert.Error(t, err)
}

func TestUnmarshalKeyfileRejectsWrongLength(t *testing.T) {
	_, err := UnmarshalKeyfile([]byte("[1,2,3]"))
	assert.Error(t, err)
}
