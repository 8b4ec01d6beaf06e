package cryptoutils

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeAddress_ZeroKey(t *testing.T) {
	addr, err := EncodeAddress(make([]byte, 32))
	require.NoError(t, err)
	assert.Equal(t, "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAY5HFKQ", addr)
}

func TestEncodeAddress_Deterministic(t *testing.T) {
	for i := 0; i < 32; i++ {
		k := make([]byte, 32)
		_, err := rand.Read(k)
		require.NoError(t, err)

		a1, err := EncodeAddress(k)
		require.NoError(t, err)
		a2, err := EncodeAddress(k)
		require.NoError(t, err)

		assert.Equal(t, a1, a2)
		assert.Len(t, a1, 58)

		decoded, err := DecodeAddress(a1)
		require.NoError(t, err)
		assert.Equal(t, k, decoded)
	}
}

func TestEncodeAddress_DistinctInputs(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 256; i++ {
		k := make([]byte, 32)
		_, err := rand.Read(k)
		require.NoError(t, err)

		addr, err := EncodeAddress(k)
		require.NoError(t, err)
		_, dup := seen[addr]
		require.False(t, dup, "address collision for distinct keys")
		seen[addr] = struct{}{}
	}

	// A single flipped bit yields a different address.
	k := make([]byte, 32)
	a1, _ := EncodeAddress(k)
	k[31] ^= 0x01
	a2, _ := EncodeAddress(k)
	assert.NotEqual(t, a1, a2)
}

func TestEncodeAddress_InvalidLength(t *testing.T) {
	_, err := EncodeAddress(make([]byte, 31))
	assert.Error(t, err)

	_, err = EncodeAddress(nil)
	assert.Error(t, err)
}

func TestDecodeAddress_BadChecksum(t *testing.T) {
	_, err := DecodeAddress("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAY5HFKA")
	assert.Error(t, err)

	_, err = DecodeAddress("not-an-address")
	assert.Error(t, err)
}

func TestVerifySignature(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	payload := []byte("transfer 10 units")
	sig := ed25519.Sign(priv, payload)

	assert.True(t, VerifySignature(pub, payload, sig))
	assert.False(t, VerifySignature(pub, []byte("transfer 11 units"), sig))
	assert.False(t, VerifySignature(pub[:16], payload, sig))
}
