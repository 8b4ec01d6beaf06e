package cryptoutils

import (
	"crypto/ed25519"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/types"
)

// EncodeAddress maps a 32-byte ed25519 public key to its checksummed
// Algorand account address: base32 without padding over the key followed by
// the last four bytes of its SHA-512/256 digest.
func EncodeAddress(pub []byte) (string, error) {
	if len(pub) != len(types.Address{}) {
		return "", fmt.Errorf("invalid public key length: %d", len(pub))
	}

	var addr types.Address
	copy(addr[:], pub)
	return addr.String(), nil
}

// DecodeAddress validates the checksum of an account address and returns the
// public key it encodes.
func DecodeAddress(address string) ([]byte, error) {
	addr, err := types.DecodeAddress(address)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", address, err)
	}
	return addr[:], nil
}

// VerifySignature checks a raw ed25519 signature returned by the transit
// engine against the signer's public key.
func VerifySignature(pub []byte, payload []byte, signature []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), payload, signature)
}
