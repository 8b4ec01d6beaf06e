// Package cryptoutils derives and checks Algorand account addresses for
// ed25519 public keys held in the secret store.
//
// An address is the unpadded base32 encoding of the 32-byte public key
// followed by the last 4 bytes of its SHA-512/256 digest. Encoding and
// checksum validation are delegated to the Algorand SDK.
//
// VerifySignature checks a raw ed25519 signature returned by the store
// against a public key, e.g. one recovered from an address with
// DecodeAddress.
package cryptoutils
