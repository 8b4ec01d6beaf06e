package interfaces

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// PublicKeySize is the length of an ed25519 public key held by the transit engine.
const PublicKeySize = 32

// PublicKey is the raw public half of a transit signing key.
type PublicKey []byte

// NewPublicKeyFromBase64 decodes a standard base64 public key and checks its length.
func NewPublicKeyFromBase64(encoded string) (PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid public key encoding: %w", err)
	}
	if len(raw) != PublicKeySize {
		return nil, fmt.Errorf("invalid public key length: %d", len(raw))
	}
	return PublicKey(raw), nil
}

// String returns the base64 representation.
func (pk PublicKey) String() string {
	return base64.StdEncoding.EncodeToString(pk)
}

// SigningKeyHandle identifies a key living in the secret store. It never
// holds private material.
type SigningKeyHandle struct {
	// KeyName is the transit key name, e.g. a user id.
	KeyName string

	// BasePath is the transit mount namespace, e.g. "transit/users".
	BasePath string
}

// NormalizeBasePath trims surrounding slashes and rejects empty namespaces.
func NormalizeBasePath(basePath string) (string, error) {
	basePath = strings.Trim(basePath, "/")
	if basePath == "" {
		return "", errors.New("empty key base path")
	}
	return basePath, nil
}

// NewSigningKeyHandle validates and normalizes a handle.
func NewSigningKeyHandle(keyName, basePath string) (SigningKeyHandle, error) {
	basePath, err := NormalizeBasePath(basePath)
	if err != nil {
		return SigningKeyHandle{}, err
	}
	if keyName == "" || strings.Contains(keyName, "/") {
		return SigningKeyHandle{}, fmt.Errorf("invalid key name %q", keyName)
	}
	return SigningKeyHandle{KeyName: keyName, BasePath: basePath}, nil
}

// KeyPath returns "{base_path}/keys/{name}".
func (h SigningKeyHandle) KeyPath() string {
	return h.BasePath + "/keys/" + h.KeyName
}

// SignPath returns "{base_path}/sign/{name}".
func (h SigningKeyHandle) SignPath() string {
	return h.BasePath + "/sign/" + h.KeyName
}

func (h SigningKeyHandle) String() string {
	return h.KeyPath()
}

// KeyInfo pairs a key name with its latest public key and derived account address.
type KeyInfo struct {
	KeyName   string
	PublicKey PublicKey
	Address   string
}

// TokenValidator checks a session token against the secret store.
type TokenValidator interface {
	// Validate returns true if the store accepts the token. It never caches.
	Validate(ctx context.Context, token string) (bool, error)
}

// KeyCustody obtains public keys, addresses and signatures for keys held in
// a remote secret store. Implementations must be safe for concurrent use.
type KeyCustody interface {
	// GetOrCreateKey returns the latest public key, creating the key on first use.
	GetOrCreateKey(ctx context.Context, handle SigningKeyHandle, token string) (PublicKey, error)

	// PublicKey returns the latest public key of an existing key.
	PublicKey(ctx context.Context, handle SigningKeyHandle, token string) (PublicKey, error)

	// ListKeys returns every key under basePath in the order the store lists them.
	ListKeys(ctx context.Context, basePath string, token string) ([]KeyInfo, error)

	// Sign signs payload with the referenced key and returns the raw signature.
	Sign(ctx context.Context, handle SigningKeyHandle, payload []byte, token string) ([]byte, error)

	// SignAsManager signs payload with the configured manager key.
	SignAsManager(ctx context.Context, payload []byte, token string) ([]byte, error)

	// ManagerKey returns the manager's public key, creating it on first use.
	ManagerKey(ctx context.Context, token string) (PublicKey, error)

	// Address derives the account address of a public key.
	Address(pub PublicKey) (string, error)
}
