package kms

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedEnvelope is returned for signatures not of the form
// <scheme>:<version>:<base64>.
var ErrMalformedEnvelope = errors.New("malformed signature envelope")

// SignatureEnvelope is a signature as returned by the transit engine, e.g.
// "vault:v1:MEUCIQ...".
type SignatureEnvelope struct {
	Scheme    string
	Version   int
	Signature []byte
}

// ParseSignatureEnvelope splits an envelope into exactly three colon-separated
// fields and decodes the signature. The version may be written "v1" or "1".
func ParseSignatureEnvelope(envelope string) (*SignatureEnvelope, error) {
	fields := strings.Split(envelope, ":")
	if len(fields) != 3 {
		return nil, fmt.Errorf("%w: expected 3 fields, got %d", ErrMalformedEnvelope, len(fields))
	}

	if fields[0] == "" {
		return nil, fmt.Errorf("%w: empty scheme", ErrMalformedEnvelope)
	}

	version, err := parseKeyVersion(strings.TrimPrefix(fields[1], "v"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	signature, err := base64.StdEncoding.DecodeString(fields[2])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if len(signature) == 0 {
		return nil, fmt.Errorf("%w: empty signature", ErrMalformedEnvelope)
	}

	return &SignatureEnvelope{
		Scheme:    fields[0],
		Version:   version,
		Signature: signature,
	}, nil
}

// parseKeyVersion accepts only the canonical decimal form of a positive
// version, so "+1" and "01" are rejected rather than aliased to 1.
func parseKeyVersion(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || strconv.Itoa(n) != s {
		return 0, fmt.Errorf("invalid key version %q", s)
	}
	return n, nil
}

// String renders the envelope the way Vault does.
func (e *SignatureEnvelope) String() string {
	return fmt.Sprintf("%s:v%d:%s", e.Scheme, e.Version, base64.StdEncoding.EncodeToString(e.Signature))
}
