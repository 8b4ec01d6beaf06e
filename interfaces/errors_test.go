package interfaces

import (
	"encoding/base64"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustodyError_IsMatchesKind(t *testing.T) {
	err := &CustodyError{Kind: KindForbidden, Status: 403, Op: "sign", Err: errors.New("permission denied")}
	wrapped := fmt.Errorf("signing transfer: %w", err)

	assert.True(t, errors.Is(wrapped, ErrForbidden))
	assert.False(t, errors.Is(wrapped, ErrUnauthorized))
	assert.Equal(t, KindForbidden, KindOf(wrapped))

	var ce *CustodyError
	require.True(t, errors.As(wrapped, &ce))
	assert.Equal(t, 403, ce.Status)
	assert.Equal(t, "sign", ce.Op)
}

func TestCustodyError_Message(t *testing.T) {
	err := &CustodyError{Kind: KindInternal, Status: 500, Op: "read-key", Timeout: false, Err: errors.New("boom")}
	assert.Equal(t, "read-key: internal_error (status 500): boom", err.Error())

	timeout := &CustodyError{Kind: KindInternal, Op: "sign", Timeout: true}
	assert.Equal(t, "sign: internal_error (timeout)", timeout.Error())
}

func TestKindOf_ForeignError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, KindProtocol, KindOf(NewProtocolError("sign", "transit/sign/a", "bad envelope %q", "x")))
}

func TestStatusForKind(t *testing.T) {
	tests := map[ErrorKind]int{
		KindUnauthorized: 401,
		KindForbidden:    403,
		KindNotFound:     404,
		KindProtocol:     502,
		KindInternal:     500,
	}
	for kind, status := range tests {
		assert.Equal(t, status, StatusForKind(kind), kind.String())
	}
}

func TestNewSigningKeyHandle(t *testing.T) {
	h, err := NewSigningKeyHandle("alice", "/transit/users/")
	require.NoError(t, err)
	assert.Equal(t, "transit/users/keys/alice", h.KeyPath())
	assert.Equal(t, "transit/users/sign/alice", h.SignPath())

	_, err = NewSigningKeyHandle("", "transit/users")
	assert.Error(t, err)

	_, err = NewSigningKeyHandle("a/b", "transit/users")
	assert.Error(t, err)

	_, err = NewSigningKeyHandle("alice", "/")
	assert.Error(t, err)
}

func TestNewPublicKeyFromBase64(t *testing.T) {
	raw := make([]byte, PublicKeySize)
	raw[0] = 7

	pk, err := NewPublicKeyFromBase64(base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, PublicKey(raw), pk)

	_, err = NewPublicKeyFromBase64("not base64!")
	assert.Error(t, err)

	_, err = NewPublicKeyFromBase64(base64.StdEncoding.EncodeToString(raw[:16]))
	assert.Error(t, err)
}
