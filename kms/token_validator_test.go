package kms

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/ruteri/vault-wallet-custody/interfaces"
	"github.com/ruteri/vault-wallet-custody/vault/vaulttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenValidator_ValidToken(t *testing.T) {
	srv := vaulttest.New(t, "valid-token")
	validator := NewTokenValidator(newTestTransport(t, srv.URL), testLogger())

	ok, err := validator.Validate(context.Background(), "valid-token")
	require.NoError(t, err)
	assert.True(t, ok)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodGet, reqs[0].Method)
	assert.Equal(t, "auth/token/lookup-self", reqs[0].Path)
	assert.Equal(t, "valid-token", reqs[0].Token)
}

func TestTokenValidator_NoCaching(t *testing.T) {
	srv := vaulttest.New(t, "valid-token")
	validator := NewTokenValidator(newTestTransport(t, srv.URL), testLogger())

	for i := 0; i < 3; i++ {
		ok, err := validator.Validate(context.Background(), "valid-token")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Len(t, srv.Requests(), 3)

	// Revocation is visible on the very next call.
	srv.Override(http.MethodGet, "auth/token/lookup-self", http.StatusForbidden, `{"errors":["permission denied"]}`)
	ok, err := validator.Validate(context.Background(), "valid-token")
	assert.False(t, ok)
	assert.True(t, errors.Is(err, interfaces.ErrForbidden))
}

func TestTokenValidator_Rejections(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		kind   interfaces.ErrorKind
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, kind: interfaces.KindUnauthorized},
		{name: "forbidden", status: http.StatusForbidden, kind: interfaces.KindForbidden},
		{name: "not found is internal", status: http.StatusNotFound, kind: interfaces.KindInternal},
		{name: "server error", status: http.StatusInternalServerError, kind: interfaces.KindInternal},
		{name: "bad gateway", status: http.StatusBadGateway, kind: interfaces.KindInternal},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := vaulttest.New(t, "token")
			srv.Override(http.MethodGet, "auth/token/lookup-self", tc.status, `{"errors":["nope"]}`)
			validator := NewTokenValidator(newTestTransport(t, srv.URL), testLogger())

			ok, err := validator.Validate(context.Background(), "token")
			require.Error(t, err)
			assert.False(t, ok)

			var ce *interfaces.CustodyError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tc.kind, ce.Kind)
			assert.Equal(t, tc.status, ce.Status)
			assert.Equal(t, "lookup-self", ce.Op)
		})
	}
}

func TestTokenValidator_UnknownTokenUsesVaultStatus(t *testing.T) {
	srv := vaulttest.New(t, "valid-token")
	validator := NewTokenValidator(newTestTransport(t, srv.URL), testLogger())

	_, err := validator.Validate(context.Background(), "stolen-token")
	assert.True(t, errors.Is(err, interfaces.ErrForbidden))

	srv.SetInvalidTokenStatus(http.StatusUnauthorized)
	_, err = validator.Validate(context.Background(), "stolen-token")
	assert.True(t, errors.Is(err, interfaces.ErrUnauthorized))
}

func TestTokenValidator_EmptyToken(t *testing.T) {
	transport := new(MockTransport)
	validator := NewTokenValidator(transport, testLogger())

	ok, err := validator.Validate(context.Background(), "")
	assert.False(t, ok)
	assert.True(t, errors.Is(err, interfaces.ErrUnauthorized))
	transport.AssertNotCalled(t, "Get")
}

func TestTokenValidator_ForeignTransportError(t *testing.T) {
	transport := new(MockTransport)
	transport.On("Get", anyCtx, "token", lookupSelfPath).Return(nil, errors.New("connection reset"))
	validator := NewTokenValidator(transport, testLogger())

	ok, err := validator.Validate(context.Background(), "token")
	assert.False(t, ok)
	assert.True(t, errors.Is(err, interfaces.ErrInternal))
	transport.AssertExpectations(t)
}
