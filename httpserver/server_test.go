package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ruteri/vault-wallet-custody/api"
	"github.com/ruteri/vault-wallet-custody/kms"
	"github.com/ruteri/vault-wallet-custody/vault"
	"github.com/ruteri/vault-wallet-custody/vault/vaulttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func newFakeVault(t *testing.T, tokens ...string) *vaulttest.Server {
	return vaulttest.New(t, tokens...)
}

func newVaultBackedServer(t *testing.T, address string) http.Handler {
	transport, err := vault.NewTransport(vault.TransportConfig{Address: address, Timeout: 5 * time.Second}, testLogger())
	require.NoError(t, err)

	custody, err := kms.NewVaultCustody(transport, kms.VaultConfig{
		BaseURL:    address,
		ManagerKey: "manager",
	}, testLogger())
	require.NoError(t, err)

	handler := NewHandler(custody, kms.NewTokenValidator(transport, testLogger()), custody.Config().UsersPath, testLogger())
	srv, err := New(&api.HTTPServerConfig{
		Log:            testLogger(),
		ReadinessCheck: transport.Available,
	}, handler)
	require.NoError(t, err)
	return srv.Handler()
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	h := newTestServer(t, new(kms.MockKeyCustody), new(kms.MockTokenValidator))

	rr := get(t, h, "/livez")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rr.Body.String())

	rr = get(t, h, "/readyz")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestDrainUndrain(t *testing.T) {
	h := newTestServer(t, new(kms.MockKeyCustody), new(kms.MockTokenValidator))

	rr := get(t, h, "/drain")
	assert.JSONEq(t, `{"status":"draining"}`, rr.Body.String())
	rr = get(t, h, "/drain")
	assert.JSONEq(t, `{"status":"already draining"}`, rr.Body.String())

	rr = get(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = get(t, h, "/undrain")
	assert.JSONEq(t, `{"status":"ready"}`, rr.Body.String())
	rr = get(t, h, "/undrain")
	assert.JSONEq(t, `{"status":"already ready"}`, rr.Body.String())

	rr = get(t, h, "/readyz")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestReadinessCheck(t *testing.T) {
	var available atomic.Bool
	handler := NewHandler(new(kms.MockKeyCustody), new(kms.MockTokenValidator), usersPath, testLogger())
	srv, err := New(&api.HTTPServerConfig{
		Log:            testLogger(),
		ReadinessCheck: func(context.Context) bool { return available.Load() },
	}, handler)
	require.NoError(t, err)

	rr := get(t, srv.Handler(), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.JSONEq(t, `{"status":"vault unavailable"}`, rr.Body.String())

	available.Store(true)
	rr = get(t, srv.Handler(), "/readyz")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestReadinessCheck_FakeVault(t *testing.T) {
	vaultSrv := newFakeVault(t, "token")
	h := newVaultBackedServer(t, vaultSrv.URL)

	rr := get(t, h, "/readyz")
	assert.Equal(t, http.StatusOK, rr.Code)

	vaultSrv.Close()
	rr = get(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestHealthEndpoints_NoToken(t *testing.T) {
	validator := new(kms.MockTokenValidator)
	h := newTestServer(t, new(kms.MockKeyCustody), validator)

	for _, path := range []string{"/livez", "/readyz"} {
		assert.Equal(t, http.StatusOK, get(t, h, path).Code)
	}
	validator.AssertNotCalled(t, "Validate")
}
