package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordVaultRequest(t *testing.T) {
	before := testutil.ToFloat64(vaultRequests.WithLabelValues("sign", "ok"))
	RecordVaultRequest("sign", "ok", 15*time.Millisecond)
	RecordVaultRequest("sign", "forbidden", 5*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(vaultRequests.WithLabelValues("sign", "ok")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(vaultRequests.WithLabelValues("sign", "forbidden")), 1.0)
}

func TestHandler_ExposesVaultMetrics(t *testing.T) {
	RecordVaultRequest("read-key", "ok", time.Millisecond)
	RecordKeyCreated()

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "vault_wallet_custody_vault_requests_total")
	assert.Contains(t, string(body), "vault_wallet_custody_custody_keys_created_total")
}

func TestRecordTransaction(t *testing.T) {
	before := testutil.ToFloat64(transactions.WithLabelValues("transfer-asset", "ok"))
	RecordTransaction("transfer-asset", "ok")
	assert.Equal(t, before+1, testutil.ToFloat64(transactions.WithLabelValues("transfer-asset", "ok")))
}
