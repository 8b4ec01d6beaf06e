// Package metrics exposes Prometheus metrics for the custody gateway and
// serves them on a dedicated listener.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ruteri/vault-wallet-custody/common"
)

var registry = prometheus.NewRegistry()

var (
	vaultRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: common.PackageName,
		Subsystem: "vault",
		Name:      "requests_total",
		Help:      "Requests issued to the secret store, by operation and outcome.",
	}, []string{"op", "result"})

	vaultRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: common.PackageName,
		Subsystem: "vault",
		Name:      "request_duration_seconds",
		Help:      "Round-trip latency of secret store requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	keysCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: common.PackageName,
		Subsystem: "custody",
		Name:      "keys_created_total",
		Help:      "Signing keys created on first use.",
	})

	transactions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: common.PackageName,
		Subsystem: "chain",
		Name:      "transactions_total",
		Help:      "Transaction groups submitted to algod, by operation and outcome.",
	}, []string{"op", "result"})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		vaultRequests,
		vaultRequestDuration,
		keysCreated,
		transactions,
	)
}

// RecordVaultRequest records one secret store round trip. result is "ok" or
// the failure kind.
func RecordVaultRequest(op, result string, duration time.Duration) {
	vaultRequests.WithLabelValues(op, result).Inc()
	vaultRequestDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordKeyCreated counts a create issued by the get-or-create fallback.
func RecordKeyCreated() {
	keysCreated.Inc()
}

// RecordTransaction counts one submission to algod. result is "ok" or "error".
func RecordTransaction(op, result string) {
	transactions.WithLabelValues(op, result).Inc()
}

// Handler serves the gateway registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

type MetricsServer struct {
	srv *http.Server
}

func New(listenAddr string) (*MetricsServer, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	return &MetricsServer{
		srv: &http.Server{
			Addr:              listenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
