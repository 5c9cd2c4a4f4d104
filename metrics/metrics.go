// Package metrics exposes Prometheus metrics for the vault service on a
// dedicated listen address.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SecretsStored counts successful store operations.
	SecretsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vault_secrets_stored_total",
		Help: "Number of secret records appended to the ledger.",
	})

	// SecretsRead counts successful authorized reads.
	SecretsRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vault_secrets_read_total",
		Help: "Number of secrets decrypted through the authorization protocol.",
	})

	// OperationErrors counts failed operations by error kind.
	OperationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vault_operation_errors_total",
		Help: "Number of failed vault operations by error kind.",
	}, []string{"kind"})
)

// MetricsServer serves the Prometheus scrape endpoint.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server listening on addr.
func New(addr string) (*MetricsServer, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &MetricsServer{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}, nil
}

// ListenAndServe blocks serving the scrape endpoint.
func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
