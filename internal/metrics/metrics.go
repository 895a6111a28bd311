package metrics

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SessionsGenerated counts created login sessions.
	SessionsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanly_sessions_generated_total",
		Help: "Number of QR login sessions generated.",
	})

	// SessionsScanned counts successful scan transitions.
	SessionsScanned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanly_sessions_scanned_total",
		Help: "Number of sessions claimed by a scanning device.",
	})

	// SessionsConfirmed counts successful confirm transitions.
	SessionsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanly_sessions_confirmed_total",
		Help: "Number of sessions confirmed into issued tokens.",
	})

	// SessionsReaped counts entries hard-deleted by the reaper.
	SessionsReaped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanly_sessions_reaped_total",
		Help: "Number of expired sessions deleted by the background reaper.",
	})

	// SignatureFailures counts rejected scan/verify signatures.
	SignatureFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanly_signature_failures_total",
		Help: "Number of scan requests rejected by signature verification.",
	})
)

// Serve exposes /metrics on its own listener so the protocol port stays
// clean. Runs until the process exits.
func Serve(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	slog.Info("Metrics listener starting", "address", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("Metrics listener stopped", "error", err)
	}
}
