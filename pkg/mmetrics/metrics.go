// Package mmetrics exposes the pipeline's Prometheus collectors and the
// HTTP endpoint that serves them, grounded on the teacher pack's own
// prometheus/client_golang usage.
package mmetrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sonicx222/arbitrage-new-sub015/common"
)

// Registry holds this process's collectors, kept separate from the global
// default registry so tests can build a fresh one per case.
var Registry = prometheus.NewRegistry()

var (
	// ExecutorInFlight tracks the executor worker pool's current occupancy
	// (spec.md §8 property 6, backpressure safety).
	ExecutorInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "arbitrage",
		Subsystem: "executor",
		Name:      "in_flight_entries",
		Help:      "Entries currently in worker-execution state.",
	})

	// ExecutorErrorsTotal counts read-group and result-publish failures
	// observed by the dispatcher.
	ExecutorErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "arbitrage",
		Subsystem: "executor",
		Name:      "errors_total",
		Help:      "Read-group and result-publish failures observed by the dispatcher.",
	})

	// ExecutionResultsTotal counts published execution results by outcome
	// (spec.md §7 error taxonomy plus "success").
	ExecutionResultsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arbitrage",
		Subsystem: "executor",
		Name:      "results_total",
		Help:      "Execution results published, labeled by outcome.",
	}, []string{"outcome"})

	// DegradationLevel mirrors the coordinator's current classification
	// (0=normal .. 3=complete-outage), per spec.md §4.2.
	DegradationLevel = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "arbitrage",
		Subsystem: "health",
		Name:      "degradation_level",
		Help:      "Current coordinator degradation level (0=normal, 1=partial, 2=critical, 3=complete-outage).",
	})

	// ForwardedTotal counts opportunities the coordinator forwarder has
	// moved to stream:execution-requests.
	ForwardedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "arbitrage",
		Subsystem: "coordinator",
		Name:      "forwarded_total",
		Help:      "Opportunities forwarded to stream:execution-requests.",
	})
)

func init() {
	Registry.MustRegister(ExecutorInFlight, ExecutorErrorsTotal, ExecutionResultsTotal, DegradationLevel, ForwardedTotal)
}

// Server serves Registry's collectors over HTTP, as a common.App so it
// joins a process's Launcher like any other task.
type Server struct {
	Addr string

	server *http.Server
}

// NewServer builds a Server bound to addr (e.g. ":9090").
func NewServer(addr string) *Server {
	return &Server{Addr: addr}
}

// Run implements common.App: serves /metrics until ctx is cancelled, then
// shuts down within a short grace period.
func (s *Server) Run(ctx context.Context, _ *common.Launcher) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))

	s.server = &http.Server{Addr: s.Addr, Handler: mux}

	errCh := make(chan error, 1)

	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}

		return err
	}
}
