package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Application counters and gauges, registered on a private registry so
// the metrics endpoint only exposes what we put there.
var (
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lightsout_submissions_total",
			Help: "Reaction submissions by outcome.",
		},
		[]string{"outcome"},
	)

	FlaggedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lightsout_flagged_submissions_total",
			Help: "Submissions flagged by validation.",
		},
	)

	ChallengesResolvedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lightsout_challenges_resolved_total",
			Help: "Resolved challenges by result.",
		},
		[]string{"result"},
	)

	ConnectedClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lightsout_ws_clients",
			Help: "Connected challenge room WebSocket clients.",
		},
	)
)

// SessionsGauge samples the live session count on scrape, so the value
// tracks the store through sweeps instead of ratcheting on creates.
func SessionsGauge(count func() int) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "lightsout_active_sessions",
			Help: "Live play sessions in memory.",
		},
		func() float64 { return float64(count()) },
	)
}

// Server serves Prometheus metrics on its own port.
type Server struct {
	server *http.Server
	addr   string
}

func NewServer(addr string) *Server {
	return &Server{addr: addr}
}

// Setup builds the private registry and HTTP handler. Extra collectors
// let callers attach gauges over their own state, like the session count.
func (m *Server) Setup(extra ...prometheus.Collector) {
	registry := prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		SubmissionsTotal,
		FlaggedTotal,
		ChallengesResolvedTotal,
		ConnectedClients,
	)
	registry.MustRegister(extra...)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	m.server = &http.Server{
		Addr:    m.addr,
		Handler: mux,
	}
}

// Start serves metrics in the background.
func (m *Server) Start() {
	go func() {
		logrus.Infof("metrics server listening on %s/metrics", m.addr)
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("metrics server failed: %v", err)
		}
	}()
}

// Shutdown stops the metrics server.
func (m *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return m.server.Shutdown(ctx)
}
