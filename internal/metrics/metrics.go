package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/FranksOps/ddgs/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddgs_requests_total",
			Help: "Total number of provider requests executed",
		},
		[]string{"endpoint", "status", "detected", "detection_src"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ddgs_request_duration_seconds",
			Help:    "Duration of provider requests in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"endpoint"},
	)

	ResponseBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddgs_response_bytes_total",
			Help: "Total decoded response bytes received",
		},
		[]string{"endpoint"},
	)

	LatchTrips = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ddgs_latch_trips_total",
			Help: "Number of transports that tripped their fail-fast latch",
		},
	)

	ProxyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddgs_proxy_failures_total",
			Help: "Total number of proxy failures",
		},
		[]string{"proxy_url"},
	)

	PagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ddgs_pages_total",
			Help: "Result pages fetched, by search kind",
		},
		[]string{"kind"},
	)
)

// RecordExchange updates the request metrics from one audit record.
func RecordExchange(e *storage.Exchange) {
	if e == nil {
		return
	}

	status := strconv.Itoa(e.StatusCode)
	if e.StatusCode == 0 && e.Error != "" {
		status = "error"
	}

	RequestsTotal.WithLabelValues(e.Endpoint, status, strconv.FormatBool(e.DetectedBot), e.DetectionSrc).Inc()
	RequestDuration.WithLabelValues(e.Endpoint).Observe(e.Duration.Seconds())
	ResponseBytesTotal.WithLabelValues(e.Endpoint).Add(float64(e.BodySize))
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Start listens on addr (e.g. ":9090", "127.0.0.1:0") and serves /metrics
// in the background.
func Start(addr string, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "err", err)
		}
	}()

	return &Server{srv: srv, ln: ln}, nil
}

// Addr is the address the server actually listens on.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
