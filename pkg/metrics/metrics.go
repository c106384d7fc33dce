package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"twinkscan/pkg/factions"
	"twinkscan/pkg/report"
)

var _ report.Sink = (*Collector)(nil)

const namespace = "twinkscan"

// Collector turns scan messages into Prometheus metrics. It keeps its own
// registry so tests and repeated runs never collide on the default one.
type Collector struct {
	registry *prometheus.Registry

	messagesTotal *prometheus.CounterVec
	flagsTotal    prometheus.Counter
	breaksTotal   prometheus.Counter
	pausesTotal   *prometheus.CounterVec
	passesTotal   *prometheus.CounterVec

	rosterSize prometheus.Gauge
	processed  prometheus.Gauge
	slowdown   prometheus.Gauge
	breakSecs  prometheus.Histogram
}

// NewCollector creates and registers the scan metrics
func NewCollector() (*Collector, error) {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Messages emitted by the scanner, by type",
		}, []string{"type"}),
		flagsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flags_total",
			Help:      "Flag lines reported",
		}),
		breaksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaks_total",
			Help:      "Anti-burst breaks taken",
		}),
		pausesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pauses_total",
			Help:      "Scan pauses caused by the site, by reason",
		}, []string{"reason"}),
		passesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Finished scan passes, by outcome",
		}, []string{"outcome"}),
		rosterSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "roster_size",
			Help:      "Members in the current worklist",
		}),
		processed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "processed",
			Help:      "Members processed in the current pass",
		}),
		slowdown: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "slowdown_multiplier",
			Help:      "Current pacing slowdown multiplier",
		}),
		breakSecs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "break_seconds",
			Help:      "Length of anti-burst breaks",
			Buckets:   []float64{2, 3, 4, 5},
		}),
	}

	collectors := []prometheus.Collector{
		c.messagesTotal,
		c.flagsTotal,
		c.breaksTotal,
		c.pausesTotal,
		c.passesTotal,
		c.rosterSize,
		c.processed,
		c.slowdown,
		c.breakSecs,
	}
	for _, col := range collectors {
		if err := c.registry.Register(col); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	c.slowdown.Set(1)
	return c, nil
}

// Deliver records msg
func (c *Collector) Deliver(_ context.Context, msg report.Message) error {
	c.messagesTotal.WithLabelValues(string(msg.Type)).Inc()

	switch msg.Type {
	case report.TypeProgress:
		c.rosterSize.Set(float64(msg.Total))
		c.processed.Set(float64(msg.Processed))
		if msg.SlowdownMultiplier > 0 {
			c.slowdown.Set(msg.SlowdownMultiplier)
		}
	case report.TypeResult:
		c.flagsTotal.Add(float64(strings.Count(msg.Content, factions.LineBreak)))
	case report.TypeBreak:
		c.breaksTotal.Inc()
		if msg.Duration > 0 {
			c.breakSecs.Observe(msg.Duration.Seconds())
		}
	case report.TypeCaptcha:
		c.pausesTotal.WithLabelValues("captcha").Inc()
	case report.TypeRateLimit:
		c.pausesTotal.WithLabelValues("rate_limit").Inc()
	case report.TypeFinished:
		c.passesTotal.WithLabelValues(msg.Message).Inc()
	}
	return nil
}

// Registry exposes the registry for scraping and tests
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the metrics in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Server serves a Collector over HTTP
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Listen binds addr and mounts the collector at path
func Listen(addr, path string, c *Collector) (*Server, error) {
	if path == "" {
		path = "/metrics"
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(path, c.Handler())

	return &Server{
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
		},
		ln: ln,
	}, nil
}

// Addr returns the bound address
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Serve blocks until ctx is done, then shuts the server down
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(s.ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown: %w", err)
		}
		return nil
	}
}
