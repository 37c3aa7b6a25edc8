package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "capture",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "capture",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "capture",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Game metrics
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "capture",
		Subsystem: "game",
		Name:      "active_sessions",
		Help:      "Current number of active capture sessions",
	})

	FixesAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "capture",
		Subsystem: "game",
		Name:      "fixes_accepted_total",
		Help:      "Total position fixes accepted into active paths",
	})

	FixesFiltered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "capture",
		Subsystem: "game",
		Name:      "fixes_filtered_total",
		Help:      "Total position fixes discarded by the noise filter",
	})

	FixesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "capture",
		Subsystem: "game",
		Name:      "fixes_rejected_total",
		Help:      "Total position fixes rejected for invalid coordinates",
	})

	FixesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "capture",
		Subsystem: "game",
		Name:      "fixes_dropped_total",
		Help:      "Total position fixes dropped due to a full session buffer",
	})

	PresenceUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "capture",
		Subsystem: "game",
		Name:      "presence_updates_total",
		Help:      "Total last-known-position updates recorded by the tracker",
	})

	TerritoriesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "capture",
		Subsystem: "game",
		Name:      "territories_created_total",
		Help:      "Total territories created from successful captures",
	})

	RunsSaved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "capture",
		Subsystem: "game",
		Name:      "runs_saved_total",
		Help:      "Total runs saved without territory capture",
	})

	Claims = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "capture",
		Subsystem: "game",
		Name:      "claims_total",
		Help:      "Total territory claim attempts",
	}, []string{"result"})

	OverlapScans = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "capture",
		Subsystem: "game",
		Name:      "overlap_scans_total",
		Help:      "Total overlap scans against the territory map",
	})

	OverlapSkips = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "capture",
		Subsystem: "game",
		Name:      "overlap_skips_total",
		Help:      "Total stored territories skipped during overlap scans",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "capture",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "capture",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "capture",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "capture",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "capture",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "capture",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics updates database pool gauges from pgx pool stats.
// Takes an interface so the metrics package stays free of a pgxpool import.
func UpdateDBPoolMetrics(stat interface{}) {
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
