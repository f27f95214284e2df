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
		Namespace: "fieldmark",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fieldmark",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// Capture metrics. Not labeled by session: one series per recording
	// UUID would grow without bound on a long-lived agent.
	FixesCaptured = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fieldmark",
		Subsystem: "capture",
		Name:      "fixes_total",
		Help:      "Total position fixes accepted during boundary recording",
	})

	FixesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fieldmark",
		Subsystem: "capture",
		Name:      "fixes_rejected_total",
		Help:      "Total fixes rejected for failing the accuracy gate",
	})

	BoundaryVertices = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fieldmark",
		Subsystem: "capture",
		Name:      "boundary_vertices",
		Help:      "Vertex counts of completed boundary recordings",
		Buckets:   []float64{3, 10, 25, 50, 100, 200, 500},
	})

	ArtifactsPending = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fieldmark",
		Subsystem: "capture",
		Name:      "artifacts_pending",
		Help:      "Artifacts currently waiting to be synced",
	})

	// Sync metrics
	SyncAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldmark",
		Subsystem: "sync",
		Name:      "attempts_total",
		Help:      "Total artifact upload attempts",
	}, []string{"kind", "result"})

	SyncCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fieldmark",
		Subsystem: "sync",
		Name:      "cycle_duration_seconds",
		Help:      "Duration of a full sync drain cycle",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	// Hub intake metrics
	ArtifactsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldmark",
		Subsystem: "hub",
		Name:      "artifacts_ingested_total",
		Help:      "Total artifacts accepted by the hub sync endpoints",
	}, []string{"kind"})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldmark",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldmark",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fieldmark",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
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
