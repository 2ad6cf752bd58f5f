package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the bot's Prometheus metrics.
type Collector struct {
	commandsTotal        *prometheus.CounterVec
	commandDuration      *prometheus.HistogramVec
	backendRequestsTotal *prometheus.CounterVec
	scheduledPostsTotal  *prometheus.CounterVec
	keepAlivePingsTotal  *prometheus.CounterVec
	photoRequestsTotal   *prometheus.CounterVec
	registry             prometheus.Gatherer
}

// NewCollector registers the metrics with the default registry.
func NewCollector() *Collector {
	return NewCollectorWithRegistry(nil)
}

// NewCollectorWithRegistry registers the metrics with registry, or with the
// default registry when it is nil.
func NewCollectorWithRegistry(registry *prometheus.Registry) *Collector {
	var factory promauto.Factory
	var gatherer prometheus.Gatherer
	if registry == nil {
		factory = promauto.With(prometheus.DefaultRegisterer)
		gatherer = prometheus.DefaultGatherer
	} else {
		factory = promauto.With(registry)
		gatherer = registry
	}

	return &Collector{
		commandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutorbot_commands_total",
				Help: "Total number of addressed chat messages handled, by command",
			},
			[]string{"command", "status"},
		),

		commandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tutorbot_command_duration_seconds",
				Help:    "Time spent handling a chat command",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command"},
		),

		backendRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutorbot_backend_requests_total",
				Help: "Total number of Gemini operations, by outcome",
			},
			[]string{"operation", "status"},
		),

		scheduledPostsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutorbot_scheduled_posts_total",
				Help: "Total number of scheduled channel posts",
			},
			[]string{"job", "status"},
		),

		keepAlivePingsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutorbot_keepalive_pings_total",
				Help: "Total number of self keep-alive pings",
			},
			[]string{"status"},
		),

		photoRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutorbot_photo_requests_total",
				Help: "Total number of photo prompts handled",
			},
			[]string{"status"},
		),

		registry: gatherer,
	}
}

func (c *Collector) RecordCommand(command, status string, duration time.Duration) {
	c.commandsTotal.WithLabelValues(command, status).Inc()
	c.commandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

func (c *Collector) RecordBackendRequest(operation, status string) {
	c.backendRequestsTotal.WithLabelValues(operation, status).Inc()
}

func (c *Collector) RecordScheduledPost(job, status string) {
	c.scheduledPostsTotal.WithLabelValues(job, status).Inc()
}

func (c *Collector) RecordKeepAlive(status string) {
	c.keepAlivePingsTotal.WithLabelValues(status).Inc()
}

func (c *Collector) RecordPhotoRequest(status string) {
	c.photoRequestsTotal.WithLabelValues(status).Inc()
}

// Gatherer is what the /metrics endpoint serves.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}
