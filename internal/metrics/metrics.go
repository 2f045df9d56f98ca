// Package metrics holds the Prometheus collectors of the daemon.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "newsnexus"

// Registry groups every collector. It registers on the given Registerer so
// tests can use a private prometheus.Registry.
type Registry struct {
	PublishTotal      *prometheus.CounterVec
	PublishDuration   *prometheus.HistogramVec
	SchedulerTicks    prometheus.Counter
	DuePostsProcessed *prometheus.CounterVec
	HTTPRequestsTotal *prometheus.CounterVec
}

func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		PublishTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "publish_attempts_total",
				Help:      "Publish attempts by platform and result",
			},
			[]string{"platform", "result"},
		),
		PublishDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "publish_duration_seconds",
				Help:      "Duration of platform publish calls",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"platform"},
		),
		SchedulerTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_ticks_total",
			Help:      "Scheduler ticks run",
		}),
		DuePostsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduler_due_posts_total",
				Help:      "Due posts processed by the scheduler by outcome",
			},
			[]string{"outcome"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Local API requests",
			},
			[]string{"method", "path", "status"},
		),
	}

	reg.MustRegister(
		r.PublishTotal,
		r.PublishDuration,
		r.SchedulerTicks,
		r.DuePostsProcessed,
		r.HTTPRequestsTotal,
	)
	return r
}

// ObservePublish records one platform publish call.
func (r *Registry) ObservePublish(platform string, success bool, d time.Duration) {
	if r == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	r.PublishTotal.WithLabelValues(platform, result).Inc()
	r.PublishDuration.WithLabelValues(platform).Observe(d.Seconds())
}

// ObserveTick records a scheduler tick and its outcome counts.
func (r *Registry) ObserveTick(published, failed, skipped int) {
	if r == nil {
		return
	}
	r.SchedulerTicks.Inc()
	r.DuePostsProcessed.WithLabelValues("published").Add(float64(published))
	r.DuePostsProcessed.WithLabelValues("failed").Add(float64(failed))
	r.DuePostsProcessed.WithLabelValues("skipped").Add(float64(skipped))
}

// GinMiddleware counts requests by route template.
func GinMiddleware(r *Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		r.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
