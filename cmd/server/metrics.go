package main

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/phrazzld/tome-api/internal/task"
)

// How often scheduler gauges are refreshed.
const metricsPollInterval = 5 * time.Second

var (
	schedulerTasksTotal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tome",
		Subsystem: "scheduler",
		Name:      "tasks_total",
		Help:      "Cumulative task counts by outcome.",
	}, []string{"outcome"})

	schedulerTasksRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tome",
		Subsystem: "scheduler",
		Name:      "tasks_running",
		Help:      "Tasks currently executing.",
	})

	schedulerTasksQueued = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "tome",
		Subsystem: "scheduler",
		Name:      "tasks_queued",
		Help:      "Tasks waiting in the priority queue.",
	})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tome",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method and status code.",
	}, []string{"method", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tome",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"method"})
)

// schedulerMetrics periodically exports scheduler statistics as Prometheus
// gauges and instruments HTTP traffic.
type schedulerMetrics struct {
	scheduler *task.Scheduler
	logger    *slog.Logger
	done      chan struct{}
}

func newSchedulerMetrics(scheduler *task.Scheduler, logger *slog.Logger) *schedulerMetrics {
	return &schedulerMetrics{
		scheduler: scheduler,
		logger:    logger.With("component", "metrics"),
		done:      make(chan struct{}),
	}
}

// start launches the gauge refresh loop.
func (m *schedulerMetrics) start() {
	go func() {
		ticker := time.NewTicker(metricsPollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.observe()
			case <-m.done:
				return
			}
		}
	}()
}

// stop terminates the refresh loop after one final observation.
func (m *schedulerMetrics) stop() {
	close(m.done)
	m.observe()
}

func (m *schedulerMetrics) observe() {
	stats := m.scheduler.GetStatistics()
	schedulerTasksTotal.WithLabelValues("submitted").Set(float64(stats.Submitted))
	schedulerTasksTotal.WithLabelValues("completed").Set(float64(stats.Completed))
	schedulerTasksTotal.WithLabelValues("failed").Set(float64(stats.Failed))
	schedulerTasksTotal.WithLabelValues("cancelled").Set(float64(stats.Cancelled))
	schedulerTasksTotal.WithLabelValues("timed_out").Set(float64(stats.TimedOut))
	schedulerTasksRunning.Set(float64(stats.Running))
	schedulerTasksQueued.Set(float64(stats.Queued))
}

// httpMiddleware records request counts and latency.
func (m *schedulerMetrics) httpMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		httpRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(ww.Status())).Inc()
		httpRequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}
