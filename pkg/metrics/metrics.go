package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "groundskeeper"

// Collector holds the migration engine's prometheus collectors. A nil
// *Collector is valid and records nothing, so components can take one
// optionally.
type Collector struct {
	RunsTotal       *prometheus.CounterVec
	FilesTotal      *prometheus.CounterVec
	DuplicatesTotal prometheus.Counter
	ReconnectsTotal *prometheus.CounterVec
	JobsTotal       *prometheus.CounterVec
	JobsRunning     prometheus.Gauge
	RunDuration     prometheus.Histogram
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total full migration runs by outcome",
			},
			[]string{"outcome"},
		),
		FilesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_total",
				Help:      "Total migration files processed by status",
			},
			[]string{"status"},
		),
		DuplicatesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ignored_duplicates_total",
				Help:      "Total statements whose already-exists error was tolerated",
			},
		),
		ReconnectsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconnects_total",
				Help:      "Total connection pool rebuilds by outcome",
			},
			[]string{"outcome"},
		),
		JobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_total",
				Help:      "Total background jobs by terminal status",
			},
			[]string{"status"},
		),
		JobsRunning: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "jobs_running",
				Help:      "Background jobs currently executing",
			},
		),
		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of full migration runs",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}
}

// RunFinished records the outcome and duration of a full run.
func (c *Collector) RunFinished(ok bool, d time.Duration) {
	if c == nil {
		return
	}

	c.RunsTotal.WithLabelValues(outcome(ok)).Inc()
	c.RunDuration.Observe(d.Seconds())
}

// FileFinished records a processed migration file.
func (c *Collector) FileFinished(status string) {
	if c == nil {
		return
	}

	c.FilesTotal.WithLabelValues(status).Inc()
}

// DuplicateIgnored records a tolerated already-exists error.
func (c *Collector) DuplicateIgnored() {
	if c == nil {
		return
	}

	c.DuplicatesTotal.Inc()
}

// Reconnected records a pool rebuild attempt.
func (c *Collector) Reconnected(err error) {
	if c == nil {
		return
	}

	c.ReconnectsTotal.WithLabelValues(outcome(err == nil)).Inc()
}

// JobStarted marks a background job as running.
func (c *Collector) JobStarted() {
	if c == nil {
		return
	}

	c.JobsRunning.Inc()
}

// JobFinished records the terminal status of a background job.
func (c *Collector) JobFinished(status string) {
	if c == nil {
		return
	}

	c.JobsRunning.Dec()
	c.JobsTotal.WithLabelValues(status).Inc()
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
