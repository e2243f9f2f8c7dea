// Package metrics exposes Prometheus collectors for the submit pipeline and
// for log volume.
package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-jobform/pkg/form"
	"github.com/goliatone/go-jobform/pkg/jobs"
	"github.com/goliatone/go-jobform/pkg/orchestrator"
)

const Prefix = "jobform_"

// Outcome labels.
const (
	OutcomeOK        = "ok"
	OutcomeInvalid   = "invalid"
	OutcomeNotFound  = "not_found"
	OutcomeAmbiguous = "ambiguous"
	OutcomeTimeout   = "timeout"
	OutcomeError     = "error"
)

// Metrics owns a private registry so tests and multiple servers in one
// process never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	stages        *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	runs          *prometheus.CounterVec
	logMessages   *prometheus.CounterVec
}

// New registers the jobform collectors plus the Go runtime and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: Prefix + "stage_total",
				Help: "Pipeline stages run, by stage and outcome",
			},
			[]string{"stage", "outcome"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    Prefix + "stage_duration_seconds",
				Help:    "Time spent in each pipeline stage",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"stage"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: Prefix + "runs_submitted_total",
				Help: "Runs triggered on the job backend, by job",
			},
			[]string{"job"},
		),
		logMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: Prefix + "log_messages_total",
				Help: "Total number of log lines logged by level",
			},
			[]string{"level"},
		),
	}
	m.registry.MustRegister(
		m.stages,
		m.stageDuration,
		m.runs,
		m.logMessages,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe implements orchestrator.Observer.
func (m *Metrics) Observe(e orchestrator.Event) {
	stage := string(e.Stage)
	m.stages.WithLabelValues(stage, Classify(e.Err)).Inc()
	m.stageDuration.WithLabelValues(stage).Observe(e.Duration.Seconds())
	if e.Stage == orchestrator.StageSubmit && e.Err == nil {
		m.runs.WithLabelValues(e.JobName).Inc()
	}
}

// Classify maps a pipeline error onto an outcome label.
func Classify(err error) string {
	var (
		verr      *form.ValidationError
		notFound  *jobs.NotFoundError
		ambiguous *jobs.AmbiguousError
		lookup    *jobs.LookupError
		submit    *jobs.SubmissionError
	)
	switch {
	case err == nil:
		return OutcomeOK
	case errors.As(err, &verr):
		return OutcomeInvalid
	case errors.As(err, &notFound):
		return OutcomeNotFound
	case errors.As(err, &ambiguous):
		return OutcomeAmbiguous
	case errors.As(err, &lookup) && lookup.Timeout,
		errors.As(err, &submit) && submit.Timeout,
		errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	default:
		return OutcomeError
	}
}

// Registry returns the registry backing Handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// LogHook counts log lines per level. Add it with logger.AddHook.
func (m *Metrics) LogHook() logrus.Hook {
	return logHook{counter: m.logMessages}
}

type logHook struct {
	counter *prometheus.CounterVec
}

func (h logHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h logHook) Fire(entry *logrus.Entry) error {
	h.counter.WithLabelValues(entry.Level.String()).Inc()
	return nil
}

var _ orchestrator.Observer = (*Metrics)(nil)
