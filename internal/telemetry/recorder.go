// Package telemetry exposes run progress as prometheus collectors. The
// Recorder is wired up as an event handler, so everything the engine
// reports ends up on /metrics without the engine knowing about
// prometheus.
package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/salieri-auto/menunav/internal/event"
)

type Recorder struct {
	running     prometheus.Gauge
	transitions *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	stuck       prometheus.Counter
	repeats     prometheus.Gauge
	runs        *prometheus.CounterVec
	successRate prometheus.Gauge
}

func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		running: factory.NewGauge(prometheus.GaugeOpts{
			Name: "menunav_run_active",
			Help: "1 while a navigation run is in progress.",
		}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "menunav_transitions_total",
			Help: "State executions by source state and outcome.",
		}, []string{"state", "outcome"}),
		durations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "menunav_state_duration_seconds",
			Help:    "Wall time spent executing each state.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"state"}),
		stuck: factory.NewCounter(prometheus.CounterOpts{
			Name: "menunav_stuck_nudges_total",
			Help: "Times the engine nudged a suspected stuck loop.",
		}),
		repeats: factory.NewGauge(prometheus.GaugeOpts{
			Name: "menunav_repeat_count",
			Help: "Consecutive revisits of already visited states.",
		}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "menunav_runs_total",
			Help: "Finished runs by outcome.",
		}, []string{"outcome"}),
		successRate: factory.NewGauge(prometheus.GaugeOpts{
			Name: "menunav_run_success_rate",
			Help: "Success rate of the most recently finished run.",
		}),
	}
}

// Handle implements event.Handler.
func (r *Recorder) Handle(_ context.Context, ev event.Event) error {
	switch e := ev.(type) {
	case event.RunStartedEvent:
		r.running.Set(1)
		r.repeats.Set(0)
	case event.TransitionRecordedEvent:
		r.transitions.WithLabelValues(e.From, e.Outcome).Inc()
		r.durations.WithLabelValues(e.From).Observe(e.Duration.Seconds())
	case event.RunStuckEvent:
		r.stuck.Inc()
		r.repeats.Set(float64(e.RepeatCount))
	case event.RunFinishedEvent:
		r.running.Set(0)
		r.runs.WithLabelValues(e.Outcome).Inc()
		r.successRate.Set(e.SuccessRate)
	}
	return nil
}
