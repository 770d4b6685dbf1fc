// Package metrics exposes dispense run progress as Prometheus metrics.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/samraisbeck/MEDS/internal/dispense"
	"github.com/samraisbeck/MEDS/internal/inventory"
)

// PromSink records dispense events in Prometheus metrics.
type PromSink struct {
	pills     *prometheus.CounterVec
	runs      *prometheus.CounterVec
	remaining *prometheus.GaugeVec
	failures  prometheus.Gauge
	completed prometheus.Gauge
}

var _ dispense.Observer = (*PromSink)(nil)

// NewPromSink registers the dispense metrics on reg. A nil registerer
// defaults to the global Prometheus registerer.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	pills := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meds_pills_total",
		Help: "Pills processed, by classified color and outcome",
	}, []string{"color", "outcome"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meds_runs_total",
		Help: "Finished dispense runs, by result",
	}, []string{"result"})
	remaining := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "meds_remaining_pills",
		Help: "Pills still owed per color and day in the current run",
	}, []string{"color", "day"})
	failures := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "meds_consecutive_failures",
		Help: "Consecutive pills that could not be classified",
	})
	completed := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "meds_completed_pills",
		Help: "Pills routed to a compartment in the current run",
	})

	var err error
	if pills, err = register(reg, pills); err != nil {
		return nil, err
	}
	if runs, err = register(reg, runs); err != nil {
		return nil, err
	}
	if remaining, err = register(reg, remaining); err != nil {
		return nil, err
	}
	if failures, err = register(reg, failures); err != nil {
		return nil, err
	}
	if completed, err = register(reg, completed); err != nil {
		return nil, err
	}

	return &PromSink{
		pills:     pills,
		runs:      runs,
		remaining: remaining,
		failures:  failures,
		completed: completed,
	}, nil
}

// register adds c to reg, reusing an identical collector that is already registered.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Observe updates metrics from a controller event.
func (s *PromSink) Observe(e dispense.Event) {
	s.failures.Set(float64(e.Run.ConsecutiveFailures))
	s.completed.Set(float64(e.Run.Completed))

	switch e.Kind {
	case dispense.EventRunStarted, dispense.EventPillProcessed:
		for _, color := range inventory.Colors() {
			for _, day := range inventory.Days() {
				s.remaining.WithLabelValues(color.String(), day.String()).Set(float64(e.Inventory[color][day]))
			}
		}
	}

	if e.Pill != nil {
		s.pills.WithLabelValues(e.Pill.Color.String(), e.Pill.Outcome.String()).Inc()
	}

	if e.Result != nil {
		result := "success"
		switch {
		case e.Result.Err != nil:
			result = "error"
		case e.Result.Failed:
			result = "failure"
		}
		s.runs.WithLabelValues(result).Inc()
	}
}
