package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samraisbeck/MEDS/internal/dispense"
	"github.com/samraisbeck/MEDS/internal/inventory"
)

func TestPromSinkRecordsEvents(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPromSink(reg)
	require.NoError(t, err)

	counts := inventory.Counts{inventory.Yellow: {inventory.Monday: 2}}
	sink.Observe(dispense.Event{
		Kind:      dispense.EventRunStarted,
		Run:       dispense.RunState{TotalExpected: 2},
		Inventory: counts,
	})
	assert.InDelta(t, 2, testutil.ToFloat64(sink.remaining.WithLabelValues("yellow", "monday")), 0)

	counts[inventory.Yellow][inventory.Monday] = 1
	sink.Observe(dispense.Event{
		Kind:      dispense.EventPillProcessed,
		Run:       dispense.RunState{TotalExpected: 2, Completed: 1},
		Inventory: counts,
		Pill:      &dispense.Pill{Color: inventory.Yellow, Outcome: dispense.OutcomeRouted, Day: inventory.Monday},
	})
	sink.Observe(dispense.Event{
		Kind:      dispense.EventPillProcessed,
		Run:       dispense.RunState{TotalExpected: 2, Completed: 1, ConsecutiveFailures: 1},
		Inventory: counts,
		Pill:      &dispense.Pill{Color: inventory.Unknown, Outcome: dispense.OutcomeUnclassified},
	})

	assert.InDelta(t, 1, testutil.ToFloat64(sink.pills.WithLabelValues("yellow", "routed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(sink.pills.WithLabelValues("unknown", "unclassified")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(sink.remaining.WithLabelValues("yellow", "monday")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(sink.failures), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(sink.completed), 0)

	sink.Observe(dispense.Event{Kind: dispense.EventRunFinished, Result: &dispense.Result{Failed: true}})
	sink.Observe(dispense.Event{Kind: dispense.EventRunFinished, Result: &dispense.Result{Failed: true, Err: errors.New("jam")}})
	sink.Observe(dispense.Event{Kind: dispense.EventRunFinished, Result: &dispense.Result{}})

	assert.InDelta(t, 1, testutil.ToFloat64(sink.runs.WithLabelValues("failure")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(sink.runs.WithLabelValues("error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(sink.runs.WithLabelValues("success")), 0)
}

func TestNewPromSinkReusesRegisteredCollectors(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	first, err := NewPromSink(reg)
	require.NoError(t, err)
	second, err := NewPromSink(reg)
	require.NoError(t, err)

	second.Observe(dispense.Event{Pill: &dispense.Pill{Color: inventory.Red, Outcome: dispense.OutcomeExhausted}})
	assert.InDelta(t, 1, testutil.ToFloat64(first.pills.WithLabelValues("red", "exhausted")), 0)
}
