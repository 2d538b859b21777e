package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salieri-auto/menunav/internal/event"
)

func TestRecorderTracksRunLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)
	ctx := context.Background()

	require.NoError(t, r.Handle(ctx, event.RunStarted(event.Text("run-1", "started"), "start_menu")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.running))

	require.NoError(t, r.Handle(ctx, event.TransitionRecorded(
		event.Text("run-1", "hop"), "start_menu", "solo_menu", "success", 300*time.Millisecond)))
	require.NoError(t, r.Handle(ctx, event.TransitionRecorded(
		event.Text("run-1", "hop"), "start_menu", "", "failed", 100*time.Millisecond)))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.transitions.WithLabelValues("start_menu", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.transitions.WithLabelValues("start_menu", "failed")))

	require.NoError(t, r.Handle(ctx, event.RunStuck(event.Text("run-1", "stuck"), "solo_menu", 5)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.stuck))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.repeats))

	require.NoError(t, r.Handle(ctx, event.RunFinished(event.Text("run-1", "done"), "completed", 7, 1.0)))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.running))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.successRate))
}

func TestRecorderIgnoresUnrelatedEvents(t *testing.T) {
	r := NewRecorder(prometheus.NewRegistry())
	err := r.Handle(context.Background(), event.StateEntered(event.Text("run-1", "entered"), "start_menu"))
	assert.NoError(t, err)
}
