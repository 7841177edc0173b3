package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(DefaultEngineOptions(), nil)
	require.NoError(t, err)
	return engine
}

func TestNewEngine_RejectsNonPositiveIntervals(t *testing.T) {
	opts := DefaultEngineOptions()
	opts.AlertInterval = 0

	_, err := NewEngine(opts, nil)
	assert.Error(t, err)
}

func TestEngine_StartAndShutdown(t *testing.T) {
	engine := newTestEngine(t)
	require.NoError(t, engine.Start())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, engine.Shutdown(ctx))
}

func TestEngine_Current(t *testing.T) {
	engine := newTestEngine(t)

	engine.Recorder().RecordToolInvocation("zeta-tool", true, 10)
	engine.Recorder().RecordToolInvocation("alpha-tool", false, 20)
	engine.Recorder().RecordAPIInvocation("synth-api", true, 30)
	engine.Store().RegisterContent(ContentDescriptor{ID: "t1"}, time.Now())
	require.NoError(t, engine.Recorder().RecordInteraction("t1", "actor-1", ActionPlay, nil))

	current := engine.Current()
	require.Len(t, current.Tools, 2)
	assert.Equal(t, "alpha-tool", current.Tools[0].Name, "tools sorted by name")
	assert.Equal(t, "zeta-tool", current.Tools[1].Name)
	require.Len(t, current.APIs, 1)
	assert.Equal(t, 1, current.ContentItems)
	assert.Equal(t, int64(1), current.Interactions)
}

func TestEngine_Rollup(t *testing.T) {
	engine := newTestEngine(t)
	engine.Recorder().RecordToolInvocation("gen", true, 10)

	engine.Rollup()

	samples := engine.Window().Samples()
	require.Len(t, samples, 1)
	assert.Equal(t, int64(1), samples[0].ToolInvocations)
	assert.Equal(t, 0, engine.Window().BucketSize())
}

func TestEngine_MetricsForPeriod(t *testing.T) {
	engine := newTestEngine(t)
	engine.Recorder().RecordToolInvocation("gen", true, 10)
	engine.Rollup()

	tests := []struct {
		period       string
		recentEvents bool
	}{
		{period: "hour", recentEvents: true},
		{period: "day"},
		{period: "week"},
	}

	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			pm, err := engine.MetricsForPeriod(tt.period)
			require.NoError(t, err)
			assert.Equal(t, tt.period, pm.Period)
			assert.Len(t, pm.Samples, 1)
			if !tt.recentEvents {
				assert.Zero(t, pm.RecentEvents)
			}
		})
	}
}

func TestEngine_MetricsForPeriodUnknown(t *testing.T) {
	engine := newTestEngine(t)

	_, err := engine.MetricsForPeriod("month")
	assert.ErrorIs(t, err, ErrUnknownPeriod)
}
