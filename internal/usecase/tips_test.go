package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workwithme/internal/infra/config"
	"workwithme/internal/usecase/drawing"
)

func tipsConfig() config.TipsConfig {
	return config.TipsConfig{
		Enabled:         true,
		Interval:        time.Second,
		MinDrawnPixels:  100,
		Probability:     0.15,
		SendProbability: 0.4,
	}
}

func TestTipSchedulerTick(t *testing.T) {
	tests := []struct {
		name  string
		roll  float64
		draw  bool
		wantN int
	}{
		{"sends to a drawn canvas", 0, true, 1},
		{"skips a blank canvas", 0, false, 0},
		{"skips on an unlucky roll", 0.5, true, 0},
		{"skips just above the chance", 0.2, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			ctx := context.Background()
			if tt.draw {
				require.NoError(t, h.assistant.RequestShapes(ctx, h.session.ID, []string{drawing.ShapeSquare}))
			}

			ts := NewTipScheduler(h.assistant, tipsConfig(), func() float64 { return tt.roll }, discardLogger())
			assert.Equal(t, tt.wantN, ts.Tick(ctx))
			if tt.wantN > 0 {
				assert.Equal(t, []string{tips[0]}, h.out.Says())
			} else {
				assert.Empty(t, h.out.Says())
			}
		})
	}
}

func TestTipSchedulerSkipsBusySessions(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.assistant.RequestShapes(ctx, h.session.ID, []string{drawing.ShapeSquare}))

	unlock, err := h.assistant.deps.Locker.Lock(ctx, h.session.ID, WorkDrawing)
	require.NoError(t, err)
	defer unlock()

	ts := NewTipScheduler(h.assistant, tipsConfig(), func() float64 { return 0 }, discardLogger())
	assert.Zero(t, ts.Tick(ctx))
	assert.Empty(t, h.out.Says())
}

func TestTipSchedulerStartStop(t *testing.T) {
	h := newHarness(t, nil)

	disabled := tipsConfig()
	disabled.Enabled = false
	ts := NewTipScheduler(h.assistant, disabled, nil, discardLogger())
	ts.Start(context.Background())
	ts.Stop() // no-op when never started

	ts = NewTipScheduler(h.assistant, tipsConfig(), nil, discardLogger())
	ts.Start(context.Background())
	ts.Start(context.Background())
	ts.Stop()
	ts.Stop()
}
