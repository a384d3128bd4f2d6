package usecase

import (
	"cmp"
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"workwithme/internal/domain"
	"workwithme/internal/infra/config"
	"workwithme/internal/usecase/drawing"
)

// TipScheduler occasionally sends an unsolicited tip to sessions that
// have drawn a fair amount. Sessions with work in flight are skipped.
type TipScheduler struct {
	assistant *Assistant
	cfg       config.TipsConfig
	roll      func() float64
	cron      *cron.Cron
	logger    *slog.Logger

	mu      sync.Mutex
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewTipScheduler creates a scheduler. roll returns a number in [0, 1);
// nil uses math/rand.
func NewTipScheduler(a *Assistant, cfg config.TipsConfig, roll func() float64, logger *slog.Logger) *TipScheduler {
	if roll == nil {
		roll = rand.Float64
	}
	return &TipScheduler{
		assistant: a,
		cfg:       cfg,
		roll:      roll,
		cron:      cron.New(),
		logger:    logger,
	}
}

// Start begins ticking. It is a no-op when tips are disabled or the
// scheduler already runs.
func (t *TipScheduler) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started || !t.cfg.Enabled {
		return
	}
	t.ctx, t.cancel = context.WithCancel(ctx)
	interval := cmp.Or(t.cfg.Interval, 45*time.Second)
	t.cron.Schedule(cron.Every(interval), cron.FuncJob(func() {
		t.mu.Lock()
		ctx := t.ctx
		t.mu.Unlock()
		if ctx == nil {
			return
		}
		if sent := t.Tick(ctx); sent > 0 {
			t.logger.Debug("tips sent", "count", sent)
		}
	}))
	t.cron.Start()
	t.started = true
	t.logger.Info("tip scheduler started", "interval", interval)
}

// Stop halts ticking and waits for a running tick to finish.
func (t *TipScheduler) Stop() {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return
	}
	t.cancel()
	t.ctx = nil
	t.started = false
	t.mu.Unlock()

	<-t.cron.Stop().Done()
}

// Tick runs one round over all sessions and returns how many tips went out.
func (t *TipScheduler) Tick(ctx context.Context) int {
	sent := 0
	for _, s := range t.assistant.deps.Sessions.List() {
		unlock, free := t.assistant.deps.Locker.TryLock(s.ID, WorkTip)
		if !free {
			if work, held, ok := t.assistant.deps.Locker.Holder(s.ID); ok {
				t.logger.Debug("tip skipped, session busy", "session_id", s.ID, "work", work, "held", held)
			}
			continue
		}
		if t.offer(ctx, s) {
			sent++
		}
		unlock()
	}
	return sent
}

// offer sends a tip to a session the caller holds.
func (t *TipScheduler) offer(ctx context.Context, s *DrawingSession) bool {
	if drawing.Stats(s.Board()).DrawnPixels <= t.cfg.MinDrawnPixels {
		return false
	}
	if t.roll() >= t.cfg.Probability || t.roll() >= t.cfg.SendProbability {
		return false
	}
	t.assistant.say(ctx, s, t.assistant.deps.Heuristic.Tip())
	publish(ctx, t.assistant.deps.Bus, domain.EventTipSent, s.ID, nil)
	return true
}
