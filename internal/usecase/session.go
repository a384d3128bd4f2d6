package usecase

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sony/gobreaker/v2"

	"workwithme/internal/domain"
	"workwithme/internal/infra/config"
	"workwithme/internal/usecase/drawing"
	"workwithme/internal/usecase/intent"
)

// Board is a session canvas: a paintable surface that can be exported and
// replaced wholesale.
type Board interface {
	drawing.Surface
	Clear()
	EncodePNG() ([]byte, error)
	LoadPNG(data []byte) error
	DataURL() (string, error)
	LoadDataURL(url string) error
}

// BoardFactory creates a blank board of the given size.
type BoardFactory func(w, h int) Board

// Replier delivers assistant output to the client of one session.
type Replier interface {
	// Say posts an assistant chat message.
	Say(text string)
	// Drawing reports a plan that was painted on the canvas.
	Drawing(description string, cmds []domain.ResolvedCommand)
	// Shapes reports canned shapes painted on the canvas.
	Shapes(shapes []string)
	// CanvasState sends the full canvas after a change that has no
	// command form.
	CanvasState(dataURL string)
	// Cleared reports that the canvas was wiped.
	Cleared()
}

// SessionStats is the per-session summary served by the stats endpoint.
type SessionStats struct {
	ID              string `json:"id"`
	MessagesCount   int    `json:"messagesCount"`
	CanvasSnapshots int    `json:"canvasSnapshots"`
	Uptime          int64  `json:"uptime"` // milliseconds
}

// DrawingSession is the state of one connected client: its canvas, undo
// history, conversation and pending offer. Board access must happen under
// the session lock held by the Assistant.
type DrawingSession struct {
	ID        string
	CreatedAt time.Time

	board   Board
	offers  *intent.OfferTracker
	out     Replier
	breaker *gobreaker.CircuitBreaker[*domain.ChatResponse]

	mu            sync.Mutex
	history       []domain.Message // history[0] is the system prompt
	historyLimit  int
	snapshots     []domain.CanvasSnapshot
	snapshotRing  int
	undo          *History
	brushColor    string
	lastCoverage  float64
	feedbackCount int
	cancelDraw    context.CancelFunc
	updatedAt     time.Time
}

// Board returns the session canvas.
func (s *DrawingSession) Board() Board { return s.board }

// Offers returns the session's pending-offer tracker.
func (s *DrawingSession) Offers() *intent.OfferTracker { return s.offers }

// Out returns where assistant output for this session goes.
func (s *DrawingSession) Out() Replier { return s.out }

// History returns a copy of the conversation, system prompt first.
func (s *DrawingSession) History() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history)
}

// Record appends one exchange and trims the conversation to the system
// prompt plus the most recent historyLimit messages.
func (s *DrawingSession) Record(msgs ...domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, m := range msgs {
		if m.Timestamp.IsZero() {
			m.Timestamp = now
		}
		s.history = append(s.history, m)
	}
	if len(s.history) > s.historyLimit+1 {
		trimmed := make([]domain.Message, 0, s.historyLimit+1)
		trimmed = append(trimmed, s.history[0])
		trimmed = append(trimmed, s.history[len(s.history)-s.historyLimit:]...)
		s.history = trimmed
	}
	s.updatedAt = now
}

// MessagesCount returns the conversation length including the system prompt.
func (s *DrawingSession) MessagesCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// AddSnapshot keeps a client-supplied canvas image, dropping the oldest
// beyond the ring size.
func (s *DrawingSession) AddSnapshot(dataURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots = append(s.snapshots, domain.CanvasSnapshot{DataURL: dataURL, Timestamp: time.Now()})
	if over := len(s.snapshots) - s.snapshotRing; over > 0 {
		s.snapshots = slices.Delete(s.snapshots, 0, over)
	}
	s.updatedAt = time.Now()
}

// SnapshotCount returns how many client snapshots are kept.
func (s *DrawingSession) SnapshotCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

// LatestSnapshot returns the most recent client snapshot.
func (s *DrawingSession) LatestSnapshot() (domain.CanvasSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snapshots) == 0 {
		return domain.CanvasSnapshot{}, false
	}
	return s.snapshots[len(s.snapshots)-1], true
}

// Checkpoint records the current board in the undo history.
func (s *DrawingSession) Checkpoint() error {
	data, err := s.board.EncodePNG()
	if err != nil {
		return domain.WrapOp("DrawingSession.Checkpoint", err)
	}
	s.mu.Lock()
	s.undo.Push(data)
	s.updatedAt = time.Now()
	s.mu.Unlock()
	return nil
}

// Undo restores the previous canvas state. ok is false when there is
// nothing to undo.
func (s *DrawingSession) Undo() (ok bool, err error) {
	s.mu.Lock()
	data, ok := s.undo.Undo()
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, s.board.LoadPNG(data)
}

// Redo reapplies the state undone last.
func (s *DrawingSession) Redo() (ok bool, err error) {
	s.mu.Lock()
	data, ok := s.undo.Redo()
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, s.board.LoadPNG(data)
}

// BrushColor is the user's current drawing color, used by canned shapes.
func (s *DrawingSession) BrushColor() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.brushColor
}

// SetBrushColor updates the brush color reported by the client.
func (s *DrawingSession) SetBrushColor(c string) {
	if c == "" {
		return
	}
	s.mu.Lock()
	s.brushColor = c
	s.mu.Unlock()
}

// Degraded reports whether repeated model failures switched this session
// to offline responses.
func (s *DrawingSession) Degraded() bool {
	return s.breaker.State() == gobreaker.StateOpen
}

// beginDrawing derives a cancellable context for a drawing. The returned
// func must be called when the drawing ends.
func (s *DrawingSession) beginDrawing(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancelDraw = cancel
	s.mu.Unlock()
	return ctx, func() {
		s.mu.Lock()
		s.cancelDraw = nil
		s.mu.Unlock()
		cancel()
	}
}

// CancelDrawing stops the drawing in progress. It reports whether one was
// running.
func (s *DrawingSession) CancelDrawing() bool {
	s.mu.Lock()
	cancel := s.cancelDraw
	s.cancelDraw = nil
	s.mu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	return true
}

// feedbackDue applies the coverage feedback throttle: after the first
// feedback, coverage must move by at least minDelta points. Every call
// that passes the throttle counts as feedback, even below the coverage
// floor checked by the caller.
func (s *DrawingSession) feedbackDue(coverage, minDelta float64) (count int, due bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.feedbackCount > 0 && math.Abs(coverage-s.lastCoverage) < minDelta {
		return s.feedbackCount, false
	}
	s.lastCoverage = coverage
	s.feedbackCount++
	return s.feedbackCount, true
}

func (s *DrawingSession) stats() SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionStats{
		ID:              s.ID,
		MessagesCount:   len(s.history),
		CanvasSnapshots: len(s.snapshots),
		Uptime:          time.Since(s.CreatedAt).Milliseconds(),
	}
}

// SessionManager creates and tracks drawing sessions.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*DrawingSession

	newBoard     BoardFactory
	canvas       config.CanvasConfig
	assistant    config.AssistantConfig
	systemPrompt string
	bus          domain.EventBus
	logger       *slog.Logger
}

// NewSessionManager creates a manager. bus may be nil.
func NewSessionManager(newBoard BoardFactory, canvas config.CanvasConfig, assistant config.AssistantConfig, bus domain.EventBus, logger *slog.Logger) *SessionManager {
	prompt := assistant.SystemPrompt
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}
	return &SessionManager{
		sessions:     make(map[string]*DrawingSession),
		newBoard:     newBoard,
		canvas:       canvas,
		assistant:    assistant,
		systemPrompt: prompt,
		bus:          bus,
		logger:       logger,
	}
}

// Create starts a session whose output goes to out. The blank canvas is
// the first undo state.
func (sm *SessionManager) Create(out Replier) (*DrawingSession, error) {
	now := time.Now()
	s := &DrawingSession{
		ID:           ulid.Make().String(),
		CreatedAt:    now,
		board:        sm.newBoard(sm.canvas.Width, sm.canvas.Height),
		offers:       intent.NewOfferTracker(),
		out:          out,
		history:      []domain.Message{{Role: domain.RoleSystem, Content: sm.systemPrompt, Timestamp: now}},
		historyLimit: cmp.Or(sm.assistant.HistoryLimit, 20),
		snapshotRing: cmp.Or(sm.canvas.SnapshotRing, 5),
		undo:         NewHistory(cmp.Or(sm.canvas.UndoDepth, 50)),
		brushColor:   "#000000",
		updatedAt:    now,
	}
	s.breaker = sm.newBreaker(s.ID)

	if err := s.Checkpoint(); err != nil {
		return nil, fmt.Errorf("initial checkpoint: %w", err)
	}

	sm.mu.Lock()
	sm.sessions[s.ID] = s
	sm.mu.Unlock()

	sm.logger.Info("session created", "session_id", s.ID)
	publish(context.Background(), sm.bus, domain.EventSessionCreated, s.ID, nil)
	return s, nil
}

// newBreaker builds the degraded-mode breaker of one session. It opens
// after consecutive model failures and half-opens after the cooldown, when
// the next message probes the model again.
func (sm *SessionManager) newBreaker(sessionID string) *gobreaker.CircuitBreaker[*domain.ChatResponse] {
	maxFailures := cmp.Or(sm.assistant.Degraded.MaxFailures, 3)
	return gobreaker.NewCircuitBreaker[*domain.ChatResponse](gobreaker.Settings{
		Name:        "session:" + sessionID,
		MaxRequests: 1,
		Timeout:     cmp.Or(sm.assistant.Degraded.Cooldown, time.Minute),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			sm.logger.Warn("assistant mode changed",
				"session_id", sessionID,
				"from", from.String(),
				"to", to.String(),
			)
			switch to {
			case gobreaker.StateOpen:
				publish(context.Background(), sm.bus, domain.EventAssistantDegraded, sessionID, nil)
			case gobreaker.StateClosed:
				publish(context.Background(), sm.bus, domain.EventAssistantRecovered, sessionID, nil)
			}
		},
	})
}

// Get returns a session or ErrSessionNotFound.
func (sm *SessionManager) Get(id string) (*DrawingSession, error) {
	sm.mu.RLock()
	s, ok := sm.sessions[id]
	sm.mu.RUnlock()
	if !ok {
		return nil, domain.NewDomainError("SessionManager.Get", domain.ErrSessionNotFound, id)
	}
	return s, nil
}

// Delete removes a session and cancels any drawing it has in flight.
func (sm *SessionManager) Delete(id string) error {
	sm.mu.Lock()
	s, ok := sm.sessions[id]
	delete(sm.sessions, id)
	sm.mu.Unlock()

	if !ok {
		return domain.NewDomainError("SessionManager.Delete", domain.ErrSessionNotFound, id)
	}
	s.CancelDrawing()
	sm.logger.Info("session closed", "session_id", id)
	publish(context.Background(), sm.bus, domain.EventSessionDeleted, id, nil)
	return nil
}

// Count returns the number of active sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// List returns the active sessions, oldest first.
func (sm *SessionManager) List() []*DrawingSession {
	sm.mu.RLock()
	list := make([]*DrawingSession, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		list = append(list, s)
	}
	sm.mu.RUnlock()

	slices.SortFunc(list, func(a, b *DrawingSession) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return list
}

// Stats summarizes every active session, oldest first.
func (sm *SessionManager) Stats() []SessionStats {
	list := sm.List()
	stats := make([]SessionStats, len(list))
	for i, s := range list {
		stats[i] = s.stats()
	}
	return stats
}
