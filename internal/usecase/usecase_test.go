package usecase

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"workwithme/internal/adapter/canvas"
	"workwithme/internal/domain"
	"workwithme/internal/infra/config"
)

// --- Fakes ---

var testFonts = canvas.NewFonts()

func testBoard(w, h int) Board { return canvas.New(w, h, testFonts) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordedDrawing struct {
	description string
	commands    []domain.ResolvedCommand
}

// recorder is a Replier that keeps everything it is sent.
type recorder struct {
	mu       sync.Mutex
	says     []string
	drawings []recordedDrawing
	shapes   [][]string
	states   []string
	cleared  int
}

func (r *recorder) Say(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.says = append(r.says, text)
}

func (r *recorder) Drawing(description string, cmds []domain.ResolvedCommand) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drawings = append(r.drawings, recordedDrawing{description, cmds})
}

func (r *recorder) Shapes(shapes []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shapes = append(r.shapes, shapes)
}

func (r *recorder) CanvasState(dataURL string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, dataURL)
}

func (r *recorder) Cleared() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared++
}

func (r *recorder) Says() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.says)
}

func (r *recorder) Drawings() []recordedDrawing {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.drawings)
}

// fakeLLM answers from a script of replies; an entry with err set fails
// that call. Past the script it repeats the last entry.
type fakeLLM struct {
	mu       sync.Mutex
	script   []fakeReply
	requests []domain.ChatRequest
}

type fakeReply struct {
	content string
	err     error
}

func (f *fakeLLM) Chat(_ context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if len(f.script) == 0 {
		return &domain.ChatResponse{Message: domain.Message{Role: domain.RoleAssistant, Content: "ok"}}, nil
	}
	r := f.script[min(len(f.requests), len(f.script))-1]
	if r.err != nil {
		return nil, r.err
	}
	return &domain.ChatResponse{
		Model:   req.Model,
		Message: domain.Message{Role: domain.RoleAssistant, Content: r.content},
		Usage:   domain.Usage{TotalTokens: 42},
	}, nil
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) Requests() []domain.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.requests)
}

func testAssistantConfig() config.AssistantConfig {
	return config.AssistantConfig{
		ChatModel:           "chat-model",
		VisionModel:         "vision-model",
		ChatMaxTokens:       500,
		VisionMaxTokens:     800,
		DrawMaxTokens:       1000,
		ChatTemperature:     0.7,
		DrawTemperature:     0.8,
		PresencePenalty:     0.6,
		FrequencyPenalty:    0.3,
		HistoryLimit:        20,
		AITimeout:           5 * time.Second,
		DrawingEnabled:      true,
		MinFeedbackCoverage: 0.5,
		MinCoverageDelta:    2,
		Degraded:            config.DegradedConfig{MaxFailures: 3, Cooldown: time.Minute},
	}
}

type harness struct {
	assistant *Assistant
	sessions  *SessionManager
	session   *DrawingSession
	out       *recorder
}

// newHarness builds an assistant over a 200×150 canvas with one session.
// llm may be nil for offline mode.
func newHarness(t *testing.T, llm domain.LLMProvider, mutate ...func(*config.AssistantConfig)) *harness {
	t.Helper()
	cfg := testAssistantConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	sm := NewSessionManager(testBoard, config.CanvasConfig{Width: 200, Height: 150}, cfg, nil, discardLogger())
	out := &recorder{}
	s, err := sm.Create(out)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	a := NewAssistant(AssistantDeps{
		LLM:       llm,
		Sessions:  sm,
		Locker:    NewSessionLocker(),
		Heuristic: NewHeuristic(func(int) int { return 0 }),
		Config:    cfg,
		Logger:    discardLogger(),
	})
	return &harness{assistant: a, sessions: sm, session: s, out: out}
}
