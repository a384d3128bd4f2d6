package usecase

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/trace"

	"workwithme/internal/domain"
	"workwithme/internal/infra/config"
	"workwithme/internal/infra/tracer"
	"workwithme/internal/usecase/drawing"
	"workwithme/internal/usecase/intent"
)

// Fixed assistant replies.
const (
	lookingReply      = "👁️ Let me take a look at your canvas..."
	drawingReply      = "🎨 Let me draw that for you..."
	drawFailedReply   = "⚠️ I had trouble creating that drawing. Let me try a simpler approach..."
	connectionReply   = "⚠️ I'm having trouble connecting to my AI brain right now."
	feedbackDownReply = "Hmm, I'm having trouble connecting."
	eraseReply        = "I've cleared the canvas so you can start fresh. What would you like to create next?"
	clearReply        = "Canvas cleared! Ready for a fresh start. What would you like to create?"
	stoppedReply      = "Okay, I stopped."
)

// AssistantDeps holds injected dependencies for the assistant.
type AssistantDeps struct {
	LLM             domain.LLMProvider // optional, nil = offline replies only
	Sessions        *SessionManager
	Locker          *SessionLocker
	Interpreter     *drawing.Interpreter
	Heuristic       *Heuristic       // optional, nil = random picks
	ErrorClassifier *ErrorClassifier // optional
	Config          config.AssistantConfig
	Bus             domain.EventBus // optional, nil = no events
	Logger          *slog.Logger
}

// Assistant answers chat messages, draws on session canvases and reacts
// to what the user draws. All work on a session runs under its lock.
type Assistant struct {
	deps   AssistantDeps
	replay *drawing.Interpreter
}

// NewAssistant creates an assistant with the given dependencies.
func NewAssistant(deps AssistantDeps) *Assistant {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Locker == nil {
		deps.Locker = NewSessionLocker()
	}
	if deps.Heuristic == nil {
		deps.Heuristic = NewHeuristic(nil)
	}
	if deps.ErrorClassifier == nil {
		deps.ErrorClassifier = NewErrorClassifier()
	}
	if deps.Interpreter == nil {
		deps.Interpreter = drawing.NewInterpreter(deps.Config.PacingDelay, deps.Logger)
	}
	return &Assistant{
		deps:   deps,
		replay: drawing.NewInterpreter(0, deps.Logger),
	}
}

// Online reports whether a language model is configured.
func (a *Assistant) Online() bool { return a.deps.LLM != nil }

// ChatInput is one user chat message.
type ChatInput struct {
	Content string
	// IncludeCanvas asks for the canvas to be sent to the model even when
	// the message does not mention it.
	IncludeCanvas bool
	// CanvasImage is the client's current canvas as a data URL, if sent.
	CanvasImage string
	BrushColor  string
}

// acquire looks up a session and holds it for work.
func (a *Assistant) acquire(ctx context.Context, sessionID string, work Work) (*DrawingSession, func(), error) {
	s, err := a.deps.Sessions.Get(sessionID)
	if err != nil {
		return nil, nil, err
	}
	unlock, err := a.deps.Locker.Lock(ctx, sessionID, work)
	if err != nil {
		return nil, nil, err
	}
	return s, unlock, nil
}

// HandleMessage routes one chat message: erase requests clear the canvas,
// drawing requests and accepted offers draw, and everything else gets a
// conversational reply. Without a working model the reply comes from the
// heuristic responder.
func (a *Assistant) HandleMessage(ctx context.Context, sessionID string, in ChatInput) error {
	ctx, span := tracer.StartSpan(ctx, "assistant.handle_message",
		trace.WithAttributes(tracer.SessionAttr(sessionID)),
	)
	defer span.End()

	content := strings.TrimSpace(in.Content)
	if content == "" {
		return domain.NewDomainError("Assistant.HandleMessage", domain.ErrInvalidInput, "empty message")
	}

	s, unlock, err := a.acquire(ctx, sessionID, WorkChat)
	if err != nil {
		tracer.RecordError(span, err)
		return err
	}
	defer unlock()

	s.SetBrushColor(in.BrushColor)
	a.importCanvas(s, in.CanvasImage)
	publish(ctx, a.deps.Bus, domain.EventMessageReceived, s.ID, map[string]int{"length": len(content)})

	route := intent.Classify(content, a.deps.Config.DrawingEnabled, s.Offers())
	span.SetAttributes(tracer.StringAttr("intent.kind", route.Kind.String()))
	a.deps.Logger.Debug("message classified",
		"session_id", s.ID,
		"kind", route.Kind.String(),
		"vision", route.NeedsVision,
	)

	if route.Kind == intent.KindErase {
		return a.clearCanvas(ctx, s, eraseReply)
	}
	if route.DrawPrompt != "" || route.Declined {
		publish(ctx, a.deps.Bus, domain.EventOfferResolved, s.ID, map[string]bool{"accepted": route.DrawPrompt != ""})
	}

	if route.NeedsVision {
		a.say(ctx, s, lookingReply)
	}
	if !a.Online() || s.Degraded() {
		err = a.respondOffline(ctx, s, content, route)
	} else {
		err = a.respondWithAI(ctx, s, content, route, in.IncludeCanvas)
	}
	if err != nil {
		tracer.RecordError(span, err)
		return err
	}
	tracer.SetOK(span)
	return nil
}

// importCanvas replaces the board with a client snapshot. An unreadable
// image keeps the current board.
func (a *Assistant) importCanvas(s *DrawingSession, dataURL string) {
	if dataURL == "" {
		return
	}
	if err := s.Board().LoadDataURL(dataURL); err != nil {
		a.deps.Logger.Warn("canvas import failed", "session_id", s.ID, "error", err)
		return
	}
	s.AddSnapshot(dataURL)
}

func (a *Assistant) respondWithAI(ctx context.Context, s *DrawingSession, content string, route intent.Intent, includeCanvas bool) error {
	if route.ExplicitDraw {
		return a.collaborativeDraw(ctx, s, content)
	}

	var image string
	if route.NeedsVision || includeCanvas {
		url, err := s.Board().DataURL()
		if err != nil {
			a.deps.Logger.Warn("canvas export failed", "session_id", s.ID, "error", err)
		} else {
			image = url
		}
	}

	reply, err := a.converse(ctx, s, content, image, domain.DetailAuto)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !errors.Is(err, domain.ErrDegraded) {
			a.say(ctx, s, connectionReply)
		}
		switch {
		case route.AnalysisOnly:
			a.say(ctx, s, a.deps.Heuristic.AnalysisSummary(drawing.Stats(s.Board())))
			return nil
		case route.DrawPrompt != "":
			return a.collaborativeDraw(ctx, s, route.DrawPrompt)
		}
		return a.respondHeuristic(ctx, s, content)
	}

	a.say(ctx, s, reply)
	if route.AnalysisOnly {
		return nil
	}
	if a.deps.Config.DrawingEnabled {
		if shapes := drawing.ShapesInResponse(reply); len(shapes) > 0 {
			if _, err := a.paintShapes(ctx, s, shapes); err != nil {
				return err
			}
		}
	}
	if route.DrawPrompt != "" {
		return a.collaborativeDraw(ctx, s, route.DrawPrompt)
	}
	return nil
}

// respondOffline answers without a model. Drawing requests and accepted
// offers get a canned shape.
func (a *Assistant) respondOffline(ctx context.Context, s *DrawingSession, content string, route intent.Intent) error {
	switch {
	case route.AnalysisOnly:
		a.say(ctx, s, a.deps.Heuristic.AnalysisSummary(drawing.Stats(s.Board())))
		return nil
	case route.ExplicitDraw:
		return a.cannedDrawing(ctx, s, content)
	case route.DrawPrompt != "":
		return a.cannedDrawing(ctx, s, route.DrawPrompt)
	default:
		return a.respondHeuristic(ctx, s, content)
	}
}

// respondHeuristic replies from the keyword routes.
func (a *Assistant) respondHeuristic(ctx context.Context, s *DrawingSession, content string) error {
	h := a.deps.Heuristic
	switch h.Route(content, a.deps.Config.DrawingEnabled) {
	case RouteMath:
		a.say(ctx, s, MathHelp)
		if a.deps.Config.DrawingEnabled {
			return a.drawMathExample(ctx, s)
		}
	case RouteHelp:
		a.say(ctx, s, HelpText)
	case RouteDraw:
		return a.cannedDrawing(ctx, s, content)
	case RouteColor:
		a.say(ctx, s, h.ColorAdvice(s.BrushColor()))
	case RouteImprove:
		a.say(ctx, s, h.ImprovementTip())
	case RouteWhatDrew:
		a.say(ctx, s, h.AnalysisSummary(drawing.Stats(s.Board())))
	default:
		a.say(ctx, s, h.General())
	}
	return nil
}

func (a *Assistant) drawMathExample(ctx context.Context, s *DrawingSession) error {
	drawing.DrawMathExample(s.Board())
	if err := s.Checkpoint(); err != nil {
		return err
	}
	url, err := s.Board().DataURL()
	if err != nil {
		return domain.WrapOp("Assistant.drawMathExample", err)
	}
	s.Out().CanvasState(url)
	a.say(ctx, s, drawing.MathExampleReply)
	return nil
}

// converse sends text, and the canvas image when given, to the chat or
// vision model and records the exchange. Stored history never carries
// images.
func (a *Assistant) converse(ctx context.Context, s *DrawingSession, text, image, detail string) (string, error) {
	cfg := a.deps.Config

	user := domain.Message{Role: domain.RoleUser, Timestamp: time.Now()}
	stored := user
	req := domain.ChatRequest{
		Model:            cfg.ChatModel,
		MaxTokens:        cmp.Or(cfg.ChatMaxTokens, 500),
		Temperature:      cfg.ChatTemperature,
		PresencePenalty:  cfg.PresencePenalty,
		FrequencyPenalty: cfg.FrequencyPenalty,
	}
	if image != "" {
		req.Model = cmp.Or(cfg.VisionModel, cfg.ChatModel)
		req.MaxTokens = cmp.Or(cfg.VisionMaxTokens, 800)
		user.Content = text + "\n\n" + visionInstruction
		user.Images = []domain.ImagePart{{URL: image, Detail: detail}}
		stored.Content = text + analyzedMarker
	} else {
		user.Content = text + canvasContext(drawing.Stats(s.Board()))
		stored.Content = user.Content
	}
	req.Messages = append(s.History(), user)

	resp, err := a.complete(ctx, s, req)
	if err != nil {
		return "", err
	}
	reply := strings.TrimSpace(resp.Message.Content)
	s.Record(stored, domain.Message{Role: domain.RoleAssistant, Content: reply})
	return reply, nil
}

// complete runs one model call through the session's degraded-mode
// breaker.
func (a *Assistant) complete(ctx context.Context, s *DrawingSession, req domain.ChatRequest) (*domain.ChatResponse, error) {
	ctx, span := tracer.StartSpan(ctx, "assistant.llm",
		trace.WithAttributes(
			tracer.SessionAttr(s.ID),
			tracer.StringAttr("llm.model", req.Model),
		),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, cmp.Or(a.deps.Config.AITimeout, 45*time.Second))
	defer cancel()

	start := time.Now()
	resp, err := s.breaker.Execute(func() (*domain.ChatResponse, error) {
		return a.deps.LLM.Chat(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = domain.NewDomainError("Assistant.complete", domain.ErrDegraded, err.Error())
	}
	if err != nil {
		classified := a.deps.ErrorClassifier.Classify(err)
		tracer.RecordError(span, err)
		a.deps.Logger.Warn("llm call failed",
			"session_id", s.ID,
			"model", req.Model,
			"category", classified.Category.String(),
			"error", err,
		)
		publish(ctx, a.deps.Bus, domain.EventLLMCallFailed, s.ID, map[string]string{
			"model":    req.Model,
			"category": classified.Category.String(),
		})
		return nil, err
	}

	publish(ctx, a.deps.Bus, domain.EventLLMCallCompleted, s.ID, map[string]any{
		"model":       req.Model,
		"tokens":      resp.Usage.TotalTokens,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	tracer.SetOK(span)
	return resp, nil
}

// collaborativeDraw asks the vision model for a plan and paints it. When
// no plan can be had, a canned shape is drawn instead.
func (a *Assistant) collaborativeDraw(ctx context.Context, s *DrawingSession, prompt string) error {
	a.say(ctx, s, drawingReply)

	plan, err := a.requestPlan(ctx, s, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.deps.Logger.Warn("drawing plan unavailable", "session_id", s.ID, "error", err)
		a.say(ctx, s, drawFailedReply)
		return a.cannedDrawing(ctx, s, prompt)
	}
	return a.executePlan(ctx, s, plan, prompt)
}

func (a *Assistant) requestPlan(ctx context.Context, s *DrawingSession, prompt string) (domain.Plan, error) {
	cfg := a.deps.Config
	b := s.Board().Bounds()

	user := domain.Message{Role: domain.RoleUser, Content: drawRequest(prompt)}
	if url, err := s.Board().DataURL(); err == nil {
		user.Images = []domain.ImagePart{{URL: url, Detail: domain.DetailLow}}
	}
	req := domain.ChatRequest{
		Model: cmp.Or(cfg.VisionModel, cfg.ChatModel),
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: drawPrompt(b.Dx(), b.Dy())},
			user,
		},
		MaxTokens:   cmp.Or(cfg.DrawMaxTokens, 1000),
		Temperature: cmp.Or(cfg.DrawTemperature, 0.8),
	}

	resp, err := a.complete(ctx, s, req)
	if err != nil {
		return domain.Plan{}, err
	}
	plan, err := drawing.ParsePlan(resp.Message.Content)
	if err != nil {
		a.deps.Logger.Warn("drawing plan malformed", "session_id", s.ID, "error", err)
	}
	return plan, nil
}

// executePlan paints plan on the board and reports the resolved commands.
// A cancelled drawing keeps and reports what was painted so far.
func (a *Assistant) executePlan(ctx context.Context, s *DrawingSession, plan domain.Plan, prompt string) error {
	dctx, done := s.beginDrawing(ctx)
	defer done()

	publish(ctx, a.deps.Bus, domain.EventDrawingStarted, s.ID, map[string]int{"commands": len(plan.Commands)})

	res, err := a.deps.Interpreter.Execute(dctx, s.Board(), plan, prompt, a.sink(ctx, s))
	switch {
	case errors.Is(err, domain.ErrNothingToDraw):
		a.deps.Logger.Info("drawing plan had nothing to draw", "session_id", s.ID)
		return nil
	case errors.Is(err, context.Canceled) && ctx.Err() == nil:
		if len(res.Executed) > 0 {
			s.Out().Drawing(plan.Description, res.Executed)
		}
		a.say(ctx, s, stoppedReply)
		publish(ctx, a.deps.Bus, domain.EventDrawingCancelled, s.ID, map[string]int{"executed": len(res.Executed)})
		return nil
	case err != nil:
		return err
	}

	s.Out().Drawing(plan.Description, res.Executed)
	publish(ctx, a.deps.Bus, domain.EventDrawingCompleted, s.ID, map[string]int{
		"executed": len(res.Executed),
		"skipped":  res.Skipped,
	})
	return nil
}

// cannedDrawing draws the shape msg names, or a random one.
func (a *Assistant) cannedDrawing(ctx context.Context, s *DrawingSession, msg string) error {
	a.say(ctx, s, DrawIntro)

	shape, reply, ok := drawing.ShapeForMessage(msg)
	if !ok {
		shape = a.deps.Heuristic.choose(drawing.RandomShapes)
		reply = "I drew a " + shape + " for you! Try adding to it or create something new!"
	}
	if _, err := a.paintShapes(ctx, s, []string{shape}); err != nil {
		return err
	}
	a.say(ctx, s, reply)
	return nil
}

// paintShapes draws canned shapes spread across the middle of the board
// and returns the ones it drew. Unknown names are skipped.
func (a *Assistant) paintShapes(ctx context.Context, s *DrawingSession, shapes []string) ([]string, error) {
	b := s.Board().Bounds()
	color := s.BrushColor()

	drawn := make([]string, 0, len(shapes))
	for i, shape := range shapes {
		cx := float64(b.Dx()) * float64(i+1) / float64(len(shapes)+1)
		cy := float64(b.Dy()) / 2
		if drawing.DrawShape(s.Board(), shape, cx, cy, color) {
			drawn = append(drawn, shape)
		}
	}
	if len(drawn) == 0 {
		return drawn, nil
	}
	if err := s.Checkpoint(); err != nil {
		return nil, err
	}
	s.Out().Shapes(drawn)
	publish(ctx, a.deps.Bus, domain.EventDrawingCompleted, s.ID, map[string]any{"shapes": drawn})
	return drawn, nil
}

// Analyze describes the canvas, optionally answering a question about it.
func (a *Assistant) Analyze(ctx context.Context, sessionID, imageData, question string) error {
	s, unlock, err := a.acquire(ctx, sessionID, WorkAnalysis)
	if err != nil {
		return err
	}
	defer unlock()

	a.importCanvas(s, imageData)
	if !a.Online() || s.Degraded() {
		a.say(ctx, s, a.deps.Heuristic.AnalysisSummary(drawing.Stats(s.Board())))
		return nil
	}

	url, err := s.Board().DataURL()
	if err != nil {
		return domain.WrapOp("Assistant.Analyze", err)
	}
	reply, err := a.converse(ctx, s, cmp.Or(strings.TrimSpace(question), defaultAnalyzePrompt), url, domain.DetailHigh)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.say(ctx, s, connectionReply)
		a.say(ctx, s, a.deps.Heuristic.AnalysisSummary(drawing.Stats(s.Board())))
		return nil
	}
	a.say(ctx, s, reply)
	return nil
}

// ObserveCanvas gives progress feedback after the user has drawn. It is
// throttled on coverage change and stays silent on a near-empty canvas.
func (a *Assistant) ObserveCanvas(ctx context.Context, sessionID string) error {
	s, unlock, err := a.acquire(ctx, sessionID, WorkFeedback)
	if err != nil {
		return err
	}
	defer unlock()

	cfg := a.deps.Config
	stats := drawing.Stats(s.Board())
	count, due := s.feedbackDue(stats.CoveragePercent, cfg.MinCoverageDelta)
	if !due || stats.CoveragePercent < cfg.MinFeedbackCoverage {
		return nil
	}

	if a.Online() && !s.Degraded() {
		url, err := s.Board().DataURL()
		if err != nil {
			return domain.WrapOp("Assistant.ObserveCanvas", err)
		}
		reply, err := a.converse(ctx, s, feedbackPrompt(stats), url, domain.DetailLow)
		if err == nil {
			a.say(ctx, s, reply)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !errors.Is(err, domain.ErrDegraded) {
			a.say(ctx, s, feedbackDownReply)
		}
	}

	if msg, ok := a.deps.Heuristic.DemoFeedback(stats, count); ok {
		a.say(ctx, s, msg)
	}
	return nil
}

// UpdateCanvas stores a client canvas snapshot as the new board state.
func (a *Assistant) UpdateCanvas(ctx context.Context, sessionID, imageData string) error {
	s, unlock, err := a.acquire(ctx, sessionID, WorkCanvas)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.Board().LoadDataURL(imageData); err != nil {
		return err
	}
	s.AddSnapshot(imageData)
	if err := s.Checkpoint(); err != nil {
		return err
	}
	publish(ctx, a.deps.Bus, domain.EventCanvasUpdated, s.ID, nil)
	return nil
}

// ClearCanvas wipes the board at the user's request.
func (a *Assistant) ClearCanvas(ctx context.Context, sessionID string) error {
	s, unlock, err := a.acquire(ctx, sessionID, WorkCanvas)
	if err != nil {
		return err
	}
	defer unlock()
	return a.clearCanvas(ctx, s, clearReply)
}

func (a *Assistant) clearCanvas(ctx context.Context, s *DrawingSession, reply string) error {
	s.Board().Clear()
	if err := s.Checkpoint(); err != nil {
		return err
	}
	s.Offers().Clear()
	s.Out().Cleared()
	a.say(ctx, s, reply)
	publish(ctx, a.deps.Bus, domain.EventCanvasCleared, s.ID, nil)
	return nil
}

// Undo steps the board back one state and sends it to the client. It
// reports false when there is nothing to undo.
func (a *Assistant) Undo(ctx context.Context, sessionID string) (bool, error) {
	return a.step(ctx, sessionID, (*DrawingSession).Undo)
}

// Redo reapplies the last undone state.
func (a *Assistant) Redo(ctx context.Context, sessionID string) (bool, error) {
	return a.step(ctx, sessionID, (*DrawingSession).Redo)
}

func (a *Assistant) step(ctx context.Context, sessionID string, move func(*DrawingSession) (bool, error)) (bool, error) {
	s, unlock, err := a.acquire(ctx, sessionID, WorkCanvas)
	if err != nil {
		return false, err
	}
	defer unlock()

	ok, err := move(s)
	if err != nil || !ok {
		return ok, err
	}
	url, err := s.Board().DataURL()
	if err != nil {
		return true, domain.WrapOp("Assistant.step", err)
	}
	s.Out().CanvasState(url)
	return true, nil
}

// RequestShapes draws the named canned shapes. The client always gets a
// draw_command back, empty when no name was known.
func (a *Assistant) RequestShapes(ctx context.Context, sessionID string, shapes []string) error {
	s, unlock, err := a.acquire(ctx, sessionID, WorkDrawing)
	if err != nil {
		return err
	}
	defer unlock()

	drawn, err := a.paintShapes(ctx, s, shapes)
	if err != nil {
		return err
	}
	if len(drawn) == 0 {
		s.Out().Shapes(drawn)
	}
	return nil
}

// BroadcastDrawing replays a plan authored elsewhere onto the board
// without pacing or chat, then reports the resolved commands.
func (a *Assistant) BroadcastDrawing(ctx context.Context, sessionID string, plan domain.Plan) error {
	s, unlock, err := a.acquire(ctx, sessionID, WorkDrawing)
	if err != nil {
		return err
	}
	defer unlock()

	res, err := a.replay.Execute(ctx, s.Board(), plan, plan.Description, quietSink{a.sink(ctx, s)})
	if errors.Is(err, domain.ErrNothingToDraw) {
		return nil
	}
	if err != nil {
		return err
	}
	s.Out().Drawing(plan.Description, res.Executed)
	return nil
}

// CancelDrawing stops the session's drawing in progress, if any. It does
// not wait for the session lock.
func (a *Assistant) CancelDrawing(sessionID string) bool {
	s, err := a.deps.Sessions.Get(sessionID)
	if err != nil {
		return false
	}
	return s.CancelDrawing()
}

// say posts an assistant message and lets the offer tracker see it.
func (a *Assistant) say(ctx context.Context, s *DrawingSession, text string) {
	s.Offers().Observe(text)
	s.Out().Say(text)
	publish(ctx, a.deps.Bus, domain.EventMessageSent, s.ID, nil)
	if offer, ok := s.Offers().Pending(); ok && offer.AIMessage == text {
		publish(ctx, a.deps.Bus, domain.EventOfferCreated, s.ID, offer)
	}
}

func (a *Assistant) sink(ctx context.Context, s *DrawingSession) drawing.Sink {
	return sessionSink{a: a, ctx: ctx, s: s}
}

// sessionSink routes interpreter output to a session.
type sessionSink struct {
	a   *Assistant
	ctx context.Context
	s   *DrawingSession
}

func (k sessionSink) Say(msg string) { k.a.say(k.ctx, k.s, msg) }

func (k sessionSink) Checkpoint() {
	if err := k.s.Checkpoint(); err != nil {
		k.a.deps.Logger.Warn("checkpoint failed", "session_id", k.s.ID, "error", err)
	}
}

// quietSink keeps checkpoints but drops chat.
type quietSink struct{ drawing.Sink }

func (quietSink) Say(string) {}
