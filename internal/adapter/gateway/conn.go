package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"workwithme/internal/domain"
	"workwithme/internal/infra/tracer"
	"workwithme/internal/usecase"
)

const (
	sendBuffer = 64
	workBuffer = 32
)

// conn is one WebSocket client. The read loop answers ping and draw_cancel
// itself and queues everything else for a single worker, so a session's
// envelopes are handled in arrival order while a drawing stays cancellable.
type conn struct {
	srv       *Server
	ws        *websocket.Conn
	client    *ClientInfo
	sessionID string
	limiter   *rate.Limiter

	sendCh    chan Reply
	work      chan Frame
	done      chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	feedback *time.Timer
}

func newConn(s *Server, ws *websocket.Conn, client *ClientInfo) *conn {
	c := &conn{
		srv:    s,
		ws:     ws,
		client: client,
		sendCh: make(chan Reply, sendBuffer),
		work:   make(chan Frame, workBuffer),
		done:   make(chan struct{}),
	}
	if rl := s.cfg.RateLimit; rl.Enabled && rl.MessagesPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(rl.MessagesPerSecond), max(rl.MessageBurst, 1))
	}
	return c
}

// run serves the connection until the client goes away.
func (c *conn) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)

	var wg sync.WaitGroup
	wg.Go(func() { c.writeLoop() })
	wg.Go(func() { c.workLoop(ctx) })

	c.send(Reply{
		Type:      TypeConnected,
		SessionID: c.sessionID,
		Message:   "Connected to AI Drawing Assistant",
	})

	c.readLoop(ctx)

	cancel()
	c.close()
	c.mu.Lock()
	if c.feedback != nil {
		c.feedback.Stop()
	}
	c.mu.Unlock()
	wg.Wait()
}

func (c *conn) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *conn) readLoop(ctx context.Context) {
	for {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			return // connection closed or error
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.fail(fmt.Errorf("%w: %v", domain.ErrInvalidEnvelope, err))
			continue
		}
		if c.limiter != nil && !c.limiter.Allow() {
			c.fail(domain.ErrLimitReached)
			continue
		}

		switch f.Type {
		case TypePing:
			c.send(Reply{Type: TypePong, Timestamp: time.Now()})
		case TypeDrawCancel:
			msg := "Nothing to cancel"
			if c.srv.assistant.CancelDrawing(c.sessionID) {
				msg = "Drawing cancelled"
			}
			c.send(Reply{Type: TypeAck, Message: msg})
		default:
			select {
			case c.work <- f:
			case <-c.done:
				return
			}
		}
	}
}

func (c *conn) writeLoop() {
	timeout := c.srv.cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	for {
		select {
		case <-c.done:
			return
		case r := <-c.sendCh:
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			err := wsjson.Write(ctx, c.ws, r)
			cancel()
			if err != nil {
				c.srv.logger.Debug("gateway write failed", "session_id", c.sessionID, "error", err)
				c.close()
				c.ws.Close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

func (c *conn) workLoop(ctx context.Context) {
	for {
		select {
		case <-c.done:
			return
		case f := <-c.work:
			c.dispatch(ctx, f)
		}
	}
}

func (c *conn) dispatch(ctx context.Context, f Frame) {
	ctx, span := tracer.StartSpan(ctx, "gateway.dispatch", trace.WithAttributes(
		tracer.StringAttr("envelope.type", string(f.Type)),
		tracer.SessionAttr(c.sessionID),
	))
	defer span.End()

	if err := c.handle(ctx, f); err != nil {
		tracer.RecordError(span, err)
		if ctx.Err() != nil {
			return
		}
		c.srv.logger.Warn("envelope failed", "type", f.Type, "session_id", c.sessionID, "error", err)
		c.fail(err)
		return
	}
	tracer.SetOK(span)
}

func (c *conn) handle(ctx context.Context, f Frame) error {
	a := c.srv.assistant
	switch f.Type {
	case TypeCanvasUpdate:
		if err := a.UpdateCanvas(ctx, c.sessionID, f.ImageData); err != nil {
			return err
		}
		c.send(Reply{Type: TypeAck, Message: "Canvas updated"})
		c.scheduleFeedback(ctx)
		return nil

	case TypeAnalyzeCanvas:
		return a.Analyze(ctx, c.sessionID, f.ImageData, f.UserMessage)

	case TypeChatMessage:
		return a.HandleMessage(ctx, c.sessionID, usecase.ChatInput{
			Content:       f.Content,
			IncludeCanvas: f.IncludeCanvas,
			CanvasImage:   f.CanvasImage,
			BrushColor:    f.CurrentColor,
		})

	case TypeRequestDrawing:
		return a.RequestShapes(ctx, c.sessionID, f.Shapes)

	case TypeBroadcastDrawing:
		return a.BroadcastDrawing(ctx, c.sessionID, f.Plan())

	case TypeUndo, TypeRedo:
		move, label := a.Undo, "undo"
		if f.Type == TypeRedo {
			move, label = a.Redo, "redo"
		}
		ok, err := move(ctx, c.sessionID)
		if err != nil {
			return err
		}
		if !ok {
			c.send(Reply{Type: TypeAck, Message: "Nothing to " + label})
		}
		return nil

	case TypeClearCanvas:
		return a.ClearCanvas(ctx, c.sessionID)

	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownEnvelope, f.Type)
	}
}

// scheduleFeedback asks for canvas feedback once updates go quiet.
func (c *conn) scheduleFeedback(ctx context.Context) {
	delay := c.srv.cfg.FeedbackDelay
	if delay <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.feedback != nil {
		c.feedback.Stop()
	}
	c.feedback = time.AfterFunc(delay, func() {
		err := c.srv.assistant.ObserveCanvas(ctx, c.sessionID)
		if err != nil && ctx.Err() == nil && !errors.Is(err, domain.ErrSessionNotFound) {
			c.srv.logger.Debug("canvas feedback failed", "session_id", c.sessionID, "error", err)
		}
	})
}

// fail sends err to the client as friendly text.
func (c *conn) fail(err error) {
	c.send(Reply{Type: TypeError, Message: c.srv.classifier.UserMessage(err)})
}

// send queues r for the writer. It blocks while the queue is full and
// gives up once the connection is closing.
func (c *conn) send(r Reply) {
	select {
	case c.sendCh <- r:
	case <-c.done:
	}
}

// Say implements usecase.Replier.
func (c *conn) Say(text string) {
	c.send(Reply{Type: TypeAIResponse, Content: text, Timestamp: time.Now()})
}

// Drawing implements usecase.Replier.
func (c *conn) Drawing(description string, cmds []domain.ResolvedCommand) {
	c.send(Reply{
		Type:        TypeAIDrawing,
		Description: description,
		Commands:    cmds,
		FromSession: c.sessionID,
		Timestamp:   time.Now(),
	})
}

// Shapes implements usecase.Replier.
func (c *conn) Shapes(shapes []string) {
	c.send(Reply{Type: TypeDrawCommand, Shapes: shapes, Timestamp: time.Now()})
}

// CanvasState implements usecase.Replier.
func (c *conn) CanvasState(dataURL string) {
	c.send(Reply{Type: TypeCanvasState, ImageData: dataURL})
}

// Cleared implements usecase.Replier.
func (c *conn) Cleared() {
	c.send(Reply{Type: TypeCanvasCleared, Timestamp: time.Now()})
}
