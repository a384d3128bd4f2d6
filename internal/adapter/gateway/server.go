// Package gateway is the WebSocket relay between browser canvases and the
// drawing assistant. Each connection owns one drawing session.
package gateway

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"

	"workwithme/internal/domain"
	"workwithme/internal/infra/config"
	"workwithme/internal/infra/middleware"
	"workwithme/internal/usecase"
)

// Assistant is the part of the drawing assistant the gateway drives.
type Assistant interface {
	Online() bool
	HandleMessage(ctx context.Context, sessionID string, in usecase.ChatInput) error
	Analyze(ctx context.Context, sessionID, imageData, question string) error
	ObserveCanvas(ctx context.Context, sessionID string) error
	UpdateCanvas(ctx context.Context, sessionID, imageData string) error
	ClearCanvas(ctx context.Context, sessionID string) error
	Undo(ctx context.Context, sessionID string) (bool, error)
	Redo(ctx context.Context, sessionID string) (bool, error)
	RequestShapes(ctx context.Context, sessionID string, shapes []string) error
	BroadcastDrawing(ctx context.Context, sessionID string, plan domain.Plan) error
	CancelDrawing(sessionID string) bool
}

// Sessions creates and removes the session behind each connection.
type Sessions interface {
	Create(out usecase.Replier) (*usecase.DrawingSession, error)
	Delete(id string) error
	Count() int
	Stats() []usecase.SessionStats
}

// EventCounter reports how many events of each type were published.
type EventCounter interface {
	Counts() map[domain.EventType]uint64
}

// ServerDeps holds the collaborators of a Server.
type ServerDeps struct {
	Assistant  Assistant
	Sessions   Sessions
	Auth       Authenticator // nil leaves the gateway open
	Classifier *usecase.ErrorClassifier
	Events     EventCounter // optional
	Logger     *slog.Logger
}

// Server is the WebSocket gateway that relays envelopes to the assistant.
type Server struct {
	cfg        config.GatewayConfig
	assistant  Assistant
	sessions   Sessions
	auth       Authenticator
	classifier *usecase.ErrorClassifier
	events     EventCounter
	logger     *slog.Logger

	conns     sync.Map // connID (uint64) -> *conn
	connCount atomic.Int64
	nextID    atomic.Uint64
	startTime time.Time

	mu        sync.Mutex
	httpSrv   *http.Server
	boundAddr string
}

// NewServer creates a gateway server.
func NewServer(cfg config.GatewayConfig, deps ServerDeps) *Server {
	return &Server{
		cfg:        cfg,
		assistant:  deps.Assistant,
		sessions:   deps.Sessions,
		auth:       deps.Auth,
		classifier: cmp.Or(deps.Classifier, usecase.NewErrorClassifier()),
		events:     deps.Events,
		logger:     deps.Logger,
		startTime:  time.Now(),
	}
}

// Handler returns the gateway routes wrapped in the HTTP middleware.
// The rate limiter's cleanup stops when ctx is done.
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleUpgrade)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /stats", s.guard(s.handleStats))
	mux.HandleFunc("GET /metrics", s.guard(s.handleMetrics))

	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CORS(s.cfg.AllowedOrigins),
		middleware.RateLimit(ctx, s.cfg.RateLimit, s.cfg.TrustedProxies),
	)
}

// Start begins accepting connections. Blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("gateway listen: %w", err)
	}

	srv := &http.Server{
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpSrv = srv
	s.boundAddr = listener.Addr().String()
	s.mu.Unlock()

	s.logger.Info("gateway started", "addr", listener.Addr().String(), "ai_enabled", s.assistant.Online())

	go func() {
		<-ctx.Done()
		s.Stop(context.Background())
	}()

	if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("gateway serve: %w", err)
	}
	return nil
}

// Stop closes every connection and shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	s.conns.Range(func(_, value any) bool {
		value.(*conn).ws.Close(websocket.StatusGoingAway, "server shutting down")
		return true
	})

	s.mu.Lock()
	srv := s.httpSrv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// BoundAddr returns the address the server listens on. Empty until Start
// has bound the listener.
func (s *Server) BoundAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundAddr
}

// ActiveConnections returns the number of open WebSocket connections.
func (s *Server) ActiveConnections() int { return int(s.connCount.Load()) }

func (s *Server) originPatterns() (patterns []string, allowAll bool) {
	patterns = []string{
		"localhost",
		"localhost:*",
		"127.0.0.1",
		"127.0.0.1:*",
		"[::1]",
		"[::1]:*",
	}
	if slices.Contains(s.cfg.AllowedOrigins, "*") {
		return patterns, true
	}
	return append(patterns, s.cfg.AllowedOrigins...), false
}

func (s *Server) authenticate(r *http.Request) (*ClientInfo, error) {
	if s.auth == nil {
		return anonymous, nil
	}
	return s.auth.Authenticate(r.URL.Query().Get("token"))
}

// guard rejects requests without a valid token when auth is enabled.
func (s *Server) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.authenticate(r); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	client, err := s.authenticate(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	patterns, allowAll := s.originPatterns()
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     patterns,
		InsecureSkipVerify: allowAll,
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}
	if s.cfg.MaxMessageSize > 0 {
		ws.SetReadLimit(s.cfg.MaxMessageSize)
	}

	c := newConn(s, ws, client)
	session, err := s.sessions.Create(c)
	if err != nil {
		s.logger.Error("session create failed", "error", err)
		ws.Close(websocket.StatusInternalError, "session unavailable")
		return
	}
	c.sessionID = session.ID

	connID := s.nextID.Add(1)
	s.conns.Store(connID, c)
	s.connCount.Add(1)
	s.logger.Info("gateway client connected", "conn_id", connID, "client", client.Name, "session_id", c.sessionID)

	c.run(r.Context())

	s.conns.Delete(connID)
	s.connCount.Add(-1)
	if err := s.sessions.Delete(c.sessionID); err != nil {
		s.logger.Debug("session delete failed", "session_id", c.sessionID, "error", err)
	}
	ws.Close(websocket.StatusNormalClosure, "")
	s.logger.Info("gateway client disconnected", "conn_id", connID, "session_id", c.sessionID)
}
