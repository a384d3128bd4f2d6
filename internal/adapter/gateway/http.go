package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"slices"
	"time"

	"workwithme/internal/domain"
	"workwithme/internal/usecase"
)

// HealthResponse is the JSON body returned by GET /health.
type HealthResponse struct {
	Status         string    `json:"status"`
	ActiveSessions int       `json:"activeSessions"`
	AIEnabled      bool      `json:"aiEnabled"`
	Uptime         float64   `json:"uptime"` // seconds
	Timestamp      time.Time `json:"timestamp"`
}

// StatsResponse is the JSON body returned by GET /stats.
type StatsResponse struct {
	ActiveSessions int                    `json:"activeSessions"`
	Sessions       []usecase.SessionStats `json:"sessions"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, HealthResponse{
		Status:         "ok",
		ActiveSessions: s.sessions.Count(),
		AIEnabled:      s.assistant.Online(),
		Uptime:         time.Since(s.startTime).Seconds(),
		Timestamp:      time.Now().UTC(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	stats := s.sessions.Stats()
	if stats == nil {
		stats = []usecase.SessionStats{}
	}
	writeJSON(w, StatsResponse{ActiveSessions: len(stats), Sessions: stats})
}

// handleMetrics serves GET /metrics in the Prometheus text format. The
// handful of gauges here does not justify the full client library.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	fmt.Fprintf(w, "# HELP workwithme_sessions_active Number of active drawing sessions.\n")
	fmt.Fprintf(w, "# TYPE workwithme_sessions_active gauge\n")
	fmt.Fprintf(w, "workwithme_sessions_active %d\n", s.sessions.Count())

	fmt.Fprintf(w, "# HELP workwithme_connections_active Number of open WebSocket connections.\n")
	fmt.Fprintf(w, "# TYPE workwithme_connections_active gauge\n")
	fmt.Fprintf(w, "workwithme_connections_active %d\n", s.ActiveConnections())

	ai := 0
	if s.assistant.Online() {
		ai = 1
	}
	fmt.Fprintf(w, "# HELP workwithme_ai_enabled Whether a language model is configured.\n")
	fmt.Fprintf(w, "# TYPE workwithme_ai_enabled gauge\n")
	fmt.Fprintf(w, "workwithme_ai_enabled %d\n", ai)

	if s.events != nil {
		counts := s.events.Counts()
		types := make([]string, 0, len(counts))
		for t := range counts {
			types = append(types, string(t))
		}
		slices.Sort(types)

		fmt.Fprintf(w, "# HELP workwithme_events_total Events published, by type.\n")
		fmt.Fprintf(w, "# TYPE workwithme_events_total counter\n")
		for _, t := range types {
			fmt.Fprintf(w, "workwithme_events_total{type=%q} %d\n", t, counts[domain.EventType(t)])
		}
	}

	fmt.Fprintf(w, "# HELP workwithme_uptime_seconds Seconds since the gateway started.\n")
	fmt.Fprintf(w, "# TYPE workwithme_uptime_seconds gauge\n")
	fmt.Fprintf(w, "workwithme_uptime_seconds %.0f\n", time.Since(s.startTime).Seconds())

	fmt.Fprintf(w, "# HELP go_goroutines Number of goroutines.\n")
	fmt.Fprintf(w, "# TYPE go_goroutines gauge\n")
	fmt.Fprintf(w, "go_goroutines %d\n", runtime.NumGoroutine())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode failed", http.StatusInternalServerError)
	}
}
