package gateway

import (
	"time"

	"workwithme/internal/domain"
)

// EnvelopeType identifies the kind of envelope sent over the WebSocket connection.
type EnvelopeType string

// Client to server.
const (
	TypeCanvasUpdate     EnvelopeType = "canvas_update"
	TypeAnalyzeCanvas    EnvelopeType = "analyze_canvas"
	TypeChatMessage      EnvelopeType = "chat_message"
	TypeRequestDrawing   EnvelopeType = "request_drawing"
	TypeBroadcastDrawing EnvelopeType = "broadcast_drawing"
	TypeDrawCancel       EnvelopeType = "draw_cancel"
	TypeUndo             EnvelopeType = "undo"
	TypeRedo             EnvelopeType = "redo"
	TypeClearCanvas      EnvelopeType = "clear_canvas"
	TypePing             EnvelopeType = "ping"
)

// Server to client.
const (
	TypeConnected     EnvelopeType = "connected"
	TypeAck           EnvelopeType = "ack"
	TypeAIResponse    EnvelopeType = "ai_response"
	TypeAIDrawing     EnvelopeType = "ai_drawing"
	TypeDrawCommand   EnvelopeType = "draw_command"
	TypeCanvasState   EnvelopeType = "canvas_state"
	TypeCanvasCleared EnvelopeType = "canvas_cleared"
	TypePong          EnvelopeType = "pong"
	TypeError         EnvelopeType = "error"
)

// Frame is an inbound envelope. Only the fields its type uses are set.
type Frame struct {
	Type EnvelopeType `json:"type"`

	ImageData   string `json:"imageData,omitempty"`
	UserMessage string `json:"userMessage,omitempty"`

	Content       string `json:"content,omitempty"`
	IncludeCanvas bool   `json:"includeCanvas,omitempty"`
	CanvasImage   string `json:"canvasImage,omitempty"`
	CurrentColor  string `json:"currentColor,omitempty"`

	Shapes []string `json:"shapes,omitempty"`

	Commands         []domain.Command `json:"commands,omitempty"`
	Description      string           `json:"description,omitempty"`
	CoordinateSystem string           `json:"coordinateSystem,omitempty"`
}

// Plan returns the drawing plan carried by a broadcast_drawing envelope.
func (f Frame) Plan() domain.Plan {
	return domain.Plan{
		Description:      f.Description,
		Commands:         f.Commands,
		CoordinateSystem: f.CoordinateSystem,
	}
}

// Reply is an outbound envelope.
type Reply struct {
	Type        EnvelopeType             `json:"type"`
	SessionID   string                   `json:"sessionId,omitempty"`
	Message     string                   `json:"message,omitempty"`
	Content     string                   `json:"content,omitempty"`
	Description string                   `json:"description,omitempty"`
	Commands    []domain.ResolvedCommand `json:"commands,omitempty"`
	Shapes      []string                 `json:"shapes,omitzero"`
	ImageData   string                   `json:"imageData,omitempty"`
	FromSession string                   `json:"fromSession,omitempty"`
	Timestamp   time.Time                `json:"timestamp,omitzero"`
}
