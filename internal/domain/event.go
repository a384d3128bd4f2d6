package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventType identifies the kind of event being published.
type EventType string

const (
	EventSessionCreated EventType = "session.created"
	EventSessionDeleted EventType = "session.deleted"

	EventMessageReceived EventType = "message.received"
	EventMessageSent     EventType = "message.sent"

	EventLLMCallCompleted EventType = "llm.call.completed"
	EventLLMCallFailed    EventType = "llm.call.failed"

	EventDrawingStarted   EventType = "drawing.started"
	EventDrawingCompleted EventType = "drawing.completed"
	EventDrawingCancelled EventType = "drawing.cancelled"

	EventCanvasUpdated EventType = "canvas.updated"
	EventCanvasCleared EventType = "canvas.cleared"

	EventOfferCreated  EventType = "offer.created"
	EventOfferResolved EventType = "offer.resolved"

	EventAssistantDegraded  EventType = "assistant.degraded"
	EventAssistantRecovered EventType = "assistant.recovered"

	EventTipSent EventType = "tip.sent"
)

// Event is the envelope published on the event bus.
type Event struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	SessionID string          `json:"session_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// EventHandler is a callback invoked when an event is received.
type EventHandler func(ctx context.Context, event Event)

// EventBus provides a publish/subscribe mechanism for domain events.
type EventBus interface {
	// Publish sends an event to all matching subscribers.
	Publish(ctx context.Context, event Event)
	// Subscribe registers a handler for a specific event type.
	// Returns an unsubscribe function.
	Subscribe(eventType EventType, handler EventHandler) func()
	// SubscribeAll registers a handler that receives every event.
	// Returns an unsubscribe function.
	SubscribeAll(handler EventHandler) func()
	// Close drains in-flight handlers and prevents new publishes.
	Close()
}
