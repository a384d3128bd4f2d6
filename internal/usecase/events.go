package usecase

import (
	"context"
	"encoding/json"
	"time"

	"workwithme/internal/domain"
)

// publish emits an event when a bus is configured. A payload that fails to
// marshal is dropped from the event rather than blocking it.
func publish(ctx context.Context, bus domain.EventBus, typ domain.EventType, sessionID string, payload any) {
	if bus == nil {
		return
	}
	ev := domain.Event{Type: typ, Timestamp: time.Now(), SessionID: sessionID}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			ev.Payload = raw
		}
	}
	bus.Publish(ctx, ev)
}
