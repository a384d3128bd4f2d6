package usecase

import (
	"context"
	"log/slog"

	"workwithme/internal/domain"
)

// AuditEvents logs every event published on bus, one line per event,
// until the returned stop function is called.
func AuditEvents(bus domain.EventBus, logger *slog.Logger) (stop func()) {
	return bus.SubscribeAll(func(ctx context.Context, e domain.Event) {
		attrs := []slog.Attr{
			slog.String("event", string(e.Type)),
			slog.Time("at", e.Timestamp),
		}
		if e.SessionID != "" {
			attrs = append(attrs, slog.String("session_id", e.SessionID))
		}
		if len(e.Payload) > 0 {
			attrs = append(attrs, slog.String("payload", string(e.Payload)))
		}
		logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
	})
}
