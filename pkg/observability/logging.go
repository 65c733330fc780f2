package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/companion/pkg/domain"
)

// LoggingHooks logs turn boundaries at info level and node transitions at
// debug level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnStart: func(ctx context.Context, e *domain.TurnEvent) {
			logger.InfoContext(ctx, "turn_start", "session_id", e.SessionID, "messages", e.Messages)
		},
		OnTurnEnd: func(ctx context.Context, e *domain.TurnEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "turn_failed",
					"session_id", e.SessionID,
					"kind", domain.KindOf(e.Err),
					"duration", e.Duration,
					"err", e.Err,
				)
				return
			}
			logger.InfoContext(ctx, "turn_end",
				"session_id", e.SessionID,
				"workflow", e.Workflow.String(),
				"messages", e.Messages,
				"duration", e.Duration,
			)
		},
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter", "session_id", e.SessionID, "node", e.NodeID, "step", e.Step)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_leave", "session_id", e.SessionID, "node", e.NodeID, "duration", e.Duration)
		},
		OnDegraded: func(ctx context.Context, e *domain.DegradationEvent) {
			logger.WarnContext(ctx, "memory_degraded", "session_id", e.SessionID, "op", e.Operation, "err", e.Err)
		},
	}
}
