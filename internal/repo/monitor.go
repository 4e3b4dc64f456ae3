package repo

import (
	"context"

	"go.mongodb.org/mongo-driver/event"
	"go.uber.org/zap"

	"github.com/tazhibayda/quiz-auth-service/internal/log"
)

// CommandMonitor logs failed mongo commands, correlated with the active
// Datadog span when there is one.
func CommandMonitor(l *zap.Logger) *event.CommandMonitor {
	return &event.CommandMonitor{
		Failed: func(ctx context.Context, e *event.CommandFailedEvent) {
			log.WithDD(ctx, l).Warn("mongo command failed",
				zap.String("command", e.CommandName),
				zap.Int64("request_id", e.RequestID),
				zap.Duration("took", e.Duration),
				zap.String("error", e.Failure),
			)
		},
	}
}
