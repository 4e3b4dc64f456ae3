package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/tazhibayda/quiz-auth-service/internal/helper"
)

// LogSender only logs; used in development when no SMTP account is set.
type LogSender struct {
	Log *zap.Logger
}

func (s LogSender) Send(_ context.Context, m Message) error {
	s.Log.Info("mail",
		zap.String("kind", string(m.Kind)),
		zap.String("to", helper.Hash8(m.To)),
		zap.String("subject", m.Subject),
		zap.Int("html_bytes", len(m.HTML)),
	)
	return nil
}
