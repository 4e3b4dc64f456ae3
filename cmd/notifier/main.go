package main

import (
	"context"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/tazhibayda/quiz-auth-service/internal/config"
	"github.com/tazhibayda/quiz-auth-service/internal/log"
	"github.com/tazhibayda/quiz-auth-service/internal/metrics"
	"github.com/tazhibayda/quiz-auth-service/internal/notify"
	"github.com/tazhibayda/quiz-auth-service/internal/queue"
)

// notifier drains the email queue filled by the server in NOTIFY_MODE=rabbit.
func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("config: %v", err)
	}
	logger, err := log.Init(cfg.LogProd)
	if err != nil {
		stdlog.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	metrics.MustRegister()

	cons, err := queue.NewConsumer(cfg.RabbitURL, cfg.Exchange, cfg.Queue, cfg.BindKey)
	if err != nil {
		logger.Fatal("rabbit consumer init failed", zap.Error(err))
	}
	defer cons.Close()

	var sender notify.Sender = notify.LogSender{Log: logger}
	if cfg.SMTPUser != "" {
		s, err := notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			FromName: cfg.MailFromName,
		})
		if err != nil {
			logger.Fatal("smtp init failed", zap.Error(err))
		}
		sender = s
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("notifier up",
		zap.String("exchange", cfg.Exchange),
		zap.String("queue", cfg.Queue),
		zap.String("key", cfg.BindKey),
		zap.Int("workers", cfg.NotifyWorkers))

	if err := cons.Consume(ctx, cfg.NotifyWorkers, notify.HandleDelivery(sender, logger)); err != nil {
		logger.Fatal("consumer stopped", zap.Error(err))
	}
}
