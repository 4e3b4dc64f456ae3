package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/tazhibayda/quiz-auth-service/internal/account"
	"github.com/tazhibayda/quiz-auth-service/internal/config"
	api "github.com/tazhibayda/quiz-auth-service/internal/http"
	"github.com/tazhibayda/quiz-auth-service/internal/log"
	"github.com/tazhibayda/quiz-auth-service/internal/metrics"
	"github.com/tazhibayda/quiz-auth-service/internal/notify"
	"github.com/tazhibayda/quiz-auth-service/internal/oauth"
	"github.com/tazhibayda/quiz-auth-service/internal/queue"
	"github.com/tazhibayda/quiz-auth-service/internal/repo"
	"github.com/tazhibayda/quiz-auth-service/internal/reset"
	"github.com/tazhibayda/quiz-auth-service/internal/security"
)

type userStore interface {
	account.Store
	reset.Store
	api.Pinger
	Close(ctx context.Context) error
}

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

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	if cfg.DDEnabled {
		tracer.Start(tracer.WithService(cfg.DDService))
		defer tracer.Stop()
	}
	metrics.MustRegister()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close(context.Background()) }()

	tokens, keys, err := tokenService(cfg)
	if err != nil {
		return err
	}

	mail, closeMail, err := dispatcher(cfg, logger)
	if err != nil {
		return err
	}
	defer closeMail()

	resets := reset.NewManager(store, cfg.ResetTokenTTL)
	h := &api.Handler{
		Accounts: account.NewService(account.Deps{
			Store:       store,
			Tokens:      tokens,
			Resets:      resets,
			Hasher:      security.NewHasher(cfg.BcryptCost),
			Mail:        mail,
			FrontendURL: cfg.FrontendURL,
			Log:         logger,
		}),
		Resets:      resets,
		Tokens:      tokens,
		Users:       store,
		Health:      []api.Pinger{store},
		Keys:        keys,
		FrontendURL: cfg.FrontendURL,
		Log:         logger,
	}

	if cfg.GoogleClientID != "" {
		var states oauth.StateStore = oauth.NewHMACState(cfg.OAuthStateSecret)
		if cfg.RedisAddr != "" {
			rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			defer func() { _ = rdb.Close() }()
			states = oauth.NewRedisState(cfg.OAuthStateSecret, rdb)
			h.Health = append(h.Health, api.PingFunc(func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			}))
		}
		h.Google = oauth.NewGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI, states)
	} else {
		logger.Warn("GOOGLE_CLIENT_ID not set, google login disabled")
	}

	opt := api.RouterOptions{CORSOrigins: cfg.CORSOrigins}
	if cfg.DDEnabled {
		opt.TraceService = cfg.DDService
	}
	srv := &nethttp.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(h, opt),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("quiz-auth-service listening", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (userStore, error) {
	if cfg.StoreDriver == "memory" {
		logger.Warn("using in-memory store, data is lost on exit")
		return repo.NewMemoryStore(), nil
	}
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	store, err := repo.NewStore(cctx, cfg.MongoURI, cfg.MongoDB, repo.CommandMonitor(logger))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := store.EnsureUserIndexes(cctx); err != nil {
		_ = store.Close(context.Background())
		return nil, fmt.Errorf("mongo indexes: %w", err)
	}
	return store, nil
}

func tokenService(cfg config.Config) (*security.TokenService, *security.SigningKey, error) {
	if cfg.JWTAlg != "RS256" {
		return security.NewHS256(cfg.JWTSecret, cfg.JWTExpiresIn), nil, nil
	}
	key, err := security.LoadSigningKey(cfg.JWTKeyID, cfg.JWTPrivateKeyPath)
	if err != nil {
		return nil, nil, err
	}
	return security.NewRS256(key, cfg.JWTExpiresIn), key, nil
}

func dispatcher(cfg config.Config, logger *zap.Logger) (notify.Dispatcher, func(), error) {
	switch cfg.NotifyMode {
	case "rabbit":
		pub, err := queue.NewRabbitPublisher(cfg.RabbitURL, cfg.Exchange)
		if err != nil {
			return nil, nil, fmt.Errorf("rabbit: %w", err)
		}
		d := notify.NewQueueDispatcher(pub, logger)
		return d, func() { d.Close(); _ = pub.Close() }, nil
	case "smtp":
		sender, err := notify.NewSMTPSender(smtpConfig(cfg))
		if err != nil {
			return nil, nil, fmt.Errorf("smtp: %w", err)
		}
		p := notify.NewPool(sender, cfg.NotifyWorkers, 0, logger)
		return p, p.Close, nil
	default:
		p := notify.NewPool(notify.LogSender{Log: logger}, cfg.NotifyWorkers, 0, logger)
		return p, p.Close, nil
	}
}

func smtpConfig(cfg config.Config) notify.SMTPConfig {
	return notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		FromName: cfg.MailFromName,
	}
}
