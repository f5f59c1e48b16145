package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/arklim/account-service/internal/core/port"
	"github.com/arklim/account-service/internal/infra/config"
	"github.com/arklim/account-service/internal/infra/database"
	kafkainfra "github.com/arklim/account-service/internal/infra/kafka"
	"github.com/arklim/account-service/internal/infra/logger"
	"github.com/arklim/account-service/internal/infra/mail"
	redisinfra "github.com/arklim/account-service/internal/infra/redis"
	"github.com/arklim/account-service/internal/infra/search"
	"github.com/arklim/account-service/internal/infra/security"
	"github.com/arklim/account-service/internal/infra/telemetry"
	postgresrepo "github.com/arklim/account-service/internal/repository/postgres"
	redisrepo "github.com/arklim/account-service/internal/repository/redis"
	"github.com/arklim/account-service/internal/transport/http/middleware"
	"github.com/arklim/account-service/internal/transport/http/routes"
	"github.com/arklim/account-service/internal/usecase"
)

// Version is stamped at build time with -ldflags "-X .../internal/infra/app.Version=...".
var Version = "dev"

type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	tracer   *telemetry.TracerProvider
}

type poolChecker struct{ pool *pgxpool.Pool }

func (p poolChecker) HealthCheck(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func New(ctx context.Context, cfg *config.AppConfig) (_ *Application, err error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &Application{cfg: cfg, logger: log}
	defer func() {
		if err != nil {
			a.release(context.Background())
		}
	}()

	a.tracer, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, Version, log)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	a.pool, err = database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	if cfg.Postgres.AutoMigrate {
		if err := database.EnsureSchema(ctx, a.pool, cfg.Postgres.Schema); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		if err := database.RunMigrations(cfg.Postgres, log); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	a.redis, err = redisinfra.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	index := search.NewUserIndex(cfg.Search, log)
	if err := index.EnsureIndex(ctx); err != nil {
		// the index is created lazily by the first document write as well
		log.Warn("failed to ensure search index", zap.String("index", cfg.Search.UserIndex), zap.Error(err))
	}

	renderer, err := mail.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("init mail templates: %w", err)
	}
	var mailer port.MailSender
	if cfg.SMTP.Host != "" {
		mailer, err = mail.NewSMTPSender(cfg.SMTP, renderer, log)
		if err != nil {
			return nil, fmt.Errorf("init smtp sender: %w", err)
		}
	} else {
		log.Info("smtp host not configured, mail is logged instead of sent")
		mailer = mail.NewLogSender(renderer, log)
	}

	var events port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			events = kafkainfra.NewStubPublisher(log)
		} else {
			a.producer = producer
			events = kafkainfra.NewEventPublisher(producer, cfg.App, log)
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		events = kafkainfra.NewStubPublisher(log)
	}

	hasher, err := security.NewArgon2Hasher(port.Argon2Params{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	tokens, err := security.NewTokenManager(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience)
	if err != nil {
		return nil, fmt.Errorf("init token manager: %w", err)
	}

	repos := postgresrepo.NewRepositories(a.pool)

	accounts := usecase.NewAccountService(repos.Users, index, mailer, hasher, usecase.AccountOptions{
		UIURL:      cfg.Account.UIURL,
		SyncPolicy: usecase.SyncPolicy(cfg.Search.SyncPolicy),
	}).
		WithLogger(log).
		WithPasswordPolicy(security.DefaultPasswordValidator()).
		WithEvents(events).
		WithMetrics(telemetry.NewAccountMetrics(nil))

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	rateLimitStore := redisrepo.NewRateLimitRepository(a.redis.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: cfg.Redis.RateLimitPrefix,
	})

	a.engine = routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		Accounts:    accounts,
		Tokens:      tokens,
		RateLimiter: middleware.NewRateLimiter(rateLimitStore, log),
		Metrics:     httpMetrics,
		Readiness: map[string]routes.ReadinessChecker{
			"postgres": poolChecker{pool: a.pool},
			"redis":    a.redis,
			"search":   index,
		},
	})

	return a, nil
}

// release closes whatever New managed to open.
func (a *Application) release(ctx context.Context) {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("failed to close kafka producer", zap.Error(err))
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Warn("failed to shut down tracer", zap.Error(err))
		}
	}
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer a.release(context.Background())

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting account API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
		zap.String("version", Version),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		timeout := a.cfg.App.ShutdownTimeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		a.logger.Info("shutting down account API")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
