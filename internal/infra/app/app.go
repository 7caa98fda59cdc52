package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/kidhack/bonfire/internal/core/port"
	"github.com/kidhack/bonfire/internal/infra/config"
	"github.com/kidhack/bonfire/internal/infra/database"
	kafkainfra "github.com/kidhack/bonfire/internal/infra/kafka"
	"github.com/kidhack/bonfire/internal/infra/logger"
	redisinfra "github.com/kidhack/bonfire/internal/infra/redis"
	"github.com/kidhack/bonfire/internal/infra/security"
	webauthninfra "github.com/kidhack/bonfire/internal/infra/webauthn"
	postgresrepo "github.com/kidhack/bonfire/internal/repository/postgres"
	redisrepo "github.com/kidhack/bonfire/internal/repository/redis"
	"github.com/kidhack/bonfire/internal/transport/http/middleware"
	"github.com/kidhack/bonfire/internal/transport/http/routes"
	"github.com/kidhack/bonfire/internal/usecase"
)

type Application struct {
	cfg       *config.AppConfig
	engine    *gin.Engine
	logger    *zap.Logger
	pool      *pgxpool.Pool
	redis     *redisinfra.Client
	publisher port.EventPublisher
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if cfg.Postgres.MigrateOnStart {
		if err := database.RunMigrations(ctx, cfg.Postgres, log); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	if err := security.ConfigureArgon2(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}); err != nil {
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	repos := postgresrepo.NewRepositories(pool)
	ceremonies := webauthninfra.NewCeremonies(cfg.WebAuthn)

	auditService := usecase.NewAuditService(repos.Audit, eventPublisher)
	sessionService := usecase.NewSessionService(repos.Sessions, cfg.Session.TTL)
	registrationService := usecase.NewRegistrationService(
		repos.Users,
		repos.Credentials,
		repos.Challenges,
		repos.Organizations,
		ceremonies,
		auditService,
		cfg.WebAuthn.ChallengeTTL,
	)
	authenticationService := usecase.NewAuthenticationService(
		repos.Users,
		repos.Credentials,
		repos.Challenges,
		ceremonies,
		auditService,
		cfg.WebAuthn.ChallengeTTL,
	)
	backupCodeService := usecase.NewBackupCodeService(repos.Users, repos.BackupCodes, auditService, cfg.BackupCodes.Count, cfg.BackupCodes.ByteLen)
	resetService := usecase.NewAccountResetService(repos.Accounts, auditService)

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		TTL: rateLimitWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	var metrics *middleware.HTTPMetrics
	if cfg.Telemetry.MetricsEnabled {
		metrics, err = middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
		if err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("init http metrics: %w", err)
		}
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Database:    pool,
		Cache:       redisClient,
		Metrics:     metrics,
		Services: routes.ServiceSet{
			Registration:   registrationService,
			Authentication: authenticationService,
			Sessions:       sessionService,
			BackupCodes:    backupCodeService,
			Reset:          resetService,
		},
	})

	return &Application{
		cfg:       cfg,
		engine:    engine,
		logger:    log,
		pool:      pool,
		redis:     redisClient,
		publisher: eventPublisher,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.publisher != nil {
			_ = a.publisher.Close()
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting bonfire API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
