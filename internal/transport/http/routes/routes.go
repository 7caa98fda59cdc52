package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kidhack/bonfire/internal/infra/config"
	"github.com/kidhack/bonfire/internal/transport/http/handlers"
	"github.com/kidhack/bonfire/internal/transport/http/middleware"
	"github.com/kidhack/bonfire/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Registration   *usecase.RegistrationService
	Authentication *usecase.AuthenticationService
	Sessions       *usecase.SessionService
	BackupCodes    *usecase.BackupCodeService
	Reset          *usecase.AccountResetService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
	Metrics     *middleware.HTTPMetrics
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}
	r.Use(middleware.CORS(deps.Config.WebAuthn.Origins))

	cookie := middleware.SessionCookie{
		Name:   deps.Config.Session.CookieName,
		TTL:    deps.Services.Sessions.TTL(),
		Secure: deps.Config.Session.Secure,
	}

	optionalSession := middleware.OptionalSession(deps.Services.Sessions, cookie, deps.Logger)
	requireSession := middleware.RequireSession(deps.Services.Sessions, cookie, deps.Logger)

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)
	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")

		authHandler := handlers.NewAuthHandler(deps.Services.Registration, deps.Services.Authentication, deps.Services.Sessions, cookie)
		backupHandler := handlers.NewBackupCodeHandler(deps.Services.BackupCodes, deps.Services.Sessions, cookie)
		sessionHandler := handlers.NewSessionHandler(deps.Services.Sessions, cookie)
		resetHandler := handlers.NewResetHandler(deps.Services.Reset, cookie)

		registerLimit := ceremonyRateLimit(deps, "auth_register_ip", deps.Config.RateLimit.RegisterMaxAttempts)
		signinLimit := ceremonyRateLimit(deps, "auth_signin_ip", deps.Config.RateLimit.SigninMaxAttempts)
		backupLimit := ceremonyRateLimit(deps, "auth_backup_ip", deps.Config.RateLimit.BackupMaxAttempts)

		registerGroup := authGroup.Group("/register")
		registerGroup.Use(optionalSession)
		if registerLimit != nil {
			registerGroup.Use(registerLimit)
		}
		registerGroup.POST("/options", authHandler.RegisterOptions)
		registerGroup.POST("/verify", authHandler.RegisterVerify)

		authenticateGroup := authGroup.Group("/authenticate")
		if signinLimit != nil {
			authenticateGroup.Use(signinLimit)
		}
		authenticateGroup.POST("/options", authHandler.AuthenticateOptions)
		authenticateGroup.POST("/verify", authHandler.AuthenticateVerify)

		authGroup.POST("/backup-codes", requireSession, backupHandler.Generate)

		redeemHandlers := make([]gin.HandlerFunc, 0, 3)
		redeemHandlers = append(redeemHandlers, optionalSession)
		if backupLimit != nil {
			redeemHandlers = append(redeemHandlers, backupLimit)
		}
		redeemHandlers = append(redeemHandlers, backupHandler.Redeem)
		authGroup.POST("/backup-codes/verify", redeemHandlers...)

		authGroup.GET("/session", sessionHandler.Current)
		authGroup.POST("/sign-out", sessionHandler.SignOut)
		authGroup.POST("/reset", requireSession, resetHandler.Reset)
	}

	return r
}

func ceremonyRateLimit(deps Dependencies, name string, limit int) gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil || !deps.Config.RateLimit.Enabled {
		return nil
	}
	if limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return deps.RateLimiter.RateLimit(rule)
}
