package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arklim/account-service/internal/infra/config"
	"github.com/arklim/account-service/internal/transport/http/handlers"
	"github.com/arklim/account-service/internal/transport/http/middleware"
	"github.com/arklim/account-service/internal/usecase"
)

// AccountService is everything the HTTP layer calls on the account usecase.
type AccountService interface {
	handlers.SelfService
	handlers.AdminService
	middleware.AdminChecker
}

var _ AccountService = (*usecase.AccountService)(nil)

// ReadinessChecker exposes readiness behaviour of a backing service.
type ReadinessChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	Accounts    AccountService
	Tokens      middleware.TokenParser
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
	// Readiness is probed by /readyz, keyed by dependency name.
	Readiness map[string]ReadinessChecker
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
	r.Use(deps.Metrics.Handler())
	if len(deps.Config.App.CORSOrigins) > 0 {
		r.Use(middleware.CORS(deps.Config.App.CORSOrigins))
	}

	healthOptions := make([]handlers.HealthOption, 0, len(deps.Readiness))
	for name, checker := range deps.Readiness {
		if checker != nil {
			healthOptions = append(healthOptions, handlers.WithReadinessCheck(name, checker.HealthCheck))
		}
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if deps.Accounts == nil || deps.Tokens == nil {
		return r
	}

	auth := middleware.RequireAuth(deps.Tokens)
	limits := sensitiveLimits(deps)

	account := handlers.NewAccountHandler(deps.Accounts, handlers.PictureUploadOptions{
		MaxSize: deps.Config.Account.PictureMaxSize,
		Dir:     deps.Config.Account.UploadDir,
	}, deps.Logger)
	admin := handlers.NewAdminHandler(deps.Accounts)

	api := r.Group("/api/v1")
	{
		// the token in the body is the credential
		api.PATCH("/users/me/email_confirmation", account.ConfirmEmailUpdate)

		me := api.Group("/users/me", auth)
		me.GET("", account.Me)
		me.DELETE("", append(limits("drop", deps.Config.RateLimit.DropMaxAttempts), account.Drop)...)
		me.GET("/picture", account.Picture)
		me.POST("/picture", account.UploadPicture)
		me.DELETE("/picture", account.DeletePicture)
		me.PATCH("/full_name", account.UpdateFullName)
		me.PATCH("/email_request", append(limits("email_request", deps.Config.RateLimit.EmailRequestMaxAttempts), account.RequestEmailUpdate)...)
		me.PATCH("/password", append(limits("password", deps.Config.RateLimit.PasswordMaxAttempts), account.UpdatePassword)...)

		users := api.Group("/admin/users", auth, middleware.RequireAdmin(deps.Accounts, deps.Logger))
		users.GET("", admin.List)
		users.GET("/count", admin.Count)
		users.GET("/:id", admin.Get)
		users.GET("/:id/picture", admin.Picture)
		users.PATCH("/:id/suspend", admin.Suspend)
		users.PATCH("/:id/admin", admin.MakeAdmin)
	}

	return r
}

// sensitiveLimits builds per-user rate limit middleware for endpoints that
// check a password or send mail. A zero limit disables the rule.
func sensitiveLimits(deps Dependencies) func(name string, limit int) []gin.HandlerFunc {
	return func(name string, limit int) []gin.HandlerFunc {
		if deps.RateLimiter == nil || limit <= 0 {
			return nil
		}

		window := deps.Config.RateLimit.WindowDuration
		if window <= 0 {
			window = 15 * time.Minute
		}

		return []gin.HandlerFunc{deps.RateLimiter.RateLimit(
			middleware.RateLimitRule{
				Name:       name + "_user",
				Limit:      limit,
				Window:     window,
				Identifier: middleware.UserIdentifier(),
			},
			middleware.RateLimitRule{
				Name:       name + "_ip",
				Limit:      limit * 4,
				Window:     window,
				Identifier: middleware.ClientIPIdentifier(),
			},
		)}
	}
}
