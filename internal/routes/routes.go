package routes

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/FACorreiaa/parkspot/internal/app/domain/billing"
	"github.com/FACorreiaa/parkspot/internal/app/domain/notify"
	"github.com/FACorreiaa/parkspot/internal/app/domain/session"
	"github.com/FACorreiaa/parkspot/internal/app/domain/share"
	"github.com/FACorreiaa/parkspot/internal/app/domain/timer"
	"github.com/FACorreiaa/parkspot/internal/pkg/config"
	"github.com/FACorreiaa/parkspot/internal/pkg/middleware"
)

type AppHandlers struct {
	Session *session.Handler
	Share   *share.Handler
	Timer   *timer.Handler
}

// Setup wires repositories, services and handlers, then registers routes.
func Setup(r *gin.Engine, dbPool *pgxpool.Pool, cfg *config.Config, log *zap.Logger) {
	slogLog := slog.Default()

	handlers := setupDependencies(dbPool, cfg, log)
	setupRouter(r, handlers, cfg, slogLog)
}

func setupDependencies(dbPool *pgxpool.Pool, cfg *config.Config, log *zap.Logger) *AppHandlers {
	// Create repositories
	sessionRepo := session.NewRepository(dbPool, log)
	shareRepo := share.NewRepository(dbPool, log)
	timerRepo := timer.NewRepository(dbPool, log)
	deviceRepo := notify.NewDeviceRepository(dbPool, log)
	billingRepo := billing.NewRepository(dbPool, log)

	// Create services
	entitlements := billing.NewService(billingRepo, cfg.StripeKey, log)
	dispatcher := notify.NewPushDispatcher(cfg.Push.GatewayURL, cfg.Push.SendTimeout, log)
	sessionService := session.NewService(sessionRepo, log)
	shareService := share.NewService(shareRepo, sessionRepo, entitlements, cfg.ShareBaseURL, log)
	timerService := timer.NewService(timerRepo, sessionRepo, deviceRepo, dispatcher, shareRepo, log)

	return &AppHandlers{
		Session: session.NewHandler(sessionService, log),
		Share:   share.NewHandler(shareService, log),
		Timer:   timer.NewHandler(timerService, log),
	}
}

func setupRouter(r *gin.Engine, h *AppHandlers, cfg *config.Config, log *slog.Logger) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// The token inside the URL is the whole credential for a share view.
	r.GET("/shares/view", h.Share.ResolveShare)

	jwtConfig := middleware.JWTConfig{
		SecretKey:       cfg.JWTSecret,
		TokenExpiration: 24 * time.Hour,
		Logger:          log,
	}

	api := r.Group("/api")
	api.Use(middleware.JWTAuthMiddleware(jwtConfig))
	{
		api.POST("/sessions", h.Session.SaveSpot)
		api.GET("/sessions/current", h.Session.GetCurrent)
		api.POST("/timers", h.Timer.CreateTimer)
		api.POST("/shares", h.Share.StartShare)
		api.POST("/shares/:shareID/locations", h.Share.AppendLocation)
	}

	// Cron trigger, guarded by a shared secret rather than user auth.
	cron := r.Group("/api/reminders")
	cron.Use(middleware.CronAuthMiddleware(cfg.CronSecret, log))
	{
		cron.POST("/run", h.Timer.Run)
	}
}
