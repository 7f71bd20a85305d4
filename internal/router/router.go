package router

import (
	"time"

	"helpdesk/internal/config"
	"helpdesk/internal/handler"
	"helpdesk/internal/middleware"
	"helpdesk/internal/model"
	"helpdesk/internal/repository"
	"helpdesk/internal/service"
	"helpdesk/internal/session"
	"helpdesk/internal/storage"
	"helpdesk/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository/Store ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, store storage.AttachmentStore) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Infrastructure ───────────────────────────────────────────────────────
	sessions := session.NewRedisStore(rdb, cfg.SessionSecret,
		time.Duration(cfg.SessionHours)*time.Hour)
	dispatcher := worker.NewDispatcher(rdb)

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	incidentRepo := repository.NewIncidentRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, sessions)
	userSvc := service.NewUserService(userRepo)
	incidentSvc := service.NewIncidentService(incidentRepo, store, dispatcher)

	// ── Handlers ─────────────────────────────────────────────────────────────
	sessionsH := handler.NewSessionsHandler(authSvc, cfg)
	usersH := handler.NewUsersHandler(userSvc)
	incidentsH := handler.NewIncidentsHandler(incidentSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	r.GET("/health", handler.Health(db, rdb))

	api := r.Group("/api/v1")

	// Public
	api.POST("/sessions", middleware.LoginRateLimiter(), sessionsH.Create)
	api.POST("/users", usersH.Register)

	// Protected
	authMW := middleware.SessionAuth(sessions)
	api.DELETE("/sessions", authMW, sessionsH.Destroy)

	users := api.Group("/users", authMW)
	{
		users.GET("/me", usersH.Profile)
		users.PATCH("/change-password", usersH.ChangePassword)
		users.GET("", middleware.RequireRole(model.RoleAdmin), usersH.List)
		users.DELETE("/:id", middleware.RequireRole(model.RoleAdmin), usersH.Delete)
	}

	incidents := api.Group("/incidents", authMW)
	{
		incidents.GET("", incidentsH.List)
		incidents.POST("", incidentsH.Create)
		incidents.GET("/:id", incidentsH.Get)
		incidents.PATCH("/:id", incidentsH.Update)
		incidents.DELETE("/:id", incidentsH.Delete)
		incidents.PATCH("/:id/files", incidentsH.AddFiles)
		incidents.DELETE("/:id/files", incidentsH.RemoveFile)
	}

	return r
}
