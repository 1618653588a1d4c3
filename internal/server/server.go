// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	_ "girder/docs" // swagger docs
	"girder/internal/cache"
	"girder/internal/config"
	"girder/internal/database"
	"girder/internal/events"
	"girder/internal/middleware"
	"girder/internal/models"
	"girder/internal/notify"
	"girder/internal/repository"
	"girder/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	userRepo    repository.UserRepository
	projectRepo repository.ProjectRepository
	requestRepo repository.AccessRequestRepository
	auditRepo   repository.AuditRepository

	bus      *events.Bus
	eventLog *events.Log
	gateway  *notify.Gateway
	notifier *notify.Notifier
	hub      *notify.Hub

	accessService *service.AccessService
	adminService  *service.AdminService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and
// optionally performs explicit seeding.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	requestRepo := repository.NewAccessRequestRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	prom := middleware.InitMetrics("girder-api")

	rules, err := config.LoadApprovalRules(cfg.ApprovalRulesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load approval rules: %w", err)
	}

	bus := events.NewBus(middleware.Logger)
	eventLog := events.NewLog(cfg.EventLogCapacity)
	bus.SubscribeAll("events.log", eventLog.Record)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: prom,
		userRepo:       userRepo,
		projectRepo:    projectRepo,
		requestRepo:    requestRepo,
		auditRepo:      auditRepo,
		bus:            bus,
		eventLog:       eventLog,
	}

	server.accessService = service.NewAccessService(requestRepo, userRepo, projectRepo, auditRepo, rules, bus)
	server.adminService = service.NewAdminService(userRepo, auditRepo, bus)

	if !cfg.NotificationsOff {
		server.gateway = notify.NewGateway(server.buildSender(), cfg.MailFrom,
			time.Duration(cfg.MailTimeoutSecs)*time.Second, middleware.Logger)
	}

	if redisClient != nil {
		server.notifier = notify.NewNotifier(redisClient)
		server.hub = notify.NewHub()
	}

	notify.NewListeners(server.gateway, server.notifier, middleware.Logger).Attach(bus)

	return server, nil
}

// buildSender picks the outbound mail transport for the current environment.
// Development and test use the log sender so no relay is needed.
func (s *Server) buildSender() notify.Sender {
	if s.config.Env == "production" || s.config.Env == "prod" {
		return &notify.SMTPSender{Addr: s.config.SMTPAddr}
	}
	return &notify.LogSender{Logger: middleware.Logger}
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// CORS middleware should run before middlewares that can short-circuit
	// (e.g. limiter) so browser clients still receive CORS headers on error
	// responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they should be handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Girder Metrics Dashboard",
	}))

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)

	// Protected routes
	protected := api.Group("", middleware.AuthRequired)

	// Access request workflow
	requests := protected.Group("/access-requests")
	requests.Post("/", middleware.RateLimit(
		s.redis, 10, time.Minute, "submit_request"), s.SubmitAccessRequest)
	requests.Get("/pending", s.GetPendingAccessRequests)
	requests.Get("/mine", s.GetMyAccessRequests)
	requests.Patch("/:id", s.DecideAccessRequest)
	requests.Post("/:id/revoke", s.RevokeAccessRequest)
	requests.Get("/:ref", s.GetAccessRequest)

	// Project routes
	projects := protected.Group("/projects")
	projects.Get("/", s.GetProjects)
	projects.Post("/", s.CreateProject)
	projects.Get("/:id/access-requests", s.GetProjectAccessRequests)
	projects.Post("/:id/archive", s.ArchiveProject)
	projects.Get("/:id", s.GetProject)

	// Current user
	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)

	// Websocket refresh stream
	ws := api.Group("/ws", middleware.AuthRequired, WebsocketUpgradeRequired)
	ws.Get("/", s.WebsocketHandler())

	// Admin routes
	admin := protected.Group("/admin")
	admin.Get("/users", s.GetAdminUsers)
	admin.Post("/users/:id/activate", s.ActivateUser)
	admin.Post("/users/:id/deactivate", s.DeactivateUser)
	admin.Get("/audit", s.GetAuditTrail)
	admin.Get("/events", s.GetRecentEvents)
	admin.Post("/test-email", s.SendTestEmail)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := fiber.New(fiber.Config{
		AppName: "Girder Access API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	if s.notifier != nil && s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				log.Printf("failed to start refresh hub wiring: %v", err)
			}
		}()
	}

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			log.Printf("error shutting down refresh hub: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	middleware.Logger.Info("Server shutdown complete", slog.String("port", s.config.Port))
	return nil
}
