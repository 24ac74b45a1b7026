package bootstrap

import (
	"strings"
	"time"

	"mailsense_server/adapter/in/http"
	"mailsense_server/adapter/in/worker"
	"mailsense_server/config"
	"mailsense_server/infra/middleware"
	"mailsense_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	// Initialize logger
	logLevel := logger.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = logger.LevelDebug
	}
	logger.Init(logger.Config{
		Level:   logLevel,
		Service: "mailsense-api",
	})

	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize dependencies")
		return nil, nil, err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),
		Prefork:               false,
		StrictRouting:         false,
		CaseSensitive:         false,

		// Buffer sizes tuned for JSON payloads
		ReadBufferSize:  16384,
		WriteBufferSize: 16384,

		// go-json is markedly faster than encoding/json
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		BodyLimit:   10 * 1024 * 1024,
		Concurrency: 256 * 1024,

		ServerHeader:             "",
		DisableDefaultDate:       true,
		DisableHeaderNormalizing: false,

		DisableKeepalive: false,

		StreamRequestBody:            true,
		DisablePreParseMultipartForm: true,
	})

	// Global middleware stack (order matters)
	app.Use(middleware.Recover())         // 1. Panic recovery
	app.Use(middleware.RequestID())       // 2. Request ID
	app.Use(middleware.SecurityHeaders()) // 3. Security headers
	app.Use(middleware.RequestLogger())   // 4. Request logging

	// Response compression
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// CORS - AllowCredentials:true requires explicit origins (not "*")
	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	allowCredentials := true
	if allowOrigins == "" || allowOrigins == "*" {
		// In production, never allow "*" with credentials
		if cfg.IsProduction() {
			allowOrigins = "" // Block all if not configured properly
			allowCredentials = false
		} else {
			// Development: allow localhost only
			allowOrigins = "http://localhost:3000,http://localhost:5173"
		}
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Request-ID",
		ExposeHeaders:    "X-Request-ID,X-RateLimit-Limit,X-RateLimit-Remaining,X-RateLimit-Reset",
		AllowCredentials: allowCredentials,
		MaxAge:           86400, // 24 hours
	}))

	// Health check (no auth required)
	healthHandler := http.NewHealthHandler(deps.SQLDB, deps.Redis, deps.MongoDB)
	healthHandler.Register(app)

	// Scan handler: the webhook route skips auth (called by the mail
	// provider's push relay), everything else lives under /api/mail.
	scanHandler := http.NewScanHandler(deps.PipelineService, deps.ScanGuard, cfg.ScanTimeout())
	scanHandler.RegisterWebhook(app)

	// API routes (with auth and rate limiting)
	api := app.Group("/api/mail")

	rateLimiter := middleware.NewRateLimiter(100, time.Minute)
	api.Use(rateLimiter.Handler())

	api.Use(middleware.JWTAuth(cfg.JWTSecret))

	// Stricter limit on the expensive batch endpoint
	api.Use("/process", middleware.SensitiveEndpointLimiter(10, time.Minute))

	scanHandler.Register(api)

	runHandler := http.NewRunHandler(deps.RunQueryService)
	runHandler.Register(api)

	// Scheduled scans
	var scheduler *worker.ScanScheduler
	if cfg.SchedulerEnabled {
		if deps.PipelineService != nil {
			scheduler = worker.NewScanScheduler(deps.PipelineService, deps.ScanGuard, cfg.ScanInterval(), cfg.ScanTimeout())
			scheduler.Start()
		} else {
			logger.Warn("Scheduler enabled but scan pipeline unavailable, skipping")
		}
	}

	shutdown := func() {
		if scheduler != nil {
			scheduler.Stop()
		}
		cleanup()
	}

	logger.Info("API server initialized successfully")

	return app, shutdown, nil
}
