package bootstrap

import (
	"context"
	"time"

	"mailsense_server/adapter/out/inference"
	"mailsense_server/adapter/out/mongodb"
	"mailsense_server/adapter/out/persistence"
	"mailsense_server/adapter/out/provider/gmail"
	"mailsense_server/config"
	"mailsense_server/core/domain"
	"mailsense_server/core/port/in"
	"mailsense_server/core/port/out"
	"mailsense_server/core/service/classification"
	"mailsense_server/core/service/content"
	"mailsense_server/core/service/label"
	"mailsense_server/core/service/pipeline"
	"mailsense_server/core/service/report"
	"mailsense_server/infra/database"
	"mailsense_server/pkg/cache"
	"mailsense_server/pkg/logger"
	"mailsense_server/pkg/metrics"
	"mailsense_server/pkg/ratelimit"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/oauth2"
)

type Dependencies struct {
	Config  *config.Config
	SQLDB   *sqlx.DB
	Redis   *redis.Client
	MongoDB *mongo.Client

	// Repositories
	AccountRepo     out.AccountRepository
	ReportRepo      out.ReportRepository
	PredictionCache out.PredictionCache

	// Provider (nil until a mailbox is connected)
	Provider *gmail.Provider

	// Classifier collaborator (nil when CLASSIFIER_BACKEND=none)
	ZeroShot out.ZeroShotClassifier

	// Services
	LabelService    *label.Service
	PipelineService in.PipelineService
	RunQueryService in.RunQueryService

	// ScanGuard rejects duplicate scan triggers across instances.
	ScanGuard *ratelimit.Debouncer
}

func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()

	// Database (sqlx over pgx stdlib)
	if cfg.DatabaseURL != "" {
		sqlDB, err := database.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			logger.Warn("Postgres connection failed: %v", err)
		} else {
			deps.SQLDB = sqlDB
			cleanups = append(cleanups, func() { sqlDB.Close() })

			// Register with global pool monitor
			metrics.RegisterPool("postgres", sqlDB.DB)

			deps.AccountRepo = persistence.NewAccountAdapter(sqlDB)
			logger.Info("Postgres connection successful")
		}
	} else {
		logger.Warn("DATABASE_URL not set, mailbox accounts unavailable")
	}

	// Redis
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis connection failed: %v", err)
		} else {
			deps.Redis = redisClient
			cleanups = append(cleanups, func() { redisClient.Close() })

			deps.PredictionCache = persistence.NewPredictionCacheAdapter(cache.NewRedisCache(redisClient))
			logger.Info("Redis prediction cache initialized")
		}
	}

	// Scan guard falls back to a process-local window when Redis is down.
	deps.ScanGuard = ratelimit.NewDebouncer(deps.Redis, cfg.ScanDebounce())

	// MongoDB (run archive)
	if cfg.MongoDBURL != "" {
		mongoClient, err := mongodb.NewClient(cfg.MongoDBURL)
		if err != nil {
			logger.Warn("MongoDB connection failed: %v", err)
		} else {
			deps.MongoDB = mongoClient
			cleanups = append(cleanups, func() {
				mongoClient.Disconnect(context.Background())
			})

			runAdapter := mongodb.NewRunAdapter(mongoClient.Database(cfg.MongoDBName), cfg.ReportTTL())
			if err := runAdapter.EnsureIndexes(context.Background()); err != nil {
				logger.Warn("Failed to ensure MongoDB indexes: %v", err)
			}
			deps.ReportRepo = runAdapter
			deps.RunQueryService = report.NewService(runAdapter)
			logger.Info("MongoDB run archive initialized")
		}
	}

	// Zero-shot classifier backend
	zeroShot, err := inference.NewZeroShot(cfg)
	if err != nil {
		logger.Warn("Classifier backend unavailable: %v", err)
	} else if zeroShot != nil {
		deps.ZeroShot = zeroShot
		logger.Info("Classifier backend initialized: %s", cfg.ClassifierBackend)
	} else {
		logger.Info("Classifier backend disabled, predictions fall back to unknown")
	}

	// Gmail provider, bound to the connected mailbox account
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" && deps.AccountRepo != nil {
		if provider, err := newGmailProvider(cfg, deps.AccountRepo); err != nil {
			logger.Warn("Gmail provider unavailable: %v", err)
		} else if provider != nil {
			deps.Provider = provider
			logger.Info("Gmail provider initialized for %s", provider.Email())
		}
	} else {
		logger.Warn("Google OAuth not configured, scan pipeline disabled")
	}

	// Pipeline services require a provider; the HTTP surface stays up
	// without one so health and run queries keep working.
	if deps.Provider != nil {
		deps.LabelService = label.NewService(deps.Provider)

		intents := classification.NewIntentClassifier(deps.ZeroShot, deps.PredictionCache, cfg.PredictionTTL())
		deps.PipelineService = pipeline.NewService(
			deps.Provider,
			content.NewDecoder(),
			classification.NewRuleClassifier(),
			intents,
			classification.NewInsightExtractor(),
			deps.LabelService,
			deps.ReportRepo,
			pipeline.Config{
				MaxPerCategory: int64(cfg.ScanMaxPerCategory),
				Instance:       cfg.InstanceID,
			},
		)
		logger.Info("Scan pipeline initialized (max %d per category)", cfg.ScanMaxPerCategory)
	}

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	return deps, cleanup, nil
}

// newGmailProvider loads the scanned mailbox's stored tokens and builds
// the provider. Returns (nil, nil) when no mailbox is connected yet.
func newGmailProvider(cfg *config.Config, accounts out.AccountRepository) (*gmail.Provider, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	account, err := loadAccount(ctx, cfg, accounts)
	if err != nil {
		return nil, err
	}
	if account == nil {
		logger.Warn("No connected mailbox account found, scan pipeline disabled")
		return nil, nil
	}

	oauthConfig := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/gmail.modify",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.google.com/o/oauth2/auth",
			TokenURL: "https://oauth2.googleapis.com/token",
		},
	}

	token := &oauth2.Token{
		AccessToken:  account.AccessToken,
		RefreshToken: account.RefreshToken,
		Expiry:       account.TokenExpiry,
	}

	return gmail.NewProvider(ctx, oauthConfig, token)
}

func loadAccount(ctx context.Context, cfg *config.Config, accounts out.AccountRepository) (*domain.MailAccount, error) {
	if cfg.GmailAccountEmail != "" {
		return accounts.GetByEmail(ctx, cfg.GmailAccountEmail)
	}
	return accounts.GetLatest(ctx)
}
