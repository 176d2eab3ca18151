package app

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/storebridge/server/internal/module/checkout"
	"github.com/storebridge/server/internal/module/credential"
	"github.com/storebridge/server/internal/module/gateway"
	"github.com/storebridge/server/internal/module/storefront"
	"github.com/storebridge/server/internal/module/webhook"
	sharedcache "github.com/storebridge/server/internal/shared/cache"
	"github.com/storebridge/server/internal/shared/config"
	"github.com/storebridge/server/internal/shared/database"
	"github.com/storebridge/server/internal/shared/httpclient"
	"github.com/storebridge/server/internal/shared/logger"
	"github.com/storebridge/server/internal/shared/metrics"
	"github.com/storebridge/server/internal/shared/middleware"
)

// App wires configuration, shared infrastructure and the modules into a
// single router.
type App struct {
	config  *config.Config
	db      *gorm.DB
	redis   redis.UniversalClient
	router  *gin.Engine
	logger  *zap.Logger
	metrics *metrics.Metrics

	// Modules
	credentialManager *credential.Manager
	credentialHandler *credential.Handler
	storefrontClient  *storefront.Client
	storefrontHandler *storefront.Handler
	webhookHandler    *webhook.Handler
	checkoutHandler   *checkout.Handler
}

// New creates the application.
func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	app := &App{
		config:  cfg,
		logger:  log,
		metrics: metrics.New("storebridge"),
	}

	// Database is optional; without it the webhook audit log is disabled.
	if cfg.Database.Host != "" {
		db, err := database.New(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("init database: %w", err)
		}
		app.db = db
	}

	// Redis is optional; without it intent and attempt markers live in
	// process memory.
	if cfg.Redis.Address != "" {
		redisClient, err := sharedcache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Warn("redis connection failed, using in-memory fallbacks", zap.Error(err))
		} else {
			app.redis = redisClient
		}
	}

	app.router = app.setupRouter()

	if err := app.initModules(); err != nil {
		return nil, fmt.Errorf("init modules: %w", err)
	}

	app.registerRoutes()

	return app, nil
}

// setupRouter creates and configures the gin router.
func (a *App) setupRouter() *gin.Engine {
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.logger))
	r.Use(middleware.Metrics(a.metrics))

	corsCfg := middleware.DefaultCORSConfig()
	if len(a.config.Server.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = a.config.Server.CORSOrigins
	}
	r.Use(middleware.CORS(corsCfg))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// initModules initializes all application modules.
func (a *App) initModules() error {
	outbound := httpclient.New(a.config.HTTPClient)

	// Credential module: storefront OAuth token lifecycle.
	var tokenStore credential.Store
	if a.redis != nil {
		tokenStore = credential.NewRedisStore(a.redis, "storefront:credential")
	} else {
		tokenStore = credential.NewFileStore(a.config.Storefront.TokenFile)
	}

	refresher := credential.NewOAuthRefresher(credential.OAuthConfig{
		TokenURL:     a.config.Storefront.TokenURL,
		ClientID:     a.config.Storefront.ClientID,
		ClientSecret: a.config.Storefront.ClientSecret,
		UserAgent:    a.config.Storefront.UserAgent,
		Timeout:      a.config.Storefront.RequestTimeout,
	}, outbound)

	a.credentialManager = credential.NewManager(credential.ManagerConfig{
		Store:         tokenStore,
		Refresher:     refresher,
		FallbackToken: a.config.Storefront.FallbackToken,
		Logger:        a.logger,
		Metrics:       a.metrics,
	})
	a.credentialHandler = credential.NewHandler(
		a.credentialManager, refresher, a.config.Storefront.RedirectURI, a.logger)

	// Storefront module: order creation and catalog proxy.
	a.storefrontClient = storefront.NewClient(storefront.ClientConfig{
		BaseURL:   a.config.Storefront.APIBaseURL,
		StoreID:   a.config.Storefront.StoreID,
		UserAgent: a.config.Storefront.UserAgent,
		Timeout:   a.config.Storefront.RequestTimeout,
	}, a.credentialManager, outbound, a.logger)
	a.storefrontHandler = storefront.NewHandler(a.storefrontClient, a.logger)

	// Gateway module: processor payment and preference clients.
	gatewayCfg := gateway.ClientConfig{
		BaseURL:     a.config.Gateway.APIBaseURL,
		AccessToken: a.config.Gateway.AccessToken,
		Timeout:     a.config.Gateway.RequestTimeout,
	}
	paymentClient := gateway.NewHTTPClient(gatewayCfg, outbound, a.logger)
	preferenceClient := gateway.NewHTTPPreferenceClient(gatewayCfg, outbound, a.logger)

	// Checkout module: hosted-checkout sessions and the intent store.
	var intentStore checkout.IntentStore
	if a.redis != nil {
		intentStore = checkout.NewRedisIntentStore(a.redis, a.config.Checkout.IntentTTL)
	} else {
		intentStore = checkout.NewMemoryIntentStore(a.config.Checkout.IntentTTL)
	}
	checkoutService := checkout.NewService(preferenceClient, intentStore, checkout.ServiceConfig{
		FrontBaseURL: a.config.Checkout.FrontBaseURL,
		BackBaseURL:  a.config.Checkout.BackBaseURL,
		Currency:     a.config.Gateway.Currency,
		Mode:         a.config.Gateway.Mode,
	}, a.logger)
	a.checkoutHandler = checkout.NewHandler(checkoutService, a.logger)

	// Webhook module: notification reconciliation and compliance webhooks.
	var attempts webhook.AttemptStore
	if a.redis != nil {
		attempts = webhook.NewRedisAttemptStore(a.redis)
	} else {
		attempts = webhook.NewMemoryAttemptStore()
	}

	reconciler := webhook.NewReconciler(
		paymentClient,
		a.storefrontClient,
		attempts,
		intentStore,
		webhook.ReconcilerConfig{
			DefaultProvince: a.config.Storefront.DefaultProvince,
			DefaultCountry:  a.config.Storefront.DefaultCountry,
			Currency:        a.config.Gateway.Currency,
			ValidateAmount:  a.config.Gateway.ValidateAmount,
		},
		a.logger,
		a.metrics,
	)

	var eventLog webhook.EventLog
	if a.db != nil {
		gormLog, err := webhook.NewGormEventLog(a.db)
		if err != nil {
			return fmt.Errorf("init webhook event log: %w", err)
		}
		eventLog = gormLog
	}

	a.webhookHandler = webhook.NewHandler(
		reconciler,
		webhook.NewSignatureVerifier(a.config.Storefront.ClientSecret),
		webhook.NewLogComplianceSink(a.logger),
		eventLog,
		a.logger,
		a.metrics,
	)

	return nil
}

// registerRoutes registers routes for all modules.
func (a *App) registerRoutes() {
	a.webhookHandler.RegisterRoutes(a.router.Group("/webhooks"))
	a.credentialHandler.RegisterRoutes(a.router.Group("/auth"))
	a.checkoutHandler.RegisterRoutes(a.router.Group("/api/orders"))
	a.storefrontHandler.RegisterRoutes(a.router.Group("/api/products"))
}

// Router returns the gin router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Stop releases application resources.
func (a *App) Stop() {
	if a.redis != nil {
		if err := sharedcache.Close(a.redis); err != nil {
			a.logger.Warn("redis close failed", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := database.Close(a.db); err != nil {
			a.logger.Warn("database close failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
