package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	billingapp "github.com/finledger/backend/internal/application/billing"
	ledgerapp "github.com/finledger/backend/internal/application/ledger"
	paymentapp "github.com/finledger/backend/internal/application/payment"
	procurementapp "github.com/finledger/backend/internal/application/procurement"
	"github.com/finledger/backend/internal/domain/ledger"
	"github.com/finledger/backend/internal/domain/procurement"
	"github.com/finledger/backend/internal/domain/shared/valueobject"
	"github.com/finledger/backend/internal/infrastructure/cache"
	"github.com/finledger/backend/internal/infrastructure/config"
	"github.com/finledger/backend/internal/infrastructure/logger"
	"github.com/finledger/backend/internal/infrastructure/persistence"
	"github.com/finledger/backend/internal/infrastructure/telemetry"
	"github.com/finledger/backend/internal/interfaces/http/handler"
	"github.com/finledger/backend/internal/interfaces/http/middleware"
	"github.com/finledger/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting ledger backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("base_currency", cfg.Ledger.BaseCurrency),
	)

	// Initialize tracing
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	documentRepo := persistence.NewGormDocumentRepository(db.DB)
	approvalRepo := persistence.NewGormApprovalRecordRepository(db.DB)
	journalRepo := persistence.NewGormJournalEntryRepository(db.DB)
	accountRepo := persistence.NewGormAccountRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	purchaseOrderRepo := persistence.NewGormPurchaseOrderRepository(db.DB)
	goodsReceiptRepo := persistence.NewGormGoodsReceiptRepository(db.DB)
	issueRepo := persistence.NewGormMatchingIssueRepository(db.DB)
	rateRepo := persistence.NewGormExchangeRateRepository(db.DB)

	// Exchange rates go through a Redis read-through cache; cache
	// failures degrade to the database provider.
	var rates valueobject.RateProvider = rateRepo
	rateCache, err := cache.NewRedisRateCache(cfg.Redis, rateRepo,
		cache.WithRateCacheTTL(cfg.Ledger.RateCacheTTL),
		cache.WithRateCacheLogger(log),
	)
	if err != nil {
		log.Warn("Redis unavailable, exchange rates served without cache", zap.Error(err))
	} else {
		rates = rateCache
		defer func() {
			if err := rateCache.Close(); err != nil {
				log.Error("Error closing rate cache", zap.Error(err))
			}
		}()
	}

	baseCurrency := valueobject.Currency(cfg.Ledger.BaseCurrency)
	resolver := ledger.NewAccountResolver(accountRepo)
	registry, err := defaultTaxRegistry()
	if err != nil {
		log.Fatal("Failed to build tax registry", zap.Error(err))
	}
	matcher, err := procurement.NewMatcher(cfg.Ledger.MatchTolerance())
	if err != nil {
		log.Fatal("Failed to build matcher", zap.Error(err))
	}

	// Initialize application services
	documentService := billingapp.NewDocumentService(documentRepo, approvalRepo, issueRepo, registry, log)
	postingService := ledgerapp.NewPostingService(documentRepo, journalRepo, resolver, rates, baseCurrency, log)
	allocationService := paymentapp.NewAllocationService(paymentRepo, documentRepo, journalRepo, resolver, rates, baseCurrency, log)
	matchService := procurementapp.NewMatchService(documentRepo, purchaseOrderRepo, goodsReceiptRepo, issueRepo, matcher, log)

	// Initialize HTTP handlers
	documentHandler := handler.NewDocumentHandler(documentService)
	postingHandler := handler.NewPostingHandler(postingService)
	paymentHandler := handler.NewPaymentHandler(allocationService)
	matchHandler := handler.NewMatchHandler(matchService)
	systemHandler := handler.NewSystemHandler(db.DB, cfg.App.Name, version)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Tenant-scoped API routes
	api := router.NewRouter(engine,
		router.WithAPIVersion("v1"),
		router.WithGroupMiddleware(middleware.Tenant()),
	)
	api.Register(documentHandler).
		Register(postingHandler).
		Register(paymentHandler).
		Register(matchHandler)
	api.Setup()

	// System routes stay outside the tenant requirement
	system := router.NewRouter(engine, router.WithAPIVersion("v1"))
	system.Register(systemHandler)
	system.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// defaultTaxRegistry builds the jurisdiction tax schedules the service
// ships with. AE carries 5% standard VAT, SA carries 15%; both expose
// zero-rated, exempt and reverse-charge codes.
func defaultTaxRegistry() (*valueobject.TaxRegistry, error) {
	schedules := make([]valueobject.TaxSchedule, 0, 2)

	for _, j := range []struct {
		jurisdiction string
		standard     decimal.Decimal
	}{
		{"AE", decimal.NewFromFloat(0.05)},
		{"SA", decimal.NewFromFloat(0.15)},
	} {
		std, err := valueobject.NewTaxRate("STD", j.standard, j.jurisdiction, valueobject.TaxCategoryStandard)
		if err != nil {
			return nil, err
		}
		zero, err := valueobject.NewTaxRate("ZERO", decimal.Zero, j.jurisdiction, valueobject.TaxCategoryZero)
		if err != nil {
			return nil, err
		}
		exempt, err := valueobject.NewTaxRate("EXEMPT", decimal.Zero, j.jurisdiction, valueobject.TaxCategoryExempt)
		if err != nil {
			return nil, err
		}
		rc, err := valueobject.NewTaxRate("RC", decimal.Zero, j.jurisdiction, valueobject.TaxCategoryReverseCharge)
		if err != nil {
			return nil, err
		}
		schedule, err := valueobject.NewTaxSchedule(j.jurisdiction, std, zero, exempt, rc)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, schedule)
	}

	return valueobject.NewTaxRegistry(schedules...), nil
}
