package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/studyhub/adserver/internal/billing"
	"github.com/studyhub/adserver/internal/config"
	"github.com/studyhub/adserver/internal/db"
	"github.com/studyhub/adserver/internal/events"
	apphttp "github.com/studyhub/adserver/internal/http"
	"github.com/studyhub/adserver/internal/http/handlers"
	"github.com/studyhub/adserver/internal/linkmeta"
	"github.com/studyhub/adserver/internal/ratelimit"
	"github.com/studyhub/adserver/internal/repositories"
	"github.com/studyhub/adserver/internal/services"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Rate limiter store: memory for single-instance, redis when scaled out.
	var limiter ratelimit.Store
	if cfg.RateLimitBackend == "redis" {
		limiter = ratelimit.NewRedisStore(rdb)
	} else {
		mem := ratelimit.NewMemoryStore(time.Minute)
		defer mem.Close()
		limiter = mem
	}

	// Repositories
	advertiserRepo := repositories.NewAdvertiserRepo(pool)
	campaignRepo := repositories.NewCampaignRepo(pool)
	creativeRepo := repositories.NewCreativeRepo(pool)
	trackerRepo := repositories.NewTrackerRepo(pool)
	transactionRepo := repositories.NewTransactionRepo(pool)
	metricsRepo := repositories.NewMetricsRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Services
	gateway := billing.NewGatewayClient(cfg.PaymentBaseURL, cfg.PaymentAPIKey, cfg.PaymentTimeout, log)
	depositService := billing.NewDepositService(advertiserRepo, transactionRepo, gateway, auditRepo, cfg.PaymentCurrency, log)
	reconciler := billing.NewReconciler(transactionRepo, auditRepo, publisher, log)
	linkFetcher := linkmeta.NewFetcher(cfg.LinkFetchTimeoutMS, cfg.LinkFetchMaxRetries, log)
	trackerService := services.NewTrackerService(trackerRepo, publisher, log)
	adService := services.NewAdService(creativeRepo, trackerService, log)
	campaignService := services.NewCampaignService(campaignRepo, creativeRepo, advertiserRepo, auditRepo, linkFetcher, publisher, cfg.DefaultCPCCents, log)

	// Handlers
	adsHandler := handlers.NewAdsHandler(adService, trackerService, log)
	campaignHandler := handlers.NewCampaignHandler(campaignService, metricsRepo, log)
	billingHandler := handlers.NewBillingHandler(depositService, advertiserRepo, transactionRepo, log)
	webhookHandler := handlers.NewWebhookHandler(reconciler, cfg.PaymentWebhookSecret, log)
	adminHandler := handlers.NewAdminHandler(campaignService, campaignRepo, log)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	// Start WS hub
	wsHub.Start(ctx)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, limiter, adsHandler, campaignHandler, billingHandler, webhookHandler, adminHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
