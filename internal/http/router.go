package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/studyhub/adserver/internal/config"
	"github.com/studyhub/adserver/internal/http/handlers"
	"github.com/studyhub/adserver/internal/middleware"
	"github.com/studyhub/adserver/internal/ratelimit"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	limiter ratelimit.Store,
	adsHandler *handlers.AdsHandler,
	campaignHandler *handlers.CampaignHandler,
	billingHandler *handlers.BillingHandler,
	webhookHandler *handlers.WebhookHandler,
	adminHandler *handlers.AdminHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Payment webhook: authenticated by signature, never rate limited —
	// dropping provider redeliveries would only delay settlement.
	app.Post("/webhooks/payment", webhookHandler.HandlePaymentWebhook)

	// Click redirect: tight per-IP limit, then track-and-redirect.
	app.Get("/ad-click",
		middleware.RateLimitMiddleware(limiter, middleware.ScopeClick, cfg.ClickRateLimit, time.Minute),
		adsHandler.HandleClick,
	)

	api := app.Group("/api/v1")
	api.Use(middleware.RateLimitMiddleware(limiter, middleware.ScopeGlobal, cfg.GlobalRateLimit, time.Minute))

	// Ad slots (public, consumed by page renders)
	api.Get("/ads/feed", adsHandler.GetFeedAds)
	api.Get("/ads/sidebar", adsHandler.GetSidebarAd)
	api.Get("/ads/subject/:subject", adsHandler.GetSubjectAds)

	// Advertiser endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	protected.Post("/billing/deposits", billingHandler.CreateDeposit)
	protected.Get("/billing/balance", billingHandler.GetBalance)
	protected.Get("/billing/transactions", billingHandler.ListTransactions)

	protected.Post("/campaigns", campaignHandler.CreateCampaign)
	protected.Get("/campaigns", campaignHandler.ListCampaigns)
	protected.Get("/campaigns/:id", campaignHandler.GetCampaign)
	protected.Put("/campaigns/:id", campaignHandler.UpdateCampaign)
	protected.Post("/campaigns/:id/pause", campaignHandler.PauseCampaign)
	protected.Post("/campaigns/:id/resume", campaignHandler.ResumeCampaign)
	protected.Get("/campaigns/:id/metrics", campaignHandler.GetCampaignMetrics)
	protected.Post("/campaigns/:id/creatives", campaignHandler.CreateCreative)
	protected.Get("/campaigns/:id/creatives", campaignHandler.ListCreatives)
	protected.Delete("/campaigns/:id/creatives/:creativeId", campaignHandler.DeleteCreative)

	// Admin review queue
	admin := protected.Group("/admin", middleware.AdminMiddleware(cfg))
	admin.Get("/campaigns/pending", adminHandler.ListPendingCampaigns)
	admin.Post("/campaigns/:id/approve", adminHandler.ApproveCampaign)
	admin.Post("/campaigns/:id/reject", adminHandler.RejectCampaign)

	// WebSocket live stats
	app.Use("/ws/stats", handlers.WSUpgradeMiddleware())
	app.Get("/ws/stats", websocket.New(wsHub.HandleWS))
}
