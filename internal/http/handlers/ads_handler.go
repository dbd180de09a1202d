package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/studyhub/adserver/internal/http/dto"
	"github.com/studyhub/adserver/internal/linkmeta"
	"github.com/studyhub/adserver/internal/models"
	"go.uber.org/zap"
)

// AdPicker selects creatives for a slot.
type AdPicker interface {
	SelectForFeed(ctx context.Context, count int) ([]models.AdWithCampaign, error)
	SelectForSidebar(ctx context.Context) ([]models.AdWithCampaign, error)
	SelectForSubject(ctx context.Context, subject string, count int) ([]models.AdWithCampaign, error)
}

// ClickTracker records a click. Its failure is best-effort by contract.
type ClickTracker interface {
	TrackClick(ctx context.Context, creativeID, campaignID uuid.UUID) error
}

type AdsHandler struct {
	ads     AdPicker
	tracker ClickTracker
	log     *zap.Logger
}

func NewAdsHandler(ads AdPicker, tracker ClickTracker, log *zap.Logger) *AdsHandler {
	return &AdsHandler{ads: ads, tracker: tracker, log: log}
}

// GetFeedAds serves ads for the feed slot. An empty list is a normal
// response: no ad slot is mandatory.
// GET /api/v1/ads/feed?count=
func (h *AdsHandler) GetFeedAds(c *fiber.Ctx) error {
	count := 0
	if v := c.Query("count"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			count = n
		}
	}

	ads, err := h.ads.SelectForFeed(c.Context(), count)
	if err != nil {
		// Pages degrade to "no ad this load" rather than erroring.
		h.log.Error("feed ad selection failed", zap.Error(err))
		return c.JSON(dto.SuccessResponse{OK: true, Data: []models.AdWithCampaign{}})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: ads})
}

// GET /api/v1/ads/sidebar
func (h *AdsHandler) GetSidebarAd(c *fiber.Ctx) error {
	ads, err := h.ads.SelectForSidebar(c.Context())
	if err != nil {
		h.log.Error("sidebar ad selection failed", zap.Error(err))
		return c.JSON(dto.SuccessResponse{OK: true, Data: []models.AdWithCampaign{}})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: ads})
}

// GET /api/v1/ads/subject/:subject?count=
func (h *AdsHandler) GetSubjectAds(c *fiber.Ctx) error {
	subject := c.Params("subject")
	count := 0
	if v := c.Query("count"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			count = n
		}
	}

	ads, err := h.ads.SelectForSubject(c.Context(), subject, count)
	if err != nil {
		h.log.Error("subject ad selection failed", zap.String("subject", subject), zap.Error(err))
		return c.JSON(dto.SuccessResponse{OK: true, Data: []models.AdWithCampaign{}})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: ads})
}

// HandleClick tracks a click and redirects to the destination. The
// redirect must always go out once params validate — accounting failures
// are logged and swallowed so advertiser billing can never break a user's
// navigation.
// GET /ad-click?adId=&campaignId=&dest=
func (h *AdsHandler) HandleClick(c *fiber.Ctx) error {
	adID, err := uuid.Parse(c.Query("adId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "adId is required"})
	}
	campaignID, err := uuid.Parse(c.Query("campaignId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "campaignId is required"})
	}
	dest := c.Query("dest")
	if dest == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "dest is required"})
	}
	if err := linkmeta.ValidateDestination(dest); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "dest must be an absolute http(s) url"})
	}

	if err := h.tracker.TrackClick(c.Context(), adID, campaignID); err != nil {
		h.log.Warn("click tracking failed, redirecting anyway",
			zap.String("creative_id", adID.String()),
			zap.Error(err),
		)
	}

	return c.Redirect(dest, fiber.StatusFound)
}
