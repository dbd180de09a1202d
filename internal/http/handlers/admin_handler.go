package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/studyhub/adserver/internal/http/dto"
	"github.com/studyhub/adserver/internal/middleware"
	"github.com/studyhub/adserver/internal/models"
	"github.com/studyhub/adserver/internal/repositories"
	"github.com/studyhub/adserver/internal/services"
	"go.uber.org/zap"
)

// AdminHandler covers the campaign review queue.
type AdminHandler struct {
	campaignService *services.CampaignService
	campaignRepo    *repositories.CampaignRepo
	log             *zap.Logger
}

func NewAdminHandler(campaignService *services.CampaignService, campaignRepo *repositories.CampaignRepo, log *zap.Logger) *AdminHandler {
	return &AdminHandler{campaignService: campaignService, campaignRepo: campaignRepo, log: log}
}

// GET /api/v1/admin/campaigns/pending
func (h *AdminHandler) ListPendingCampaigns(c *fiber.Ctx) error {
	status := models.CampaignStatusPendingReview
	campaigns, err := h.campaignRepo.List(c.Context(), repositories.CampaignFilter{
		Status: &status,
		Limit:  50,
	})
	if err != nil {
		h.log.Error("pending campaign list failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: campaigns})
}

// POST /api/v1/admin/campaigns/:id/approve
func (h *AdminHandler) ApproveCampaign(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid campaign id"})
	}
	if err := h.campaignService.Approve(c.Context(), id, middleware.GetUserID(c)); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

// POST /api/v1/admin/campaigns/:id/reject
func (h *AdminHandler) RejectCampaign(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid campaign id"})
	}
	if err := h.campaignService.Reject(c.Context(), id, middleware.GetUserID(c)); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}
