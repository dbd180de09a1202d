package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/studyhub/adserver/internal/http/dto"
	"github.com/studyhub/adserver/internal/middleware"
	"github.com/studyhub/adserver/internal/models"
	"github.com/studyhub/adserver/internal/repositories"
	"go.uber.org/zap"
)

type DepositCreator interface {
	CreateDeposit(ctx context.Context, userID uuid.UUID, amountCents int64) (*models.AdTransaction, error)
}

type BillingHandler struct {
	deposits        DepositCreator
	advertiserRepo  *repositories.AdvertiserRepo
	transactionRepo *repositories.TransactionRepo
	log             *zap.Logger
}

func NewBillingHandler(
	deposits DepositCreator,
	advertiserRepo *repositories.AdvertiserRepo,
	transactionRepo *repositories.TransactionRepo,
	log *zap.Logger,
) *BillingHandler {
	return &BillingHandler{
		deposits:        deposits,
		advertiserRepo:  advertiserRepo,
		transactionRepo: transactionRepo,
		log:             log,
	}
}

// CreateDeposit starts a deposit and returns the hosted checkout URL.
// POST /api/v1/billing/deposits
func (h *BillingHandler) CreateDeposit(c *fiber.Ctx) error {
	var req dto.CreateDepositRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}
	if req.AmountCents <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "amount_cents must be positive"})
	}

	userID := middleware.GetUserID(c)
	txn, err := h.deposits.CreateDeposit(c.Context(), userID, req.AmountCents)
	if err != nil {
		h.log.Error("deposit creation failed", zap.String("user_id", userID.String()), zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Error: "deposit could not be created"})
	}

	checkoutURL := ""
	if txn.CheckoutURL != nil {
		checkoutURL = *txn.CheckoutURL
	}
	return c.Status(fiber.StatusCreated).JSON(dto.DepositResponse{
		TransactionID: txn.ID.String(),
		CheckoutURL:   checkoutURL,
		Status:        txn.Status,
	})
}

// GET /api/v1/billing/balance
func (h *BillingHandler) GetBalance(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	profile, err := h.advertiserRepo.GetByUserID(c.Context(), userID)
	if err != nil {
		h.log.Error("balance lookup failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	if profile == nil {
		// No profile yet — zero balance, not an error.
		return c.JSON(dto.BalanceResponse{BalanceCents: 0})
	}
	return c.JSON(dto.BalanceResponse{BalanceCents: profile.BalanceCents})
}

// GET /api/v1/billing/transactions
func (h *BillingHandler) ListTransactions(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	profile, err := h.advertiserRepo.GetByUserID(c.Context(), userID)
	if err != nil {
		h.log.Error("advertiser lookup failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	if profile == nil {
		return c.JSON(dto.SuccessResponse{OK: true, Data: []models.AdTransaction{}})
	}

	limit, offset := 20, 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}

	txns, err := h.transactionRepo.ListByAdvertiser(c.Context(), profile.ID, limit, offset)
	if err != nil {
		h.log.Error("transaction list failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: txns})
}
