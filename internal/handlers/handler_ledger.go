package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/SscSPs/bahi_khata/internal/core/domain"
	portssvc "github.com/SscSPs/bahi_khata/internal/core/ports/services"
	"github.com/SscSPs/bahi_khata/internal/dto"
	"github.com/SscSPs/bahi_khata/internal/middleware"
	"github.com/gin-gonic/gin"
)

// ledgerHandler handles postings against a customer account.
type ledgerHandler struct {
	ledger portssvc.LedgerWriterSvc
}

func newLedgerHandler(ledger portssvc.LedgerWriterSvc) *ledgerHandler {
	return &ledgerHandler{ledger: ledger}
}

// registerLedgerRoutes registers the posting routes under /accounts/:id.
func registerLedgerRoutes(rg *gin.RouterGroup, ledger portssvc.LedgerWriterSvc) {
	h := newLedgerHandler(ledger)

	postings := rg.Group("/accounts/:id")
	{
		postings.POST("/sales", h.recordSale)
		postings.POST("/payments", h.recordPayment)
		postings.POST("/returns", h.recordReturn)
		postings.POST("/penalties", h.recordPenalty)
		postings.POST("/write-off", h.writeOff)
	}
}

type postFunc func(ctx context.Context, shopID, accountID, userID string) (*domain.Receipt, error)

// post runs one posting and answers with its receipt.
func (h *ledgerHandler) post(c *gin.Context, logger *slog.Logger, op string, fn postFunc) {
	accountID := c.Param("id")
	shopID, userID, ok := requestActors(c, logger)
	if !ok {
		return
	}
	logger = logger.With(slog.String("account_id", accountID), slog.String("op", op))

	receipt, err := fn(c.Request.Context(), shopID, accountID, userID)
	if err != nil {
		respondError(c, logger, err, "Failed to record "+op)
		return
	}

	logger.Info("Posted transaction",
		slog.String("transaction_id", receipt.Transaction.TransactionID),
		slog.String("amount", receipt.Transaction.Amount.StringFixed(2)),
		slog.String("risk_level", string(receipt.RiskLevel)))
	c.JSON(http.StatusCreated, dto.ToReceiptResponse(receipt))
}

// recordSale godoc
// @Summary Record a sale on credit
// @Tags ledger
// @Accept  json
// @Produce  json
// @Param   id path string true "Account ID"
// @Param   sale body dto.RecordSaleRequest true "Sale"
// @Success 201 {object} dto.ReceiptResponse
// @Failure 400 {object} ErrorResponse "Invalid amount or date"
// @Failure 404 {object} ErrorResponse "Account not found"
// @Failure 409 {object} ErrorResponse "Account busy, retry"
// @Failure 422 {object} ErrorResponse "Account blocked or credit limit exceeded"
// @Security BearerAuth
// @Router /accounts/{id}/sales [post]
func (h *ledgerHandler) recordSale(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.RecordSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for RecordSale", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	h.post(c, logger, "sale", func(ctx context.Context, shopID, accountID, userID string) (*domain.Receipt, error) {
		return h.ledger.RecordSale(ctx, shopID, accountID, req, userID)
	})
}

// recordPayment godoc
// @Summary Record a payment
// @Description Allocates the payment to interest, then penalty, then principal
// @Tags ledger
// @Accept  json
// @Produce  json
// @Param   id path string true "Account ID"
// @Param   payment body dto.RecordPaymentRequest true "Payment"
// @Success 201 {object} dto.ReceiptResponse
// @Failure 400 {object} ErrorResponse "Invalid amount or method"
// @Failure 404 {object} ErrorResponse "Account not found"
// @Failure 422 {object} ErrorResponse "Payment exceeds total due"
// @Security BearerAuth
// @Router /accounts/{id}/payments [post]
func (h *ledgerHandler) recordPayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for RecordPayment", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	h.post(c, logger, "payment", func(ctx context.Context, shopID, accountID, userID string) (*domain.Receipt, error) {
		return h.ledger.RecordPayment(ctx, shopID, accountID, req, userID)
	})
}

// recordReturn godoc
// @Summary Record returned goods
// @Tags ledger
// @Accept  json
// @Produce  json
// @Param   id path string true "Account ID"
// @Param   return body dto.RecordReturnRequest true "Return"
// @Success 201 {object} dto.ReceiptResponse
// @Failure 400 {object} ErrorResponse "Invalid amount"
// @Failure 404 {object} ErrorResponse "Account not found"
// @Security BearerAuth
// @Router /accounts/{id}/returns [post]
func (h *ledgerHandler) recordReturn(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.RecordReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for RecordReturn", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	h.post(c, logger, "return", func(ctx context.Context, shopID, accountID, userID string) (*domain.Receipt, error) {
		return h.ledger.RecordReturn(ctx, shopID, accountID, req, userID)
	})
}

// recordPenalty godoc
// @Summary Levy a late fee
// @Tags ledger
// @Accept  json
// @Produce  json
// @Param   id path string true "Account ID"
// @Param   penalty body dto.RecordPenaltyRequest true "Penalty"
// @Success 201 {object} dto.ReceiptResponse
// @Failure 400 {object} ErrorResponse "Invalid amount"
// @Failure 404 {object} ErrorResponse "Account not found"
// @Security BearerAuth
// @Router /accounts/{id}/penalties [post]
func (h *ledgerHandler) recordPenalty(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.RecordPenaltyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for RecordPenalty", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	h.post(c, logger, "penalty", func(ctx context.Context, shopID, accountID, userID string) (*domain.Receipt, error) {
		return h.ledger.RecordPenalty(ctx, shopID, accountID, req, userID)
	})
}

// writeOff godoc
// @Summary Write off the principal as bad debt
// @Description Moves the whole principal to BAD_DEBT, marks the account NPA and blocks further credit
// @Tags ledger
// @Produce  json
// @Param   id path string true "Account ID"
// @Success 201 {object} dto.ReceiptResponse
// @Failure 404 {object} ErrorResponse "Account not found"
// @Failure 422 {object} ErrorResponse "Nothing to write off"
// @Security BearerAuth
// @Router /accounts/{id}/write-off [post]
func (h *ledgerHandler) writeOff(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	h.post(c, logger, "write-off", func(ctx context.Context, shopID, accountID, userID string) (*domain.Receipt, error) {
		return h.ledger.RecordNpaWriteOff(ctx, shopID, accountID, userID)
	})
}
