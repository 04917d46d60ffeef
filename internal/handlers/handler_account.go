package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/bahi_khata/internal/core/ports/services"
	"github.com/SscSPs/bahi_khata/internal/dto"
	"github.com/SscSPs/bahi_khata/internal/middleware"
	"github.com/SscSPs/bahi_khata/internal/utils/upi"
	"github.com/gin-gonic/gin"
)

// PayeeConfig names the shop's UPI collection address.
type PayeeConfig struct {
	VPA  string
	Name string
}

// accountHandler handles HTTP requests related to customer accounts.
type accountHandler struct {
	ledger portssvc.LedgerSvcFacade
	payee  PayeeConfig
}

// newAccountHandler creates a new accountHandler.
func newAccountHandler(ledger portssvc.LedgerSvcFacade, payee PayeeConfig) *accountHandler {
	return &accountHandler{
		ledger: ledger,
		payee:  payee,
	}
}

// registerAccountRoutes registers routes related to accounts.
func registerAccountRoutes(rg *gin.RouterGroup, ledger portssvc.LedgerSvcFacade, payee PayeeConfig) {
	h := newAccountHandler(ledger, payee)

	accounts := rg.Group("/accounts")
	{
		accounts.POST("", h.openAccount)
		accounts.GET("", h.listAccounts)
		accounts.GET("/:id", h.getAccount)
		accounts.GET("/:id/statement", h.getStatement)
		accounts.GET("/:id/verify", h.verifyAccount)
		accounts.GET("/:id/payment-qr", h.paymentQR)
		accounts.PUT("/:id/customer", h.updateCustomer)
		accounts.PUT("/:id/manual-flag", h.setManualFlag)
		accounts.PUT("/:id/interest-freeze", h.setInterestFreeze)
		accounts.POST("/:id/close", h.closeAccount)
	}
}

// openAccount godoc
// @Summary Open a customer account
// @Description Onboards a customer of the authenticated shop with an empty ledger
// @Tags accounts
// @Accept  json
// @Produce  json
// @Param   account body dto.OpenAccountRequest true "Customer details"
// @Success 201 {object} dto.AccountResponse
// @Failure 400 {object} ErrorResponse "Invalid input format or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 409 {object} ErrorResponse "Customer already has an account"
// @Security BearerAuth
// @Router /accounts [post]
func (h *accountHandler) openAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.OpenAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for OpenAccount", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	shopID, userID, ok := requestActors(c, logger)
	if !ok {
		return
	}
	logger.Info("Received request to open account", slog.String("customer_id", req.CustomerID), slog.String("village", req.Village))

	acc, err := h.ledger.OpenAccount(c.Request.Context(), shopID, req, userID)
	if err != nil {
		respondError(c, logger, err, "Failed to open account")
		return
	}

	logger.Info("Account opened successfully", slog.String("account_id", acc.AccountID))
	c.JSON(http.StatusCreated, dto.ToAccountResponse(acc))
}

// listAccounts godoc
// @Summary List the shop's accounts
// @Description Retrieves a page of customer accounts, oldest first
// @Tags accounts
// @Produce  json
// @Param   limit query int false "Limit number of results" default(20)
// @Param   offset query int false "Offset for pagination" default(0)
// @Success 200 {object} dto.ListAccountsResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} ErrorResponse "Failed to list accounts"
// @Security BearerAuth
// @Router /accounts [get]
func (h *accountHandler) listAccounts(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	shopID, _, ok := requestActors(c, logger)
	if !ok {
		return
	}

	var params dto.ListAccountsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for ListAccounts", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	accounts, err := h.ledger.ListAccounts(c.Request.Context(), shopID, params.Limit, params.Offset)
	if err != nil {
		respondError(c, logger, err, "Failed to list accounts")
		return
	}

	logger.Debug("Accounts listed successfully", slog.Int("count", len(accounts)))
	c.JSON(http.StatusOK, dto.ListAccountsResponse{
		Accounts: dto.ToListAccountResponse(accounts),
		Limit:    params.Limit,
		Offset:   params.Offset,
	})
}

// getAccount godoc
// @Summary Get an account snapshot
// @Description Balances, flags and the current risk assessment of an account
// @Tags accounts
// @Produce  json
// @Param   id path string true "Account ID"
// @Success 200 {object} dto.AccountSnapshotResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} ErrorResponse "Account not found"
// @Security BearerAuth
// @Router /accounts/{id} [get]
func (h *accountHandler) getAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("id")
	shopID, _, ok := requestActors(c, logger)
	if !ok {
		return
	}
	logger = logger.With(slog.String("account_id", accountID))

	snap, err := h.ledger.GetAccountSnapshot(c.Request.Context(), shopID, accountID)
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve account")
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountSnapshotResponse(snap))
}

// getStatement godoc
// @Summary Get an account statement
// @Description Transactions oldest first. Without limit and nextToken the whole history is returned and verified against the balances.
// @Tags accounts
// @Produce  json
// @Param   id path string true "Account ID"
// @Param   limit query int false "Page size"
// @Param   nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.StatementResponse
// @Failure 400 {object} ErrorResponse "Invalid query parameters"
// @Failure 404 {object} ErrorResponse "Account not found"
// @Failure 423 {object} ErrorResponse "Ledger needs reconciliation"
// @Security BearerAuth
// @Router /accounts/{id}/statement [get]
func (h *accountHandler) getStatement(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("id")
	shopID, _, ok := requestActors(c, logger)
	if !ok {
		return
	}

	var params dto.StatementParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for GetStatement", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}
	var token *string
	if params.NextToken != "" {
		token = &params.NextToken
	}

	stmt, err := h.ledger.GetStatement(c.Request.Context(), shopID, accountID, params.Limit, token)
	if err != nil {
		respondError(c, logger.With(slog.String("account_id", accountID)), err, "Failed to retrieve statement")
		return
	}
	c.JSON(http.StatusOK, dto.ToStatementResponse(stmt))
}

// verifyAccount godoc
// @Summary Verify an account ledger
// @Description Replays every entry and compares the result with the cached balances. A mismatch halts the account.
// @Tags accounts
// @Produce  json
// @Param   id path string true "Account ID"
// @Success 200 {object} domain.Verification
// @Failure 404 {object} ErrorResponse "Account not found"
// @Security BearerAuth
// @Router /accounts/{id}/verify [get]
func (h *accountHandler) verifyAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("id")
	shopID, _, ok := requestActors(c, logger)
	if !ok {
		return
	}

	v, err := h.ledger.VerifyAccount(c.Request.Context(), shopID, accountID)
	if err != nil {
		respondError(c, logger.With(slog.String("account_id", accountID)), err, "Failed to verify account")
		return
	}
	if !v.Consistent {
		logger.Warn("Account failed verification", slog.String("account_id", accountID))
	}
	c.JSON(http.StatusOK, v)
}

// paymentQR godoc
// @Summary Payment QR code
// @Description Renders a UPI intent for the account's total due as a PNG QR code
// @Tags accounts
// @Produce  png
// @Param   id path string true "Account ID"
// @Param   size query int false "Image size in pixels" default(256)
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse "Account not found"
// @Failure 503 {object} map[string]string "UPI collection not configured"
// @Security BearerAuth
// @Router /accounts/{id}/payment-qr [get]
func (h *accountHandler) paymentQR(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("id")
	shopID, _, ok := requestActors(c, logger)
	if !ok {
		return
	}

	var params struct {
		Size int `form:"size,default=256" binding:"min=64,max=1024"`
	}
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	snap, err := h.ledger.GetAccountSnapshot(c.Request.Context(), shopID, accountID)
	if err != nil {
		respondError(c, logger, err, "Failed to retrieve account")
		return
	}

	intent := upi.Intent{
		VPA:    h.payee.VPA,
		Payee:  h.payee.Name,
		Amount: snap.TotalDue,
		Note:   "Khata " + snap.Account.CustomerName,
	}
	png, err := intent.QRCodePNG(params.Size)
	if err != nil {
		if errors.Is(err, upi.ErrPayeeNotConfigured) {
			logger.Warn("Payment QR requested without UPI_VPA configured")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "UPI collection is not configured"})
			return
		}
		logger.Error("Failed to render payment QR", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render payment QR"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// setManualFlag godoc
// @Summary Set the operator flag
// @Description Marks a customer GOOD, DO_NOT_CREDIT or NPA_OVERRIDE, or clears the flag with NONE
// @Tags accounts
// @Accept  json
// @Produce  json
// @Param   id path string true "Account ID"
// @Param   flag body dto.SetManualFlagRequest true "Flag"
// @Success 200 {object} dto.AccountSnapshotResponse
// @Failure 400 {object} ErrorResponse "Invalid flag"
// @Failure 404 {object} ErrorResponse "Account not found"
// @Security BearerAuth
// @Router /accounts/{id}/manual-flag [put]
func (h *accountHandler) setManualFlag(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("id")
	var req dto.SetManualFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for SetManualFlag", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	shopID, userID, ok := requestActors(c, logger)
	if !ok {
		return
	}

	snap, err := h.ledger.SetManualFlag(c.Request.Context(), shopID, accountID, req, userID)
	if err != nil {
		respondError(c, logger.With(slog.String("account_id", accountID)), err, "Failed to set manual flag")
		return
	}
	logger.Info("Manual flag set", slog.String("account_id", accountID), slog.String("flag", string(req.Flag)))
	c.JSON(http.StatusOK, dto.ToAccountSnapshotResponse(snap))
}

// updateCustomer godoc
// @Summary Update customer details
// @Description Corrects the name, phone or village on an account. Omitted fields are kept.
// @Tags accounts
// @Accept  json
// @Produce  json
// @Param   id path string true "Account ID"
// @Param   customer body dto.UpdateCustomerRequest true "Customer details"
// @Success 200 {object} dto.AccountResponse
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Failure 404 {object} ErrorResponse "Account not found"
// @Security BearerAuth
// @Router /accounts/{id}/customer [put]
func (h *accountHandler) updateCustomer(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("id")
	var req dto.UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateCustomer", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	shopID, userID, ok := requestActors(c, logger)
	if !ok {
		return
	}

	acc, err := h.ledger.UpdateCustomer(c.Request.Context(), shopID, accountID, req, userID)
	if err != nil {
		respondError(c, logger.With(slog.String("account_id", accountID)), err, "Failed to update customer")
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountResponse(acc))
}

// setInterestFreeze godoc
// @Summary Freeze or resume interest
// @Tags accounts
// @Accept  json
// @Produce  json
// @Param   id path string true "Account ID"
// @Param   freeze body dto.SetInterestFreezeRequest true "Freeze"
// @Success 200 {object} dto.AccountSnapshotResponse
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Failure 404 {object} ErrorResponse "Account not found"
// @Security BearerAuth
// @Router /accounts/{id}/interest-freeze [put]
func (h *accountHandler) setInterestFreeze(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("id")
	var req dto.SetInterestFreezeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for SetInterestFreeze", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	shopID, userID, ok := requestActors(c, logger)
	if !ok {
		return
	}

	snap, err := h.ledger.SetInterestFreeze(c.Request.Context(), shopID, accountID, req, userID)
	if err != nil {
		respondError(c, logger.With(slog.String("account_id", accountID)), err, "Failed to update interest freeze")
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountSnapshotResponse(snap))
}

// closeAccount godoc
// @Summary Close a settled account
// @Tags accounts
// @Produce  json
// @Param   id path string true "Account ID"
// @Success 200 {object} dto.AccountResponse
// @Failure 400 {object} ErrorResponse "Account still has dues or advance"
// @Failure 404 {object} ErrorResponse "Account not found"
// @Security BearerAuth
// @Router /accounts/{id}/close [post]
func (h *accountHandler) closeAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("id")
	shopID, userID, ok := requestActors(c, logger)
	if !ok {
		return
	}

	acc, err := h.ledger.CloseAccount(c.Request.Context(), shopID, accountID, userID)
	if err != nil {
		respondError(c, logger.With(slog.String("account_id", accountID)), err, "Failed to close account")
		return
	}
	logger.Info("Account closed", slog.String("account_id", accountID))
	c.JSON(http.StatusOK, dto.ToAccountResponse(acc))
}
