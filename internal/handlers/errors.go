package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/bahi_khata/internal/apperrors"
	"github.com/SscSPs/bahi_khata/internal/middleware"
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error       string                 `json:"error"`
	Code        string                 `json:"code"`
	Retryable   bool                   `json:"retryable,omitempty"`
	Outstanding *apperrors.Outstanding `json:"outstanding,omitempty"`
}

var errorKinds = []struct {
	err    error
	status int
	code   string
}{
	{apperrors.ErrLedgerCorrupted, http.StatusLocked, "LEDGER_CORRUPTED"},
	{apperrors.ErrConcurrencyTimeout, http.StatusConflict, "CONCURRENCY_TIMEOUT"},
	{apperrors.ErrConflict, http.StatusConflict, "CONFLICT"},
	{apperrors.ErrAccountNotFound, http.StatusNotFound, "ACCOUNT_NOT_FOUND"},
	{apperrors.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{apperrors.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
	{apperrors.ErrValidation, http.StatusBadRequest, "VALIDATION"},
	{apperrors.ErrDuplicate, http.StatusConflict, "DUPLICATE"},
	{apperrors.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{apperrors.ErrAccountBlocked, http.StatusUnprocessableEntity, "ACCOUNT_BLOCKED"},
	{apperrors.ErrCreditLimitExceeded, http.StatusUnprocessableEntity, "CREDIT_LIMIT_EXCEEDED"},
	{apperrors.ErrOverpaymentNotAllowed, http.StatusUnprocessableEntity, "OVERPAYMENT_NOT_ALLOWED"},
	{apperrors.ErrNothingToWriteOff, http.StatusUnprocessableEntity, "NOTHING_TO_WRITE_OFF"},
	{apperrors.ErrAccountClosed, http.StatusUnprocessableEntity, "ACCOUNT_CLOSED"},
	{apperrors.ErrAccrualAlreadyApplied, http.StatusConflict, "ACCRUAL_ALREADY_APPLIED"},
}

// errorStatus maps an error to its HTTP status and stable code.
func errorStatus(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, k.code
		}
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Code != 0 {
		return appErr.Code, "INTERNAL"
	}
	return http.StatusInternalServerError, "INTERNAL"
}

// respondError writes err as JSON. Server errors hide their cause behind fallback.
func respondError(c *gin.Context, logger *slog.Logger, err error, fallback string) {
	status, code := errorStatus(err)
	body := ErrorResponse{Error: err.Error(), Code: code, Retryable: apperrors.IsTransient(err)}

	var ledgerErr *apperrors.LedgerError
	if errors.As(err, &ledgerErr) {
		out := ledgerErr.Outstanding
		body.Outstanding = &out
	}

	if status >= http.StatusInternalServerError {
		logger.Error(fallback, slog.String("error", err.Error()))
		body.Error = fallback
		body.Outstanding = nil
	} else {
		logger.Warn(fallback, slog.String("error", err.Error()), slog.String("code", code))
	}
	if body.Retryable {
		c.Header("Retry-After", "1")
	}
	c.JSON(status, body)
}

// requestActors returns the authenticated shop and the operator acting for it.
func requestActors(c *gin.Context, logger *slog.Logger) (shopID, userID string, ok bool) {
	shopID, ok = middleware.GetShopIDFromContext(c)
	if !ok {
		logger.Error("Shop ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", "", false
	}
	userID, _ = middleware.GetUserIDFromContext(c)
	return shopID, userID, true
}
