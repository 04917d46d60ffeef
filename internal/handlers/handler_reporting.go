package handlers

import (
	"log/slog"
	"net/http"
	"time"

	portssvc "github.com/SscSPs/bahi_khata/internal/core/ports/services"
	"github.com/SscSPs/bahi_khata/internal/dto"
	"github.com/SscSPs/bahi_khata/internal/middleware"
	"github.com/gin-gonic/gin"
)

// reportingHandler handles HTTP requests for the shop dashboards
type reportingHandler struct {
	reportingService portssvc.ReportingService
	loc              *time.Location
	now              func() time.Time
}

// newReportingHandler creates a new reportingHandler
func newReportingHandler(rs portssvc.ReportingService, loc *time.Location) *reportingHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &reportingHandler{
		reportingService: rs,
		loc:              loc,
		now:              time.Now,
	}
}

// registerReportingRoutes registers routes related to reports
func registerReportingRoutes(rg *gin.RouterGroup, reportingService portssvc.ReportingService, loc *time.Location) {
	h := newReportingHandler(reportingService, loc)

	reportingGroup := rg.Group("/reports")
	{
		reportingGroup.GET("/summary", h.getSummary)
		reportingGroup.GET("/villages", h.getVillages)
		reportingGroup.GET("/overdue", h.getOverdue)
		reportingGroup.GET("/payment-behaviour", h.getPaymentBehaviour)
		reportingGroup.GET("/transactions", h.getTransactionSummary)
	}
}

// bindParams reads the report query and resolves asOf, which defaults to today in the ledger timezone.
func (h *reportingHandler) bindParams(c *gin.Context, logger *slog.Logger) (dto.ReportParams, time.Time, bool) {
	var params dto.ReportParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind report query", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return params, time.Time{}, false
	}
	if params.AsOf == "" {
		params.AsOf = h.now().In(h.loc).Format(dto.DateLayout)
	}
	asOf, err := dto.ParseDate(params.AsOf)
	if err != nil {
		logger.Warn("Invalid asOf date format", slog.String("asOf", params.AsOf))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format. Use YYYY-MM-DD"})
		return params, time.Time{}, false
	}
	return params, asOf, true
}

// getSummary godoc
// @Summary Shop dashboard summary
// @Description Exposure, collections and risk distribution of the shop's accounts
// @Tags reports
// @Produce json
// @Param asOf query string false "Report date (YYYY-MM-DD)" default(today)
// @Success 200 {object} domain.DashboardSummary
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} ErrorResponse "Failed to generate report"
// @Security BearerAuth
// @Router /reports/summary [get]
func (h *reportingHandler) getSummary(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	shopID, _, ok := requestActors(c, logger)
	if !ok {
		return
	}
	_, asOf, ok := h.bindParams(c, logger)
	if !ok {
		return
	}

	summary, err := h.reportingService.DashboardSummary(c.Request.Context(), shopID, asOf)
	if err != nil {
		respondError(c, logger, err, "Failed to generate dashboard summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// getVillages godoc
// @Summary Village summaries
// @Tags reports
// @Produce json
// @Success 200 {object} dto.VillageSummaryResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} ErrorResponse "Failed to generate report"
// @Security BearerAuth
// @Router /reports/villages [get]
func (h *reportingHandler) getVillages(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	shopID, _, ok := requestActors(c, logger)
	if !ok {
		return
	}

	villages, err := h.reportingService.VillageSummaries(c.Request.Context(), shopID)
	if err != nil {
		respondError(c, logger, err, "Failed to generate village summaries")
		return
	}
	c.JSON(http.StatusOK, dto.VillageSummaryResponse{Villages: villages})
}

// getOverdue godoc
// @Summary Overdue accounts
// @Description Accounts at least minDays past their promised return date, oldest promise first
// @Tags reports
// @Produce json
// @Param asOf query string false "Report date (YYYY-MM-DD)" default(today)
// @Param minDays query int false "Minimum days overdue" default(15)
// @Param limit query int false "Maximum rows" default(50)
// @Success 200 {object} dto.OverdueResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Security BearerAuth
// @Router /reports/overdue [get]
func (h *reportingHandler) getOverdue(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	shopID, _, ok := requestActors(c, logger)
	if !ok {
		return
	}
	params, asOf, ok := h.bindParams(c, logger)
	if !ok {
		return
	}

	accounts, err := h.reportingService.OverdueAccounts(c.Request.Context(), shopID, asOf, params.MinDays, params.Limit)
	if err != nil {
		respondError(c, logger, err, "Failed to list overdue accounts")
		return
	}
	c.JSON(http.StatusOK, dto.OverdueResponse{AsOf: params.AsOf, MinDays: params.MinDays, Accounts: accounts})
}

// getPaymentBehaviour godoc
// @Summary Payment behaviour
// @Description Counts and shares of on-time payers, frequent delayers and high-debt accounts
// @Tags reports
// @Produce json
// @Success 200 {object} domain.PaymentBehaviour
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} ErrorResponse "Failed to generate report"
// @Security BearerAuth
// @Router /reports/payment-behaviour [get]
func (h *reportingHandler) getPaymentBehaviour(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	shopID, _, ok := requestActors(c, logger)
	if !ok {
		return
	}

	report, err := h.reportingService.PaymentBehaviour(c.Request.Context(), shopID)
	if err != nil {
		respondError(c, logger, err, "Failed to generate payment behaviour report")
		return
	}
	c.JSON(http.StatusOK, report)
}

// getTransactionSummary godoc
// @Summary Transaction summary
// @Description Postings by type over the last N calendar days, today included
// @Tags reports
// @Produce json
// @Param days query int false "Window in days" default(30)
// @Success 200 {object} domain.TransactionSummary
// @Failure 400 {object} map[string]string "Invalid input"
// @Security BearerAuth
// @Router /reports/transactions [get]
func (h *reportingHandler) getTransactionSummary(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	shopID, _, ok := requestActors(c, logger)
	if !ok {
		return
	}
	var params dto.TransactionSummaryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind transaction summary query", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	summary, err := h.reportingService.TransactionSummary(c.Request.Context(), shopID, params.Days)
	if err != nil {
		respondError(c, logger, err, "Failed to generate transaction summary")
		return
	}
	c.JSON(http.StatusOK, summary)
}
