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

type accrualHandler struct {
	accrual portssvc.AccrualSvc
	loc     *time.Location
}

func registerAccrualRoutes(rg *gin.RouterGroup, accrual portssvc.AccrualSvc, loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	h := &accrualHandler{accrual: accrual, loc: loc}

	runs := rg.Group("/accrual/runs")
	{
		runs.POST("", middleware.RequireRole(middleware.RoleAdmin), h.runAccrual)
		runs.GET("", h.listRuns)
	}
}

// runAccrual godoc
// @Summary Run daily interest accrual
// @Description Accrues interest up to the given date on every eligible account, catching up missed days. Repeating a date changes nothing. Dates after today are rejected. Requires the admin role.
// @Tags accrual
// @Accept  json
// @Produce  json
// @Param   run body dto.RunAccrualRequest true "Accrual date"
// @Success 200 {object} domain.AccrualRun
// @Failure 400 {object} map[string]string "Invalid or future date"
// @Failure 403 {object} map[string]string "Admin role required"
// @Failure 500 {object} ErrorResponse "Accrual failed"
// @Security BearerAuth
// @Router /accrual/runs [post]
func (h *accrualHandler) runAccrual(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.RunAccrualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for RunAccrual", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	date, err := dto.ParseDate(req.AsOf)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format. Use YYYY-MM-DD"})
		return
	}
	asOf := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, h.loc)
	_, userID, ok := requestActors(c, logger)
	if !ok {
		return
	}
	logger.Info("Manual accrual run requested", slog.String("as_of", req.AsOf), slog.String("requested_by", userID))

	run, err := h.accrual.RunDailyAccrual(c.Request.Context(), asOf)
	if err != nil {
		respondError(c, logger, err, "Accrual run failed")
		return
	}
	c.JSON(http.StatusOK, run)
}

// listRuns godoc
// @Summary List accrual runs
// @Tags accrual
// @Produce  json
// @Param   limit query int false "Number of runs" default(30)
// @Success 200 {array} domain.AccrualRun
// @Security BearerAuth
// @Router /accrual/runs [get]
func (h *accrualHandler) listRuns(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var params dto.ListAccrualRunsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	runs, err := h.accrual.ListAccrualRuns(c.Request.Context(), params.Limit)
	if err != nil {
		respondError(c, logger, err, "Failed to list accrual runs")
		return
	}
	c.JSON(http.StatusOK, runs)
}
