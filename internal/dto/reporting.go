package dto

import "github.com/SscSPs/bahi_khata/internal/core/domain"

// RunAccrualRequest triggers accrual for one calendar date.
type RunAccrualRequest struct {
	AsOf string `json:"asOf" binding:"required,datetime=2006-01-02"`
}

// ListAccrualRunsParams defines query parameters for run history.
type ListAccrualRunsParams struct {
	Limit int `form:"limit,default=30" binding:"min=1,max=365"`
}

// ReportParams is shared by the report endpoints.
type ReportParams struct {
	AsOf    string `form:"asOf" binding:"omitempty,datetime=2006-01-02"`
	MinDays int    `form:"minDays,default=15" binding:"min=0,max=3650"`
	Limit   int    `form:"limit,default=50" binding:"min=1,max=500"`
}

// VillageSummaryResponse wraps the village list.
type VillageSummaryResponse struct {
	Villages []domain.VillageSummary `json:"villages"`
}

// OverdueResponse wraps the overdue list.
type OverdueResponse struct {
	AsOf     string                  `json:"asOf"`
	MinDays  int                     `json:"minDays"`
	Accounts []domain.OverdueAccount `json:"accounts"`
}

// TransactionSummaryParams selects the window of the transaction summary.
type TransactionSummaryParams struct {
	Days int `form:"days,default=30" binding:"min=1,max=366"`
}
