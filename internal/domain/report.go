package domain

// ============================================================
// Aggregate reports (derived, never persisted)
// ============================================================

// SummaryReport holds the headline totals for a transaction list.
// Balance == TotalIncome - TotalExpenses at the rounding precision used.
type SummaryReport struct {
	Balance       float64 `json:"balance"`
	TotalIncome   float64 `json:"total_income"`
	TotalExpenses float64 `json:"total_expenses"`
	Count         int     `json:"count"`
}

// SeriesBucket is one aggregation unit (a day or a month) in a time-series
// report. Balance is the bucket's own income minus expenses, not cumulative.
type SeriesBucket struct {
	Period   string  `json:"period"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Balance  float64 `json:"balance"`
}

// SeriesReport is an ordered time-bucketed series plus derived figures.
type SeriesReport struct {
	TimeFrame        string         `json:"time_frame"` // month, year
	Buckets          []SeriesBucket `json:"buckets"`
	AvgBucketExpense float64        `json:"avg_bucket_expense"`
	AvgBucketIncome  float64        `json:"avg_bucket_income"`
}

// Dashboard is the composite view-model for the SPA landing page.
type Dashboard struct {
	Summary     *SummaryReport `json:"summary"`
	Daily       *SeriesReport  `json:"daily"`
	Suggestions []string       `json:"suggestions"`
	Fallback    bool           `json:"fallback"`
}
