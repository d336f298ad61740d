package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ReserveBudgetRequest struct {
	SubmissionID string `json:"submission_id"`
	ViewCount    int64  `json:"view_count"`
}

type ReserveBudgetResponse struct {
	ReservedCents int64  `json:"reserved_cents"`
	AutoCompleted bool   `json:"auto_completed"`
	Status        string `json:"status"`
}

type SpendBudgetRequest struct {
	SubmissionID string `json:"submission_id"`
	AmountCents  int64  `json:"amount_cents"`
}

type SpendBudgetResponse struct {
	SpentCents int64 `json:"spent_cents"`
}

type ViewIncreaseRequest struct {
	SubmissionID string `json:"submission_id"`
	OldViewCount int64  `json:"old_view_count"`
	NewViewCount int64  `json:"new_view_count"`
}

type ViewIncreaseResponse struct {
	Changed          bool   `json:"changed"`
	OldEarningsCents int64  `json:"old_earnings_cents"`
	NewEarningsCents int64  `json:"new_earnings_cents"`
	AutoCompleted    bool   `json:"auto_completed"`
	Status           string `json:"status"`
}

type ReleaseBudgetRequest struct {
	SubmissionID string `json:"submission_id"`
	Reason       string `json:"reason"`
}

type ReleaseBudgetResponse struct {
	ReleasedCents int64 `json:"released_cents"`
}

type CompleteCampaignRequest struct {
	Reason string `json:"reason"`
}

type CompleteCampaignResponse struct {
	RefundCents int64 `json:"refund_cents"`
}

type UtilizationDTO struct {
	SpentPct     float64 `json:"spent_pct"`
	ReservedPct  float64 `json:"reserved_pct"`
	RemainingPct float64 `json:"remaining_pct"`
}

type BudgetResponse struct {
	CampaignID           string         `json:"campaign_id"`
	BudgetTotalCents     int64          `json:"budget_total_cents"`
	BudgetSpentCents     int64          `json:"budget_spent_cents"`
	BudgetReservedCents  int64          `json:"budget_reserved_cents"`
	BudgetRemainingCents int64          `json:"budget_remaining_cents"`
	Status               string         `json:"status"`
	Utilization          UtilizationDTO `json:"utilization"`
}

type BudgetLogDTO struct {
	LogID        string `json:"log_id"`
	SubmissionID string `json:"submission_id,omitempty"`
	AmountDelta  int64  `json:"amount_delta"`
	Reason       string `json:"reason"`
	CreatedAt    string `json:"created_at"`
}

type ListBudgetLogResponse struct {
	Items []BudgetLogDTO `json:"items"`
}
