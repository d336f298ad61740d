package entities

import "time"

type SubmissionStatus string

const (
	SubmissionStatusPending   SubmissionStatus = "pending"
	SubmissionStatusApproved  SubmissionStatus = "approved"
	SubmissionStatusPaid      SubmissionStatus = "paid"
	SubmissionStatusCancelled SubmissionStatus = "cancelled"
)

// Submission carries the two fields the ledger coordinator owns: the last
// view count that sized a reservation and the cents currently attributed to
// the submission. EarningsCents is the reservation record — the coordinator
// is its sole writer and release/spend amounts are sourced from it.
type Submission struct {
	SubmissionID  string
	CampaignID    string
	CreatorID     string
	Platform      string
	PostURL       string
	Status        SubmissionStatus
	ViewCount     int64
	EarningsCents int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
	PaidAt        *time.Time
}

// BudgetLog is one audit row per money movement.
type BudgetLog struct {
	LogID        string
	CampaignID   string
	SubmissionID string
	AmountDelta  int64
	Reason       string
	CreatedAt    time.Time
}

const (
	BudgetReasonSubmissionReserved  = "submission_reserved"
	BudgetReasonPayoutSpent         = "payout_spent"
	BudgetReasonReservationReleased = "reservation_released"
	BudgetReasonViewIncreaseReserve = "view_increase_reserve"
	BudgetReasonCompletionRefund    = "completion_refund"
)

// StateHistory records campaign status flips made by the coordinator.
type StateHistory struct {
	HistoryID    string
	CampaignID   string
	FromState    CampaignStatus
	ToState      CampaignStatus
	ChangedBy    string
	ChangeReason string
	CreatedAt    time.Time
}
