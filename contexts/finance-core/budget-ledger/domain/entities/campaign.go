package entities

import (
	"time"

	"clipcash/contexts/finance-core/budget-ledger/domain/ledger"
)

type CampaignStatus string

const (
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
)

// Campaign is the budget-ledger projection of a campaign: the prepaid money
// buckets, the pricing terms that size reservations, and the status the
// coordinator flips as a side effect. BudgetVersion is the optimistic
// concurrency stamp; every committed budget mutation increments it.
type Campaign struct {
	CampaignID           string
	BrandID              string
	Title                string
	BudgetTotalCents     int64
	BudgetSpentCents     int64
	BudgetReservedCents  int64
	BudgetRemainingCents int64
	BudgetVersion        int64
	CpmRateCents         int64
	MaxPayoutCents       int64
	Status               CampaignStatus
	SubmissionCount      int
	TotalViews           int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
	CompletedAt          *time.Time
}

// BudgetState extracts the pure ledger value from the stored row.
func (c Campaign) BudgetState() ledger.BudgetState {
	return ledger.BudgetState{
		TotalCents:     c.BudgetTotalCents,
		SpentCents:     c.BudgetSpentCents,
		ReservedCents:  c.BudgetReservedCents,
		RemainingCents: c.BudgetRemainingCents,
	}
}

// ApplyBudgetState writes a ledger value back onto the row.
func (c *Campaign) ApplyBudgetState(state ledger.BudgetState) {
	c.BudgetTotalCents = state.TotalCents
	c.BudgetSpentCents = state.SpentCents
	c.BudgetReservedCents = state.ReservedCents
	c.BudgetRemainingCents = state.RemainingCents
}

func (c Campaign) IsTerminal() bool {
	return c.Status == CampaignStatusCompleted
}

func IsSupportedStatus(value CampaignStatus) bool {
	switch value {
	case CampaignStatusActive, CampaignStatusPaused, CampaignStatusCompleted:
		return true
	default:
		return false
	}
}
