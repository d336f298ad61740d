package ledger

import "errors"

// BudgetState is the aggregate money state of one campaign in integer cents.
// Invariant: TotalCents == SpentCents + ReservedCents + RemainingCents, with
// every field non-negative. Transitions are pure: a rejected transition
// returns an error and the caller's state is untouched.
type BudgetState struct {
	TotalCents     int64
	SpentCents     int64
	ReservedCents  int64
	RemainingCents int64
}

var (
	ErrInvalidAmount       = errors.New("ledger amount must be positive")
	ErrInsufficientBudget  = errors.New("reservation exceeds remaining budget")
	ErrInsufficientReserve = errors.New("spend exceeds reserved budget")
	ErrOverRelease         = errors.New("release exceeds reserved budget")
	ErrInvariantViolated   = errors.New("budget ledger invariant violated")
)

// New returns the activation state for a freshly funded campaign: the whole
// budget is remaining, nothing spent or reserved.
func New(totalCents int64) BudgetState {
	return BudgetState{
		TotalCents:     totalCents,
		RemainingCents: totalCents,
	}
}

// Check verifies the ledger invariant.
func (s BudgetState) Check() error {
	if s.TotalCents < 0 || s.SpentCents < 0 || s.ReservedCents < 0 || s.RemainingCents < 0 {
		return ErrInvariantViolated
	}
	if s.TotalCents != s.SpentCents+s.ReservedCents+s.RemainingCents {
		return ErrInvariantViolated
	}
	return nil
}

// Reserve earmarks amount for an approved submission, moving it from
// remaining to reserved.
func Reserve(state BudgetState, amountCents int64) (BudgetState, error) {
	if amountCents <= 0 {
		return state, ErrInvalidAmount
	}
	if amountCents > state.RemainingCents {
		return state, ErrInsufficientBudget
	}
	next := state
	next.ReservedCents += amountCents
	next.RemainingCents -= amountCents
	if err := next.Check(); err != nil {
		return state, err
	}
	return next, nil
}

// Spend moves amount from reserved to spent once a payout transfer is
// confirmed. Remaining is untouched.
func Spend(state BudgetState, amountCents int64) (BudgetState, error) {
	if amountCents <= 0 {
		return state, ErrInvalidAmount
	}
	if amountCents > state.ReservedCents {
		return state, ErrInsufficientReserve
	}
	next := state
	next.ReservedCents -= amountCents
	next.SpentCents += amountCents
	if err := next.Check(); err != nil {
		return state, err
	}
	return next, nil
}

// Release walks back a reservation, returning amount from reserved to
// remaining. Usable any number of times before a submission is spent.
func Release(state BudgetState, amountCents int64) (BudgetState, error) {
	if amountCents <= 0 {
		return state, ErrInvalidAmount
	}
	if amountCents > state.ReservedCents {
		return state, ErrOverRelease
	}
	next := state
	next.ReservedCents -= amountCents
	next.RemainingCents += amountCents
	if err := next.Check(); err != nil {
		return state, err
	}
	return next, nil
}

// RefundOnCompletion re-baselines the ledger at campaign completion. The
// refund owed to the brand is everything not irrevocably spent, and the new
// total shrinks to what was actually paid out.
//
// After this transition TotalCents no longer means "what the brand paid" but
// "what creators ultimately earned". Callers that need the original figure
// for historical utilization must snapshot the state before completing.
func RefundOnCompletion(state BudgetState) (int64, BudgetState) {
	refund := state.RemainingCents + state.ReservedCents
	next := BudgetState{
		TotalCents: state.SpentCents,
		SpentCents: state.SpentCents,
	}
	return refund, next
}

// ShouldAutoComplete reports whether the remaining budget can no longer fund
// one more maximal-size submission. The decision to flip campaign status
// belongs to the caller.
func ShouldAutoComplete(state BudgetState, maxPayoutPerSubmissionCents int64) bool {
	return state.RemainingCents < maxPayoutPerSubmissionCents
}

// Utilization is each bucket's share of the total budget in percent.
type Utilization struct {
	SpentPct     float64
	ReservedPct  float64
	RemainingPct float64
}

func UtilizationOf(state BudgetState) Utilization {
	if state.TotalCents == 0 {
		return Utilization{}
	}
	total := float64(state.TotalCents)
	return Utilization{
		SpentPct:     float64(state.SpentCents) / total * 100,
		ReservedPct:  float64(state.ReservedCents) / total * 100,
		RemainingPct: float64(state.RemainingCents) / total * 100,
	}
}
