package earnings

import (
	"errors"
	"fmt"
)

// All amounts are integer minor-currency units (cents). CPM rates are cents
// per 1000 views. Money never passes through floating point here; fractional
// intermediate values are resolved with round-half-away-from-zero.

var ErrInvalidInput = errors.New("earnings input is invalid")

// DefaultCompletionViewThreshold is the smallest view count a campaign's
// remaining budget must still be able to fund before it is worth keeping open.
const DefaultCompletionViewThreshold = 1000

const (
	MinBudgetTotalCents = 1_000
	MaxBudgetTotalCents = 100_000_000
	MinCpmRateCents     = 10
	MaxCpmRateCents     = 500
)

// CalculateEarnings converts a view count into cents owed at the given CPM
// rate. maxPayoutCents caps the result when positive; zero disables the cap.
func CalculateEarnings(viewCount, cpmRateCents, maxPayoutCents int64) (int64, error) {
	if viewCount < 0 || cpmRateCents < 0 || maxPayoutCents < 0 {
		return 0, ErrInvalidInput
	}
	amount := roundDivHalfAway(viewCount*cpmRateCents, 1000)
	if maxPayoutCents > 0 && amount > maxPayoutCents {
		amount = maxPayoutCents
	}
	return amount, nil
}

// CalculateEarningsDelta returns the change in earnings between two view
// counts. The result is negative when views decreased; callers are expected
// to ignore non-positive deltas.
func CalculateEarningsDelta(oldViews, newViews, cpmRateCents, maxPayoutCents int64) (int64, error) {
	oldAmount, err := CalculateEarnings(oldViews, cpmRateCents, maxPayoutCents)
	if err != nil {
		return 0, err
	}
	newAmount, err := CalculateEarnings(newViews, cpmRateCents, maxPayoutCents)
	if err != nil {
		return 0, err
	}
	return newAmount - oldAmount, nil
}

// CalculateMaxViewsForBudget returns how many views the budget can still fund
// at the given rate, rounded down. Zero when either input is non-positive.
func CalculateMaxViewsForBudget(budgetCents, cpmRateCents int64) int64 {
	if budgetCents <= 0 || cpmRateCents <= 0 {
		return 0
	}
	return budgetCents * 1000 / cpmRateCents
}

// ShouldCompleteCampaign reports whether the remaining budget can no longer
// fund a submission worth at least viewThreshold views.
func ShouldCompleteCampaign(remainingBudgetCents, cpmRateCents, viewThreshold int64) bool {
	if remainingBudgetCents <= 0 {
		return true
	}
	return CalculateMaxViewsForBudget(remainingBudgetCents, cpmRateCents) < viewThreshold
}

// ValidateBudgetConstraints enforces campaign money policy floors. It returns
// a list of human-readable violations, empty when the inputs are acceptable.
// Reused by campaign-creation validation as well as reservation sizing.
func ValidateBudgetConstraints(totalBudgetCents, cpmRateCents, maxPayoutCents int64) []string {
	violations := make([]string, 0)
	if totalBudgetCents < MinBudgetTotalCents {
		violations = append(violations, fmt.Sprintf("total budget must be at least %d cents", MinBudgetTotalCents))
	}
	if totalBudgetCents > MaxBudgetTotalCents {
		violations = append(violations, fmt.Sprintf("total budget must not exceed %d cents", MaxBudgetTotalCents))
	}
	if cpmRateCents < MinCpmRateCents {
		violations = append(violations, fmt.Sprintf("cpm rate must be at least %d cents per 1000 views", MinCpmRateCents))
	}
	if cpmRateCents > MaxCpmRateCents {
		violations = append(violations, fmt.Sprintf("cpm rate must not exceed %d cents per 1000 views", MaxCpmRateCents))
	}
	if maxPayoutCents < 0 {
		violations = append(violations, "max payout per submission must not be negative")
	}
	if maxPayoutCents > 0 && maxPayoutCents > totalBudgetCents {
		violations = append(violations, "max payout per submission must not exceed total budget")
	}
	return violations
}

// roundDivHalfAway divides numerator by denominator rounding half away from
// zero. denominator must be positive.
func roundDivHalfAway(numerator, denominator int64) int64 {
	if numerator >= 0 {
		return (numerator + denominator/2) / denominator
	}
	return -((-numerator + denominator/2) / denominator)
}
