package earnings

import (
	"errors"
	"testing"
)

func TestCalculateEarningsRounding(t *testing.T) {
	// 1.5K views at a 3-cent CPM is 4.5 cents and rounds up to 5.
	amount, err := CalculateEarnings(1500, 3, 0)
	if err != nil {
		t.Fatalf("calculate earnings failed: %v", err)
	}
	if amount != 5 {
		t.Fatalf("expected 5 cents, got %d", amount)
	}
}

func TestCalculateEarningsCap(t *testing.T) {
	amount, err := CalculateEarnings(100000, 10, 500)
	if err != nil {
		t.Fatalf("calculate earnings failed: %v", err)
	}
	if amount != 500 {
		t.Fatalf("expected cap of 500 cents, got %d", amount)
	}
}

func TestCalculateEarningsZeroCapDisabled(t *testing.T) {
	amount, err := CalculateEarnings(100000, 10, 0)
	if err != nil {
		t.Fatalf("calculate earnings failed: %v", err)
	}
	if amount != 1000 {
		t.Fatalf("expected 1000 cents with no cap, got %d", amount)
	}
}

func TestCalculateEarningsNegativeInput(t *testing.T) {
	cases := [][3]int64{
		{-1, 10, 0},
		{100, -10, 0},
		{100, 10, -5},
	}
	for _, c := range cases {
		if _, err := CalculateEarnings(c[0], c[1], c[2]); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected invalid input for %v, got %v", c, err)
		}
	}
}

func TestCalculateEarningsDelta(t *testing.T) {
	delta, err := CalculateEarningsDelta(5000, 8000, 500, 0)
	if err != nil {
		t.Fatalf("delta failed: %v", err)
	}
	if delta != 1500 {
		t.Fatalf("expected delta 1500, got %d", delta)
	}

	negative, err := CalculateEarningsDelta(8000, 5000, 500, 0)
	if err != nil {
		t.Fatalf("delta failed: %v", err)
	}
	if negative != -1500 {
		t.Fatalf("expected delta -1500, got %d", negative)
	}
}

func TestCalculateEarningsDeltaCapPinsBoth(t *testing.T) {
	// Both view counts earn past the cap, so the delta is zero.
	delta, err := CalculateEarningsDelta(100000, 200000, 10, 500)
	if err != nil {
		t.Fatalf("delta failed: %v", err)
	}
	if delta != 0 {
		t.Fatalf("expected zero delta under cap, got %d", delta)
	}
}

func TestCalculateMaxViewsForBudget(t *testing.T) {
	if views := CalculateMaxViewsForBudget(2500, 500); views != 5000 {
		t.Fatalf("expected 5000 views, got %d", views)
	}
	if views := CalculateMaxViewsForBudget(499, 500); views != 998 {
		t.Fatalf("expected 998 views, got %d", views)
	}
	if views := CalculateMaxViewsForBudget(0, 500); views != 0 {
		t.Fatalf("expected 0 views for empty budget, got %d", views)
	}
	if views := CalculateMaxViewsForBudget(2500, 0); views != 0 {
		t.Fatalf("expected 0 views for zero rate, got %d", views)
	}
}

func TestShouldCompleteCampaign(t *testing.T) {
	if !ShouldCompleteCampaign(0, 500, DefaultCompletionViewThreshold) {
		t.Fatalf("expected completion with no budget")
	}
	if !ShouldCompleteCampaign(499, 500, DefaultCompletionViewThreshold) {
		t.Fatalf("expected completion when budget funds fewer than 1000 views")
	}
	if ShouldCompleteCampaign(500, 500, DefaultCompletionViewThreshold) {
		t.Fatalf("did not expect completion when budget funds exactly 1000 views")
	}
}

func TestValidateBudgetConstraints(t *testing.T) {
	if violations := ValidateBudgetConstraints(10000, 500, 2500); len(violations) != 0 {
		t.Fatalf("expected valid constraints, got %v", violations)
	}
	if violations := ValidateBudgetConstraints(500, 5, 0); len(violations) != 2 {
		t.Fatalf("expected budget and rate floor violations, got %v", violations)
	}
	if violations := ValidateBudgetConstraints(10000, 500, 20000); len(violations) != 1 {
		t.Fatalf("expected max payout violation, got %v", violations)
	}
}
