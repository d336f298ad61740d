package ledger

import (
	"errors"
	"testing"
)

func mustCheck(t *testing.T, state BudgetState) {
	t.Helper()
	if err := state.Check(); err != nil {
		t.Fatalf("invariant violated: %+v", state)
	}
}

func TestNewState(t *testing.T) {
	state := New(10000)
	mustCheck(t, state)
	if state.RemainingCents != 10000 || state.SpentCents != 0 || state.ReservedCents != 0 {
		t.Fatalf("unexpected activation state: %+v", state)
	}
}

func TestReserve(t *testing.T) {
	state := New(10000)

	next, err := Reserve(state, 2500)
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	mustCheck(t, next)
	if next.ReservedCents != 2500 || next.RemainingCents != 7500 {
		t.Fatalf("unexpected state after reserve: %+v", next)
	}

	if _, err := Reserve(next, 8000); !errors.Is(err, ErrInsufficientBudget) {
		t.Fatalf("expected insufficient budget, got %v", err)
	}
	if _, err := Reserve(next, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := Reserve(next, -100); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}

func TestReserveRejectionLeavesStateUntouched(t *testing.T) {
	state := New(1000)
	got, err := Reserve(state, 2000)
	if err == nil {
		t.Fatalf("expected rejection")
	}
	if got != state {
		t.Fatalf("rejected transition mutated state: %+v", got)
	}
}

func TestSpend(t *testing.T) {
	state, err := Reserve(New(10000), 2500)
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	next, err := Spend(state, 2500)
	if err != nil {
		t.Fatalf("spend failed: %v", err)
	}
	mustCheck(t, next)
	if next.SpentCents != 2500 || next.ReservedCents != 0 || next.RemainingCents != 7500 {
		t.Fatalf("unexpected state after spend: %+v", next)
	}

	if _, err := Spend(next, 1); !errors.Is(err, ErrInsufficientReserve) {
		t.Fatalf("expected insufficient reserve, got %v", err)
	}
}

func TestRelease(t *testing.T) {
	state, err := Reserve(New(10000), 2500)
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	next, err := Release(state, 1000)
	if err != nil {
		t.Fatalf("release failed: %v", err)
	}
	mustCheck(t, next)
	if next.ReservedCents != 1500 || next.RemainingCents != 8500 {
		t.Fatalf("unexpected state after release: %+v", next)
	}

	if _, err := Release(next, 2000); !errors.Is(err, ErrOverRelease) {
		t.Fatalf("expected over-release, got %v", err)
	}
}

func TestReserveReleaseRoundTrip(t *testing.T) {
	original := BudgetState{TotalCents: 10000, SpentCents: 1000, ReservedCents: 2000, RemainingCents: 7000}

	reserved, err := Reserve(original, 3000)
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	restored, err := Release(reserved, 3000)
	if err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if restored != original {
		t.Fatalf("round trip did not restore state: %+v", restored)
	}
}

func TestRefundOnCompletion(t *testing.T) {
	state := BudgetState{TotalCents: 10000, SpentCents: 2500, ReservedCents: 0, RemainingCents: 7500}

	refund, next := RefundOnCompletion(state)
	if refund != 7500 {
		t.Fatalf("expected refund 7500, got %d", refund)
	}
	mustCheck(t, next)
	if next.TotalCents != 2500 || next.SpentCents != 2500 || next.ReservedCents != 0 || next.RemainingCents != 0 {
		t.Fatalf("unexpected re-baselined state: %+v", next)
	}
}

func TestRefundOnCompletionIncludesReserved(t *testing.T) {
	state := BudgetState{TotalCents: 10000, SpentCents: 1000, ReservedCents: 4000, RemainingCents: 5000}

	refund, next := RefundOnCompletion(state)
	if refund != 9000 {
		t.Fatalf("expected refund 9000, got %d", refund)
	}
	if next.TotalCents != 1000 {
		t.Fatalf("expected total re-baselined to spent, got %+v", next)
	}
}

func TestShouldAutoComplete(t *testing.T) {
	state := BudgetState{TotalCents: 10000, RemainingCents: 2000, ReservedCents: 8000}
	if !ShouldAutoComplete(state, 2500) {
		t.Fatalf("expected auto-complete when remaining below max payout")
	}
	if ShouldAutoComplete(state, 2000) {
		t.Fatalf("did not expect auto-complete when remaining covers max payout")
	}
}

func TestUtilization(t *testing.T) {
	state := BudgetState{TotalCents: 10000, SpentCents: 2500, ReservedCents: 2500, RemainingCents: 5000}
	u := UtilizationOf(state)
	if u.SpentPct != 25 || u.ReservedPct != 25 || u.RemainingPct != 50 {
		t.Fatalf("unexpected utilization: %+v", u)
	}

	if u := UtilizationOf(BudgetState{}); u != (Utilization{}) {
		t.Fatalf("expected zero utilization for zero total, got %+v", u)
	}
}
