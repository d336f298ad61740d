package unit

import (
	"context"
	"errors"
	"testing"

	budgetledger "clipcash/contexts/finance-core/budget-ledger"
	"clipcash/contexts/finance-core/budget-ledger/domain/entities"
	domainerrors "clipcash/contexts/finance-core/budget-ledger/domain/errors"
	httptransport "clipcash/contexts/finance-core/budget-ledger/transport/http"
)

func TestBudgetReserveUnknownCampaignAndSubmission(t *testing.T) {
	module := budgetledger.NewInMemoryModule(
		[]entities.Campaign{activeCampaign("campaign-e1", 10_000, 1_000, 0)},
		[]entities.Submission{pendingSubmission("submission-e1", "campaign-e1")},
		nil,
	)
	ctx := context.Background()

	_, err := module.Handler.ReserveBudgetHandler(ctx, "campaign-e1", httptransport.ReserveBudgetRequest{
		SubmissionID: "no-such-submission",
		ViewCount:    100,
	})
	if !errors.Is(err, domainerrors.ErrSubmissionNotFound) {
		t.Fatalf("expected submission not found, got %v", err)
	}

	_, err = module.Handler.ReserveBudgetHandler(ctx, "no-such-campaign", httptransport.ReserveBudgetRequest{
		SubmissionID: "submission-e1",
		ViewCount:    100,
	})
	// The submission belongs to campaign-e1, so the mismatch is caught
	// before the campaign lookup.
	if !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input for campaign mismatch, got %v", err)
	}

	_, err = module.Handler.GetBudgetHandler(ctx, "no-such-campaign")
	if !errors.Is(err, domainerrors.ErrCampaignNotFound) {
		t.Fatalf("expected campaign not found, got %v", err)
	}
}

func TestBudgetReserveRejectedOnPausedCampaign(t *testing.T) {
	paused := activeCampaign("campaign-e2", 10_000, 1_000, 0)
	paused.Status = entities.CampaignStatusPaused
	module := budgetledger.NewInMemoryModule(
		[]entities.Campaign{paused},
		[]entities.Submission{pendingSubmission("submission-e2", "campaign-e2")},
		nil,
	)

	_, err := module.Handler.ReserveBudgetHandler(context.Background(), "campaign-e2",
		httptransport.ReserveBudgetRequest{SubmissionID: "submission-e2", ViewCount: 500})
	if !errors.Is(err, domainerrors.ErrInvalidStatusTransition) {
		t.Fatalf("expected status transition error on paused campaign, got %v", err)
	}
}

func TestBudgetSpendGuards(t *testing.T) {
	module := budgetledger.NewInMemoryModule(
		[]entities.Campaign{activeCampaign("campaign-e3", 10_000, 1_000, 0)},
		[]entities.Submission{pendingSubmission("submission-e3", "campaign-e3")},
		nil,
	)
	ctx := context.Background()

	if _, err := module.Handler.ReserveBudgetHandler(ctx, "campaign-e3", httptransport.ReserveBudgetRequest{
		SubmissionID: "submission-e3",
		ViewCount:    1_000,
	}); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	// The payout amount must match the reservation exactly.
	_, err := module.Handler.SpendBudgetHandler(ctx, "campaign-e3", httptransport.SpendBudgetRequest{
		SubmissionID: "submission-e3",
		AmountCents:  999,
	})
	if !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input for amount mismatch, got %v", err)
	}

	if _, err := module.Handler.SpendBudgetHandler(ctx, "campaign-e3", httptransport.SpendBudgetRequest{
		SubmissionID: "submission-e3",
		AmountCents:  1_000,
	}); err != nil {
		t.Fatalf("spend failed: %v", err)
	}

	// Second payout for the same submission must be rejected.
	_, err = module.Handler.SpendBudgetHandler(ctx, "campaign-e3", httptransport.SpendBudgetRequest{
		SubmissionID: "submission-e3",
		AmountCents:  1_000,
	})
	if !errors.Is(err, domainerrors.ErrSubmissionAlreadyPaid) {
		t.Fatalf("expected already-paid rejection, got %v", err)
	}
}

func TestBudgetReleaseGuards(t *testing.T) {
	module := budgetledger.NewInMemoryModule(
		[]entities.Campaign{activeCampaign("campaign-e4", 10_000, 1_000, 0)},
		[]entities.Submission{
			pendingSubmission("submission-e4", "campaign-e4"),
			pendingSubmission("submission-e5", "campaign-e4"),
		},
		nil,
	)
	ctx := context.Background()

	// Nothing reserved yet: a pending submission has no money to return.
	_, err := module.Handler.ReleaseBudgetHandler(ctx, "campaign-e4", httptransport.ReleaseBudgetRequest{
		SubmissionID: "submission-e4",
	})
	if !errors.Is(err, domainerrors.ErrNothingReserved) {
		t.Fatalf("expected nothing-reserved rejection, got %v", err)
	}

	if _, err := module.Handler.ReserveBudgetHandler(ctx, "campaign-e4", httptransport.ReserveBudgetRequest{
		SubmissionID: "submission-e5",
		ViewCount:    1_000,
	}); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if _, err := module.Handler.SpendBudgetHandler(ctx, "campaign-e4", httptransport.SpendBudgetRequest{
		SubmissionID: "submission-e5",
		AmountCents:  1_000,
	}); err != nil {
		t.Fatalf("spend failed: %v", err)
	}

	// Paid money stays spent; it can never be walked back through release.
	_, err = module.Handler.ReleaseBudgetHandler(ctx, "campaign-e4", httptransport.ReleaseBudgetRequest{
		SubmissionID: "submission-e5",
	})
	if !errors.Is(err, domainerrors.ErrSubmissionAlreadyPaid) {
		t.Fatalf("expected already-paid rejection on release, got %v", err)
	}
}

func TestBudgetCompleteAuthorization(t *testing.T) {
	module := budgetledger.NewInMemoryModule(
		[]entities.Campaign{activeCampaign("campaign-e6", 10_000, 1_000, 0)},
		nil,
		nil,
	)
	ctx := context.Background()

	_, err := module.Handler.CompleteCampaignHandler(ctx, "intruder-1", "campaign-e6",
		httptransport.CompleteCampaignRequest{})
	if !errors.Is(err, domainerrors.ErrNotAuthorized) {
		t.Fatalf("expected not-authorized rejection, got %v", err)
	}

	// The system actor may always complete.
	completed, err := module.Handler.CompleteCampaignHandler(ctx, "system", "campaign-e6",
		httptransport.CompleteCampaignRequest{Reason: "budget_exhausted"})
	if err != nil {
		t.Fatalf("system complete failed: %v", err)
	}
	if completed.RefundCents != 10_000 {
		t.Fatalf("expected full refund of untouched budget, got %d", completed.RefundCents)
	}
}

func TestBudgetReserveRejectsRepeatApproval(t *testing.T) {
	module := budgetledger.NewInMemoryModule(
		[]entities.Campaign{activeCampaign("campaign-e7", 10_000, 1_000, 0)},
		[]entities.Submission{pendingSubmission("submission-e7", "campaign-e7")},
		nil,
	)
	ctx := context.Background()

	if _, err := module.Handler.ReserveBudgetHandler(ctx, "campaign-e7", httptransport.ReserveBudgetRequest{
		SubmissionID: "submission-e7",
		ViewCount:    1_000,
	}); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	// Approving the same submission again must not stack a second
	// reservation on top of the first. View growth resizes through the
	// view-increase path instead.
	_, err := module.Handler.ReserveBudgetHandler(ctx, "campaign-e7", httptransport.ReserveBudgetRequest{
		SubmissionID: "submission-e7",
		ViewCount:    1_800,
	})
	if !errors.Is(err, domainerrors.ErrAlreadyReserved) {
		t.Fatalf("expected already-reserved rejection, got %v", err)
	}

	budget, err := module.Handler.GetBudgetHandler(ctx, "campaign-e7")
	if err != nil {
		t.Fatalf("get budget failed: %v", err)
	}
	if budget.BudgetReservedCents != 1_000 {
		t.Fatalf("expected reservation to stay at 1000, got %d", budget.BudgetReservedCents)
	}
	campaign, err := module.Store.GetCampaign(ctx, "campaign-e7")
	if err != nil {
		t.Fatalf("get campaign failed: %v", err)
	}
	if campaign.SubmissionCount != 1 {
		t.Fatalf("expected submission count 1, got %d", campaign.SubmissionCount)
	}

	// Release walks back everything the submission holds; no cents are
	// stranded in the reserved bucket.
	released, err := module.Handler.ReleaseBudgetHandler(ctx, "campaign-e7", httptransport.ReleaseBudgetRequest{
		SubmissionID: "submission-e7",
	})
	if err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if released.ReleasedCents != 1_000 {
		t.Fatalf("expected the full 1000 back, got %d", released.ReleasedCents)
	}
	budget, err = module.Handler.GetBudgetHandler(ctx, "campaign-e7")
	if err != nil {
		t.Fatalf("get budget failed: %v", err)
	}
	if budget.BudgetReservedCents != 0 || budget.BudgetRemainingCents != 10_000 {
		t.Fatalf("expected untouched budget after release, got reserved=%d remaining=%d",
			budget.BudgetReservedCents, budget.BudgetRemainingCents)
	}
}

func TestBudgetReserveRejectsPaidSubmission(t *testing.T) {
	module := budgetledger.NewInMemoryModule(
		[]entities.Campaign{activeCampaign("campaign-e8", 10_000, 1_000, 0)},
		[]entities.Submission{pendingSubmission("submission-e8", "campaign-e8")},
		nil,
	)
	ctx := context.Background()

	if _, err := module.Handler.ReserveBudgetHandler(ctx, "campaign-e8", httptransport.ReserveBudgetRequest{
		SubmissionID: "submission-e8",
		ViewCount:    1_000,
	}); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if _, err := module.Handler.SpendBudgetHandler(ctx, "campaign-e8", httptransport.SpendBudgetRequest{
		SubmissionID: "submission-e8",
		AmountCents:  1_000,
	}); err != nil {
		t.Fatalf("spend failed: %v", err)
	}

	_, err := module.Handler.ReserveBudgetHandler(ctx, "campaign-e8", httptransport.ReserveBudgetRequest{
		SubmissionID: "submission-e8",
		ViewCount:    2_000,
	})
	if !errors.Is(err, domainerrors.ErrSubmissionAlreadyPaid) {
		t.Fatalf("expected already-paid rejection, got %v", err)
	}
}
