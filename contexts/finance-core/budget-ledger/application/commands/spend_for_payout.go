package commands

import (
	"context"
	"log/slog"
	"strings"

	application "clipcash/contexts/finance-core/budget-ledger/application"
	"clipcash/contexts/finance-core/budget-ledger/domain/entities"
	domainerrors "clipcash/contexts/finance-core/budget-ledger/domain/errors"
	"clipcash/contexts/finance-core/budget-ledger/domain/ledger"
	"clipcash/contexts/finance-core/budget-ledger/ports"
)

type SpendForPayoutCommand struct {
	CampaignID   string
	SubmissionID string
	AmountCents  int64
}

type SpendForPayoutResult struct {
	SpentCents int64
}

// SpendForPayoutUseCase moves reserved budget to spent once the external
// payment processor has confirmed a transfer. It must never run before that
// confirmation and is safe to call exactly once per transfer: a submission
// already marked paid is rejected.
//
// Spending is allowed on completed campaigns — auto-completion freezes new
// reservations, not payouts for work already reserved.
type SpendForPayoutUseCase struct {
	Campaigns   ports.CampaignRepository
	Submissions ports.SubmissionRepository
	Committer   ports.BudgetCommitter
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger
}

func (uc SpendForPayoutUseCase) Execute(
	ctx context.Context,
	cmd SpendForPayoutCommand,
) (SpendForPayoutResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	campaignID := strings.TrimSpace(cmd.CampaignID)
	submissionID := strings.TrimSpace(cmd.SubmissionID)
	if campaignID == "" || submissionID == "" || cmd.AmountCents <= 0 {
		return SpendForPayoutResult{}, domainerrors.ErrInvalidInput
	}

	submission, err := uc.Submissions.GetSubmission(ctx, submissionID)
	if err != nil {
		return SpendForPayoutResult{}, err
	}
	if submission.CampaignID != campaignID {
		return SpendForPayoutResult{}, domainerrors.ErrInvalidInput
	}
	if submission.Status == entities.SubmissionStatusPaid {
		return SpendForPayoutResult{}, domainerrors.ErrSubmissionAlreadyPaid
	}
	if cmd.AmountCents != submission.EarningsCents {
		// The amount must match the submission's reservation record; anything
		// else means the caller and the ledger disagree about this payout.
		return SpendForPayoutResult{}, domainerrors.ErrInvalidInput
	}

	commit, err := commitWithRetry(ctx, uc.Campaigns, uc.Committer, campaignID,
		func(campaign entities.Campaign) (ports.BudgetCommit, error) {
			now := uc.Clock.Now().UTC()
			state, err := ledger.Spend(campaign.BudgetState(), cmd.AmountCents)
			if err != nil {
				return ports.BudgetCommit{}, err
			}

			campaign, expected := nextVersion(campaign)
			campaign.ApplyBudgetState(state)
			campaign.UpdatedAt = now

			paidAt := now
			updated := submission
			updated.Status = entities.SubmissionStatusPaid
			updated.PaidAt = &paidAt
			updated.UpdatedAt = now

			logID, err := uc.IDGen.NewID(ctx)
			if err != nil {
				return ports.BudgetCommit{}, err
			}
			budgetEventID, err := uc.IDGen.NewID(ctx)
			if err != nil {
				return ports.BudgetCommit{}, err
			}
			budgetEvent, err := newBudgetEnvelope(budgetEventID, "campaign.budget_updated",
				campaign.CampaignID, now, budgetUpdatedData(campaign))
			if err != nil {
				return ports.BudgetCommit{}, err
			}
			paidEventID, err := uc.IDGen.NewID(ctx)
			if err != nil {
				return ports.BudgetCommit{}, err
			}
			paidEvent, err := newBudgetEnvelope(paidEventID, "submission.paid",
				campaign.CampaignID, now, map[string]any{
					"campaign_id":   campaign.CampaignID,
					"submission_id": submissionID,
					"creator_id":    submission.CreatorID,
					"amount_cents":  cmd.AmountCents,
				})
			if err != nil {
				return ports.BudgetCommit{}, err
			}

			return ports.BudgetCommit{
				Campaign:        campaign,
				ExpectedVersion: expected,
				Submission:      &updated,
				BudgetLogs: []entities.BudgetLog{{
					LogID:        logID,
					CampaignID:   campaign.CampaignID,
					SubmissionID: submissionID,
					AmountDelta:  cmd.AmountCents,
					Reason:       entities.BudgetReasonPayoutSpent,
					CreatedAt:    now,
				}},
				Outbox: []ports.EventEnvelope{budgetEvent, paidEvent},
			}, nil
		})
	if err != nil {
		return SpendForPayoutResult{}, err
	}

	logger.Info("budget spent for payout",
		"event", "budget_spent",
		"module", "finance-core/budget-ledger",
		"layer", "application",
		"campaign_id", commit.Campaign.CampaignID,
		"submission_id", submissionID,
		"amount_cents", cmd.AmountCents,
		"spent_cents", commit.Campaign.BudgetSpentCents,
	)
	return SpendForPayoutResult{SpentCents: cmd.AmountCents}, nil
}
