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

type ReleaseForSubmissionCommand struct {
	CampaignID   string
	SubmissionID string
	Reason       string
}

type ReleaseForSubmissionResult struct {
	ReleasedCents int64
}

// ReleaseForSubmissionUseCase walks back the full reservation of an approved
// submission that is cancelled before payout, returning the money to the
// remaining bucket. Pending submissions never reserve, so there is nothing to
// release for a plain rejection.
type ReleaseForSubmissionUseCase struct {
	Campaigns   ports.CampaignRepository
	Submissions ports.SubmissionRepository
	Committer   ports.BudgetCommitter
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger
}

func (uc ReleaseForSubmissionUseCase) Execute(
	ctx context.Context,
	cmd ReleaseForSubmissionCommand,
) (ReleaseForSubmissionResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	campaignID := strings.TrimSpace(cmd.CampaignID)
	submissionID := strings.TrimSpace(cmd.SubmissionID)
	if campaignID == "" || submissionID == "" {
		return ReleaseForSubmissionResult{}, domainerrors.ErrInvalidInput
	}

	submission, err := uc.Submissions.GetSubmission(ctx, submissionID)
	if err != nil {
		return ReleaseForSubmissionResult{}, err
	}
	if submission.CampaignID != campaignID {
		return ReleaseForSubmissionResult{}, domainerrors.ErrInvalidInput
	}
	if submission.Status == entities.SubmissionStatusPaid {
		return ReleaseForSubmissionResult{}, domainerrors.ErrSubmissionAlreadyPaid
	}
	if submission.EarningsCents <= 0 {
		return ReleaseForSubmissionResult{}, domainerrors.ErrNothingReserved
	}
	amount := submission.EarningsCents

	commit, err := commitWithRetry(ctx, uc.Campaigns, uc.Committer, campaignID,
		func(campaign entities.Campaign) (ports.BudgetCommit, error) {
			if campaign.Status == entities.CampaignStatusCompleted {
				return ports.BudgetCommit{}, domainerrors.ErrInvalidStatusTransition
			}

			now := uc.Clock.Now().UTC()
			state, err := ledger.Release(campaign.BudgetState(), amount)
			if err != nil {
				return ports.BudgetCommit{}, err
			}

			campaign, expected := nextVersion(campaign)
			campaign.ApplyBudgetState(state)
			if campaign.SubmissionCount > 0 {
				campaign.SubmissionCount--
			}
			campaign.UpdatedAt = now

			updated := submission
			updated.Status = entities.SubmissionStatusCancelled
			updated.EarningsCents = 0
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
			earningsEventID, err := uc.IDGen.NewID(ctx)
			if err != nil {
				return ports.BudgetCommit{}, err
			}
			earningsEvent, err := newBudgetEnvelope(earningsEventID, "submission.earnings_updated",
				campaign.CampaignID, now, map[string]any{
					"campaign_id":    campaign.CampaignID,
					"submission_id":  submissionID,
					"view_count":     submission.ViewCount,
					"earnings_cents": int64(0),
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
					AmountDelta:  amount,
					Reason:       entities.BudgetReasonReservationReleased,
					CreatedAt:    now,
				}},
				Outbox: []ports.EventEnvelope{budgetEvent, earningsEvent},
			}, nil
		})
	if err != nil {
		return ReleaseForSubmissionResult{}, err
	}

	logger.Info("reservation released for submission",
		"event", "budget_released",
		"module", "finance-core/budget-ledger",
		"layer", "application",
		"campaign_id", commit.Campaign.CampaignID,
		"submission_id", submissionID,
		"amount_cents", amount,
	)
	return ReleaseForSubmissionResult{ReleasedCents: amount}, nil
}
