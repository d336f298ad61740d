package commands

import (
	"context"
	"log/slog"
	"strings"

	application "clipcash/contexts/finance-core/budget-ledger/application"
	"clipcash/contexts/finance-core/budget-ledger/domain/earnings"
	"clipcash/contexts/finance-core/budget-ledger/domain/entities"
	domainerrors "clipcash/contexts/finance-core/budget-ledger/domain/errors"
	"clipcash/contexts/finance-core/budget-ledger/domain/ledger"
	"clipcash/contexts/finance-core/budget-ledger/ports"
)

type ReserveForSubmissionCommand struct {
	CampaignID   string
	SubmissionID string
	ViewCount    int64
}

type ReserveForSubmissionResult struct {
	ReservedCents int64
	AutoCompleted bool
	NewStatus     entities.CampaignStatus
}

// ReserveForSubmissionUseCase earmarks budget when a submission is approved.
// The reservation is sized from the submission's current view count and the
// campaign's pricing terms; the submission's earnings field is written in the
// same commit and becomes the reservation record.
type ReserveForSubmissionUseCase struct {
	Campaigns   ports.CampaignRepository
	Submissions ports.SubmissionRepository
	Committer   ports.BudgetCommitter
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger
}

func (uc ReserveForSubmissionUseCase) Execute(
	ctx context.Context,
	cmd ReserveForSubmissionCommand,
) (ReserveForSubmissionResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	campaignID := strings.TrimSpace(cmd.CampaignID)
	submissionID := strings.TrimSpace(cmd.SubmissionID)
	if campaignID == "" || submissionID == "" || cmd.ViewCount < 0 {
		return ReserveForSubmissionResult{}, domainerrors.ErrInvalidInput
	}

	submission, err := uc.Submissions.GetSubmission(ctx, submissionID)
	if err != nil {
		return ReserveForSubmissionResult{}, err
	}
	if submission.CampaignID != campaignID {
		return ReserveForSubmissionResult{}, domainerrors.ErrInvalidInput
	}
	// Reservation is a one-time edge out of pending. An approved submission
	// already holds a reservation and must resize through the view-increase
	// path; a paid or cancelled one is past the reservation stage entirely.
	switch submission.Status {
	case entities.SubmissionStatusPending:
	case entities.SubmissionStatusPaid:
		return ReserveForSubmissionResult{}, domainerrors.ErrSubmissionAlreadyPaid
	default:
		return ReserveForSubmissionResult{}, domainerrors.ErrAlreadyReserved
	}

	result := ReserveForSubmissionResult{}
	commit, err := commitWithRetry(ctx, uc.Campaigns, uc.Committer, campaignID,
		func(campaign entities.Campaign) (ports.BudgetCommit, error) {
			if campaign.Status != entities.CampaignStatusActive {
				return ports.BudgetCommit{}, domainerrors.ErrInvalidStatusTransition
			}

			amount, err := earnings.CalculateEarnings(cmd.ViewCount, campaign.CpmRateCents, campaign.MaxPayoutCents)
			if err != nil {
				return ports.BudgetCommit{}, domainerrors.ErrInvalidInput
			}

			now := uc.Clock.Now().UTC()
			state := campaign.BudgetState()
			if amount > 0 {
				// Zero earnings (a submission approved before it gathered
				// views) is a valid approval with no ledger movement.
				state, err = ledger.Reserve(state, amount)
				if err != nil {
					return ports.BudgetCommit{}, err
				}
			}

			campaign, expected := nextVersion(campaign)
			campaign.ApplyBudgetState(state)
			campaign.SubmissionCount++
			campaign.TotalViews += cmd.ViewCount - submission.ViewCount
			campaign.UpdatedAt = now

			autoCompleted := reservationExhaustsBudget(campaign)
			var history *entities.StateHistory
			if autoCompleted {
				historyID, err := uc.IDGen.NewID(ctx)
				if err != nil {
					return ports.BudgetCommit{}, err
				}
				completedAt := now
				history = &entities.StateHistory{
					HistoryID:    historyID,
					CampaignID:   campaign.CampaignID,
					FromState:    campaign.Status,
					ToState:      entities.CampaignStatusCompleted,
					ChangedBy:    "system",
					ChangeReason: "budget_exhausted",
					CreatedAt:    now,
				}
				campaign.Status = entities.CampaignStatusCompleted
				campaign.CompletedAt = &completedAt
			}

			updated := submission
			updated.Status = entities.SubmissionStatusApproved
			updated.ViewCount = cmd.ViewCount
			updated.EarningsCents = amount
			updated.UpdatedAt = now

			logs := make([]entities.BudgetLog, 0, 1)
			if amount > 0 {
				logID, err := uc.IDGen.NewID(ctx)
				if err != nil {
					return ports.BudgetCommit{}, err
				}
				logs = append(logs, entities.BudgetLog{
					LogID:        logID,
					CampaignID:   campaign.CampaignID,
					SubmissionID: submissionID,
					AmountDelta:  amount,
					Reason:       entities.BudgetReasonSubmissionReserved,
					CreatedAt:    now,
				})
			}

			outbox := make([]ports.EventEnvelope, 0, 3)
			budgetEventID, err := uc.IDGen.NewID(ctx)
			if err != nil {
				return ports.BudgetCommit{}, err
			}
			budgetEvent, err := newBudgetEnvelope(budgetEventID, "campaign.budget_updated",
				campaign.CampaignID, now, budgetUpdatedData(campaign))
			if err != nil {
				return ports.BudgetCommit{}, err
			}
			outbox = append(outbox, budgetEvent)

			earningsEventID, err := uc.IDGen.NewID(ctx)
			if err != nil {
				return ports.BudgetCommit{}, err
			}
			earningsEvent, err := newBudgetEnvelope(earningsEventID, "submission.earnings_updated",
				campaign.CampaignID, now, map[string]any{
					"campaign_id":    campaign.CampaignID,
					"submission_id":  submissionID,
					"view_count":     cmd.ViewCount,
					"earnings_cents": amount,
				})
			if err != nil {
				return ports.BudgetCommit{}, err
			}
			outbox = append(outbox, earningsEvent)

			if autoCompleted {
				completedEventID, err := uc.IDGen.NewID(ctx)
				if err != nil {
					return ports.BudgetCommit{}, err
				}
				completedEvent, err := newBudgetEnvelope(completedEventID, "campaign.completed",
					campaign.CampaignID, now, map[string]any{
						"campaign_id": campaign.CampaignID,
						"brand_id":    campaign.BrandID,
						"reason":      "budget_exhausted",
					})
				if err != nil {
					return ports.BudgetCommit{}, err
				}
				outbox = append(outbox, completedEvent)
			}

			result = ReserveForSubmissionResult{
				ReservedCents: amount,
				AutoCompleted: autoCompleted,
				NewStatus:     campaign.Status,
			}
			return ports.BudgetCommit{
				Campaign:        campaign,
				ExpectedVersion: expected,
				Submission:      &updated,
				BudgetLogs:      logs,
				StateHistory:    history,
				Outbox:          outbox,
			}, nil
		})
	if err != nil {
		return ReserveForSubmissionResult{}, err
	}

	logger.Info("budget reserved for submission",
		"event", "budget_reserved",
		"module", "finance-core/budget-ledger",
		"layer", "application",
		"campaign_id", commit.Campaign.CampaignID,
		"submission_id", submissionID,
		"amount_cents", result.ReservedCents,
		"remaining_cents", commit.Campaign.BudgetRemainingCents,
		"auto_completed", result.AutoCompleted,
	)
	return result, nil
}

// reservationExhaustsBudget decides whether a campaign should go terminal
// after a reservation. With a per-submission cap the ledger predicate applies;
// without one, the campaign completes when the remaining budget can no longer
// fund a meaningful view count.
func reservationExhaustsBudget(campaign entities.Campaign) bool {
	if campaign.MaxPayoutCents > 0 {
		return ledger.ShouldAutoComplete(campaign.BudgetState(), campaign.MaxPayoutCents)
	}
	return earnings.ShouldCompleteCampaign(
		campaign.BudgetRemainingCents,
		campaign.CpmRateCents,
		earnings.DefaultCompletionViewThreshold,
	)
}
