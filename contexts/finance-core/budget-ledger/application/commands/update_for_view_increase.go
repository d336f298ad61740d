package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	application "clipcash/contexts/finance-core/budget-ledger/application"
	"clipcash/contexts/finance-core/budget-ledger/domain/earnings"
	"clipcash/contexts/finance-core/budget-ledger/domain/entities"
	domainerrors "clipcash/contexts/finance-core/budget-ledger/domain/errors"
	"clipcash/contexts/finance-core/budget-ledger/domain/ledger"
	"clipcash/contexts/finance-core/budget-ledger/ports"
)

type UpdateForViewIncreaseCommand struct {
	CampaignID   string
	SubmissionID string
	OldViewCount int64
	NewViewCount int64
}

type UpdateForViewIncreaseResult struct {
	Changed          bool
	OldEarningsCents int64
	NewEarningsCents int64
	AutoCompleted    bool
	NewStatus        entities.CampaignStatus
}

// UpdateForViewIncreaseUseCase re-sizes a submission's reservation after a
// view-count re-check. A growing reservation is a release of the old amount
// followed by a reserve of the new one, committed as a single atomic step —
// a crash between the two halves must not be observable.
type UpdateForViewIncreaseUseCase struct {
	Campaigns   ports.CampaignRepository
	Submissions ports.SubmissionRepository
	Committer   ports.BudgetCommitter
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger
}

func (uc UpdateForViewIncreaseUseCase) Execute(
	ctx context.Context,
	cmd UpdateForViewIncreaseCommand,
) (UpdateForViewIncreaseResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	campaignID := strings.TrimSpace(cmd.CampaignID)
	submissionID := strings.TrimSpace(cmd.SubmissionID)
	if campaignID == "" || submissionID == "" || cmd.OldViewCount < 0 || cmd.NewViewCount < 0 {
		return UpdateForViewIncreaseResult{}, domainerrors.ErrInvalidInput
	}

	submission, err := uc.Submissions.GetSubmission(ctx, submissionID)
	if err != nil {
		return UpdateForViewIncreaseResult{}, err
	}
	if submission.CampaignID != campaignID {
		return UpdateForViewIncreaseResult{}, domainerrors.ErrInvalidInput
	}

	result := UpdateForViewIncreaseResult{}
	commit, err := commitWithRetry(ctx, uc.Campaigns, uc.Committer, campaignID,
		func(campaign entities.Campaign) (ports.BudgetCommit, error) {
			if campaign.Status != entities.CampaignStatusActive {
				return ports.BudgetCommit{}, domainerrors.ErrInvalidStatusTransition
			}

			oldEarnings, err := earnings.CalculateEarnings(cmd.OldViewCount, campaign.CpmRateCents, campaign.MaxPayoutCents)
			if err != nil {
				return ports.BudgetCommit{}, domainerrors.ErrInvalidInput
			}
			newEarnings, err := earnings.CalculateEarnings(cmd.NewViewCount, campaign.CpmRateCents, campaign.MaxPayoutCents)
			if err != nil {
				return ports.BudgetCommit{}, domainerrors.ErrInvalidInput
			}

			result = UpdateForViewIncreaseResult{
				OldEarningsCents: oldEarnings,
				NewEarningsCents: newEarnings,
				NewStatus:        campaign.Status,
			}
			if newEarnings <= oldEarnings {
				// Views decreasing, or earnings pinned by the cap: not a
				// ledger event.
				return ports.BudgetCommit{}, errNoLedgerEvent
			}

			now := uc.Clock.Now().UTC()
			state := campaign.BudgetState()
			logs := make([]entities.BudgetLog, 0, 2)
			if oldEarnings > 0 {
				state, err = ledger.Release(state, oldEarnings)
				if err != nil {
					return ports.BudgetCommit{}, err
				}
				logID, err := uc.IDGen.NewID(ctx)
				if err != nil {
					return ports.BudgetCommit{}, err
				}
				logs = append(logs, entities.BudgetLog{
					LogID:        logID,
					CampaignID:   campaign.CampaignID,
					SubmissionID: submissionID,
					AmountDelta:  oldEarnings,
					Reason:       entities.BudgetReasonReservationReleased,
					CreatedAt:    now,
				})
			}
			state, err = ledger.Reserve(state, newEarnings)
			if err != nil {
				return ports.BudgetCommit{}, err
			}
			logID, err := uc.IDGen.NewID(ctx)
			if err != nil {
				return ports.BudgetCommit{}, err
			}
			logs = append(logs, entities.BudgetLog{
				LogID:        logID,
				CampaignID:   campaign.CampaignID,
				SubmissionID: submissionID,
				AmountDelta:  newEarnings,
				Reason:       entities.BudgetReasonViewIncreaseReserve,
				CreatedAt:    now,
			})

			campaign, expected := nextVersion(campaign)
			campaign.ApplyBudgetState(state)
			campaign.TotalViews += cmd.NewViewCount - submission.ViewCount
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
			updated.ViewCount = cmd.NewViewCount
			updated.EarningsCents = newEarnings
			updated.UpdatedAt = now

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
					"view_count":     cmd.NewViewCount,
					"earnings_cents": newEarnings,
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

			result.Changed = true
			result.AutoCompleted = autoCompleted
			result.NewStatus = campaign.Status
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
		if errors.Is(err, errNoLedgerEvent) {
			return result, nil
		}
		return UpdateForViewIncreaseResult{}, err
	}

	logger.Info("budget re-sized for view increase",
		"event", "budget_view_increase",
		"module", "finance-core/budget-ledger",
		"layer", "application",
		"campaign_id", commit.Campaign.CampaignID,
		"submission_id", submissionID,
		"old_earnings_cents", result.OldEarningsCents,
		"new_earnings_cents", result.NewEarningsCents,
		"auto_completed", result.AutoCompleted,
	)
	return result, nil
}
