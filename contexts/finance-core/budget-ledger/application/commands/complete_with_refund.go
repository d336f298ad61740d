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

type CompleteWithRefundCommand struct {
	CampaignID string
	ActorID    string
	Reason     string
}

type CompleteWithRefundResult struct {
	RefundCents int64
}

// CompleteWithRefundUseCase closes a campaign and computes the refund owed to
// the brand. The returned amount must be handed to the external payment
// processor; this use case only re-baselines the ledger and flips status.
//
// After the commit the campaign's budget total equals what creators actually
// earned, not what the brand originally paid. Callers needing the original
// figure must read the campaign before completing it.
type CompleteWithRefundUseCase struct {
	Campaigns ports.CampaignRepository
	Committer ports.BudgetCommitter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

func (uc CompleteWithRefundUseCase) Execute(
	ctx context.Context,
	cmd CompleteWithRefundCommand,
) (CompleteWithRefundResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	campaignID := strings.TrimSpace(cmd.CampaignID)
	actorID := strings.TrimSpace(cmd.ActorID)
	if campaignID == "" || actorID == "" {
		return CompleteWithRefundResult{}, domainerrors.ErrInvalidInput
	}

	result := CompleteWithRefundResult{}
	commit, err := commitWithRetry(ctx, uc.Campaigns, uc.Committer, campaignID,
		func(campaign entities.Campaign) (ports.BudgetCommit, error) {
			if actorID != "system" && campaign.BrandID != actorID {
				return ports.BudgetCommit{}, domainerrors.ErrNotAuthorized
			}
			if campaign.Status != entities.CampaignStatusActive && campaign.Status != entities.CampaignStatusPaused {
				return ports.BudgetCommit{}, domainerrors.ErrInvalidStatusTransition
			}

			now := uc.Clock.Now().UTC()
			refund, state := ledger.RefundOnCompletion(campaign.BudgetState())

			from := campaign.Status
			campaign, expected := nextVersion(campaign)
			campaign.ApplyBudgetState(state)
			campaign.Status = entities.CampaignStatusCompleted
			completedAt := now
			campaign.CompletedAt = &completedAt
			campaign.UpdatedAt = now

			historyID, err := uc.IDGen.NewID(ctx)
			if err != nil {
				return ports.BudgetCommit{}, err
			}
			reason := strings.TrimSpace(cmd.Reason)
			if reason == "" {
				reason = "completed_with_refund"
			}
			history := &entities.StateHistory{
				HistoryID:    historyID,
				CampaignID:   campaign.CampaignID,
				FromState:    from,
				ToState:      entities.CampaignStatusCompleted,
				ChangedBy:    actorID,
				ChangeReason: reason,
				CreatedAt:    now,
			}

			logs := make([]entities.BudgetLog, 0, 1)
			if refund > 0 {
				logID, err := uc.IDGen.NewID(ctx)
				if err != nil {
					return ports.BudgetCommit{}, err
				}
				logs = append(logs, entities.BudgetLog{
					LogID:       logID,
					CampaignID:  campaign.CampaignID,
					AmountDelta: refund,
					Reason:      entities.BudgetReasonCompletionRefund,
					CreatedAt:   now,
				})
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
			completedEventID, err := uc.IDGen.NewID(ctx)
			if err != nil {
				return ports.BudgetCommit{}, err
			}
			completedEvent, err := newBudgetEnvelope(completedEventID, "campaign.completed",
				campaign.CampaignID, now, map[string]any{
					"campaign_id":  campaign.CampaignID,
					"brand_id":     campaign.BrandID,
					"reason":       reason,
					"refund_cents": refund,
				})
			if err != nil {
				return ports.BudgetCommit{}, err
			}

			result = CompleteWithRefundResult{RefundCents: refund}
			return ports.BudgetCommit{
				Campaign:        campaign,
				ExpectedVersion: expected,
				BudgetLogs:      logs,
				StateHistory:    history,
				Outbox:          []ports.EventEnvelope{budgetEvent, completedEvent},
			}, nil
		})
	if err != nil {
		return CompleteWithRefundResult{}, err
	}

	logger.Info("campaign completed with refund",
		"event", "campaign_completed_with_refund",
		"module", "finance-core/budget-ledger",
		"layer", "application",
		"campaign_id", commit.Campaign.CampaignID,
		"refund_cents", result.RefundCents,
	)
	return result, nil
}
