package workers

import (
	"context"
	"errors"
	"log/slog"

	application "clipcash/contexts/finance-core/budget-ledger/application"
	"clipcash/contexts/finance-core/budget-ledger/application/commands"
	"clipcash/contexts/finance-core/budget-ledger/domain/earnings"
	domainerrors "clipcash/contexts/finance-core/budget-ledger/domain/errors"
	"clipcash/contexts/finance-core/budget-ledger/ports"
)

// LowBudgetCompleter sweeps active campaigns whose remaining budget can no
// longer fund a meaningful submission and completes them, routing the refund
// through the same use case brand-initiated completion uses.
type LowBudgetCompleter struct {
	Sweep         ports.SweepRepository
	Complete      commands.CompleteWithRefundUseCase
	BatchSize     int
	ViewThreshold int64
	Disabled      bool
	Logger        *slog.Logger
}

func (j LowBudgetCompleter) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(j.Logger)
	if j.Disabled {
		logger.Info("low-budget completer disabled by feature flag",
			"event", "budget_low_budget_completer_disabled",
			"module", "finance-core/budget-ledger",
			"layer", "worker",
		)
		return nil
	}
	limit := j.BatchSize
	if limit <= 0 {
		limit = 100
	}
	threshold := j.ViewThreshold
	if threshold <= 0 {
		threshold = earnings.DefaultCompletionViewThreshold
	}

	candidates, err := j.Sweep.ListActiveCampaigns(ctx, limit)
	if err != nil {
		logger.Error("low-budget sweep list failed",
			"event", "budget_low_budget_sweep_list_failed",
			"module", "finance-core/budget-ledger",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	for _, campaign := range candidates {
		if !earnings.ShouldCompleteCampaign(campaign.BudgetRemainingCents, campaign.CpmRateCents, threshold) {
			continue
		}
		result, err := j.Complete.Execute(ctx, commands.CompleteWithRefundCommand{
			CampaignID: campaign.CampaignID,
			ActorID:    "system",
			Reason:     "budget_exhausted",
		})
		if err != nil {
			// A racing operation may have completed the campaign already.
			if errors.Is(err, domainerrors.ErrInvalidStatusTransition) {
				continue
			}
			logger.Error("low-budget completion failed",
				"event", "budget_low_budget_completion_failed",
				"module", "finance-core/budget-ledger",
				"layer", "worker",
				"campaign_id", campaign.CampaignID,
				"error", err.Error(),
			)
			return err
		}
		logger.Info("campaign completed by low-budget sweep",
			"event", "budget_low_budget_completed",
			"module", "finance-core/budget-ledger",
			"layer", "worker",
			"campaign_id", campaign.CampaignID,
			"refund_cents", result.RefundCents,
		)
	}
	return nil
}
