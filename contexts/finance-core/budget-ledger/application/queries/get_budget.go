package queries

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

type BudgetSnapshot struct {
	Campaign    entities.Campaign
	Utilization ledger.Utilization
}

type GetBudgetUseCase struct {
	Campaigns ports.CampaignRepository
	Logger    *slog.Logger
}

func (uc GetBudgetUseCase) Execute(ctx context.Context, campaignID string) (BudgetSnapshot, error) {
	logger := application.ResolveLogger(uc.Logger)
	if strings.TrimSpace(campaignID) == "" {
		return BudgetSnapshot{}, domainerrors.ErrInvalidInput
	}

	campaign, err := uc.Campaigns.GetCampaign(ctx, strings.TrimSpace(campaignID))
	if err != nil {
		return BudgetSnapshot{}, err
	}

	logger.Debug("budget snapshot read",
		"event", "budget_snapshot_read",
		"module", "finance-core/budget-ledger",
		"layer", "application",
		"campaign_id", campaign.CampaignID,
	)
	return BudgetSnapshot{
		Campaign:    campaign,
		Utilization: ledger.UtilizationOf(campaign.BudgetState()),
	}, nil
}
