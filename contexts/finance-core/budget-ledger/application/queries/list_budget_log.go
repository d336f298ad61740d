package queries

import (
	"context"
	"log/slog"
	"strings"

	application "clipcash/contexts/finance-core/budget-ledger/application"
	"clipcash/contexts/finance-core/budget-ledger/domain/entities"
	domainerrors "clipcash/contexts/finance-core/budget-ledger/domain/errors"
	"clipcash/contexts/finance-core/budget-ledger/ports"
)

type ListBudgetLogQuery struct {
	CampaignID string
	Limit      int
}

type ListBudgetLogUseCase struct {
	History ports.HistoryRepository
	Logger  *slog.Logger
}

func (uc ListBudgetLogUseCase) Execute(ctx context.Context, query ListBudgetLogQuery) ([]entities.BudgetLog, error) {
	logger := application.ResolveLogger(uc.Logger)
	campaignID := strings.TrimSpace(query.CampaignID)
	if campaignID == "" {
		return nil, domainerrors.ErrInvalidInput
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 100
	}

	items, err := uc.History.ListBudgetLog(ctx, campaignID, limit)
	if err != nil {
		return nil, err
	}

	logger.Debug("budget log listed",
		"event", "budget_log_listed",
		"module", "finance-core/budget-ledger",
		"layer", "application",
		"campaign_id", campaignID,
		"count", len(items),
	)
	return items, nil
}
