package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"clipcash/contexts/finance-core/budget-ledger/application/commands"
	"clipcash/contexts/finance-core/budget-ledger/application/queries"
	httptransport "clipcash/contexts/finance-core/budget-ledger/transport/http"
)

type Handler struct {
	ReserveForSubmission  commands.ReserveForSubmissionUseCase
	SpendForPayout        commands.SpendForPayoutUseCase
	UpdateForViewIncrease commands.UpdateForViewIncreaseUseCase
	ReleaseForSubmission  commands.ReleaseForSubmissionUseCase
	CompleteWithRefund    commands.CompleteWithRefundUseCase
	GetBudget             queries.GetBudgetUseCase
	ListBudgetLog         queries.ListBudgetLogUseCase
	Logger                *slog.Logger
}

func (h Handler) ReserveBudgetHandler(
	ctx context.Context,
	campaignID string,
	req httptransport.ReserveBudgetRequest,
) (httptransport.ReserveBudgetResponse, error) {
	result, err := h.ReserveForSubmission.Execute(ctx, commands.ReserveForSubmissionCommand{
		CampaignID:   campaignID,
		SubmissionID: req.SubmissionID,
		ViewCount:    req.ViewCount,
	})
	if err != nil {
		return httptransport.ReserveBudgetResponse{}, err
	}
	return httptransport.ReserveBudgetResponse{
		ReservedCents: result.ReservedCents,
		AutoCompleted: result.AutoCompleted,
		Status:        string(result.NewStatus),
	}, nil
}

func (h Handler) SpendBudgetHandler(
	ctx context.Context,
	campaignID string,
	req httptransport.SpendBudgetRequest,
) (httptransport.SpendBudgetResponse, error) {
	result, err := h.SpendForPayout.Execute(ctx, commands.SpendForPayoutCommand{
		CampaignID:   campaignID,
		SubmissionID: req.SubmissionID,
		AmountCents:  req.AmountCents,
	})
	if err != nil {
		return httptransport.SpendBudgetResponse{}, err
	}
	return httptransport.SpendBudgetResponse{SpentCents: result.SpentCents}, nil
}

func (h Handler) ViewIncreaseHandler(
	ctx context.Context,
	campaignID string,
	req httptransport.ViewIncreaseRequest,
) (httptransport.ViewIncreaseResponse, error) {
	result, err := h.UpdateForViewIncrease.Execute(ctx, commands.UpdateForViewIncreaseCommand{
		CampaignID:   campaignID,
		SubmissionID: req.SubmissionID,
		OldViewCount: req.OldViewCount,
		NewViewCount: req.NewViewCount,
	})
	if err != nil {
		return httptransport.ViewIncreaseResponse{}, err
	}
	return httptransport.ViewIncreaseResponse{
		Changed:          result.Changed,
		OldEarningsCents: result.OldEarningsCents,
		NewEarningsCents: result.NewEarningsCents,
		AutoCompleted:    result.AutoCompleted,
		Status:           string(result.NewStatus),
	}, nil
}

func (h Handler) ReleaseBudgetHandler(
	ctx context.Context,
	campaignID string,
	req httptransport.ReleaseBudgetRequest,
) (httptransport.ReleaseBudgetResponse, error) {
	result, err := h.ReleaseForSubmission.Execute(ctx, commands.ReleaseForSubmissionCommand{
		CampaignID:   campaignID,
		SubmissionID: req.SubmissionID,
		Reason:       req.Reason,
	})
	if err != nil {
		return httptransport.ReleaseBudgetResponse{}, err
	}
	return httptransport.ReleaseBudgetResponse{ReleasedCents: result.ReleasedCents}, nil
}

func (h Handler) CompleteCampaignHandler(
	ctx context.Context,
	actorID string,
	campaignID string,
	req httptransport.CompleteCampaignRequest,
) (httptransport.CompleteCampaignResponse, error) {
	result, err := h.CompleteWithRefund.Execute(ctx, commands.CompleteWithRefundCommand{
		CampaignID: campaignID,
		ActorID:    actorID,
		Reason:     req.Reason,
	})
	if err != nil {
		return httptransport.CompleteCampaignResponse{}, err
	}
	return httptransport.CompleteCampaignResponse{RefundCents: result.RefundCents}, nil
}

func (h Handler) GetBudgetHandler(ctx context.Context, campaignID string) (httptransport.BudgetResponse, error) {
	snapshot, err := h.GetBudget.Execute(ctx, campaignID)
	if err != nil {
		return httptransport.BudgetResponse{}, err
	}
	return httptransport.BudgetResponse{
		CampaignID:           snapshot.Campaign.CampaignID,
		BudgetTotalCents:     snapshot.Campaign.BudgetTotalCents,
		BudgetSpentCents:     snapshot.Campaign.BudgetSpentCents,
		BudgetReservedCents:  snapshot.Campaign.BudgetReservedCents,
		BudgetRemainingCents: snapshot.Campaign.BudgetRemainingCents,
		Status:               string(snapshot.Campaign.Status),
		Utilization: httptransport.UtilizationDTO{
			SpentPct:     snapshot.Utilization.SpentPct,
			ReservedPct:  snapshot.Utilization.ReservedPct,
			RemainingPct: snapshot.Utilization.RemainingPct,
		},
	}, nil
}

func (h Handler) ListBudgetLogHandler(
	ctx context.Context,
	campaignID string,
	limit int,
) (httptransport.ListBudgetLogResponse, error) {
	items, err := h.ListBudgetLog.Execute(ctx, queries.ListBudgetLogQuery{
		CampaignID: campaignID,
		Limit:      limit,
	})
	if err != nil {
		return httptransport.ListBudgetLogResponse{}, err
	}
	result := make([]httptransport.BudgetLogDTO, 0, len(items))
	for _, item := range items {
		result = append(result, httptransport.BudgetLogDTO{
			LogID:        item.LogID,
			SubmissionID: item.SubmissionID,
			AmountDelta:  item.AmountDelta,
			Reason:       item.Reason,
			CreatedAt:    item.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return httptransport.ListBudgetLogResponse{Items: result}, nil
}
