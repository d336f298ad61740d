package commands

import (
	"encoding/json"
	"time"

	"clipcash/contexts/finance-core/budget-ledger/domain/entities"
	"clipcash/contexts/finance-core/budget-ledger/ports"
)

func newBudgetEnvelope(
	eventID string,
	eventType string,
	campaignID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "budget-ledger",
		SchemaVersion:    1,
		PartitionKeyPath: "campaign_id",
		PartitionKey:     campaignID,
		Data:             payload,
	}, nil
}

func budgetUpdatedData(campaign entities.Campaign) map[string]any {
	return map[string]any{
		"campaign_id":            campaign.CampaignID,
		"budget_total_cents":     campaign.BudgetTotalCents,
		"budget_spent_cents":     campaign.BudgetSpentCents,
		"budget_reserved_cents":  campaign.BudgetReservedCents,
		"budget_remaining_cents": campaign.BudgetRemainingCents,
	}
}
