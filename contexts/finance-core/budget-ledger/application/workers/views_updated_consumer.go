package workers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "clipcash/contexts/finance-core/budget-ledger/application"
	"clipcash/contexts/finance-core/budget-ledger/application/commands"
	"clipcash/contexts/finance-core/budget-ledger/ports"
)

const (
	viewsUpdatedTopic         = "submission.views_updated"
	defaultViewsConsumerGroup = "budget-ledger-views-updated-cg"
)

// ViewsUpdatedConsumer drives reservation re-sizing from view-count events
// produced by the platform scrapers. Polling cadence is the scheduler's
// concern; this consumer only cares about the (old, new) view pair.
type ViewsUpdatedConsumer struct {
	Subscriber    ports.EventSubscriber
	Update        commands.UpdateForViewIncreaseUseCase
	Dedup         ports.EventDedupStore
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Disabled      bool
	Logger        *slog.Logger
}

func (c ViewsUpdatedConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	if c.Disabled {
		logger.Info("views-updated consumer disabled by feature flag",
			"event", "budget_views_consumer_disabled",
			"module", "finance-core/budget-ledger",
			"layer", "worker",
		)
		return nil
	}
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultViewsConsumerGroup
	}
	return c.Subscriber.Subscribe(ctx, viewsUpdatedTopic, group, c.handleViewsUpdated)
}

func (c ViewsUpdatedConsumer) handleViewsUpdated(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	now := time.Now().UTC()
	if c.Clock != nil {
		now = c.Clock.Now().UTC()
	}

	alreadyProcessed, err := c.Dedup.ReserveEvent(ctx, event.EventID, hashPayload(event.Data), now.Add(c.dedupTTL()))
	if err != nil {
		logger.Error("views-updated dedupe failed",
			"event", "budget_views_dedupe_failed",
			"module", "finance-core/budget-ledger",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	if alreadyProcessed {
		logger.Debug("views-updated event already processed",
			"event", "budget_views_replayed",
			"module", "finance-core/budget-ledger",
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}

	var payload struct {
		CampaignID   string `json:"campaign_id"`
		SubmissionID string `json:"submission_id"`
		OldViewCount int64  `json:"old_view_count"`
		NewViewCount int64  `json:"new_view_count"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		return fmt.Errorf("decode views-updated payload: %w", err)
	}
	if strings.TrimSpace(payload.CampaignID) == "" || strings.TrimSpace(payload.SubmissionID) == "" {
		return fmt.Errorf("views-updated payload missing campaign_id or submission_id")
	}

	result, err := c.Update.Execute(ctx, commands.UpdateForViewIncreaseCommand{
		CampaignID:   payload.CampaignID,
		SubmissionID: payload.SubmissionID,
		OldViewCount: payload.OldViewCount,
		NewViewCount: payload.NewViewCount,
	})
	if err != nil {
		logger.Error("views-updated budget resize failed",
			"event", "budget_views_resize_failed",
			"module", "finance-core/budget-ledger",
			"layer", "worker",
			"event_id", event.EventID,
			"campaign_id", payload.CampaignID,
			"submission_id", payload.SubmissionID,
			"error", err.Error(),
		)
		return err
	}

	logger.Info("views-updated applied to budget",
		"event", "budget_views_applied",
		"module", "finance-core/budget-ledger",
		"layer", "worker",
		"event_id", event.EventID,
		"campaign_id", payload.CampaignID,
		"submission_id", payload.SubmissionID,
		"changed", result.Changed,
		"new_earnings_cents", result.NewEarningsCents,
		"auto_completed", result.AutoCompleted,
	)
	return nil
}

func (c ViewsUpdatedConsumer) dedupTTL() time.Duration {
	if c.DedupTTL > 0 {
		return c.DedupTTL
	}
	return 7 * 24 * time.Hour
}

func hashPayload(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
