package unit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	budgetledger "clipcash/contexts/finance-core/budget-ledger"
	"clipcash/contexts/finance-core/budget-ledger/application/workers"
	"clipcash/contexts/finance-core/budget-ledger/domain/entities"
	"clipcash/contexts/finance-core/budget-ledger/ports"
	httptransport "clipcash/contexts/finance-core/budget-ledger/transport/http"
	"clipcash/internal/platform/messaging"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type capturingPublisher struct {
	topics []string
	events []ports.EventEnvelope
}

func (p *capturingPublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

type stubSubscriber struct {
	handlers map[string]func(context.Context, ports.EventEnvelope) error
}

func (s *stubSubscriber) Subscribe(
	_ context.Context,
	topic string,
	_ string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	if s.handlers == nil {
		s.handlers = map[string]func(context.Context, ports.EventEnvelope) error{}
	}
	s.handlers[topic] = handler
	return nil
}

func TestBudgetOutboxRelayPublishesPendingEvents(t *testing.T) {
	module := budgetledger.NewInMemoryModule(
		[]entities.Campaign{activeCampaign("campaign-w1", 10_000, 1_000, 0)},
		[]entities.Submission{pendingSubmission("submission-w1", "campaign-w1")},
		nil,
	)
	ctx := context.Background()

	if _, err := module.Handler.ReserveBudgetHandler(ctx, "campaign-w1", httptransport.ReserveBudgetRequest{
		SubmissionID: "submission-w1",
		ViewCount:    1_000,
	}); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	publisher := &capturingPublisher{}
	relay := workers.OutboxRelay{
		Outbox:    module.Store,
		Publisher: publisher,
		Clock:     fixedClock{now: time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)},
	}
	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("relay run failed: %v", err)
	}

	wantTopics := map[string]bool{
		"campaign.budget_updated":     false,
		"submission.earnings_updated": false,
	}
	for _, topic := range publisher.topics {
		if _, known := wantTopics[topic]; known {
			wantTopics[topic] = true
		}
	}
	for topic, seen := range wantTopics {
		if !seen {
			t.Fatalf("expected %s to be published, got topics %v", topic, publisher.topics)
		}
	}

	pending, err := module.Store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list pending outbox failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected drained outbox, got %d pending rows", len(pending))
	}

	// A second run has nothing to publish.
	before := len(publisher.events)
	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("second relay run failed: %v", err)
	}
	if len(publisher.events) != before {
		t.Fatalf("expected no republishing, got %d new events", len(publisher.events)-before)
	}
}

func TestLowBudgetCompleterSweepsStarvedCampaigns(t *testing.T) {
	// 900 cents remaining cannot fund 1000 views at a 1000 cent CPM.
	starved := activeCampaign("campaign-w2", 10_000, 1_000, 0)
	starved.BudgetSpentCents = 9_100
	starved.BudgetRemainingCents = 900

	healthy := activeCampaign("campaign-w3", 10_000, 1_000, 0)

	module := budgetledger.NewInMemoryModule(
		[]entities.Campaign{starved, healthy},
		nil,
		nil,
	)
	ctx := context.Background()

	completer := workers.LowBudgetCompleter{
		Sweep:         module.Store,
		Complete:      module.Handler.CompleteWithRefund,
		ViewThreshold: 1_000,
	}
	if err := completer.RunOnce(ctx); err != nil {
		t.Fatalf("completer run failed: %v", err)
	}

	swept, err := module.Store.GetCampaign(ctx, "campaign-w2")
	if err != nil {
		t.Fatalf("load swept campaign failed: %v", err)
	}
	if swept.Status != entities.CampaignStatusCompleted {
		t.Fatalf("expected starved campaign completed, got %s", swept.Status)
	}
	if swept.BudgetTotalCents != 9_100 || swept.BudgetRemainingCents != 0 {
		t.Fatalf("expected re-baselined budget, got total=%d remaining=%d",
			swept.BudgetTotalCents, swept.BudgetRemainingCents)
	}

	untouched, err := module.Store.GetCampaign(ctx, "campaign-w3")
	if err != nil {
		t.Fatalf("load healthy campaign failed: %v", err)
	}
	if untouched.Status != entities.CampaignStatusActive {
		t.Fatalf("expected healthy campaign untouched, got %s", untouched.Status)
	}

	history := module.Store.StateHistory()
	if len(history) != 1 || history[0].ChangedBy != "system" {
		t.Fatalf("expected one system-driven flip, got %+v", history)
	}
}

func TestViewsUpdatedConsumerResizesAndDeduplicates(t *testing.T) {
	module := budgetledger.NewInMemoryModule(
		[]entities.Campaign{activeCampaign("campaign-w4", 10_000, 1_000, 0)},
		[]entities.Submission{pendingSubmission("submission-w4", "campaign-w4")},
		nil,
	)
	ctx := context.Background()

	if _, err := module.Handler.ReserveBudgetHandler(ctx, "campaign-w4", httptransport.ReserveBudgetRequest{
		SubmissionID: "submission-w4",
		ViewCount:    1_000,
	}); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	sub := &stubSubscriber{}
	consumer := workers.ViewsUpdatedConsumer{
		Subscriber: sub,
		Update:     module.Handler.UpdateForViewIncrease,
		Dedup:      module.Store,
		Clock:      fixedClock{now: time.Date(2026, 8, 3, 15, 0, 0, 0, time.UTC)},
	}
	if err := consumer.Start(ctx); err != nil {
		t.Fatalf("start consumer failed: %v", err)
	}
	handler := sub.handlers["submission.views_updated"]
	if handler == nil {
		t.Fatalf("expected submission.views_updated handler registration")
	}

	payload, _ := json.Marshal(map[string]any{
		"campaign_id":    "campaign-w4",
		"submission_id":  "submission-w4",
		"old_view_count": 1_000,
		"new_view_count": 1_800,
	})
	event := ports.EventEnvelope{
		EventID:   "event-views-1",
		EventType: "submission.views_updated",
		Data:      payload,
	}
	if err := handler(ctx, event); err != nil {
		t.Fatalf("views-updated handler failed: %v", err)
	}

	campaign, err := module.Store.GetCampaign(ctx, "campaign-w4")
	if err != nil {
		t.Fatalf("load campaign failed: %v", err)
	}
	if campaign.BudgetReservedCents != 1_800 {
		t.Fatalf("expected reservation resized to 1800, got %d", campaign.BudgetReservedCents)
	}

	// A replayed event is swallowed by the dedup store.
	if err := handler(ctx, event); err != nil {
		t.Fatalf("replayed handler failed: %v", err)
	}
	replayed, err := module.Store.GetCampaign(ctx, "campaign-w4")
	if err != nil {
		t.Fatalf("load campaign after replay failed: %v", err)
	}
	if replayed.BudgetReservedCents != 1_800 || replayed.BudgetVersion != campaign.BudgetVersion {
		t.Fatalf("expected replay to be a no-op, got reserved=%d version=%d",
			replayed.BudgetReservedCents, replayed.BudgetVersion)
	}
}

type failingPublisher struct {
	calls int
}

func (p *failingPublisher) Publish(context.Context, string, ports.EventEnvelope) error {
	p.calls++
	return errors.New("broker unavailable")
}

func TestBudgetOutboxRelayKeepsRowsPendingOnPublishFailure(t *testing.T) {
	module := budgetledger.NewInMemoryModule(
		[]entities.Campaign{activeCampaign("campaign-w5", 10_000, 1_000, 0)},
		[]entities.Submission{pendingSubmission("submission-w5", "campaign-w5")},
		nil,
	)
	ctx := context.Background()

	if _, err := module.Handler.ReserveBudgetHandler(ctx, "campaign-w5", httptransport.ReserveBudgetRequest{
		SubmissionID: "submission-w5",
		ViewCount:    1_000,
	}); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	before, err := module.Store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list pending outbox failed: %v", err)
	}
	if len(before) == 0 {
		t.Fatal("expected outbox rows from the reservation")
	}

	// A refused delivery must leave every row pending so the next run can
	// retry it; marking it published would lose the event for good.
	relay := workers.OutboxRelay{
		Outbox:    module.Store,
		Publisher: &failingPublisher{},
		Clock:     fixedClock{now: time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)},
	}
	if err := relay.RunOnce(ctx); err == nil {
		t.Fatal("expected relay run to fail when the broker refuses delivery")
	}
	pending, err := module.Store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list pending outbox failed: %v", err)
	}
	if len(pending) != len(before) {
		t.Fatalf("expected %d rows still pending, got %d", len(before), len(pending))
	}

	// Once the broker accepts again the same rows flow through.
	publisher := &capturingPublisher{}
	relay.Publisher = publisher
	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("retry run failed: %v", err)
	}
	if len(publisher.events) != len(before) {
		t.Fatalf("expected %d events delivered on retry, got %d", len(before), len(publisher.events))
	}
	drained, err := module.Store.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list pending outbox failed: %v", err)
	}
	if len(drained) != 0 {
		t.Fatalf("expected drained outbox, got %d pending rows", len(drained))
	}
}

func TestKafkaPublishRefusesWhenSubscriberSaturated(t *testing.T) {
	bus, err := messaging.NewKafka(nil, nil)
	if err != nil {
		t.Fatalf("new bus failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gate := make(chan struct{})
	defer close(gate)
	if err := bus.Subscribe(ctx, "campaign.budget_updated", "budget-worker",
		func(context.Context, ports.EventEnvelope) error {
			<-gate
			return nil
		}); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	// With the handler wedged the subscriber can absorb at most its channel
	// buffer plus one in-flight event; pushing well past that must surface
	// backpressure as an error instead of silently dropping.
	refused := false
	for i := 0; i < 200; i++ {
		err := bus.Publish(ctx, "campaign.budget_updated", ports.EventEnvelope{
			EventID:   fmt.Sprintf("event-sat-%d", i),
			EventType: "campaign.budget_updated",
		})
		if err != nil {
			refused = true
			break
		}
	}
	if !refused {
		t.Fatal("expected a saturated subscriber to refuse delivery")
	}
}
