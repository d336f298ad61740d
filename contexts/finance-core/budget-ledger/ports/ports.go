package ports

import (
	"context"
	"time"

	"clipcash/contexts/finance-core/budget-ledger/domain/entities"
	contractsv1 "clipcash/contracts/gen/events/v1"
)

type CampaignRepository interface {
	CreateCampaign(ctx context.Context, campaign entities.Campaign) error
	GetCampaign(ctx context.Context, campaignID string) (entities.Campaign, error)
}

type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, submission entities.Submission) error
	GetSubmission(ctx context.Context, submissionID string) (entities.Submission, error)
}

// BudgetCommit is one atomic budget mutation: the campaign row with its new
// ledger state and incremented BudgetVersion, the optional submission write
// that belongs to the same operation, audit rows, and outbox events. The
// committer applies everything or nothing, and rejects the whole commit with
// ErrVersionConflict when the stored campaign version no longer matches
// ExpectedVersion.
type BudgetCommit struct {
	Campaign        entities.Campaign
	ExpectedVersion int64
	Submission      *entities.Submission
	BudgetLogs      []entities.BudgetLog
	StateHistory    *entities.StateHistory
	Outbox          []EventEnvelope
}

type BudgetCommitter interface {
	CommitBudgetOperation(ctx context.Context, commit BudgetCommit) error
}

type HistoryRepository interface {
	ListBudgetLog(ctx context.Context, campaignID string, limit int) ([]entities.BudgetLog, error)
}

// SweepRepository lists active campaigns that are candidates for the
// low-budget completion sweep.
type SweepRepository interface {
	ListActiveCampaigns(ctx context.Context, limit int) ([]entities.Campaign, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope = contractsv1.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}

type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}
