package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"clipcash/contexts/finance-core/budget-ledger/domain/entities"
	domainerrors "clipcash/contexts/finance-core/budget-ledger/domain/errors"
	"clipcash/contexts/finance-core/budget-ledger/ports"

	"github.com/google/uuid"
)

type outboxRow struct {
	message   ports.OutboxMessage
	published bool
}

type dedupRow struct {
	payloadHash string
	expiresAt   time.Time
}

// Store is the in-memory adapter used by tests and local wiring. The single
// mutex makes every commit atomic, and the version check inside the locked
// section gives the same compare-and-swap semantics as the postgres adapter.
type Store struct {
	mu sync.RWMutex

	campaigns   map[string]entities.Campaign
	submissions map[string]entities.Submission
	budgetLog   []entities.BudgetLog
	stateLog    []entities.StateHistory
	outbox      []outboxRow
	dedup       map[string]dedupRow
}

func NewStore(seedCampaigns []entities.Campaign, seedSubmissions []entities.Submission) *Store {
	campaigns := make(map[string]entities.Campaign, len(seedCampaigns))
	for _, item := range seedCampaigns {
		campaigns[item.CampaignID] = item
	}
	submissions := make(map[string]entities.Submission, len(seedSubmissions))
	for _, item := range seedSubmissions {
		submissions[item.SubmissionID] = item
	}
	return &Store{
		campaigns:   campaigns,
		submissions: submissions,
		budgetLog:   make([]entities.BudgetLog, 0),
		stateLog:    make([]entities.StateHistory, 0),
		outbox:      make([]outboxRow, 0),
		dedup:       make(map[string]dedupRow),
	}
}

func (s *Store) CreateCampaign(_ context.Context, campaign entities.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.campaigns[campaign.CampaignID]; exists {
		return domainerrors.ErrInvalidInput
	}
	s.campaigns[campaign.CampaignID] = campaign
	return nil
}

func (s *Store) GetCampaign(_ context.Context, campaignID string) (entities.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.campaigns[strings.TrimSpace(campaignID)]
	if !exists {
		return entities.Campaign{}, domainerrors.ErrCampaignNotFound
	}
	return item, nil
}

func (s *Store) CreateSubmission(_ context.Context, submission entities.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.submissions[submission.SubmissionID]; exists {
		return domainerrors.ErrInvalidInput
	}
	s.submissions[submission.SubmissionID] = submission
	return nil
}

func (s *Store) GetSubmission(_ context.Context, submissionID string) (entities.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.submissions[strings.TrimSpace(submissionID)]
	if !exists {
		return entities.Submission{}, domainerrors.ErrSubmissionNotFound
	}
	return item, nil
}

func (s *Store) CommitBudgetOperation(_ context.Context, commit ports.BudgetCommit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.campaigns[commit.Campaign.CampaignID]
	if !exists {
		return domainerrors.ErrCampaignNotFound
	}
	if current.BudgetVersion != commit.ExpectedVersion {
		return domainerrors.ErrVersionConflict
	}

	s.campaigns[commit.Campaign.CampaignID] = commit.Campaign
	if commit.Submission != nil {
		s.submissions[commit.Submission.SubmissionID] = *commit.Submission
	}
	s.budgetLog = append(s.budgetLog, commit.BudgetLogs...)
	if commit.StateHistory != nil {
		s.stateLog = append(s.stateLog, *commit.StateHistory)
	}
	for _, envelope := range commit.Outbox {
		payload, err := json.Marshal(envelope)
		if err != nil {
			return err
		}
		s.outbox = append(s.outbox, outboxRow{
			message: ports.OutboxMessage{
				OutboxID:     envelope.EventID,
				EventType:    envelope.EventType,
				PartitionKey: envelope.PartitionKey,
				Payload:      payload,
				CreatedAt:    envelope.OccurredAt.UTC(),
			},
		})
	}
	return nil
}

func (s *Store) ListBudgetLog(_ context.Context, campaignID string, limit int) ([]entities.BudgetLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.BudgetLog, 0)
	for _, item := range s.budgetLog {
		if item.CampaignID == strings.TrimSpace(campaignID) {
			items = append(items, item)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) ListActiveCampaigns(_ context.Context, limit int) ([]entities.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Campaign, 0)
	for _, campaign := range s.campaigns {
		if campaign.Status == entities.CampaignStatusActive {
			items = append(items, campaign)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CampaignID < items[j].CampaignID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0)
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
		if len(items) >= limit {
			break
		}
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.outbox {
		if s.outbox[i].message.OutboxID == outboxID {
			s.outbox[i].published = true
			return nil
		}
	}
	return domainerrors.ErrInvalidInput
}

func (s *Store) ReserveEvent(_ context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, exists := s.dedup[eventID]; exists {
		if existing.payloadHash != payloadHash {
			return false, domainerrors.ErrInvalidInput
		}
		return true, nil
	}
	s.dedup[eventID] = dedupRow{payloadHash: payloadHash, expiresAt: expiresAt.UTC()}
	return false, nil
}

// StateHistory returns a copy of the recorded status flips, oldest first.
func (s *Store) StateHistory() []entities.StateHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.StateHistory(nil), s.stateLog...)
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
