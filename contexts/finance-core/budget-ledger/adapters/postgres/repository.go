package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"clipcash/contexts/finance-core/budget-ledger/domain/entities"
	domainerrors "clipcash/contexts/finance-core/budget-ledger/domain/errors"
	"clipcash/contexts/finance-core/budget-ledger/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) CreateCampaign(ctx context.Context, campaign entities.Campaign) error {
	row := campaignModelFromEntity(campaign)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (r *Repository) GetCampaign(ctx context.Context, campaignID string) (entities.Campaign, error) {
	var row campaignModel
	err := r.db.WithContext(ctx).
		Where("campaign_id = ?", strings.TrimSpace(campaignID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Campaign{}, domainerrors.ErrCampaignNotFound
		}
		return entities.Campaign{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) CreateSubmission(ctx context.Context, submission entities.Submission) error {
	row := submissionModelFromEntity(submission)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (r *Repository) GetSubmission(ctx context.Context, submissionID string) (entities.Submission, error) {
	var row submissionModel
	err := r.db.WithContext(ctx).
		Where("submission_id = ?", strings.TrimSpace(submissionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Submission{}, domainerrors.ErrSubmissionNotFound
		}
		return entities.Submission{}, err
	}
	return row.toEntity(), nil
}

// CommitBudgetOperation applies one budget mutation atomically. The campaign
// update is a compare-and-swap on budget_version: zero rows affected means a
// concurrent writer won and the whole transaction rolls back with
// ErrVersionConflict so the use case can retry against fresh state.
func (r *Repository) CommitBudgetOperation(ctx context.Context, commit ports.BudgetCommit) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&campaignModel{}).
			Where("campaign_id = ? AND budget_version = ?", commit.Campaign.CampaignID, commit.ExpectedVersion).
			Updates(campaignBudgetUpdates(commit.Campaign))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&campaignModel{}).
				Where("campaign_id = ?", commit.Campaign.CampaignID).
				Count(&count).
				Error; err != nil {
				return err
			}
			if count == 0 {
				return domainerrors.ErrCampaignNotFound
			}
			return domainerrors.ErrVersionConflict
		}

		if commit.Submission != nil {
			subResult := tx.Model(&submissionModel{}).
				Where("submission_id = ?", commit.Submission.SubmissionID).
				Updates(submissionUpdates(*commit.Submission))
			if subResult.Error != nil {
				return subResult.Error
			}
			if subResult.RowsAffected == 0 {
				return domainerrors.ErrSubmissionNotFound
			}
		}

		for _, item := range commit.BudgetLogs {
			row := budgetLogModel{
				LogID:        strings.TrimSpace(item.LogID),
				CampaignID:   strings.TrimSpace(item.CampaignID),
				SubmissionID: strings.TrimSpace(item.SubmissionID),
				AmountDelta:  item.AmountDelta,
				Reason:       strings.TrimSpace(item.Reason),
				CreatedAt:    item.CreatedAt.UTC(),
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}

		if commit.StateHistory != nil {
			row := stateHistoryModel{
				HistoryID:    strings.TrimSpace(commit.StateHistory.HistoryID),
				CampaignID:   strings.TrimSpace(commit.StateHistory.CampaignID),
				FromState:    string(commit.StateHistory.FromState),
				ToState:      string(commit.StateHistory.ToState),
				ChangedBy:    strings.TrimSpace(commit.StateHistory.ChangedBy),
				ChangeReason: strings.TrimSpace(commit.StateHistory.ChangeReason),
				CreatedAt:    commit.StateHistory.CreatedAt.UTC(),
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}

		for _, envelope := range commit.Outbox {
			if err := insertOutboxEnvelopeTx(tx, envelope); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) ListBudgetLog(ctx context.Context, campaignID string, limit int) ([]entities.BudgetLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []budgetLogModel
	if err := r.db.WithContext(ctx).
		Where("campaign_id = ?", strings.TrimSpace(campaignID)).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}

	items := make([]entities.BudgetLog, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.BudgetLog{
			LogID:        row.LogID,
			CampaignID:   row.CampaignID,
			SubmissionID: row.SubmissionID,
			AmountDelta:  row.AmountDelta,
			Reason:       row.Reason,
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) ListActiveCampaigns(ctx context.Context, limit int) ([]entities.Campaign, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []campaignModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(entities.CampaignStatusActive)).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}

	items := make([]entities.Campaign, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}

	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrInvalidInput
	}
	return nil
}

func (r *Repository) ReserveEvent(
	ctx context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	row := eventDedupModel{
		EventID:     strings.TrimSpace(eventID),
		PayloadHash: strings.TrimSpace(payloadHash),
		ExpiresAt:   expiresAt.UTC(),
		ProcessedAt: time.Now().UTC(),
	}

	createResult := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(&row)
	if createResult.Error != nil {
		return false, createResult.Error
	}
	if createResult.RowsAffected > 0 {
		return false, nil
	}

	var existing eventDedupModel
	if err := r.db.WithContext(ctx).
		Select("payload_hash").
		Where("event_id = ?", row.EventID).
		First(&existing).
		Error; err != nil {
		return false, err
	}
	if existing.PayloadHash != row.PayloadHash {
		return false, domainerrors.ErrInvalidInput
	}
	return true, nil
}

func insertOutboxEnvelopeTx(tx *gorm.DB, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	createResult := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if createResult.Error != nil {
		return createResult.Error
	}
	return nil
}

type campaignModel struct {
	CampaignID           string     `gorm:"column:campaign_id;primaryKey"`
	BrandID              string     `gorm:"column:brand_id"`
	Title                string     `gorm:"column:title"`
	BudgetTotalCents     int64      `gorm:"column:budget_total_cents"`
	BudgetSpentCents     int64      `gorm:"column:budget_spent_cents"`
	BudgetReservedCents  int64      `gorm:"column:budget_reserved_cents"`
	BudgetRemainingCents int64      `gorm:"column:budget_remaining_cents"`
	BudgetVersion        int64      `gorm:"column:budget_version"`
	CpmRateCents         int64      `gorm:"column:cpm_rate_cents"`
	MaxPayoutCents       int64      `gorm:"column:max_payout_cents"`
	Status               string     `gorm:"column:status"`
	SubmissionCount      int        `gorm:"column:submission_count"`
	TotalViews           int64      `gorm:"column:total_views"`
	CreatedAt            time.Time  `gorm:"column:created_at"`
	UpdatedAt            time.Time  `gorm:"column:updated_at"`
	CompletedAt          *time.Time `gorm:"column:completed_at"`
}

func (campaignModel) TableName() string {
	return "campaigns"
}

func campaignModelFromEntity(item entities.Campaign) campaignModel {
	return campaignModel{
		CampaignID:           strings.TrimSpace(item.CampaignID),
		BrandID:              strings.TrimSpace(item.BrandID),
		Title:                strings.TrimSpace(item.Title),
		BudgetTotalCents:     item.BudgetTotalCents,
		BudgetSpentCents:     item.BudgetSpentCents,
		BudgetReservedCents:  item.BudgetReservedCents,
		BudgetRemainingCents: item.BudgetRemainingCents,
		BudgetVersion:        item.BudgetVersion,
		CpmRateCents:         item.CpmRateCents,
		MaxPayoutCents:       item.MaxPayoutCents,
		Status:               string(item.Status),
		SubmissionCount:      item.SubmissionCount,
		TotalViews:           item.TotalViews,
		CreatedAt:            item.CreatedAt.UTC(),
		UpdatedAt:            item.UpdatedAt.UTC(),
		CompletedAt:          normalizeOptionalTime(item.CompletedAt),
	}
}

func campaignBudgetUpdates(item entities.Campaign) map[string]any {
	row := campaignModelFromEntity(item)
	return map[string]any{
		"budget_total_cents":     row.BudgetTotalCents,
		"budget_spent_cents":     row.BudgetSpentCents,
		"budget_reserved_cents":  row.BudgetReservedCents,
		"budget_remaining_cents": row.BudgetRemainingCents,
		"budget_version":         row.BudgetVersion,
		"submission_count":       row.SubmissionCount,
		"total_views":            row.TotalViews,
		"status":                 row.Status,
		"updated_at":             row.UpdatedAt,
		"completed_at":           row.CompletedAt,
	}
}

func (m campaignModel) toEntity() entities.Campaign {
	return entities.Campaign{
		CampaignID:           m.CampaignID,
		BrandID:              m.BrandID,
		Title:                m.Title,
		BudgetTotalCents:     m.BudgetTotalCents,
		BudgetSpentCents:     m.BudgetSpentCents,
		BudgetReservedCents:  m.BudgetReservedCents,
		BudgetRemainingCents: m.BudgetRemainingCents,
		BudgetVersion:        m.BudgetVersion,
		CpmRateCents:         m.CpmRateCents,
		MaxPayoutCents:       m.MaxPayoutCents,
		Status:               entities.CampaignStatus(m.Status),
		SubmissionCount:      m.SubmissionCount,
		TotalViews:           m.TotalViews,
		CreatedAt:            m.CreatedAt.UTC(),
		UpdatedAt:            m.UpdatedAt.UTC(),
		CompletedAt:          normalizeOptionalTime(m.CompletedAt),
	}
}

type submissionModel struct {
	SubmissionID  string     `gorm:"column:submission_id;primaryKey"`
	CampaignID    string     `gorm:"column:campaign_id"`
	CreatorID     string     `gorm:"column:creator_id"`
	Platform      string     `gorm:"column:platform"`
	PostURL       string     `gorm:"column:post_url"`
	Status        string     `gorm:"column:status"`
	ViewCount     int64      `gorm:"column:view_count"`
	EarningsCents int64      `gorm:"column:earnings_cents"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
	PaidAt        *time.Time `gorm:"column:paid_at"`
}

func (submissionModel) TableName() string {
	return "submissions"
}

func submissionModelFromEntity(item entities.Submission) submissionModel {
	return submissionModel{
		SubmissionID:  strings.TrimSpace(item.SubmissionID),
		CampaignID:    strings.TrimSpace(item.CampaignID),
		CreatorID:     strings.TrimSpace(item.CreatorID),
		Platform:      strings.TrimSpace(item.Platform),
		PostURL:       strings.TrimSpace(item.PostURL),
		Status:        string(item.Status),
		ViewCount:     item.ViewCount,
		EarningsCents: item.EarningsCents,
		CreatedAt:     item.CreatedAt.UTC(),
		UpdatedAt:     item.UpdatedAt.UTC(),
		PaidAt:        normalizeOptionalTime(item.PaidAt),
	}
}

func submissionUpdates(item entities.Submission) map[string]any {
	row := submissionModelFromEntity(item)
	return map[string]any{
		"status":         row.Status,
		"view_count":     row.ViewCount,
		"earnings_cents": row.EarningsCents,
		"updated_at":     row.UpdatedAt,
		"paid_at":        row.PaidAt,
	}
}

func (m submissionModel) toEntity() entities.Submission {
	return entities.Submission{
		SubmissionID:  m.SubmissionID,
		CampaignID:    m.CampaignID,
		CreatorID:     m.CreatorID,
		Platform:      m.Platform,
		PostURL:       m.PostURL,
		Status:        entities.SubmissionStatus(m.Status),
		ViewCount:     m.ViewCount,
		EarningsCents: m.EarningsCents,
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
		PaidAt:        normalizeOptionalTime(m.PaidAt),
	}
}

type budgetLogModel struct {
	LogID        string    `gorm:"column:log_id;primaryKey"`
	CampaignID   string    `gorm:"column:campaign_id"`
	SubmissionID string    `gorm:"column:submission_id"`
	AmountDelta  int64     `gorm:"column:amount_delta"`
	Reason       string    `gorm:"column:reason"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (budgetLogModel) TableName() string {
	return "campaign_budget_log"
}

type stateHistoryModel struct {
	HistoryID    string    `gorm:"column:history_id;primaryKey"`
	CampaignID   string    `gorm:"column:campaign_id"`
	FromState    string    `gorm:"column:from_state"`
	ToState      string    `gorm:"column:to_state"`
	ChangedBy    string    `gorm:"column:changed_by"`
	ChangeReason string    `gorm:"column:change_reason"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (stateHistoryModel) TableName() string {
	return "campaign_state_history"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "budget_outbox"
}

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
}

func (eventDedupModel) TableName() string {
	return "budget_event_dedup"
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
