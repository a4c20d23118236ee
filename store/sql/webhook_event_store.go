package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-orders/core"
	"github.com/goliatone/go-orders/webhooks"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// reserveRetryDelay is the due time stamped on a freshly reserved event.
// If the synchronous attempt never runs (crash between Reserve and
// dispatch), the re-drive sweep picks the row up after this window instead
// of stranding it: redelivery is dedupe-acked, so the sweep is the only
// path back.
const reserveRetryDelay = time.Minute

type WebhookEventStore struct {
	db   *bun.DB
	repo repository.Repository[*webhookEventRecord]
}

func NewWebhookEventStore(db *bun.DB) (*WebhookEventStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*webhookEventRecord](db, webhookEventHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid webhook event repository wiring: %w", err)
		}
	}
	return &WebhookEventStore{
		db:   db,
		repo: repo,
	}, nil
}

// Reserve inserts the event row under the provider_event_id unique
// constraint. A violation means the event was already seen, possibly by a
// concurrent duplicate delivery; the existing row is returned instead.
// Checking existence before insert would reopen the race this closes.
func (s *WebhookEventStore) Reserve(
	ctx context.Context,
	provider string,
	providerEventID string,
	eventType string,
	payload []byte,
) (core.WebhookEvent, bool, error) {
	if s == nil || s.db == nil {
		return core.WebhookEvent{}, false, fmt.Errorf("sqlstore: webhook event store is not configured")
	}
	provider = strings.TrimSpace(provider)
	providerEventID = strings.TrimSpace(providerEventID)
	if provider == "" || providerEventID == "" {
		return core.WebhookEvent{}, false, fmt.Errorf("sqlstore: provider and provider event id are required")
	}

	now := time.Now().UTC()
	firstRetryAt := now.Add(reserveRetryDelay)
	record := &webhookEventRecord{
		ID:              uuid.NewString(),
		Provider:        provider,
		ProviderEventID: providerEventID,
		EventType:       strings.TrimSpace(eventType),
		Payload:         append([]byte(nil), payload...),
		Processed:       false,
		Attempts:        0,
		NextAttemptAt:   &firstRetryAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			existing, getErr := s.getByProviderEventID(ctx, providerEventID)
			if getErr != nil {
				return core.WebhookEvent{}, false, getErr
			}
			return existing, true, nil
		}
		return core.WebhookEvent{}, false, err
	}
	return webhookEventToDomain(record), false, nil
}

func (s *WebhookEventStore) Get(ctx context.Context, eventID string) (core.WebhookEvent, error) {
	if s == nil || s.db == nil {
		return core.WebhookEvent{}, fmt.Errorf("sqlstore: webhook event store is not configured")
	}
	record := &webhookEventRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", strings.TrimSpace(eventID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.WebhookEvent{}, fmt.Errorf("%w: %s", core.ErrWebhookEventNotFound, eventID)
		}
		return core.WebhookEvent{}, err
	}
	return webhookEventToDomain(record), nil
}

func (s *WebhookEventStore) MarkProcessed(ctx context.Context, eventID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: webhook event store is not configured")
	}
	now := time.Now().UTC()
	_, err := s.db.NewUpdate().
		Model((*webhookEventRecord)(nil)).
		Set("processed = ?", true).
		Set("processing_error = ''").
		Set("next_attempt_at = NULL").
		Set("updated_at = ?", now).
		Where("id = ?", strings.TrimSpace(eventID)).
		Exec(ctx)
	return err
}

func (s *WebhookEventStore) MarkFailed(
	ctx context.Context,
	eventID string,
	cause error,
	nextAttemptAt time.Time,
) (core.WebhookEvent, error) {
	if s == nil || s.db == nil {
		return core.WebhookEvent{}, fmt.Errorf("sqlstore: webhook event store is not configured")
	}
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	now := time.Now().UTC()
	_, err := s.db.NewUpdate().
		Model((*webhookEventRecord)(nil)).
		Set("attempts = attempts + 1").
		Set("processing_error = ?", message).
		Set("next_attempt_at = ?", nextAttemptAt.UTC()).
		Set("updated_at = ?", now).
		Where("id = ?", strings.TrimSpace(eventID)).
		Exec(ctx)
	if err != nil {
		return core.WebhookEvent{}, err
	}
	return s.Get(ctx, eventID)
}

// Escalate writes the dead-letter row for an exhausted event. The unique
// event_id reference keeps repeated escalation attempts to a single row.
func (s *WebhookEventStore) Escalate(ctx context.Context, event core.WebhookEvent, cause error) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: webhook event store is not configured")
	}
	message := event.ProcessingError
	if cause != nil {
		message = cause.Error()
	}
	record := &webhookDeadLetterRecord{
		ID:              uuid.NewString(),
		EventID:         event.ID,
		Provider:        event.Provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.EventType,
		Payload:         append([]byte(nil), event.Payload...),
		ErrorMessage:    message,
		Attempts:        event.Attempts,
		CreatedAt:       time.Now().UTC(),
	}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return nil
			}
			return err
		}
		// a dead-lettered event leaves the retryable window for good
		_, err := tx.NewUpdate().
			Model((*webhookEventRecord)(nil)).
			Set("next_attempt_at = NULL").
			Set("updated_at = ?", time.Now().UTC()).
			Where("id = ?", event.ID).
			Exec(ctx)
		return err
	})
	return err
}

func (s *WebhookEventStore) ListRetryable(
	ctx context.Context,
	due time.Time,
	maxAttempts int,
	limit int,
) ([]core.WebhookEvent, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: webhook event store is not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	var records []*webhookEventRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.processed = ?", false).
		Where("?TableAlias.attempts < ?", maxAttempts).
		Where("?TableAlias.next_attempt_at IS NOT NULL").
		Where("?TableAlias.next_attempt_at <= ?", due.UTC()).
		Order("next_attempt_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	events := make([]core.WebhookEvent, 0, len(records))
	for _, record := range records {
		events = append(events, webhookEventToDomain(record))
	}
	return events, nil
}

func (s *WebhookEventStore) ListDeadLetters(ctx context.Context, limit int) ([]core.WebhookDeadLetter, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: webhook event store is not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	var records []*webhookDeadLetterRecord
	err := s.db.NewSelect().
		Model(&records).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	letters := make([]core.WebhookDeadLetter, 0, len(records))
	for _, record := range records {
		letters = append(letters, core.WebhookDeadLetter{
			ID:              record.ID,
			EventID:         record.EventID,
			Provider:        record.Provider,
			ProviderEventID: record.ProviderEventID,
			EventType:       record.EventType,
			Payload:         append([]byte(nil), record.Payload...),
			ErrorMessage:    record.ErrorMessage,
			Attempts:        record.Attempts,
			CreatedAt:       record.CreatedAt,
		})
	}
	return letters, nil
}

func (s *WebhookEventStore) getByProviderEventID(ctx context.Context, providerEventID string) (core.WebhookEvent, error) {
	record := &webhookEventRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.provider_event_id = ?", providerEventID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.WebhookEvent{}, fmt.Errorf("%w: provider event %s", core.ErrWebhookEventNotFound, providerEventID)
		}
		return core.WebhookEvent{}, err
	}
	return webhookEventToDomain(record), nil
}

func webhookEventToDomain(record *webhookEventRecord) core.WebhookEvent {
	if record == nil {
		return core.WebhookEvent{}
	}
	event := core.WebhookEvent{
		ID:              record.ID,
		Provider:        record.Provider,
		ProviderEventID: record.ProviderEventID,
		EventType:       record.EventType,
		Payload:         append([]byte(nil), record.Payload...),
		Processed:       record.Processed,
		ProcessingError: record.ProcessingError,
		Attempts:        record.Attempts,
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
	}
	if record.NextAttemptAt != nil {
		value := *record.NextAttemptAt
		event.NextAttemptAt = &value
	}
	return event
}

var _ webhooks.EventLedger = (*WebhookEventStore)(nil)
