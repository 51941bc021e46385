package gorm

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	appoutbox "rentverse/internal/app/outbox"
)

const (
	stateNew     = "NEW"
	stateClaimed = "CLAIMED"
	stateSent    = "SENT"
	stateFailed  = "FAILED"
)

// OutboxStore persists outbox records. Inside a unit of work it runs on
// the unit's transaction; the worker uses one bound to the base handle.
type OutboxStore struct {
	db *gorm.DB
}

func NewOutboxStore(db *gorm.DB) *OutboxStore {
	return &OutboxStore{db: db}
}

func (s *OutboxStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	headers := ""
	if len(record.Headers) > 0 {
		raw, err := json.Marshal(record.Headers)
		if err != nil {
			return err
		}
		headers = string(raw)
	}
	now := time.Now().UTC()
	model := outboxModel{
		ID:          record.ID,
		Kind:        string(record.Kind),
		Name:        record.Name,
		Aggregate:   record.Aggregate,
		Payload:     record.Payload,
		Headers:     headers,
		State:       stateNew,
		NextAttempt: now,
		OccurredAt:  record.OccurredAt,
		CreatedAt:   now,
	}
	return s.db.WithContext(ctx).Create(&model).Error
}

// EventDocument is the worker's view of a stored record.
type EventDocument struct {
	ID         string
	Kind       appoutbox.Kind
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
	Attempts   int
}

// Claim atomically takes the oldest due NEW or FAILED record. Returns
// nil when nothing is due.
func (s *OutboxStore) Claim(ctx context.Context, workerID string) (*EventDocument, error) {
	now := time.Now().UTC()
	var model outboxModel
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := rowLock(tx).
			Where("state IN ? AND next_attempt <= ?", []string{stateNew, stateFailed}, now).
			Order("next_attempt ASC").
			First(&model).Error
		if err != nil {
			return err
		}
		return tx.Model(&outboxModel{}).
			Where("id = ?", model.ID).
			Updates(map[string]any{
				"state":      stateClaimed,
				"claimed_by": workerID,
				"claimed_at": now,
			}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	doc := &EventDocument{
		ID:         model.ID,
		Kind:       appoutbox.Kind(model.Kind),
		Name:       model.Name,
		Payload:    model.Payload,
		OccurredAt: model.OccurredAt,
		Aggregate:  model.Aggregate,
		Attempts:   model.Attempts,
		Headers:    map[string]string{},
	}
	if model.Headers != "" {
		if err := json.Unmarshal([]byte(model.Headers), &doc.Headers); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Model(&outboxModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"state": stateSent, "sent_at": now}).Error
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	return s.db.WithContext(ctx).Model(&outboxModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"state":        stateFailed,
			"next_attempt": next.UTC(),
			"last_error":   errMsg,
			"attempts":     gorm.Expr("attempts + 1"),
		}).Error
}

var _ appoutbox.Outbox = (*OutboxStore)(nil)
