package gorm

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rentverse/internal/app/idempotency"
)

type IdempotencyStore struct {
	db *gorm.DB
	// TTL bounds how long a replayed result stays valid.
	TTL time.Duration
}

func NewIdempotencyStore(db *gorm.DB, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{db: db, TTL: ttl}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (idempotency.Record, bool, error) {
	var model idempotencyModel
	if err := s.db.WithContext(ctx).First(&model, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return idempotency.Record{}, false, nil
		}
		return idempotency.Record{}, false, err
	}
	if s.TTL > 0 && time.Since(model.CreatedAt) > s.TTL {
		_ = s.db.WithContext(ctx).Delete(&idempotencyModel{}, "key = ?", key).Error
		return idempotency.Record{}, false, nil
	}
	return idempotency.Record{
		Key:        model.Key,
		Payload:    model.Payload,
		Error:      model.Error,
		OccurredAt: model.OccurredAt,
	}, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec idempotency.Record) error {
	model := idempotencyModel{
		Key:        rec.Key,
		Payload:    rec.Payload,
		Error:      rec.Error,
		OccurredAt: rec.OccurredAt,
		CreatedAt:  time.Now().UTC(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&model).Error
}

var _ idempotency.Store = (*IdempotencyStore)(nil)
