package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/kassa/internal/ordersync/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindLinkBySession(ctx context.Context, db *gorm.DB, sessionID string) (*domain.OrderLink, error) {
	var link domain.OrderLink
	err := db.WithContext(ctx).Raw(
		`SELECT id, session_id, reservation_id, order_id, is_acknowledged,
		        created_at, updated_at
		 FROM checkout_order_links
		 WHERE session_id = ?
		 LIMIT 1`,
		sessionID,
	).Scan(&link).Error
	if err != nil {
		return nil, err
	}
	if link.ID == 0 {
		return nil, nil
	}
	return &link, nil
}

func (r *repo) CreateLink(ctx context.Context, db *gorm.DB, link *domain.OrderLink) error {
	return db.WithContext(ctx).Create(link).Error
}

func (r *repo) MarkAcknowledged(ctx context.Context, db *gorm.DB, linkID int64, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE checkout_order_links
		 SET is_acknowledged = ?, updated_at = ?
		 WHERE id = ?`,
		true,
		at,
		linkID,
	).Error
}

func (r *repo) RecordPushAttempt(ctx context.Context, db *gorm.DB, record *domain.PushRecord) (int, error) {
	err := db.WithContext(ctx).Exec(
		`INSERT INTO checkout_push_records (
			id, session_id, attempt_count, last_payload, created_at, updated_at
		) VALUES (?, ?, 1, ?, ?, ?)
		ON CONFLICT (session_id)
		DO UPDATE SET attempt_count = checkout_push_records.attempt_count + 1,
			last_payload = EXCLUDED.last_payload,
			updated_at = EXCLUDED.updated_at`,
		record.ID,
		record.SessionID,
		record.LastPayload,
		record.CreatedAt,
		record.UpdatedAt,
	).Error
	if err != nil {
		return 0, err
	}

	var count int
	err = db.WithContext(ctx).Raw(
		`SELECT attempt_count FROM checkout_push_records WHERE session_id = ?`,
		record.SessionID,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
