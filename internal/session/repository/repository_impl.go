package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/kassa/internal/session/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindActiveByCart(ctx context.Context, db *gorm.DB, cartID string) (*domain.SessionLink, error) {
	var link domain.SessionLink
	err := db.WithContext(ctx).Raw(
		`SELECT id, cart_id, session_id, is_active, is_changed, created_at, updated_at, deactivated_at
		 FROM checkout_session_links
		 WHERE cart_id = ? AND is_active = ?
		 ORDER BY created_at DESC
		 LIMIT 1`,
		cartID,
		true,
	).Scan(&link).Error
	if err != nil {
		return nil, err
	}
	if link.ID == 0 {
		return nil, nil
	}
	return &link, nil
}

func (r *repo) FindBySession(ctx context.Context, db *gorm.DB, sessionID string) (*domain.SessionLink, error) {
	var link domain.SessionLink
	err := db.WithContext(ctx).Raw(
		`SELECT id, cart_id, session_id, is_active, is_changed, created_at, updated_at, deactivated_at
		 FROM checkout_session_links
		 WHERE session_id = ?
		 ORDER BY created_at DESC
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

func (r *repo) Create(ctx context.Context, db *gorm.DB, link *domain.SessionLink) error {
	return db.WithContext(ctx).Create(link).Error
}

func (r *repo) Deactivate(ctx context.Context, db *gorm.DB, linkID int64, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE checkout_session_links
		 SET is_active = ?, deactivated_at = ?, updated_at = ?
		 WHERE id = ?`,
		false,
		at,
		at,
		linkID,
	).Error
}

func (r *repo) SetChanged(ctx context.Context, db *gorm.DB, cartID string, changed bool, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE checkout_session_links
		 SET is_changed = ?, updated_at = ?
		 WHERE cart_id = ? AND is_active = ?`,
		changed,
		at,
		cartID,
		true,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
