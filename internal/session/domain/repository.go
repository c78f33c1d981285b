package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	FindActiveByCart(ctx context.Context, db *gorm.DB, cartID string) (*SessionLink, error)
	FindBySession(ctx context.Context, db *gorm.DB, sessionID string) (*SessionLink, error)
	Create(ctx context.Context, db *gorm.DB, link *SessionLink) error
	Deactivate(ctx context.Context, db *gorm.DB, linkID int64, at time.Time) error
	SetChanged(ctx context.Context, db *gorm.DB, cartID string, changed bool, at time.Time) (bool, error)
}
