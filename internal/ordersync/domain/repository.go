package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	FindLinkBySession(ctx context.Context, db *gorm.DB, sessionID string) (*OrderLink, error)
	CreateLink(ctx context.Context, db *gorm.DB, link *OrderLink) error
	MarkAcknowledged(ctx context.Context, db *gorm.DB, linkID int64, at time.Time) error

	// RecordPushAttempt upserts the push record for a session and returns the
	// attempt count after the increment.
	RecordPushAttempt(ctx context.Context, db *gorm.DB, record *PushRecord) (int, error)
}
