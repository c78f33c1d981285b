package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/kassa/internal/shippinggateway/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindBySession(ctx context.Context, db *gorm.DB, sessionID string) (*domain.Record, error) {
	var record domain.Record
	err := db.WithContext(ctx).Raw(
		`SELECT id, session_id, is_active, is_pickup_point, pickup_point_name,
		        native_method, shipping_amount, tax_amount, tax_rate, created_at, updated_at
		 FROM shipping_gateway_records
		 WHERE session_id = ?
		 LIMIT 1`,
		sessionID,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, record *domain.Record) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO shipping_gateway_records (
			id, session_id, is_active, is_pickup_point, pickup_point_name,
			native_method, shipping_amount, tax_amount, tax_rate, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (session_id)
		DO UPDATE SET is_active = EXCLUDED.is_active,
			is_pickup_point = EXCLUDED.is_pickup_point,
			pickup_point_name = EXCLUDED.pickup_point_name,
			native_method = EXCLUDED.native_method,
			shipping_amount = EXCLUDED.shipping_amount,
			tax_amount = EXCLUDED.tax_amount,
			tax_rate = EXCLUDED.tax_rate,
			updated_at = EXCLUDED.updated_at`,
		record.ID,
		record.SessionID,
		record.IsActive,
		record.IsPickupPoint,
		record.PickupPointName,
		record.NativeMethod,
		record.ShippingAmount,
		record.TaxAmount,
		record.TaxRate,
		record.CreatedAt,
		record.UpdatedAt,
	).Error
}

func (r *repo) SetActive(ctx context.Context, db *gorm.DB, sessionID string, active bool) error {
	return db.WithContext(ctx).Exec(
		`UPDATE shipping_gateway_records
		 SET is_active = ?, updated_at = ?
		 WHERE session_id = ?`,
		active,
		time.Now().UTC(),
		sessionID,
	).Error
}
