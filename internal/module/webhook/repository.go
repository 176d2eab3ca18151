package webhook

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// EventLog is an append-only audit trail of webhook traffic. It is
// best-effort: a write failure is logged by the caller and never changes
// the response to the notifier.
type EventLog interface {
	Record(ctx context.Context, rec *NotificationRecord) error
	RecentByPaymentID(ctx context.Context, paymentID string, limit int) ([]NotificationRecord, error)
}

// GormEventLog is the database-backed EventLog.
type GormEventLog struct {
	db *gorm.DB
}

// NewGormEventLog creates an event log and migrates its table.
func NewGormEventLog(db *gorm.DB) (*GormEventLog, error) {
	if err := db.AutoMigrate(&NotificationRecord{}); err != nil {
		return nil, err
	}
	return &GormEventLog{db: db}, nil
}

// Record appends one notification record.
func (l *GormEventLog) Record(ctx context.Context, rec *NotificationRecord) error {
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now().UTC()
	}
	return l.db.WithContext(ctx).Create(rec).Error
}

// RecentByPaymentID lists the latest records for a payment id, newest first.
func (l *GormEventLog) RecentByPaymentID(ctx context.Context, paymentID string, limit int) ([]NotificationRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []NotificationRecord
	err := l.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("received_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
