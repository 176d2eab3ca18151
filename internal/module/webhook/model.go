package webhook

import "time"

// NotificationRecord is the audit row persisted for each inbound webhook
// notification and its reconciliation outcome.
type NotificationRecord struct {
	ID         uint64    `gorm:"primaryKey"`
	Source     string    `gorm:"size:32;index"` // payment | compliance
	PaymentID  string    `gorm:"size:64;index"`
	Kind       string    `gorm:"size:32"`
	Outcome    string    `gorm:"size:32"`
	Payload    string    `gorm:"type:text"`
	ReceivedAt time.Time `gorm:"index"`
}

// TableName sets the table name.
func (NotificationRecord) TableName() string {
	return "webhook_notifications"
}
