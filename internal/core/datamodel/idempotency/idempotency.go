package idempotency

import "time"

// Key is one processed-notification marker. Rows are best-effort duplicate
// suppression only; the conditional status update remains the correctness
// boundary, so losing or expiring rows is always safe.
type Key struct {
	ID        int64     `gorm:"primaryKey"`
	Key       string    `gorm:"column:key;not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null;index"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (Key) TableName() string {
	return "payment_idempotency_keys"
}
