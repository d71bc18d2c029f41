package invoice

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

type Invoice struct {
	ID      int64  `gorm:"primaryKey"`
	OrderID string `gorm:"column:order_id;not null;index:idx_invoices_order_id,unique,where:deleted_at IS NULL"`
	Amount  int64  `gorm:"column:amount;not null"`
	Status  Status `gorm:"column:status;not null;default:PENDING"`

	PaymentType     *string         `gorm:"column:payment_type"`
	Bank            *string         `gorm:"column:bank"`
	VANumber        *string         `gorm:"column:va_number"`
	GatewayResponse json.RawMessage `gorm:"column:gateway_response;type:jsonb"`

	PaymentLink          *string    `gorm:"column:payment_link"`
	PaymentLinkCreatedAt *time.Time `gorm:"column:payment_link_created_at"`
	PaymentAttemptCount  int        `gorm:"column:payment_attempt_count;not null;default:0"`

	PaidAt    *time.Time     `gorm:"column:paid_at"`
	CreatedAt time.Time      `gorm:"column:created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Invoice) TableName() string {
	return "invoices"
}

// HasActiveLink reports whether the last generated payment link is still
// inside its freshness window at the given instant.
func (i *Invoice) HasActiveLink(window time.Duration, now time.Time) bool {
	if i.PaymentLink == nil || *i.PaymentLink == "" || i.PaymentLinkCreatedAt == nil {
		return false
	}
	return now.Sub(*i.PaymentLinkCreatedAt) < window
}
