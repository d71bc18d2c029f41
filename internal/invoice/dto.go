package invoice

import (
	"time"

	errors "github.com/frahmantamala/invoice-management/internal"
	"github.com/frahmantamala/invoice-management/internal/core/common/validation"
	"github.com/frahmantamala/invoice-management/internal/core/datamodel/invoice"
)

type CreateInvoiceDTO struct {
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
}

func (d *CreateInvoiceDTO) Validate() error {
	validator := validation.NewValidator()

	validator.Field("order_id", d.OrderID).Required().MaxLength(64)
	validator.Field("amount", d.Amount).Required().MinInt(1, errors.ErrCodeInvalidAmount)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type InvoiceView struct {
	ID                   int64      `json:"id"`
	OrderID              string     `json:"order_id"`
	Amount               int64      `json:"amount"`
	Status               string     `json:"status"`
	PaymentType          *string    `json:"payment_type,omitempty"`
	Bank                 *string    `json:"bank,omitempty"`
	VANumber             *string    `json:"va_number,omitempty"`
	PaymentLink          *string    `json:"payment_link,omitempty"`
	PaymentLinkCreatedAt *time.Time `json:"payment_link_created_at,omitempty"`
	PaymentAttemptCount  int        `json:"payment_attempt_count"`
	PaidAt               *time.Time `json:"paid_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func ToView(inv *invoice.Invoice) *InvoiceView {
	if inv == nil {
		return nil
	}
	return &InvoiceView{
		ID:                   inv.ID,
		OrderID:              inv.OrderID,
		Amount:               inv.Amount,
		Status:               string(inv.Status),
		PaymentType:          inv.PaymentType,
		Bank:                 inv.Bank,
		VANumber:             inv.VANumber,
		PaymentLink:          inv.PaymentLink,
		PaymentLinkCreatedAt: inv.PaymentLinkCreatedAt,
		PaymentAttemptCount:  inv.PaymentAttemptCount,
		PaidAt:               inv.PaidAt,
		CreatedAt:            inv.CreatedAt,
		UpdatedAt:            inv.UpdatedAt,
	}
}
