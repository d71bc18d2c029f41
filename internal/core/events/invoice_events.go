package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeInvoicePaid        = "invoice.paid"
	EventTypeInvoiceFailed      = "invoice.payment_failed"
	EventTypeInvoiceExpired     = "invoice.expired"
	EventTypePaymentLinkCreated = "invoice.payment_link_created"
)

// InvoiceStatusChangedEvent is emitted after a gateway notification has been
// applied to an invoice by the atomic conditional update. It is the audit
// trail for every status transition, keyed by the winning delivery.
type InvoiceStatusChangedEvent struct {
	BaseEvent
	InvoiceID     int64  `json:"invoice_id"`
	OrderID       string `json:"order_id"`
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	NewStatus     string `json:"new_status"`
}

func NewInvoiceStatusChangedEvent(eventType string, invoiceID int64, orderID, transactionID string, amount int64, newStatus string) *InvoiceStatusChangedEvent {
	return &InvoiceStatusChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"invoice_id":     invoiceID,
				"order_id":       orderID,
				"transaction_id": transactionID,
				"amount":         amount,
				"new_status":     newStatus,
			},
		},
		InvoiceID:     invoiceID,
		OrderID:       orderID,
		TransactionID: transactionID,
		Amount:        amount,
		NewStatus:     newStatus,
	}
}

type PaymentLinkCreatedEvent struct {
	BaseEvent
	InvoiceID    int64  `json:"invoice_id"`
	OrderID      string `json:"order_id"`
	AttemptCount int    `json:"attempt_count"`
	PaymentLink  string `json:"payment_link"`
}

func NewPaymentLinkCreatedEvent(invoiceID int64, orderID string, attemptCount int, paymentLink string) *PaymentLinkCreatedEvent {
	return &PaymentLinkCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentLinkCreated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"invoice_id":    invoiceID,
				"order_id":      orderID,
				"attempt_count": attemptCount,
				"payment_link":  paymentLink,
			},
		},
		InvoiceID:    invoiceID,
		OrderID:      orderID,
		AttemptCount: attemptCount,
		PaymentLink:  paymentLink,
	}
}
