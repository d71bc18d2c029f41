package payment

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/invoice-management/internal/core/events"
)

// AuditEventHandler records every invoice status change and payment link
// creation to the structured log, forming the audit trail for reconciliation.
type AuditEventHandler struct {
	logger *slog.Logger
}

func NewAuditEventHandler(logger *slog.Logger) *AuditEventHandler {
	return &AuditEventHandler{logger: logger}
}

func (h *AuditEventHandler) HandleStatusChanged(ctx context.Context, event events.Event) error {
	h.logger.Info("audit: invoice status changed",
		"event_id", event.EventID(),
		"event_type", event.EventType(),
		"occurred_at", event.OccurredAt(),
		"payload", event.Payload())
	return nil
}

func (h *AuditEventHandler) HandleLinkCreated(ctx context.Context, event events.Event) error {
	h.logger.Info("audit: payment link created",
		"event_id", event.EventID(),
		"occurred_at", event.OccurredAt(),
		"payload", event.Payload())
	return nil
}

func (h *AuditEventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypeInvoicePaid, h.HandleStatusChanged)
	eventBus.Subscribe(events.EventTypeInvoiceFailed, h.HandleStatusChanged)
	eventBus.Subscribe(events.EventTypeInvoiceExpired, h.HandleStatusChanged)
	eventBus.Subscribe(events.EventTypePaymentLinkCreated, h.HandleLinkCreated)

	h.logger.Info("audit event handlers registered",
		"handlers", []string{
			events.EventTypeInvoicePaid,
			events.EventTypeInvoiceFailed,
			events.EventTypeInvoiceExpired,
			events.EventTypePaymentLinkCreated,
		})
}
