package payment

import (
	"context"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/invoice-management/internal"
	"github.com/frahmantamala/invoice-management/internal/core/datamodel/invoice"
	"github.com/frahmantamala/invoice-management/internal/core/events"
	invoicepkg "github.com/frahmantamala/invoice-management/internal/invoice"
)

type ReconcileOutcome string

const (
	// OutcomeApplied means this delivery won the conditional update and the
	// invoice status changed.
	OutcomeApplied ReconcileOutcome = "applied"
	// OutcomeDuplicate means the exact delivery was already processed and was
	// short-circuited by the idempotency store.
	OutcomeDuplicate ReconcileOutcome = "duplicate"
	// OutcomeNoop means the notification was valid but produced no state
	// change: a replay, a still-pending status, or a lost race. Reported as
	// success so the gateway does not retry.
	OutcomeNoop ReconcileOutcome = "noop"
)

type ReconcileResult struct {
	Outcome ReconcileOutcome `json:"outcome"`
	OrderID string           `json:"order_id"`
	Status  invoice.Status   `json:"status"`
}

// ReconcilerStore is the slice of the invoice repository reconciliation needs.
type ReconcilerStore interface {
	FindByOrderID(orderID string) (*invoice.Invoice, error)
	ConditionalUpdateStatus(orderID string, expected, next invoice.Status, meta invoicepkg.PaymentMetadata) (int64, error)
}

// Reconciler turns one inbound gateway notification into at most one invoice
// status change, exactly once in effect, regardless of delivery duplication
// or ordering. The conditional update is the sole arbiter of racing
// deliveries; everything before it only rejects bad input early.
type Reconciler struct {
	store       ReconcilerStore
	idempotency IdempotencyStore
	eventBus    *events.EventBus
	logger      *slog.Logger

	serverKey        string
	enforceSignature bool
}

func NewReconciler(store ReconcilerStore, idempotency IdempotencyStore, eventBus *events.EventBus, serverKey string, enforceSignature bool, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:            store,
		idempotency:      idempotency,
		eventBus:         eventBus,
		serverKey:        serverKey,
		enforceSignature: enforceSignature,
		logger:           logger,
	}
}

func (r *Reconciler) Reconcile(ctx context.Context, n *Notification) (*ReconcileResult, error) {
	if err := n.Validate(); err != nil {
		r.logger.Error("notification failed schema validation", "error", err, "order_id", n.OrderID)
		return nil, err
	}

	if !VerifySignature(n, r.serverKey, r.enforceSignature) {
		r.logger.Error("notification signature mismatch",
			"order_id", n.OrderID,
			"transaction_id", n.TransactionID)
		return nil, errors.ErrInvalidSignature
	}

	key := n.IdempotencyKey()
	if r.idempotency != nil && r.idempotency.Seen(key) {
		r.logger.Info("duplicate notification short-circuited",
			"order_id", n.OrderID,
			"transaction_id", n.TransactionID,
			"transaction_status", n.TransactionStatus)
		return &ReconcileResult{Outcome: OutcomeDuplicate, OrderID: n.OrderID}, nil
	}

	inv, err := r.store.FindByOrderID(n.OrderID)
	if err != nil {
		if _, ok := errors.IsAppError(err); ok {
			r.logger.Error("invoice not found for notification", "order_id", n.OrderID, "error", err)
			return nil, err
		}
		r.logger.Error("invoice lookup failed", "order_id", n.OrderID, "error", err)
		return nil, errors.NewInternalError("failed to load invoice", err)
	}

	if err := r.checkBusinessRules(inv, n); err != nil {
		return nil, err
	}

	next, ok := MapVendorStatus(n.TransactionStatus)
	if !ok {
		r.logger.Error("unknown gateway transaction status",
			"order_id", n.OrderID,
			"transaction_status", n.TransactionStatus)
		return nil, errors.ErrUnknownGatewayStatus
	}

	if !invoice.CanTransition(inv.Status, next) {
		// replays and races land here; success-with-no-effect, never an error
		r.logger.Info("notification produced no transition",
			"order_id", n.OrderID,
			"current_status", inv.Status,
			"target_status", next)
		return &ReconcileResult{Outcome: OutcomeNoop, OrderID: n.OrderID, Status: inv.Status}, nil
	}

	meta := r.buildMetadata(n, next)
	rows, err := r.store.ConditionalUpdateStatus(n.OrderID, invoice.StatusPending, next, meta)
	if err != nil {
		r.logger.Error("conditional status update failed", "error", err, "order_id", n.OrderID)
		return nil, errors.NewInternalError("failed to update invoice status", err)
	}

	if rows == 0 {
		// a concurrent delivery already moved the row out of PENDING
		r.logger.Info("lost conditional update race",
			"order_id", n.OrderID,
			"target_status", next)
		return &ReconcileResult{Outcome: OutcomeNoop, OrderID: n.OrderID, Status: inv.Status}, nil
	}

	if r.idempotency != nil {
		r.idempotency.Record(key)
	}
	r.publishAuditEvent(ctx, inv, n, next)

	r.logger.Info("notification reconciled",
		"order_id", n.OrderID,
		"transaction_id", n.TransactionID,
		"old_status", inv.Status,
		"new_status", next)

	return &ReconcileResult{Outcome: OutcomeApplied, OrderID: n.OrderID, Status: next}, nil
}

func (r *Reconciler) checkBusinessRules(inv *invoice.Invoice, n *Notification) error {
	gross, err := n.GrossAmount.Int64()
	if err != nil {
		return errors.NewValidationFieldError("gross_amount", err.Error(), errors.ErrCodeInvalidAmount)
	}

	// exact match, no tolerance
	if gross != inv.Amount {
		r.logger.Warn("notification amount mismatch",
			"order_id", n.OrderID,
			"invoice_amount", inv.Amount,
			"gross_amount", gross)
		return errors.ErrAmountMismatch
	}

	// only PENDING or FAILED invoices may receive a payment notification
	if inv.Status == invoice.StatusPaid || inv.Status == invoice.StatusExpired {
		r.logger.Warn("notification for non-payable invoice",
			"order_id", n.OrderID,
			"status", inv.Status)
		return errors.ErrInvoiceNotPayable
	}

	return nil
}

func (r *Reconciler) buildMetadata(n *Notification, next invoice.Status) invoicepkg.PaymentMetadata {
	meta := invoicepkg.PaymentMetadata{
		GatewayResponse: n.Raw,
	}
	if n.PaymentType != "" {
		meta.PaymentType = &n.PaymentType
	}
	if len(n.VANumbers) > 0 {
		meta.Bank = &n.VANumbers[0].Bank
		meta.VANumber = &n.VANumbers[0].VANumber
	}
	if next == invoice.StatusPaid {
		now := time.Now().UTC()
		meta.PaidAt = &now
	}
	return meta
}

func (r *Reconciler) publishAuditEvent(ctx context.Context, inv *invoice.Invoice, n *Notification, next invoice.Status) {
	if r.eventBus == nil {
		return
	}

	var eventType string
	switch next {
	case invoice.StatusPaid:
		eventType = events.EventTypeInvoicePaid
	case invoice.StatusExpired:
		eventType = events.EventTypeInvoiceExpired
	default:
		eventType = events.EventTypeInvoiceFailed
	}

	event := events.NewInvoiceStatusChangedEvent(eventType, inv.ID, inv.OrderID, n.TransactionID, inv.Amount, string(next))
	if err := r.eventBus.Publish(ctx, event); err != nil {
		r.logger.Error("failed to publish audit event", "error", err, "event_id", event.EventID())
	}
}
