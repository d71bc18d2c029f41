package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/invoice-management/internal"
	"github.com/frahmantamala/invoice-management/internal/core/datamodel/invoice"
	"github.com/frahmantamala/invoice-management/internal/core/events"
	invoicepkg "github.com/frahmantamala/invoice-management/internal/invoice"
	"github.com/frahmantamala/invoice-management/internal/paymentgateway"
)

// LinkGateway creates hosted payment links at the external gateway.
type LinkGateway interface {
	CreatePaymentLink(ctx context.Context, req paymentgateway.CreateLinkRequest) (*paymentgateway.PaymentLink, error)
}

type LinkResult struct {
	InvoiceID    int64  `json:"invoice_id"`
	OrderID      string `json:"order_id"`
	PaymentLink  string `json:"payment_link"`
	AttemptCount int    `json:"attempt_count"`
	// Reused reports that a still-fresh link was returned instead of
	// generating a new one. Reuse does not consume attempt budget.
	Reused bool `json:"reused"`
}

// LinkCoordinator produces single-use payment links under an attempt budget.
//
// The protocol has three phases: a short locked transaction that checks
// eligibility, consumes one attempt and stamps a provisional timestamp; an
// unlocked external call; and a final transaction that either persists the
// link or compensates by clearing the provisional marker. No database lock is
// ever held across the gateway call, and a failed call still consumes budget
// so the number of external calls per invoice stays bounded.
type LinkCoordinator struct {
	store    invoicepkg.Repository
	gateway  LinkGateway
	eventBus *events.EventBus
	logger   *slog.Logger

	linkExpiry  time.Duration
	maxAttempts int
}

func NewLinkCoordinator(store invoicepkg.Repository, gateway LinkGateway, eventBus *events.EventBus, linkExpiry time.Duration, maxAttempts int, logger *slog.Logger) *LinkCoordinator {
	if linkExpiry <= 0 {
		linkExpiry = 30 * time.Minute
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &LinkCoordinator{
		store:       store,
		gateway:     gateway,
		eventBus:    eventBus,
		linkExpiry:  linkExpiry,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

func (c *LinkCoordinator) GenerateLink(ctx context.Context, invoiceID int64) (*LinkResult, error) {
	var (
		inv     *invoice.Invoice
		attempt int
		reused  *LinkResult
	)

	// Phase 1: locked eligibility check, budget consumption, provisional stamp.
	err := c.store.WithinTransaction(func(tx invoicepkg.Repository) error {
		found, err := tx.LockedFind(invoiceID)
		if err != nil {
			return err
		}

		if found.Status == invoice.StatusPaid || found.Status == invoice.StatusExpired {
			c.logger.Warn("link generation rejected for terminal invoice",
				"invoice_id", invoiceID,
				"status", found.Status)
			return errors.ErrInvoiceNotPayable
		}

		now := time.Now().UTC()
		if found.HasActiveLink(c.linkExpiry, now) {
			reused = &LinkResult{
				InvoiceID:    found.ID,
				OrderID:      found.OrderID,
				PaymentLink:  *found.PaymentLink,
				AttemptCount: found.PaymentAttemptCount,
				Reused:       true,
			}
			return nil
		}

		if found.PaymentAttemptCount >= c.maxAttempts {
			c.logger.Warn("payment link attempt budget exhausted",
				"invoice_id", invoiceID,
				"attempt_count", found.PaymentAttemptCount)
			return errors.ErrAttemptBudgetExhausted
		}

		if err := tx.StampLinkAttempt(found.ID, now); err != nil {
			return fmt.Errorf("failed to stamp link attempt: %w", err)
		}

		inv = found
		attempt = found.PaymentAttemptCount + 1
		return nil
	})
	if err != nil {
		if _, ok := errors.IsAppError(err); ok {
			return nil, err
		}
		return nil, errors.NewInternalError("failed to prepare payment link attempt", err)
	}
	if reused != nil {
		c.logger.Info("returning existing active payment link",
			"invoice_id", reused.InvoiceID,
			"attempt_count", reused.AttemptCount)
		return reused, nil
	}

	// From here on the attempt is stamped; a panic anywhere below must
	// compensate like a failed gateway call before propagating.
	defer func() {
		if rec := recover(); rec != nil {
			c.compensate(invoiceID)
			panic(rec)
		}
	}()

	// Phase 2: external call, no lock held. The reference embeds the attempt
	// number so each attempt is a distinct, idempotent gateway reference.
	link, gatewayErr := c.gateway.CreatePaymentLink(ctx, paymentgateway.CreateLinkRequest{
		ReferenceID:   linkReference(inv.OrderID, attempt),
		Amount:        inv.Amount,
		ExpiryMinutes: int(c.linkExpiry.Minutes()),
		UsageLimit:    1,
	})
	if gatewayErr != nil {
		// Phase 3b: compensate. The provisional marker is cleared but the
		// attempt stays consumed; a failed call still burns budget.
		c.compensate(invoiceID)
		c.logger.Error("payment link creation failed",
			"error", gatewayErr,
			"invoice_id", invoiceID,
			"attempt", attempt)
		return nil, errors.NewExternalError("payment link creation failed", gatewayErr)
	}

	// Phase 3a: persist the link, keeping the phase-1 stamp as creation time.
	err = c.store.WithinTransaction(func(tx invoicepkg.Repository) error {
		if _, err := tx.LockedFind(invoiceID); err != nil {
			return err
		}
		return tx.SavePaymentLink(invoiceID, link.PaymentURL)
	})
	if err != nil {
		c.logger.Error("failed to persist payment link", "error", err, "invoice_id", invoiceID)
		return nil, errors.NewInternalError("failed to persist payment link", err)
	}

	if c.eventBus != nil {
		event := events.NewPaymentLinkCreatedEvent(inv.ID, inv.OrderID, attempt, link.PaymentURL)
		if err := c.eventBus.Publish(ctx, event); err != nil {
			c.logger.Error("failed to publish link created event", "error", err, "event_id", event.EventID())
		}
	}

	c.logger.Info("payment link generated",
		"invoice_id", inv.ID,
		"order_id", inv.OrderID,
		"attempt", attempt)

	return &LinkResult{
		InvoiceID:    inv.ID,
		OrderID:      inv.OrderID,
		PaymentLink:  link.PaymentURL,
		AttemptCount: attempt,
	}, nil
}

func (c *LinkCoordinator) compensate(invoiceID int64) {
	err := c.store.WithinTransaction(func(tx invoicepkg.Repository) error {
		if _, err := tx.LockedFind(invoiceID); err != nil {
			return err
		}
		return tx.ClearPaymentLink(invoiceID)
	})
	if err != nil {
		c.logger.Error("failed to compensate failed link attempt",
			"error", err,
			"invoice_id", invoiceID)
	}
}

// linkReference builds the deterministic gateway reference for one attempt:
// a truncated order id plus the attempt number.
func linkReference(orderID string, attempt int) string {
	truncated := orderID
	if len(truncated) > 20 {
		truncated = truncated[:20]
	}
	return fmt.Sprintf("%s-%d", truncated, attempt)
}
