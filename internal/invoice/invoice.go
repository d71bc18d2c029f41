package invoice

import (
	"encoding/json"
	"time"

	"github.com/frahmantamala/invoice-management/internal/core/datamodel/invoice"
)

// PaymentMetadata is the payment-method detail persisted together with a
// successful status transition. All fields are optional; PaidAt is set only
// when the transition target is PAID.
type PaymentMetadata struct {
	PaymentType     *string
	Bank            *string
	VANumber        *string
	GatewayResponse json.RawMessage
	PaidAt          *time.Time
}

// Repository is the persistence contract for invoices. ConditionalUpdateStatus
// is the compare-and-set primitive that arbitrates racing notification
// deliveries: it updates a row only where the persisted status still equals
// the expected one and reports how many rows changed.
type Repository interface {
	Create(inv *invoice.Invoice) error
	FindByID(id int64) (*invoice.Invoice, error)
	FindByOrderID(orderID string) (*invoice.Invoice, error)
	List(limit, offset int) ([]*invoice.Invoice, error)
	SoftDelete(id int64) error

	ConditionalUpdateStatus(orderID string, expected, next invoice.Status, meta PaymentMetadata) (int64, error)

	// LockedFind takes a row lock and is only meaningful inside WithinTransaction.
	LockedFind(id int64) (*invoice.Invoice, error)
	StampLinkAttempt(id int64, at time.Time) error
	SavePaymentLink(id int64, url string) error
	ClearPaymentLink(id int64) error

	// WithinTransaction runs fn against a transaction-scoped repository and
	// commits or rolls back on every exit path.
	WithinTransaction(fn func(Repository) error) error
}
