package payment

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	errors "github.com/frahmantamala/invoice-management/internal"
	"github.com/frahmantamala/invoice-management/internal/core/common/validation"
	"github.com/frahmantamala/invoice-management/internal/core/datamodel/invoice"
)

// Amount is a gateway gross amount that arrives as either a JSON string
// ("100000.00") or a bare number. The gateway sends whole currency units with
// a decimal suffix; fractional amounts are rejected.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = Amount(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("gross_amount must be a string or number: %w", err)
	}
	*a = Amount(n.String())
	return nil
}

// Int64 parses the amount, requiring it to be a whole number. The integral
// part is parsed directly rather than through a float so large amounts keep
// exact precision and out-of-range values fail instead of overflowing.
func (a Amount) Int64() (int64, error) {
	s := string(a)
	intPart := s
	if i := strings.IndexByte(s, '.'); i >= 0 {
		for _, c := range s[i+1:] {
			if c != '0' {
				return 0, fmt.Errorf("gross_amount %q is not a whole amount", s)
			}
		}
		intPart = s[:i]
	}
	v, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid gross_amount %q: %w", s, err)
	}
	return v, nil
}

type VANumber struct {
	Bank     string `json:"bank"`
	VANumber string `json:"va_number"`
}

// Notification is one asynchronous transaction-status message from the
// payment gateway. It is transient: the raw payload is retained on the
// invoice for audit, the notification itself is never persisted.
type Notification struct {
	OrderID           string     `json:"order_id"`
	TransactionID     string     `json:"transaction_id"`
	TransactionStatus string     `json:"transaction_status"`
	GrossAmount       Amount     `json:"gross_amount"`
	StatusCode        string     `json:"status_code"`
	Signature         string     `json:"signature_key"`
	PaymentType       string     `json:"payment_type"`
	VANumbers         []VANumber `json:"va_numbers"`

	// Raw is the unparsed request body, set by the transport layer.
	Raw json.RawMessage `json:"-"`
}

func (n *Notification) Validate() error {
	validator := validation.NewValidator()

	validator.Field("order_id", n.OrderID).Required()
	validator.Field("transaction_id", n.TransactionID).Required()
	validator.Field("transaction_status", n.TransactionStatus).Required()
	validator.Field("gross_amount", string(n.GrossAmount)).Required()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}

	if _, err := n.GrossAmount.Int64(); err != nil {
		return errors.NewValidationFieldError("gross_amount", err.Error(), errors.ErrCodeInvalidAmount)
	}
	return nil
}

// IdempotencyKey names this exact delivery for best-effort duplicate
// suppression. Two deliveries of the same gateway event share a key.
func (n *Notification) IdempotencyKey() string {
	return fmt.Sprintf("%s:%s:%s", n.OrderID, n.TransactionID, n.TransactionStatus)
}

// MapVendorStatus translates the gateway's transaction-status vocabulary into
// the domain status. The mapping is closed: anything unlisted reports not ok
// and must be surfaced as an unknown-status error, never silently dropped.
func MapVendorStatus(vendorStatus string) (invoice.Status, bool) {
	switch vendorStatus {
	case "settlement", "capture":
		return invoice.StatusPaid, true
	case "pending":
		return invoice.StatusPending, true
	case "expire", "cancel":
		return invoice.StatusExpired, true
	case "deny", "failure":
		return invoice.StatusFailed, true
	default:
		return "", false
	}
}
