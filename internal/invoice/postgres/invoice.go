package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/frahmantamala/invoice-management/internal"
	"github.com/frahmantamala/invoice-management/internal/core/datamodel/invoice"
	invoicepkg "github.com/frahmantamala/invoice-management/internal/invoice"
)

// InvoiceRepository implements invoice.Repository using GORM. Soft-deleted
// rows are excluded from every query through gorm.DeletedAt.
type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) invoicepkg.Repository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) Create(inv *invoice.Invoice) error {
	err := r.db.Create(inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.ErrDuplicateOrderID
		}
		return err
	}
	return nil
}

func (r *InvoiceRepository) FindByID(id int64) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	err := r.db.Where("id = ?", id).First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvoiceNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *InvoiceRepository) FindByOrderID(orderID string) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	err := r.db.Where("order_id = ?", orderID).First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvoiceNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *InvoiceRepository) List(limit, offset int) ([]*invoice.Invoice, error) {
	var invoices []*invoice.Invoice
	err := r.db.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&invoices).Error
	return invoices, err
}

func (r *InvoiceRepository) SoftDelete(id int64) error {
	result := r.db.Where("id = ?", id).Delete(&invoice.Invoice{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrInvoiceNotFound
	}
	return nil
}

// ConditionalUpdateStatus is the single compare-and-set write that resolves
// racing notification deliveries. The WHERE clause on the persisted status
// makes exactly one concurrent caller observe rowsAffected == 1.
func (r *InvoiceRepository) ConditionalUpdateStatus(orderID string, expected, next invoice.Status, meta invoicepkg.PaymentMetadata) (int64, error) {
	updates := map[string]interface{}{
		"status":     next,
		"updated_at": time.Now(),
	}

	if meta.PaymentType != nil {
		updates["payment_type"] = *meta.PaymentType
	}
	if meta.Bank != nil {
		updates["bank"] = *meta.Bank
	}
	if meta.VANumber != nil {
		updates["va_number"] = *meta.VANumber
	}
	if meta.GatewayResponse != nil {
		updates["gateway_response"] = meta.GatewayResponse
	}
	if meta.PaidAt != nil {
		updates["paid_at"] = *meta.PaidAt
	}

	result := r.db.Model(&invoice.Invoice{}).
		Where("order_id = ? AND status = ?", orderID, expected).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// LockedFind reads an invoice under SELECT ... FOR UPDATE. Only valid inside
// WithinTransaction; the lock is released with the transaction.
func (r *InvoiceRepository) LockedFind(id int64) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvoiceNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// StampLinkAttempt consumes one unit of the attempt budget and records the
// provisional link timestamp before any external call is made. Any previous
// link is cleared in the same write so that an expired URL can never look
// active to a concurrent caller while the replacement is in flight.
func (r *InvoiceRepository) StampLinkAttempt(id int64, at time.Time) error {
	return r.db.Model(&invoice.Invoice{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"payment_attempt_count":   gorm.Expr("payment_attempt_count + 1"),
			"payment_link":            nil,
			"payment_link_created_at": at,
			"updated_at":              time.Now(),
		}).Error
}

func (r *InvoiceRepository) SavePaymentLink(id int64, url string) error {
	return r.db.Model(&invoice.Invoice{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"payment_link": url,
			"updated_at":   time.Now(),
		}).Error
}

// ClearPaymentLink compensates a failed link generation: the provisional
// marker is removed but the attempt count stays consumed.
func (r *InvoiceRepository) ClearPaymentLink(id int64) error {
	return r.db.Model(&invoice.Invoice{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"payment_link":            nil,
			"payment_link_created_at": nil,
			"updated_at":              time.Now(),
		}).Error
}

func (r *InvoiceRepository) WithinTransaction(fn func(invoicepkg.Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&InvoiceRepository{db: tx})
	})
}
