package invoice

import (
	"log/slog"

	errors "github.com/frahmantamala/invoice-management/internal"
	"github.com/frahmantamala/invoice-management/internal/core/datamodel/invoice"
)

// Service handles invoice lifecycle operations outside reconciliation:
// creation, lookup and soft deletion.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) CreateInvoice(dto CreateInvoiceDTO) (*invoice.Invoice, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("invoice validation failed", "error", err, "order_id", dto.OrderID)
		return nil, err
	}

	inv := &invoice.Invoice{
		OrderID: dto.OrderID,
		Amount:  dto.Amount,
		Status:  invoice.StatusPending,
	}

	if err := s.repo.Create(inv); err != nil {
		if _, ok := errors.IsAppError(err); ok {
			return nil, err
		}
		s.logger.Error("failed to create invoice", "error", err, "order_id", dto.OrderID)
		return nil, errors.NewInternalError("failed to create invoice", err)
	}

	s.logger.Info("invoice created",
		"invoice_id", inv.ID,
		"order_id", inv.OrderID,
		"amount", inv.Amount)

	return inv, nil
}

func (s *Service) GetInvoice(id int64) (*invoice.Invoice, error) {
	inv, err := s.repo.FindByID(id)
	if err != nil {
		if _, ok := errors.IsAppError(err); ok {
			return nil, err
		}
		s.logger.Error("failed to get invoice", "error", err, "invoice_id", id)
		return nil, errors.NewInternalError("failed to get invoice", err)
	}
	return inv, nil
}

func (s *Service) GetInvoiceByOrderID(orderID string) (*invoice.Invoice, error) {
	inv, err := s.repo.FindByOrderID(orderID)
	if err != nil {
		if _, ok := errors.IsAppError(err); ok {
			return nil, err
		}
		s.logger.Error("failed to get invoice by order id", "error", err, "order_id", orderID)
		return nil, errors.NewInternalError("failed to get invoice", err)
	}
	return inv, nil
}

func (s *Service) ListInvoices(limit, offset int) ([]*invoice.Invoice, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	invoices, err := s.repo.List(limit, offset)
	if err != nil {
		s.logger.Error("failed to list invoices", "error", err)
		return nil, errors.NewInternalError("failed to list invoices", err)
	}
	return invoices, nil
}

// DeleteInvoice soft-deletes an invoice. The row stays behind for audit but
// disappears from every normal lookup, and its order id becomes reusable.
func (s *Service) DeleteInvoice(id int64) error {
	if _, err := s.repo.FindByID(id); err != nil {
		if _, ok := errors.IsAppError(err); ok {
			s.logger.Warn("invoice not found for deletion", "invoice_id", id)
			return err
		}
		s.logger.Error("failed to look up invoice for deletion", "error", err, "invoice_id", id)
		return errors.NewInternalError("failed to delete invoice", err)
	}

	if err := s.repo.SoftDelete(id); err != nil {
		s.logger.Error("failed to delete invoice", "error", err, "invoice_id", id)
		return errors.NewInternalError("failed to delete invoice", err)
	}

	s.logger.Info("invoice deleted", "invoice_id", id)
	return nil
}
