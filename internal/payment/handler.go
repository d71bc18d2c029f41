package payment

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	errors "github.com/frahmantamala/invoice-management/internal"
	"github.com/frahmantamala/invoice-management/internal/transport"
)

type LinkCoordinatorAPI interface {
	GenerateLink(ctx context.Context, invoiceID int64) (*LinkResult, error)
}

type Handler struct {
	*transport.BaseHandler
	coordinator LinkCoordinatorAPI
	logger      *slog.Logger
}

func NewHandler(baseHandler *transport.BaseHandler, coordinator LinkCoordinatorAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		coordinator: coordinator,
		logger:      logger,
	}
}

// GeneratePaymentLink handles POST /api/v1/invoices/{id}/payment-link
func (h *Handler) GeneratePaymentLink(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.logger.Error("GeneratePaymentLink: invalid invoice id", "id", chi.URLParam(r, "id"))
		h.HandleError(w, errors.NewValidationError("invalid invoice id", errors.ErrCodeValidationFailed))
		return
	}

	result, err := h.coordinator.GenerateLink(r.Context(), id)
	if err != nil {
		h.logger.Error("GeneratePaymentLink: coordinator error", "error", err, "invoice_id", id)
		h.HandleError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Reused {
		status = http.StatusOK
	}
	h.WriteJSON(w, status, result)
}
