package invoice

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	errors "github.com/frahmantamala/invoice-management/internal"
	"github.com/frahmantamala/invoice-management/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	service *Service
}

func NewHandler(baseHandler *transport.BaseHandler, service *Service) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		service:     service,
	}
}

// CreateInvoice handles POST /api/v1/invoices
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var dto CreateInvoiceDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateInvoice: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	inv, err := h.service.CreateInvoice(dto)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, ToView(inv))
}

// GetInvoice handles GET /api/v1/invoices/{id}
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}

	inv, err := h.service.GetInvoice(id)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToView(inv))
}

// GetInvoiceByOrderID handles GET /api/v1/invoices/order/{orderID}
func (h *Handler) GetInvoiceByOrderID(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		h.HandleError(w, errors.NewValidationError("invalid order id", errors.ErrCodeInvalidOrderID))
		return
	}

	inv, err := h.service.GetInvoiceByOrderID(orderID)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToView(inv))
}

// ListInvoices handles GET /api/v1/invoices
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	invoices, err := h.service.ListInvoices(limit, offset)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	views := make([]*InvoiceView, 0, len(invoices))
	for _, inv := range invoices {
		views = append(views, ToView(inv))
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"invoices": views,
		"count":    len(views),
	})
}

// DeleteInvoice handles DELETE /api/v1/invoices/{id}
func (h *Handler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteInvoice(id); err != nil {
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) invoiceID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.Logger.Error("invalid invoice id", "id", chi.URLParam(r, "id"))
		h.HandleError(w, errors.NewValidationError("invalid invoice id", errors.ErrCodeValidationFailed))
		return 0, false
	}
	return id, true
}
