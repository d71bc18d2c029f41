package payment

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/invoice-management/internal"
	"github.com/frahmantamala/invoice-management/internal/transport"
)

type ReconcilerAPI interface {
	Reconcile(ctx context.Context, n *Notification) (*ReconcileResult, error)
}

type WebhookHandler struct {
	*transport.BaseHandler
	reconciler ReconcilerAPI
	logger     *slog.Logger
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, reconciler ReconcilerAPI, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler: baseHandler,
		reconciler:  reconciler,
		logger:      logger,
	}
}

type notificationResponse struct {
	Status  string `json:"status"`
	Outcome string `json:"outcome"`
	OrderID string `json:"order_id,omitempty"`
}

// HandleNotification handles POST /api/v1/payments/notification.
//
// Applied, duplicate and no-op outcomes all answer 200 so the gateway never
// retries a delivery that was already resolved; only hard errors surface a
// non-2xx status.
func (h *WebhookHandler) HandleNotification(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read notification body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeInvalidNotification))
		return
	}

	var notification Notification
	if err := json.Unmarshal(body, &notification); err != nil {
		h.logger.Error("invalid notification payload", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeInvalidNotification))
		return
	}
	notification.Raw = body

	h.logger.Info("received gateway notification",
		"order_id", notification.OrderID,
		"transaction_id", notification.TransactionID,
		"transaction_status", notification.TransactionStatus)

	result, err := h.reconciler.Reconcile(r.Context(), &notification)
	if err != nil {
		h.logger.Error("notification reconciliation failed",
			"error", err,
			"order_id", notification.OrderID,
			"transaction_status", notification.TransactionStatus)
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, notificationResponse{
		Status:  "ok",
		Outcome: string(result.Outcome),
		OrderID: result.OrderID,
	})
}
