package rest

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/invoice-management/internal/invoice"
	"github.com/frahmantamala/invoice-management/internal/payment"
	"github.com/frahmantamala/invoice-management/internal/transport/middleware"
)

// RegisterAllRoutes wires the HTTP surface. The gateway webhook sits outside
// the API-key group because its payload carries its own signature.
func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	invoiceHandler *invoice.Handler,
	paymentHandler *payment.Handler,
	webhookHandler *payment.WebhookHandler,
	apiKey string,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)

	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if webhookHandler != nil {
			r.Post("/payments/notification", webhookHandler.HandleNotification)
		}

		r.Group(func(pr chi.Router) {
			pr.Use(middleware.APIKey(apiKey, logger))

			if invoiceHandler != nil {
				pr.Route("/invoices", func(ir chi.Router) {
					ir.Post("/", invoiceHandler.CreateInvoice)
					ir.Get("/", invoiceHandler.ListInvoices)
					ir.Get("/order/{orderID}", invoiceHandler.GetInvoiceByOrderID)
					ir.Get("/{id}", invoiceHandler.GetInvoice)
					ir.Delete("/{id}", invoiceHandler.DeleteInvoice)

					if paymentHandler != nil {
						ir.Post("/{id}/payment-link", paymentHandler.GeneratePaymentLink)
					}
				})
			}
		})
	})
}
