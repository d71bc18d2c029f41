package payment_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/invoice-management/internal"
	paymentPkg "github.com/frahmantamala/invoice-management/internal/payment"
	"github.com/frahmantamala/invoice-management/internal/transport"
)

type mockLinkCoordinator struct {
	result    *paymentPkg.LinkResult
	err       error
	requested int64
}

func (m *mockLinkCoordinator) GenerateLink(ctx context.Context, invoiceID int64) (*paymentPkg.LinkResult, error) {
	m.requested = invoiceID
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

var _ = Describe("Handler", func() {
	var (
		coordinator *mockLinkCoordinator
		router      chi.Router
		recorder    *httptest.ResponseRecorder
	)

	post := func(path string) {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		router.ServeHTTP(recorder, req)
	}

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		coordinator = &mockLinkCoordinator{
			result: &paymentPkg.LinkResult{
				InvoiceID:    1,
				OrderID:      "ORDER-001",
				PaymentLink:  "https://pay.example.com/link/abc",
				AttemptCount: 1,
			},
		}
		handler := paymentPkg.NewHandler(transport.NewBaseHandler(logger), coordinator, logger)

		router = chi.NewRouter()
		router.Post("/invoices/{id}/payment-link", handler.GeneratePaymentLink)
		recorder = httptest.NewRecorder()
	})

	Describe("GeneratePaymentLink", func() {
		Context("when a new link is generated", func() {
			It("should answer 201 with the link", func() {
				post("/invoices/1/payment-link")

				Expect(recorder.Code).To(Equal(http.StatusCreated))
				Expect(coordinator.requested).To(Equal(int64(1)))

				var result paymentPkg.LinkResult
				Expect(json.Unmarshal(recorder.Body.Bytes(), &result)).To(Succeed())
				Expect(result.PaymentLink).To(Equal("https://pay.example.com/link/abc"))
				Expect(result.Reused).To(BeFalse())
			})
		})

		Context("when an active link is reused", func() {
			It("should answer 200", func() {
				coordinator.result.Reused = true

				post("/invoices/1/payment-link")

				Expect(recorder.Code).To(Equal(http.StatusOK))
			})
		})

		Context("when the invoice id is not numeric", func() {
			It("should answer 400", func() {
				post("/invoices/abc/payment-link")

				Expect(recorder.Code).To(Equal(http.StatusBadRequest))
			})
		})

		DescribeTable("coordinator error mapping",
			func(err error, expectedStatus int) {
				coordinator.err = err

				post("/invoices/1/payment-link")

				Expect(recorder.Code).To(Equal(expectedStatus))
			},
			Entry("budget exhausted", apperrors.ErrAttemptBudgetExhausted, http.StatusTooManyRequests),
			Entry("not payable", apperrors.ErrInvoiceNotPayable, http.StatusUnprocessableEntity),
			Entry("not found", apperrors.ErrInvoiceNotFound, http.StatusNotFound),
		)
	})
})
