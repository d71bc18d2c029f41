package payment_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/invoice-management/internal"
	"github.com/frahmantamala/invoice-management/internal/core/datamodel/invoice"
	invoicepkg "github.com/frahmantamala/invoice-management/internal/invoice"
	paymentPkg "github.com/frahmantamala/invoice-management/internal/payment"
	"github.com/frahmantamala/invoice-management/internal/paymentgateway"
)

// Mock repository backing the link coordinator. Transactions are collapsed
// to a direct call since the coordinator only cares about the sequencing.
type mockInvoiceRepository struct {
	invoices map[int64]*invoice.Invoice
}

func newMockInvoiceRepository() *mockInvoiceRepository {
	return &mockInvoiceRepository{invoices: make(map[int64]*invoice.Invoice)}
}

func (m *mockInvoiceRepository) Create(inv *invoice.Invoice) error {
	inv.ID = int64(len(m.invoices) + 1)
	m.invoices[inv.ID] = inv
	return nil
}

func (m *mockInvoiceRepository) FindByID(id int64) (*invoice.Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, apperrors.ErrInvoiceNotFound
	}
	copied := *inv
	return &copied, nil
}

func (m *mockInvoiceRepository) FindByOrderID(orderID string) (*invoice.Invoice, error) {
	for _, inv := range m.invoices {
		if inv.OrderID == orderID {
			copied := *inv
			return &copied, nil
		}
	}
	return nil, apperrors.ErrInvoiceNotFound
}

func (m *mockInvoiceRepository) List(limit, offset int) ([]*invoice.Invoice, error) {
	var out []*invoice.Invoice
	for _, inv := range m.invoices {
		out = append(out, inv)
	}
	return out, nil
}

func (m *mockInvoiceRepository) SoftDelete(id int64) error {
	delete(m.invoices, id)
	return nil
}

func (m *mockInvoiceRepository) ConditionalUpdateStatus(orderID string, expected, next invoice.Status, meta invoicepkg.PaymentMetadata) (int64, error) {
	for _, inv := range m.invoices {
		if inv.OrderID == orderID && inv.Status == expected {
			inv.Status = next
			return 1, nil
		}
	}
	return 0, nil
}

func (m *mockInvoiceRepository) LockedFind(id int64) (*invoice.Invoice, error) {
	return m.FindByID(id)
}

func (m *mockInvoiceRepository) StampLinkAttempt(id int64, at time.Time) error {
	inv, ok := m.invoices[id]
	if !ok {
		return apperrors.ErrInvoiceNotFound
	}
	inv.PaymentAttemptCount++
	inv.PaymentLink = nil
	stamped := at
	inv.PaymentLinkCreatedAt = &stamped
	return nil
}

func (m *mockInvoiceRepository) SavePaymentLink(id int64, url string) error {
	inv, ok := m.invoices[id]
	if !ok {
		return apperrors.ErrInvoiceNotFound
	}
	link := url
	inv.PaymentLink = &link
	return nil
}

func (m *mockInvoiceRepository) ClearPaymentLink(id int64) error {
	inv, ok := m.invoices[id]
	if !ok {
		return apperrors.ErrInvoiceNotFound
	}
	inv.PaymentLink = nil
	inv.PaymentLinkCreatedAt = nil
	return nil
}

func (m *mockInvoiceRepository) WithinTransaction(fn func(invoicepkg.Repository) error) error {
	return fn(m)
}

type mockLinkGateway struct {
	requests   []paymentgateway.CreateLinkRequest
	createErr  error
	paymentURL string
	panicValue interface{}
	// onCreate runs before the call resolves, so tests can interleave
	// other work with an in-flight gateway call.
	onCreate func()
}

func (m *mockLinkGateway) CreatePaymentLink(ctx context.Context, req paymentgateway.CreateLinkRequest) (*paymentgateway.PaymentLink, error) {
	m.requests = append(m.requests, req)
	if m.onCreate != nil {
		m.onCreate()
	}
	if m.panicValue != nil {
		panic(m.panicValue)
	}
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &paymentgateway.PaymentLink{
		OrderID:    req.ReferenceID,
		PaymentURL: m.paymentURL,
	}, nil
}

var _ = Describe("LinkCoordinator", func() {
	var (
		repo        *mockInvoiceRepository
		gateway     *mockLinkGateway
		coordinator *paymentPkg.LinkCoordinator
		logger      *slog.Logger
		ctx         context.Context
	)

	BeforeEach(func() {
		repo = newMockInvoiceRepository()
		gateway = &mockLinkGateway{paymentURL: "https://pay.example.com/link/abc"}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		coordinator = paymentPkg.NewLinkCoordinator(repo, gateway, nil, 30*time.Minute, 3, logger)
		ctx = context.Background()

		repo.invoices[1] = &invoice.Invoice{
			ID:      1,
			OrderID: "ORDER-001",
			Amount:  100000,
			Status:  invoice.StatusPending,
		}
	})

	Describe("GenerateLink", func() {
		Context("when the invoice has no link yet", func() {
			It("should create a single-use link and consume one attempt", func() {
				result, err := coordinator.GenerateLink(ctx, 1)

				Expect(err).ToNot(HaveOccurred())
				Expect(result.Reused).To(BeFalse())
				Expect(result.AttemptCount).To(Equal(1))
				Expect(result.PaymentLink).To(Equal("https://pay.example.com/link/abc"))

				Expect(gateway.requests).To(HaveLen(1))
				Expect(gateway.requests[0].ReferenceID).To(Equal("ORDER-001-1"))
				Expect(gateway.requests[0].Amount).To(Equal(int64(100000)))
				Expect(gateway.requests[0].UsageLimit).To(Equal(1))
				Expect(gateway.requests[0].ExpiryMinutes).To(Equal(30))

				stored := repo.invoices[1]
				Expect(stored.PaymentAttemptCount).To(Equal(1))
				Expect(stored.PaymentLink).ToNot(BeNil())
				Expect(stored.PaymentLinkCreatedAt).ToNot(BeNil())
			})

			It("should truncate long order ids in the gateway reference", func() {
				repo.invoices[2] = &invoice.Invoice{
					ID:      2,
					OrderID: "ORDER-WITH-A-VERY-LONG-IDENTIFIER",
					Amount:  5000,
					Status:  invoice.StatusPending,
				}

				_, err := coordinator.GenerateLink(ctx, 2)

				Expect(err).ToNot(HaveOccurred())
				ref := gateway.requests[0].ReferenceID
				Expect(strings.HasSuffix(ref, "-1")).To(BeTrue())
				Expect(ref).To(HaveLen(22))
			})
		})

		Context("when a fresh link already exists", func() {
			It("should return it unchanged without calling the gateway", func() {
				link := "https://pay.example.com/link/existing"
				created := time.Now().UTC().Add(-5 * time.Minute)
				repo.invoices[1].PaymentLink = &link
				repo.invoices[1].PaymentLinkCreatedAt = &created
				repo.invoices[1].PaymentAttemptCount = 2

				result, err := coordinator.GenerateLink(ctx, 1)

				Expect(err).ToNot(HaveOccurred())
				Expect(result.Reused).To(BeTrue())
				Expect(result.PaymentLink).To(Equal(link))
				Expect(result.AttemptCount).To(Equal(2))
				Expect(gateway.requests).To(BeEmpty())
				Expect(repo.invoices[1].PaymentAttemptCount).To(Equal(2))
			})
		})

		Context("when the existing link is stale", func() {
			It("should generate a replacement and consume another attempt", func() {
				link := "https://pay.example.com/link/stale"
				created := time.Now().UTC().Add(-45 * time.Minute)
				repo.invoices[1].PaymentLink = &link
				repo.invoices[1].PaymentLinkCreatedAt = &created
				repo.invoices[1].PaymentAttemptCount = 1

				result, err := coordinator.GenerateLink(ctx, 1)

				Expect(err).ToNot(HaveOccurred())
				Expect(result.Reused).To(BeFalse())
				Expect(result.AttemptCount).To(Equal(2))
				Expect(gateway.requests[0].ReferenceID).To(Equal("ORDER-001-2"))
				Expect(*repo.invoices[1].PaymentLink).To(Equal("https://pay.example.com/link/abc"))
			})
		})

		Context("when the invoice is in a terminal status", func() {
			It("should reject paid invoices without touching the gateway", func() {
				repo.invoices[1].Status = invoice.StatusPaid

				_, err := coordinator.GenerateLink(ctx, 1)

				Expect(err).To(Equal(apperrors.ErrInvoiceNotPayable))
				Expect(gateway.requests).To(BeEmpty())
				Expect(repo.invoices[1].PaymentAttemptCount).To(Equal(0))
			})

			It("should reject expired invoices", func() {
				repo.invoices[1].Status = invoice.StatusExpired

				_, err := coordinator.GenerateLink(ctx, 1)

				Expect(err).To(Equal(apperrors.ErrInvoiceNotPayable))
			})
		})

		Context("when the invoice does not exist", func() {
			It("should return not found", func() {
				_, err := coordinator.GenerateLink(ctx, 999)

				Expect(err).To(Equal(apperrors.ErrInvoiceNotFound))
			})
		})

		Context("when the gateway call fails", func() {
			BeforeEach(func() {
				gateway.createErr = errors.New("gateway timeout")
			})

			It("should compensate the provisional stamp but keep the attempt consumed", func() {
				_, err := coordinator.GenerateLink(ctx, 1)

				appErr, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.StatusCode).To(Equal(502))

				stored := repo.invoices[1]
				Expect(stored.PaymentAttemptCount).To(Equal(1))
				Expect(stored.PaymentLink).To(BeNil())
				Expect(stored.PaymentLinkCreatedAt).To(BeNil())
			})

			It("should stop calling the gateway once the budget is exhausted", func() {
				for i := 0; i < 3; i++ {
					_, err := coordinator.GenerateLink(ctx, 1)
					Expect(err).To(HaveOccurred())
				}
				Expect(repo.invoices[1].PaymentAttemptCount).To(Equal(3))
				Expect(gateway.requests).To(HaveLen(3))

				_, err := coordinator.GenerateLink(ctx, 1)

				Expect(err).To(Equal(apperrors.ErrAttemptBudgetExhausted))
				Expect(gateway.requests).To(HaveLen(3))
				Expect(repo.invoices[1].PaymentAttemptCount).To(Equal(3))
			})

			It("should number each attempt in the gateway reference", func() {
				coordinator.GenerateLink(ctx, 1)
				coordinator.GenerateLink(ctx, 1)

				Expect(gateway.requests[0].ReferenceID).To(Equal("ORDER-001-1"))
				Expect(gateway.requests[1].ReferenceID).To(Equal("ORDER-001-2"))
			})
		})

		Context("when a regeneration is in flight", func() {
			It("should never serve the expired link to a concurrent caller", func() {
				stale := "https://pay.example.com/link/stale-expired"
				created := time.Now().UTC().Add(-45 * time.Minute)
				repo.invoices[1].PaymentLink = &stale
				repo.invoices[1].PaymentLinkCreatedAt = &created

				var (
					concurrent    *paymentPkg.LinkResult
					concurrentErr error
				)
				reentered := false
				gateway.onCreate = func() {
					if reentered {
						return
					}
					reentered = true
					concurrent, concurrentErr = coordinator.GenerateLink(ctx, 1)
				}

				_, err := coordinator.GenerateLink(ctx, 1)
				Expect(err).ToNot(HaveOccurred())

				Expect(concurrentErr).ToNot(HaveOccurred())
				Expect(concurrent.Reused).To(BeFalse())
				Expect(concurrent.PaymentLink).ToNot(Equal(stale))
			})
		})

		Context("when the gateway call panics", func() {
			It("should compensate like a failed call before re-panicking", func() {
				gateway.panicValue = "gateway client blew up"

				Expect(func() {
					coordinator.GenerateLink(ctx, 1)
				}).To(PanicWith("gateway client blew up"))

				stored := repo.invoices[1]
				Expect(stored.PaymentAttemptCount).To(Equal(1))
				Expect(stored.PaymentLink).To(BeNil())
				Expect(stored.PaymentLinkCreatedAt).To(BeNil())
			})
		})

		Context("when the budget is exhausted but a fresh link exists", func() {
			It("should still return the existing link", func() {
				link := "https://pay.example.com/link/last"
				created := time.Now().UTC().Add(-1 * time.Minute)
				repo.invoices[1].PaymentLink = &link
				repo.invoices[1].PaymentLinkCreatedAt = &created
				repo.invoices[1].PaymentAttemptCount = 3

				result, err := coordinator.GenerateLink(ctx, 1)

				Expect(err).ToNot(HaveOccurred())
				Expect(result.Reused).To(BeTrue())
				Expect(result.PaymentLink).To(Equal(link))
			})
		})
	})
})
