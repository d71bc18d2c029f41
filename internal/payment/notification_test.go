package payment_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/invoice-management/internal/core/datamodel/invoice"
	paymentPkg "github.com/frahmantamala/invoice-management/internal/payment"
)

var _ = Describe("Notification", func() {
	Describe("Amount", func() {
		It("should accept a quoted decimal string", func() {
			var n paymentPkg.Notification
			err := json.Unmarshal([]byte(`{"gross_amount":"100000.00"}`), &n)

			Expect(err).ToNot(HaveOccurred())
			value, err := n.GrossAmount.Int64()
			Expect(err).ToNot(HaveOccurred())
			Expect(value).To(Equal(int64(100000)))
		})

		It("should accept a bare JSON number", func() {
			var n paymentPkg.Notification
			err := json.Unmarshal([]byte(`{"gross_amount":250000}`), &n)

			Expect(err).ToNot(HaveOccurred())
			value, err := n.GrossAmount.Int64()
			Expect(err).ToNot(HaveOccurred())
			Expect(value).To(Equal(int64(250000)))
		})

		It("should keep exact precision beyond float64's integer range", func() {
			value, err := paymentPkg.Amount("9007199254740993").Int64()

			Expect(err).ToNot(HaveOccurred())
			Expect(value).To(Equal(int64(9007199254740993)))
		})

		It("should accept a large amount with a zero decimal suffix", func() {
			value, err := paymentPkg.Amount("9007199254740993.00").Int64()

			Expect(err).ToNot(HaveOccurred())
			Expect(value).To(Equal(int64(9007199254740993)))
		})

		It("should reject an amount beyond int64 range", func() {
			_, err := paymentPkg.Amount("9223372036854775808").Int64()
			Expect(err).To(HaveOccurred())
		})

		It("should reject a fractional amount", func() {
			_, err := paymentPkg.Amount("100000.55").Int64()
			Expect(err).To(HaveOccurred())
		})

		It("should reject a non-numeric amount", func() {
			_, err := paymentPkg.Amount("lots").Int64()
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Validate", func() {
		It("should pass with every required field present", func() {
			n := &paymentPkg.Notification{
				OrderID:           "ORDER-001",
				TransactionID:     "tx-1",
				TransactionStatus: "settlement",
				GrossAmount:       "100000.00",
			}
			Expect(n.Validate()).To(Succeed())
		})

		It("should fail when transaction_id is missing", func() {
			n := &paymentPkg.Notification{
				OrderID:           "ORDER-001",
				TransactionStatus: "settlement",
				GrossAmount:       "100000.00",
			}
			Expect(n.Validate()).To(HaveOccurred())
		})
	})

	Describe("IdempotencyKey", func() {
		It("should combine order, transaction and status", func() {
			n := &paymentPkg.Notification{
				OrderID:           "ORDER-001",
				TransactionID:     "tx-1",
				TransactionStatus: "settlement",
			}
			Expect(n.IdempotencyKey()).To(Equal("ORDER-001:tx-1:settlement"))
		})

		It("should differ for the same transaction at a different status", func() {
			pending := &paymentPkg.Notification{OrderID: "O", TransactionID: "t", TransactionStatus: "pending"}
			settled := &paymentPkg.Notification{OrderID: "O", TransactionID: "t", TransactionStatus: "settlement"}
			Expect(pending.IdempotencyKey()).ToNot(Equal(settled.IdempotencyKey()))
		})
	})

	Describe("MapVendorStatus", func() {
		DescribeTable("vendor status translation",
			func(vendorStatus string, expected invoice.Status, known bool) {
				status, ok := paymentPkg.MapVendorStatus(vendorStatus)
				Expect(ok).To(Equal(known))
				if known {
					Expect(status).To(Equal(expected))
				}
			},
			Entry("settlement is paid", "settlement", invoice.StatusPaid, true),
			Entry("capture is paid", "capture", invoice.StatusPaid, true),
			Entry("pending stays pending", "pending", invoice.StatusPending, true),
			Entry("expire is expired", "expire", invoice.StatusExpired, true),
			Entry("cancel is expired", "cancel", invoice.StatusExpired, true),
			Entry("deny is failed", "deny", invoice.StatusFailed, true),
			Entry("failure is failed", "failure", invoice.StatusFailed, true),
			Entry("refund is unknown", "refund", invoice.Status(""), false),
			Entry("empty is unknown", "", invoice.Status(""), false),
		)
	})
})

var _ = Describe("VerifySignature", func() {
	const serverKey = "secret-key"

	It("should accept the correctly computed digest", func() {
		n := &paymentPkg.Notification{
			OrderID:     "ORDER-001",
			StatusCode:  "200",
			GrossAmount: "100000.00",
		}
		signNotification(n, serverKey)

		Expect(paymentPkg.VerifySignature(n, serverKey, true)).To(BeTrue())
	})

	It("should reject a digest computed with another key", func() {
		n := &paymentPkg.Notification{
			OrderID:     "ORDER-001",
			StatusCode:  "200",
			GrossAmount: "100000.00",
		}
		signNotification(n, "some-other-key")

		Expect(paymentPkg.VerifySignature(n, serverKey, true)).To(BeFalse())
	})

	It("should reject an empty signature", func() {
		n := &paymentPkg.Notification{OrderID: "ORDER-001", StatusCode: "200", GrossAmount: "100000.00"}

		Expect(paymentPkg.VerifySignature(n, serverKey, true)).To(BeFalse())
	})

	It("should bypass verification when enforcement is off", func() {
		n := &paymentPkg.Notification{OrderID: "ORDER-001", Signature: "garbage"}

		Expect(paymentPkg.VerifySignature(n, serverKey, false)).To(BeTrue())
	})
})

var _ = Describe("MemoryIdempotencyStore", func() {
	It("should report a recorded key as seen", func() {
		store := paymentPkg.NewMemoryIdempotencyStore(time.Hour)

		Expect(store.Seen("k1")).To(BeFalse())
		store.Record("k1")
		Expect(store.Seen("k1")).To(BeTrue())
		Expect(store.Seen("k2")).To(BeFalse())
	})

	It("should forget keys after the TTL elapses", func() {
		store := paymentPkg.NewMemoryIdempotencyStore(10 * time.Millisecond)

		store.Record("k1")
		Expect(store.Seen("k1")).To(BeTrue())

		time.Sleep(25 * time.Millisecond)
		Expect(store.Seen("k1")).To(BeFalse())
	})
})
