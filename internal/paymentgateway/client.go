package paymentgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/invoice-management/internal"
)

type Config struct {
	BaseURL     string
	ServerKey   string
	CallTimeout time.Duration
}

// Client talks to the payment gateway's payment-link API. Every call is
// bounded by the configured timeout; callers treat timeouts like any other
// gateway failure.
type Client struct {
	httpClient *http.Client
	baseURL    string
	serverKey  string
	timeout    time.Duration
	logger     *slog.Logger
}

func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.CallTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    config.BaseURL,
		serverKey:  config.ServerKey,
		timeout:    timeout,
		logger:     logger,
	}
}

// CreateLinkRequest describes one payment-link creation attempt. ReferenceID
// must be unique per attempt so that gateway-side retries of the same attempt
// stay idempotent.
type CreateLinkRequest struct {
	ReferenceID   string
	Amount        int64
	ExpiryMinutes int
	UsageLimit    int
}

type PaymentLink struct {
	OrderID    string `json:"order_id"`
	PaymentURL string `json:"payment_url"`
}

type createLinkPayload struct {
	TransactionDetails struct {
		OrderID     string `json:"order_id"`
		GrossAmount int64  `json:"gross_amount"`
	} `json:"transaction_details"`
	UsageLimit int `json:"usage_limit"`
	Expiry     struct {
		Duration int    `json:"duration"`
		Unit     string `json:"unit"`
	} `json:"expiry"`
}

func (c *Client) CreatePaymentLink(ctx context.Context, req CreateLinkRequest) (*PaymentLink, error) {
	var payload createLinkPayload
	payload.TransactionDetails.OrderID = req.ReferenceID
	payload.TransactionDetails.GrossAmount = req.Amount
	payload.UsageLimit = req.UsageLimit
	payload.Expiry.Duration = req.ExpiryMinutes
	payload.Expiry.Unit = "minutes"

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment link request: %w", err)
	}

	ctx, cancel := internal.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := c.baseURL + "/v1/payment-links"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.SetBasicAuth(c.serverKey, "")

	c.logger.Info("creating payment link",
		"reference_id", req.ReferenceID,
		"amount", req.Amount,
		"expiry_minutes", req.ExpiryMinutes)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("payment link request failed", "error", err, "reference_id", req.ReferenceID)
		return nil, fmt.Errorf("payment link request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.logger.Error("gateway returned error",
			"status", resp.StatusCode,
			"response", string(respBody),
			"reference_id", req.ReferenceID)
		return nil, fmt.Errorf("gateway error: status %d, response: %s", resp.StatusCode, string(respBody))
	}

	var link PaymentLink
	if err := json.Unmarshal(respBody, &link); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	if link.PaymentURL == "" {
		return nil, fmt.Errorf("gateway response missing payment_url: %s", string(respBody))
	}

	c.logger.Info("payment link created",
		"reference_id", req.ReferenceID,
		"order_id", link.OrderID)

	return &link, nil
}
