// Package gateway talks to the external card payment provider.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"restaurant-system/internal/errs"
)

// PaymentGateway creates refunds against the provider. Amounts are in
// minor units (cents).
type PaymentGateway interface {
	CreateRefund(ctx context.Context, paymentRef string, amountMinor int64) (refundID string, err error)
}

// Client is a JSON-over-HTTP PaymentGateway implementation.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a gateway client with a bounded request timeout.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type refundRequest struct {
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
}

type refundResponse struct {
	RefundID string `json:"refund_id"`
}

// CreateRefund requests a refund keyed by the provider's payment
// reference. Any transport or provider failure surfaces as a dependency
// error; the caller must not mutate local state when one is returned.
func (c *Client) CreateRefund(ctx context.Context, paymentRef string, amountMinor int64) (string, error) {
	body, err := json.Marshal(refundRequest{PaymentID: paymentRef, Amount: amountMinor})
	if err != nil {
		return "", fmt.Errorf("marshal refund request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/refunds", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build refund request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: payment gateway: %v", errs.ErrDependency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: payment gateway returned %d: %s", errs.ErrDependency, resp.StatusCode, detail)
	}

	var out refundResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode refund response: %v", errs.ErrDependency, err)
	}
	if out.RefundID == "" {
		return "", fmt.Errorf("%w: payment gateway returned empty refund id", errs.ErrDependency)
	}

	return out.RefundID, nil
}

var _ PaymentGateway = (*Client)(nil)
