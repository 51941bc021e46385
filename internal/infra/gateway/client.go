package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"rentverse/internal/app/policies"
)

// Client talks to the external payment gateway over HTTP JSON.
type Client struct {
	HTTP    *http.Client
	BaseURL string
	APIKey  string
	Logger  *slog.Logger
	// InvoiceTTL is requested as the checkout expiry window.
	InvoiceTTL time.Duration
}

type createInvoiceRequest struct {
	ExternalID  string `json:"external_id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description,omitempty"`
	SuccessURL  string `json:"success_redirect_url,omitempty"`
	FailureURL  string `json:"failure_redirect_url,omitempty"`
	ExpirySecs  int64  `json:"invoice_duration,omitempty"`
}

type invoiceResponse struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id"`
	Status     string    `json:"status"`
	InvoiceURL string    `json:"invoice_url"`
	ExpiryDate time.Time `json:"expiry_date"`
}

func (c *Client) CreateInvoice(ctx context.Context, params policies.CreateInvoiceParams) (*policies.Invoice, error) {
	if err := c.ensureConfigured(); err != nil {
		return nil, err
	}
	payload := createInvoiceRequest{
		ExternalID:  params.ExternalID,
		Amount:      params.Amount.Amount,
		Currency:    params.Amount.Currency,
		Description: params.Description,
		SuccessURL:  params.SuccessURL,
		FailureURL:  params.FailureURL,
	}
	if c.InvoiceTTL > 0 {
		payload.ExpirySecs = int64(c.InvoiceTTL.Seconds())
	}
	var resp invoiceResponse
	if err := c.do(ctx, http.MethodPost, "/v2/invoices", payload, &resp); err != nil {
		c.logError("invoice creation failed", params.ExternalID, err)
		return nil, err
	}
	return &policies.Invoice{
		ID:          resp.ID,
		ExternalID:  resp.ExternalID,
		CheckoutURL: resp.InvoiceURL,
		ExpiresAt:   resp.ExpiryDate,
	}, nil
}

func (c *Client) InvoiceStatus(ctx context.Context, invoiceID string) (string, error) {
	if err := c.ensureConfigured(); err != nil {
		return "", err
	}
	var resp invoiceResponse
	if err := c.do(ctx, http.MethodGet, "/v2/invoices/"+invoiceID, nil, &resp); err != nil {
		c.logError("invoice status check failed", invoiceID, err)
		return "", err
	}
	return resp.Status, nil
}

func (c *Client) ExpireInvoice(ctx context.Context, invoiceID string) error {
	if err := c.ensureConfigured(); err != nil {
		return err
	}
	if err := c.do(ctx, http.MethodPost, "/v2/invoices/"+invoiceID+"/expire", nil, nil); err != nil {
		c.logError("invoice expiry failed", invoiceID, err)
		return err
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	request, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.BaseURL, "/")+path, body)
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		request.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.HTTP.Do(request)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(snippet))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) ensureConfigured() error {
	if c == nil || c.HTTP == nil {
		return errors.New("gateway: http client not configured")
	}
	if c.BaseURL == "" {
		return errors.New("gateway: base url not configured")
	}
	return nil
}

func (c *Client) logError(msg, ref string, err error) {
	if c.Logger == nil {
		return
	}
	c.Logger.Error(msg, "ref", ref, "error", err)
}

var _ policies.PaymentsPort = (*Client)(nil)
