package gcash

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/sorbeteslab/sorbetes-backend/pkg/errors"
)

const (
	defaultBaseURL             = "https://gateway.gcash.example/v1"
	requestBodyReadLimit int64 = 1024
)

var errAPIKeyRequired = errors.New("gcash gateway api key is required")

// Client wraps the instant-payment gateway. From this engine's point of view a
// charge is synchronous: the gateway either confirms the amount or fails the
// request; asynchronous webhook reconciliation happens upstream.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured gateway base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the gateway client given an API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		apiKey:     trimmedKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	return client, nil
}

// ChargeRequest describes the payload sent to the gateway charge API.
type ChargeRequest struct {
	ReferenceID     string          `json:"referenceId"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	RecipientMSISDN string          `json:"recipientMsisdn"`
	Description     string          `json:"description,omitempty"`
}

// ChargeResult holds the normalized gateway confirmation.
type ChargeResult struct {
	TransactionRef string
	Amount         decimal.Decimal
	ConfirmedAt    time.Time
}

// Charge collects the amount through the gateway and returns the confirmation.
func (c *Client) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gcash gateway client not configured")
	}
	if strings.TrimSpace(req.ReferenceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge reference id is required")
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge amount must be positive")
	}
	if strings.TrimSpace(req.RecipientMSISDN) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient mobile number is required")
	}
	if req.Currency == "" {
		req.Currency = "PHP"
	}

	url := c.buildURL("charges")
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal charge request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build charge request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("X-Idempotency-Key", req.ReferenceID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute charge request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "charge request failed")
	}

	var apiResp struct {
		TransactionRef string          `json:"transactionRef"`
		Amount         decimal.Decimal `json:"amount"`
		ConfirmedAt    time.Time       `json:"confirmedAt"`
		Status         string          `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode charge response")
	}

	if !strings.EqualFold(apiResp.Status, "confirmed") {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("gateway returned status %q", apiResp.Status))
	}

	confirmedAt := apiResp.ConfirmedAt
	if confirmedAt.IsZero() {
		confirmedAt = time.Now()
	}

	return &ChargeResult{
		TransactionRef: apiResp.TransactionRef,
		Amount:         apiResp.Amount,
		ConfirmedAt:    confirmedAt,
	}, nil
}

func (c *Client) buildURL(path string) string {
	return strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}
