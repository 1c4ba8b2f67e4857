package paystack

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
)

var (
	ErrConfigInvalid   = errors.New("paystack config invalid")
	ErrRequestFailed   = errors.New("paystack request failed")
	ErrResponseInvalid = errors.New("paystack response invalid")
)

// Verified transaction statuses as reported by the gateway.
const (
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"
)

const defaultTimeout = 15 * time.Second

// Config holds gateway connection settings.
type Config struct {
	BaseURL     string // e.g. https://api.paystack.co
	SecretKey   string // bearer secret, server-side only
	CallbackURL string // default redirect target after checkout
	TimeoutMS   int
}

func (c *Config) normalize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.SecretKey = strings.TrimSpace(c.SecretKey)
	c.CallbackURL = strings.TrimSpace(c.CallbackURL)
}

// ValidateConfig checks required settings.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return fmt.Errorf("%w: base_url is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return fmt.Errorf("%w: secret_key is required", ErrConfigInvalid)
	}
	return nil
}

// Client talks to the gateway's transaction endpoints.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a gateway client with a bounded request timeout.
func NewClient(cfg Config) (*Client, error) {
	cfg.normalize()
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	timeout := defaultTimeout
	if cfg.TimeoutMS > 0 {
		timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}, nil
}

// InitializeInput is the create-transaction request.
type InitializeInput struct {
	Email       string
	AmountMinor int64 // minor units (kobo)
	Reference   string
	CallbackURL string
	Metadata    map[string]interface{}
}

// InitializeResult is the checkout handle returned by the gateway.
type InitializeResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// VerifyResult is the gateway's authoritative view of a transaction.
type VerifyResult struct {
	Status      string
	AmountMinor int64
}

// InitializeTransaction wraps POST /transaction/initialize.
func (c *Client) InitializeTransaction(ctx context.Context, input InitializeInput) (*InitializeResult, error) {
	if strings.TrimSpace(input.Email) == "" || strings.TrimSpace(input.Reference) == "" || input.AmountMinor <= 0 {
		return nil, fmt.Errorf("%w: invalid initialize input", ErrConfigInvalid)
	}
	callbackURL := strings.TrimSpace(input.CallbackURL)
	if callbackURL == "" {
		callbackURL = c.cfg.CallbackURL
	}
	params := map[string]interface{}{
		"email":        input.Email,
		"amount":       input.AmountMinor,
		"reference":    input.Reference,
		"callback_url": callbackURL,
	}
	if len(input.Metadata) > 0 {
		params["metadata"] = input.Metadata
	}

	respBytes, err := c.do(ctx, http.MethodPost, "/transaction/initialize", params)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			AuthorizationURL string `json:"authorization_url"`
			AccessCode       string `json:"access_code"`
			Reference        string `json:"reference"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if !resp.Status {
		return nil, fmt.Errorf("%w: %s", ErrResponseInvalid, resp.Message)
	}
	return &InitializeResult{
		AuthorizationURL: resp.Data.AuthorizationURL,
		AccessCode:       resp.Data.AccessCode,
		Reference:        resp.Data.Reference,
	}, nil
}

// VerifyTransaction wraps GET /transaction/verify/{reference}. The result is
// the only trusted source of a transaction's status and amount; callback
// payloads are never believed on their own.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrConfigInvalid)
	}
	respBytes, err := c.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			Status string `json:"status"`
			Amount int64  `json:"amount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if !resp.Status {
		return nil, fmt.Errorf("%w: %s", ErrResponseInvalid, resp.Message)
	}
	return &VerifyResult{
		Status:      strings.ToLower(strings.TrimSpace(resp.Data.Status)),
		AmountMinor: resp.Data.Amount,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, params map[string]interface{}) ([]byte, error) {
	var body io.Reader
	if params != nil {
		payload, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	req.Header.Set("Accept", "application/json")
	if params != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: http status %d: %s", ErrRequestFailed, resp.StatusCode, truncate(respBytes, 256))
	}
	return respBytes, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
