// Package flutterwave is the client for the card/bank transfer gateway:
// outbound transfers for withdrawals, transfer verification, and the
// bank directory.
package flutterwave

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Sharon404/wallet-app/internal/apperr"
	"github.com/Sharon404/wallet-app/internal/config"
	"github.com/Sharon404/wallet-app/internal/providers"

	"github.com/shopspring/decimal"
)

type Config struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

type Client struct {
	cfg    Config
	client *http.Client
}

// ConfigFromEnv reads the gateway settings from the environment.
func ConfigFromEnv() Config {
	return Config{
		BaseURL:   config.GetEnv("FLW_BASE_URL", ""),
		SecretKey: config.GetEnv("FLW_SECRET_KEY", ""),
		Timeout:   config.GetDurationEnv("FLW_TIMEOUT", 30*time.Second),
	}
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.flutterwave.com/v3"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// envelope is the gateway's uniform response wrapper.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// InitiateTransfer starts a bank/mobile transfer. reference is the
// caller-supplied idempotency key; the gateway de-duplicates on it, so
// retried initiations are safe.
func (c *Client) InitiateTransfer(ctx context.Context, accountBank, accountNumber string, amount decimal.Decimal, currency, narration, reference string) (providers.InitiateResult, error) {
	payload := map[string]interface{}{
		"account_bank":   accountBank,
		"account_number": accountNumber,
		"amount":         amount.StringFixed(2),
		"currency":       currency,
		"narration":      narration,
		"reference":      reference,
		"debit_currency": currency,
	}

	env, err := c.post(ctx, "/transfers", payload)
	if err != nil {
		return providers.InitiateResult{}, err
	}

	if env.Status != "success" {
		return providers.InitiateResult{}, &apperr.ProviderError{
			Kind:    apperr.ProviderRejected,
			Code:    env.Status,
			Message: env.Message,
		}
	}

	return providers.InitiateResult{
		Reference:   reference,
		Code:        env.Status,
		Description: env.Message,
	}, nil
}

// VerifyTransfer polls the gateway for the current status of a
// transfer. Used when the result callback is delayed or lost.
func (c *Client) VerifyTransfer(ctx context.Context, transferID string) (string, error) {
	env, err := c.get(ctx, "/transfers/"+transferID)
	if err != nil {
		return "", err
	}

	var data struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", &apperr.ProviderError{
			Kind:    apperr.ProviderRejected,
			Code:    env.Status,
			Message: "unparseable transfer status",
		}
	}
	return data.Status, nil
}

// Bank is one entry of the gateway's bank directory.
type Bank struct {
	ID   int    `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Banks lists the banks available for transfers in a country.
func (c *Client) Banks(ctx context.Context, countryCode string) ([]Bank, error) {
	env, err := c.get(ctx, "/banks/"+countryCode)
	if err != nil {
		return nil, err
	}

	var banks []Bank
	if err := json.Unmarshal(env.Data, &banks); err != nil {
		return nil, &apperr.ProviderError{
			Kind:    apperr.ProviderRejected,
			Code:    env.Status,
			Message: "unparseable bank list",
		}
	}
	return banks, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (*envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, providers.TransportError(err)
	}
	return c.do(req)
}

func (c *Client) get(ctx context.Context, path string) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, providers.TransportError(err)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*envelope, error) {
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, providers.TransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, providers.TransportError(err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &apperr.ProviderError{
			Kind:    apperr.ProviderAuth,
			Code:    fmt.Sprintf("%d", resp.StatusCode),
			Message: "transfer gateway authentication failed",
		}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &apperr.ProviderError{
			Kind:    apperr.ProviderRejected,
			Code:    fmt.Sprintf("%d", resp.StatusCode),
			Message: "unparseable gateway response",
		}
	}

	if resp.StatusCode >= 400 {
		return nil, &apperr.ProviderError{
			Kind:    apperr.ProviderRejected,
			Code:    fmt.Sprintf("%d", resp.StatusCode),
			Message: env.Message,
		}
	}
	return &env, nil
}
