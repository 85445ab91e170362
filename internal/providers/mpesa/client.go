// Package mpesa is the client for the mobile push-payment gateway
// (Daraja-style API): STK push for deposits, B2C payout for
// withdrawals, and a status query used as a callback fallback.
package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
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
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	PassKey        string
	CallbackURL    string

	B2CShortCode          string
	B2CInitiatorName      string
	B2CSecurityCredential string
	B2CResultURL          string
	B2CTimeoutURL         string

	Timeout time.Duration
}

type Client struct {
	cfg    Config
	client *http.Client
	now    func() time.Time
}

// ConfigFromEnv reads the gateway settings from the environment. The
// sandbox base URL is the default.
func ConfigFromEnv() Config {
	return Config{
		BaseURL:        config.GetEnv("MPESA_BASE_URL", "https://sandbox.safaricom.co.ke"),
		ConsumerKey:    config.GetEnv("MPESA_CONSUMER_KEY", ""),
		ConsumerSecret: config.GetEnv("MPESA_CONSUMER_SECRET", ""),
		ShortCode:      config.GetEnv("MPESA_SHORTCODE", ""),
		PassKey:        config.GetEnv("MPESA_PASSKEY", ""),
		CallbackURL:    config.GetEnv("MPESA_CALLBACK_URL", ""),

		B2CShortCode:          config.GetEnv("MPESA_B2C_SHORTCODE", ""),
		B2CInitiatorName:      config.GetEnv("MPESA_B2C_INITIATOR", ""),
		B2CSecurityCredential: config.GetEnv("MPESA_B2C_CREDENTIAL", ""),
		B2CResultURL:          config.GetEnv("MPESA_B2C_RESULT_URL", ""),
		B2CTimeoutURL:         config.GetEnv("MPESA_B2C_TIMEOUT_URL", ""),

		Timeout: config.GetDurationEnv("MPESA_TIMEOUT", 30*time.Second),
	}
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		now:    time.Now,
	}
}

// accessToken obtains a short-lived OAuth credential. Expiry is not
// published, so the token is fetched per request and never cached.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	url := c.cfg.BaseURL + "/oauth/v1/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", providers.TransportError(err)
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", providers.TransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &apperr.ProviderError{
			Kind:    apperr.ProviderAuth,
			Code:    fmt.Sprintf("%d", resp.StatusCode),
			Message: "push gateway authentication failed",
		}
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.AccessToken == "" {
		return "", &apperr.ProviderError{
			Kind:    apperr.ProviderAuth,
			Code:    "bad_token_response",
			Message: "push gateway returned no access token",
		}
	}
	return body.AccessToken, nil
}

func (c *Client) password() (string, string) {
	timestamp := c.now().Format("20060102150405")
	data := c.cfg.ShortCode + c.cfg.PassKey + timestamp
	return base64.StdEncoding.EncodeToString([]byte(data)), timestamp
}

// InitiatePush starts an STK push against the customer's phone. The
// returned reference is the gateway's checkout request id.
func (c *Client) InitiatePush(ctx context.Context, phone string, amount decimal.Decimal, accountReference string) (providers.InitiateResult, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return providers.InitiateResult{}, err
	}

	password, timestamp := c.password()
	payload := map[string]interface{}{
		"BusinessShortCode": c.cfg.ShortCode,
		"Password":          password,
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            amount.StringFixed(0),
		"PartyA":            phone,
		"PartyB":            c.cfg.ShortCode,
		"PhoneNumber":       phone,
		"CallBackURL":       c.cfg.CallbackURL,
		"AccountReference":  accountReference,
		"TransactionDesc":   "Wallet Funding",
	}

	var body struct {
		CheckoutRequestID   string `json:"CheckoutRequestID"`
		MerchantRequestID   string `json:"MerchantRequestID"`
		ResponseCode        string `json:"ResponseCode"`
		ResponseDescription string `json:"ResponseDescription"`
		ErrorMessage        string `json:"errorMessage"`
	}
	if err := c.post(ctx, "/mpesa/stkpush/v1/processrequest", token, payload, &body); err != nil {
		return providers.InitiateResult{}, err
	}

	if body.ResponseCode != "0" {
		msg := body.ResponseDescription
		if msg == "" {
			msg = body.ErrorMessage
		}
		return providers.InitiateResult{}, &apperr.ProviderError{
			Kind:    apperr.ProviderRejected,
			Code:    body.ResponseCode,
			Message: msg,
		}
	}

	return providers.InitiateResult{
		Reference:   body.CheckoutRequestID,
		Code:        body.ResponseCode,
		Description: body.ResponseDescription,
	}, nil
}

// InitiateWithdraw starts a B2C payout to the customer's phone.
func (c *Client) InitiateWithdraw(ctx context.Context, phone string, amount decimal.Decimal, reference string) (providers.InitiateResult, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return providers.InitiateResult{}, err
	}

	payload := map[string]interface{}{
		"InitiatorName":      c.cfg.B2CInitiatorName,
		"SecurityCredential": c.cfg.B2CSecurityCredential,
		"CommandID":          "BusinessPayment",
		"Amount":             amount.StringFixed(0),
		"PartyA":             c.cfg.B2CShortCode,
		"PartyB":             phone,
		"Remarks":            "Wallet Withdrawal",
		"Occasion":           reference,
		"QueueTimeOutURL":    c.cfg.B2CTimeoutURL,
		"ResultURL":          c.cfg.B2CResultURL,
	}

	var body struct {
		ConversationID           string `json:"ConversationID"`
		OriginatorConversationID string `json:"OriginatorConversationID"`
		ResponseCode             string `json:"ResponseCode"`
		ResponseDescription      string `json:"ResponseDescription"`
	}
	if err := c.post(ctx, "/mpesa/b2c/v1/paymentrequest", token, payload, &body); err != nil {
		return providers.InitiateResult{}, err
	}

	if body.ResponseCode != "0" {
		return providers.InitiateResult{}, &apperr.ProviderError{
			Kind:    apperr.ProviderRejected,
			Code:    body.ResponseCode,
			Message: body.ResponseDescription,
		}
	}

	return providers.InitiateResult{
		Reference:   body.ConversationID,
		Code:        body.ResponseCode,
		Description: body.ResponseDescription,
	}, nil
}

// QueryPush polls the gateway for the current status of an STK push.
// Used when the callback is delayed or lost.
func (c *Client) QueryPush(ctx context.Context, checkoutRequestID string) (string, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}

	password, timestamp := c.password()
	payload := map[string]interface{}{
		"BusinessShortCode": c.cfg.ShortCode,
		"Password":          password,
		"Timestamp":         timestamp,
		"CheckoutRequestID": checkoutRequestID,
	}

	var body struct {
		ResultCode        string `json:"ResultCode"`
		ResultDescription string `json:"ResultDesc"`
	}
	if err := c.post(ctx, "/mpesa/stkpushquery/v1/query", token, payload, &body); err != nil {
		return "", err
	}
	return body.ResultCode, nil
}

func (c *Client) post(ctx context.Context, path, token string, payload, dest interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return providers.TransportError(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return providers.TransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return providers.TransportError(err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &apperr.ProviderError{
			Kind:    apperr.ProviderAuth,
			Code:    fmt.Sprintf("%d", resp.StatusCode),
			Message: string(raw),
		}
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return &apperr.ProviderError{
			Kind:    apperr.ProviderRejected,
			Code:    fmt.Sprintf("%d", resp.StatusCode),
			Message: "unparseable gateway response",
		}
	}
	return nil
}
