package mpesa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Sharon404/wallet-app/internal/apperr"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(Config{
		BaseURL:        srv.URL,
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		ShortCode:      "174379",
		PassKey:        "passkey",
		CallbackURL:    "https://example.com/webhooks/push-payment",
		B2CShortCode:   "600990",
	})
	c.now = func() time.Time {
		return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	}
	return c, srv
}

func tokenHandler(next http.HandlerFunc) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-abc"})
	})
	mux.HandleFunc("/", next)
	return mux
}

func TestInitiatePush(t *testing.T) {
	var seen map[string]interface{}
	client, _ := testClient(t, tokenHandler(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/mpesa/stkpush/v1/processrequest", r.URL.Path)
		require.Equal(t, "Bearer tok-abc", r.Header.Get("Authorization"))
		json.NewDecoder(r.Body).Decode(&seen)
		json.NewEncoder(w).Encode(map[string]string{
			"CheckoutRequestID":   "ws_CO_123",
			"MerchantRequestID":   "mr-1",
			"ResponseCode":        "0",
			"ResponseDescription": "Success. Request accepted for processing",
		})
	}))

	res, err := client.InitiatePush(context.Background(), "254712345678", decimal.NewFromInt(300), "Wallet Deposit")
	require.NoError(t, err)

	assert.Equal(t, "ws_CO_123", res.Reference)
	assert.True(t, res.Accepted())

	assert.Equal(t, "254712345678", seen["PhoneNumber"])
	assert.Equal(t, "300", seen["Amount"], "whole-unit amount")
	assert.Equal(t, "20260901120000", seen["Timestamp"])
}

func TestInitiatePushRejected(t *testing.T) {
	client, _ := testClient(t, tokenHandler(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"ResponseCode":        "1",
			"ResponseDescription": "Insufficient balance on shortcode",
		})
	}))

	_, err := client.InitiatePush(context.Background(), "254712345678", decimal.NewFromInt(300), "Wallet Deposit")
	require.Error(t, err)

	var pe *apperr.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, apperr.ProviderRejected, pe.Kind)
	assert.False(t, apperr.IsProviderTimeout(err))
}

func TestInitiateWithdraw(t *testing.T) {
	client, _ := testClient(t, tokenHandler(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/mpesa/b2c/v1/paymentrequest", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{
			"ConversationID":           "AG_202609_777",
			"OriginatorConversationID": "oc-1",
			"ResponseCode":             "0",
			"ResponseDescription":      "Accept the service request successfully.",
		})
	}))

	res, err := client.InitiateWithdraw(context.Background(), "254712345678", decimal.NewFromInt(200), "our-ref-5")
	require.NoError(t, err)
	assert.Equal(t, "AG_202609_777", res.Reference)
}

func TestAuthFailureIsProviderAuth(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.InitiatePush(context.Background(), "254712345678", decimal.NewFromInt(100), "x")
	require.Error(t, err)

	var pe *apperr.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, apperr.ProviderAuth, pe.Kind)
}

func TestTimeoutIsAmbiguous(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/v1/generate" {
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok"})
			return
		}
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient(Config{
		BaseURL:        srv.URL,
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		Timeout:        50 * time.Millisecond,
	})

	_, err := client.InitiatePush(context.Background(), "254712345678", decimal.NewFromInt(100), "x")
	require.Error(t, err)
	assert.True(t, apperr.IsProviderTimeout(err), "client timeout must classify as ambiguous")
}

func TestQueryPush(t *testing.T) {
	client, _ := testClient(t, tokenHandler(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/mpesa/stkpushquery/v1/query", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{
			"ResultCode": "0",
			"ResultDesc": "The service request is processed successfully.",
		})
	}))

	code, err := client.QueryPush(context.Background(), "ws_CO_123")
	require.NoError(t, err)
	assert.Equal(t, "0", code)
}
