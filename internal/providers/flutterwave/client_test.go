package flutterwave

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Sharon404/wallet-app/internal/apperr"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, SecretKey: "sk_test"})
}

func TestInitiateTransfer(t *testing.T) {
	var seen map[string]interface{}
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transfers", r.URL.Path)
		require.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		json.NewDecoder(r.Body).Decode(&seen)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "success",
			"message": "Transfer Queued Successfully",
			"data":    map[string]interface{}{"id": 99, "reference": "our-ref-42"},
		})
	})

	res, err := client.InitiateTransfer(context.Background(),
		"044", "0690000040", decimal.RequireFromString("150.25"), "KES", "Wallet Withdrawal", "our-ref-42")
	require.NoError(t, err)

	assert.Equal(t, "our-ref-42", res.Reference, "idempotency reference is ours")
	assert.True(t, res.Accepted())
	assert.Equal(t, "150.25", seen["amount"])
	assert.Equal(t, "our-ref-42", seen["reference"])
}

func TestInitiateTransferRejected(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "error",
			"message": "Insufficient funds in customer wallet",
		})
	})

	_, err := client.InitiateTransfer(context.Background(),
		"044", "0690000040", decimal.NewFromInt(100), "KES", "w", "ref-1")
	require.Error(t, err)

	var pe *apperr.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, apperr.ProviderRejected, pe.Kind)
	assert.Equal(t, "Insufficient funds in customer wallet", pe.Message)
}

func TestVerifyTransfer(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transfers/99", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "success",
			"message": "Transfer fetched",
			"data":    map[string]interface{}{"status": "SUCCESSFUL"},
		})
	})

	status, err := client.VerifyTransfer(context.Background(), "99")
	require.NoError(t, err)
	assert.Equal(t, "SUCCESSFUL", status)
}

func TestBanks(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/banks/KE", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "success",
			"message": "Banks fetched successfully",
			"data": []map[string]interface{}{
				{"id": 1, "code": "044", "name": "Access Bank"},
				{"id": 2, "code": "011", "name": "First Bank"},
			},
		})
	})

	banks, err := client.Banks(context.Background(), "KE")
	require.NoError(t, err)
	require.Len(t, banks, 2)
	assert.Equal(t, "044", banks[0].Code)
	assert.Equal(t, "First Bank", banks[1].Name)
}

func TestAuthFailure(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Banks(context.Background(), "KE")
	require.Error(t, err)

	var pe *apperr.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, apperr.ProviderAuth, pe.Kind)
}
