package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Sharon404/wallet-app/internal/services/reconcile"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReconciler struct {
	events  []reconcile.Event
	outcome *reconcile.Outcome
}

func (s *stubReconciler) Process(ctx context.Context, ev reconcile.Event) (*reconcile.Outcome, error) {
	s.events = append(s.events, ev)
	if s.outcome != nil {
		return s.outcome, nil
	}
	return &reconcile.Outcome{Matched: true}, nil
}

func webhookApp(secret string) (*fiber.App, *stubReconciler) {
	rec := &stubReconciler{}
	h := NewWebhookHandler(rec, secret)
	app := fiber.New()
	app.Post("/webhooks/push-payment", h.MpesaPush)
	app.Post("/webhooks/push-payment/result", h.MpesaB2C)
	app.Post("/webhooks/transfer-result", h.Flutterwave)
	return app, rec
}

func postJSON(t *testing.T, app *fiber.App, path string, body []byte, headers map[string]string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestMpesaPushCallback(t *testing.T) {
	app, rec := webhookApp("")

	body := []byte(`{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "1234",
				"CheckoutRequestID": "ws_CO_9988",
				"ResultCode": 0,
				"ResultDesc": "The service request is processed successfully.",
				"CallbackMetadata": {
					"Item": [
						{"Name": "Amount", "Value": 300},
						{"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
						{"Name": "PhoneNumber", "Value": 254712345678}
					]
				}
			}
		}
	}`)

	resp := postJSON(t, app, "/webhooks/push-payment", body, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Fixed ack body regardless of outcome.
	var ack map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(raw, &ack))
	assert.EqualValues(t, 0, ack["ResultCode"])

	require.Len(t, rec.events, 1)
	ev := rec.events[0]
	assert.Equal(t, "ws_CO_9988", ev.ProviderRef)
	assert.True(t, ev.Succeeded)
	assert.Equal(t, "254712345678", ev.Phone)
	assert.True(t, ev.Amount.Equal(decimal.NewFromInt(300)))
}

func TestMpesaPushFailureCallback(t *testing.T) {
	app, rec := webhookApp("")

	body := []byte(`{
		"Body": {
			"stkCallback": {
				"CheckoutRequestID": "ws_CO_9989",
				"ResultCode": 1032,
				"ResultDesc": "Request cancelled by user"
			}
		}
	}`)

	resp := postJSON(t, app, "/webhooks/push-payment", body, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, rec.events, 1)
	assert.False(t, rec.events[0].Succeeded)
	assert.Equal(t, "Request cancelled by user", rec.events[0].Reason)
}

func TestMpesaB2CCallback(t *testing.T) {
	app, rec := webhookApp("")

	body := []byte(`{
		"Result": {
			"ConversationID": "AG_20260901_000055",
			"OriginatorConversationID": "our-ref-12",
			"ResultCode": 0,
			"ResultDesc": "Completed"
		}
	}`)

	resp := postJSON(t, app, "/webhooks/push-payment/result", body, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, rec.events, 1)
	assert.Equal(t, "AG_20260901_000055", rec.events[0].ProviderRef)
	assert.Equal(t, "our-ref-12", rec.events[0].InitiationRef)
	assert.True(t, rec.events[0].Succeeded)
}

func flwBody() []byte {
	return []byte(`{
		"event": "transfer.completed",
		"data": {
			"id": 55,
			"tx_ref": "our-ref-42",
			"flw_ref": "FLW-REF-99",
			"status": "SUCCESSFUL",
			"amount": 150.25,
			"customer": {"phone_number": "254712345678"}
		}
	}`)
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestFlutterwaveCallbackSigned(t *testing.T) {
	app, rec := webhookApp("whsec")
	body := flwBody()

	resp := postJSON(t, app, "/webhooks/transfer-result", body, map[string]string{
		"verif-hash": sign("whsec", body),
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, rec.events, 1)
	ev := rec.events[0]
	assert.Equal(t, "FLW-REF-99", ev.ProviderRef)
	assert.Equal(t, "our-ref-42", ev.InitiationRef)
	assert.True(t, ev.Succeeded)
	assert.True(t, ev.Amount.Equal(decimal.RequireFromString("150.25")))
}

func TestFlutterwaveBadSignatureRejected(t *testing.T) {
	app, rec := webhookApp("whsec")
	body := flwBody()

	resp := postJSON(t, app, "/webhooks/transfer-result", body, map[string]string{
		"verif-hash": "deadbeef",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, rec.events, "unverified callback must not reach the processor")
}

func TestFlutterwaveUnsignedCallbackAccepted(t *testing.T) {
	// Sandbox deliveries omit the verif-hash header even when a secret
	// is configured; only a present-but-wrong signature is rejected.
	app, rec := webhookApp("whsec")
	resp := postJSON(t, app, "/webhooks/transfer-result", flwBody(), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, rec.events, 1)
	assert.Equal(t, "our-ref-42", rec.events[0].InitiationRef)
}

func TestFlutterwaveNoSecretSkipsVerification(t *testing.T) {
	app, rec := webhookApp("")
	resp := postJSON(t, app, "/webhooks/transfer-result", flwBody(), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, rec.events, 1)
}

func TestMalformedPayloadRejected(t *testing.T) {
	app, rec := webhookApp("")
	resp := postJSON(t, app, "/webhooks/push-payment", []byte(`not json`), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, rec.events)
}
