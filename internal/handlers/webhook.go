package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"strings"

	"github.com/Sharon404/wallet-app/internal/services/reconcile"
	"github.com/Sharon404/wallet-app/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// WebhookHandler receives provider callbacks and feeds them to the
// reconciliation processor. Acknowledgement bodies are fixed regardless
// of whether the callback matched anything, so providers never retry
// callbacks we have consciously ignored.
type WebhookHandler struct {
	reconciler reconcile.Service
	// secret signs flutterwave callbacks.
	secret string
}

func NewWebhookHandler(reconciler reconcile.Service, secret string) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler, secret: secret}
}

// mpesaAck is the acknowledgement body Daraja expects.
var mpesaAck = fiber.Map{"ResultCode": 0, "ResultDesc": "Accepted"}

type stkCallbackPayload struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string      `json:"Name"`
					Value interface{} `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// MpesaPush handles STK push result callbacks (deposits).
func (h *WebhookHandler) MpesaPush(c *fiber.Ctx) error {
	var payload stkCallbackPayload
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		return utils.BadRequest(c, "invalid payload")
	}

	cb := payload.Body.StkCallback
	ev := reconcile.Event{
		ProviderRef: cb.CheckoutRequestID,
		Succeeded:   cb.ResultCode == 0,
		Reason:      cb.ResultDesc,
	}
	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			if v, err := decimal.NewFromString(jsonNumber(item.Value)); err == nil {
				ev.Amount = v
			}
		case "PhoneNumber":
			ev.Phone = jsonNumber(item.Value)
		}
	}

	if _, err := h.reconciler.Process(c.Context(), ev); err != nil {
		log.Printf("mpesa push callback %s: %v", cb.CheckoutRequestID, err)
	}
	return utils.Success(c, mpesaAck)
}

type b2cResultPayload struct {
	Result struct {
		ConversationID           string `json:"ConversationID"`
		OriginatorConversationID string `json:"OriginatorConversationID"`
		ResultCode               int    `json:"ResultCode"`
		ResultDesc               string `json:"ResultDesc"`
	} `json:"Result"`
}

// MpesaB2C handles payout result callbacks (withdrawals).
func (h *WebhookHandler) MpesaB2C(c *fiber.Ctx) error {
	var payload b2cResultPayload
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		return utils.BadRequest(c, "invalid payload")
	}

	r := payload.Result
	ev := reconcile.Event{
		ProviderRef:   r.ConversationID,
		InitiationRef: r.OriginatorConversationID,
		Succeeded:     r.ResultCode == 0,
		Reason:        r.ResultDesc,
	}
	if _, err := h.reconciler.Process(c.Context(), ev); err != nil {
		log.Printf("mpesa b2c callback %s: %v", r.ConversationID, err)
	}
	return utils.Success(c, mpesaAck)
}

type flutterwavePayload struct {
	Event string `json:"event"`
	Data  struct {
		ID       int             `json:"id"`
		TxRef    string          `json:"tx_ref"`
		FlwRef   string          `json:"flw_ref"`
		Status   string          `json:"status"`
		Amount   decimal.Decimal `json:"amount"`
		Customer struct {
			PhoneNumber string `json:"phone_number"`
		} `json:"customer"`
		Complete struct {
			Message string `json:"complete_message"`
		} `json:"complete"`
	} `json:"data"`
}

// Flutterwave handles transfer status callbacks. A present verif-hash
// header must carry an HMAC-SHA256 of the raw body; sandbox callbacks
// arrive without the header and skip verification.
func (h *WebhookHandler) Flutterwave(c *fiber.Ctx) error {
	body := c.Body()
	if sig := c.Get("verif-hash"); sig != "" {
		if !h.verifySignature(body, sig) {
			return utils.BadRequest(c, "invalid signature")
		}
	}

	var payload flutterwavePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return utils.BadRequest(c, "invalid payload")
	}

	status := strings.ToLower(payload.Data.Status)
	ev := reconcile.Event{
		ProviderRef:   payload.Data.FlwRef,
		InitiationRef: payload.Data.TxRef,
		Phone:         payload.Data.Customer.PhoneNumber,
		Amount:        payload.Data.Amount,
		Succeeded:     status == "successful" || status == "success",
		Reason:        payload.Data.Complete.Message,
	}
	if _, err := h.reconciler.Process(c.Context(), ev); err != nil {
		log.Printf("flutterwave callback %s: %v", payload.Data.TxRef, err)
	}
	return utils.Success(c, fiber.Map{"status": "ok"})
}

func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// jsonNumber renders a metadata value that may arrive as a string or a
// number.
func jsonNumber(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return decimal.NewFromFloat(t).String()
	case json.Number:
		return t.String()
	default:
		return ""
	}
}
