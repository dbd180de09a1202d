package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/studyhub/adserver/internal/billing"
	"go.uber.org/zap"
)

type fakeReconciler struct {
	err    error
	events []*billing.WebhookEvent
}

func (f *fakeReconciler) HandleEvent(_ context.Context, evt *billing.WebhookEvent) error {
	f.events = append(f.events, evt)
	return f.err
}

const testWebhookSecret = "whsec_test"

func newWebhookApp(rec EventHandler, secret string) *fiber.App {
	h := NewWebhookHandler(rec, secret, zap.NewNop())
	app := fiber.New()
	app.Post("/webhooks/payment", h.HandlePaymentWebhook)
	return app
}

func postWebhook(app *fiber.App, body []byte, signature string) (int, []byte, error) {
	req := httptest.NewRequest("POST", "/webhooks/payment", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Webhook-Signature", signature)
	}
	resp, err := app.Test(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func TestHandlePaymentWebhook_Success(t *testing.T) {
	rec := &fakeReconciler{}
	app := newWebhookApp(rec, testWebhookSecret)

	body := []byte(`{"type":"billing.paid","data":{"id":"bill_1","metadata":{"transaction_id":"tx"}}}`)
	sig := billing.Sign(body, []byte(testWebhookSecret))

	status, respBody, err := postWebhook(app, body, sig)
	if err != nil {
		t.Fatal(err)
	}
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}

	var ack struct {
		Received bool `json:"received"`
	}
	if err := json.Unmarshal(respBody, &ack); err != nil || !ack.Received {
		t.Errorf("body = %s, want {\"received\":true}", respBody)
	}
	if len(rec.events) != 1 || rec.events[0].Type != billing.EventBillingPaid {
		t.Errorf("reconciler events = %v", rec.events)
	}
}

func TestHandlePaymentWebhook_BadSignature(t *testing.T) {
	rec := &fakeReconciler{}
	app := newWebhookApp(rec, testWebhookSecret)

	body := []byte(`{"type":"billing.paid","data":{"id":"bill_1"}}`)

	tests := []struct {
		name string
		sig  string
	}{
		{"missing signature", ""},
		{"wrong secret", billing.Sign(body, []byte("other-secret"))},
		{"signature over different body", billing.Sign([]byte(`{}`), []byte(testWebhookSecret))},
		{"garbage", "not-a-signature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _, err := postWebhook(app, body, tt.sig)
			if err != nil {
				t.Fatal(err)
			}
			if status != fiber.StatusUnauthorized {
				t.Errorf("status = %d, want 401", status)
			}
		})
	}
	if len(rec.events) != 0 {
		t.Error("unauthenticated events must never reach the reconciler")
	}
}

func TestHandlePaymentWebhook_MalformedBody(t *testing.T) {
	rec := &fakeReconciler{}
	app := newWebhookApp(rec, testWebhookSecret)

	// Correctly signed but unparseable: authenticated garbage is the
	// sender's bug, not ours.
	body := []byte(`this is not json`)
	sig := billing.Sign(body, []byte(testWebhookSecret))

	status, _, err := postWebhook(app, body, sig)
	if err != nil {
		t.Fatal(err)
	}
	if status != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
}

func TestHandlePaymentWebhook_InvalidEvent(t *testing.T) {
	rec := &fakeReconciler{err: billing.ErrInvalidEvent}
	app := newWebhookApp(rec, testWebhookSecret)

	body := []byte(`{"type":"billing.paid","data":{"id":"bill_1"}}`)
	sig := billing.Sign(body, []byte(testWebhookSecret))

	status, _, err := postWebhook(app, body, sig)
	if err != nil {
		t.Fatal(err)
	}
	if status != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
}

func TestHandlePaymentWebhook_InfrastructureError(t *testing.T) {
	rec := &fakeReconciler{err: errors.New("connection refused")}
	app := newWebhookApp(rec, testWebhookSecret)

	body := []byte(`{"type":"billing.paid","data":{"id":"bill_1"}}`)
	sig := billing.Sign(body, []byte(testWebhookSecret))

	status, _, err := postWebhook(app, body, sig)
	if err != nil {
		t.Fatal(err)
	}
	// 500 tells the provider to redeliver; idempotent handling makes the
	// retry safe.
	if status != fiber.StatusInternalServerError {
		t.Errorf("status = %d, want 500", status)
	}
}

func TestHandlePaymentWebhook_MissingSecret(t *testing.T) {
	rec := &fakeReconciler{}
	app := newWebhookApp(rec, "")

	body := []byte(`{"type":"billing.paid"}`)
	status, _, err := postWebhook(app, body, billing.Sign(body, nil))
	if err != nil {
		t.Fatal(err)
	}
	if status != fiber.StatusInternalServerError {
		t.Errorf("status = %d, want 500", status)
	}
	if len(rec.events) != 0 {
		t.Error("events must not be processed without a configured secret")
	}
}
