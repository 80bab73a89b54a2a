package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/influence-engine/funnel-go/billing"
	"github.com/influence-engine/funnel-go/events"
	"github.com/influence-engine/funnel-go/stores"
)

const testWebhookSecret = "whsec_test_secret"

func signPayload(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func newWebhookRouter(t *testing.T) (*gin.Engine, *stores.MemoryPurchaseRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gateway, err := billing.NewStripeGateway(billing.StripeConfig{
		SecretKey:     "sk_test_x",
		WebhookSecret: testWebhookSecret,
		SuccessURL:    "https://example.com/success",
		CancelURL:     "https://example.com/cancel",
	})
	require.NoError(t, err)

	purchases := stores.NewMemoryPurchaseRepository()
	profiles := stores.NewMemoryProfileRepository()
	audits := stores.NewMemoryWebhookEventRepository()
	reconciler := events.NewReconciler(gateway, purchases, profiles, audits, nil, events.LogSink{})
	handlers := NewHandlers(gateway, reconciler, purchases, profiles, events.LogSink{})

	r := gin.New()
	r.POST("/api/v1/stripe/webhook", handlers.StripeWebhookHandler)
	return r, purchases
}

func postWebhook(r *gin.Engine, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/stripe/webhook", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestWebhookRejectsUnsignedPayload(t *testing.T) {
	r, _ := newWebhookRouter(t)

	payload := []byte(`{"id": "evt_1", "type": "checkout.session.completed", "data": {"object": {"id": "cs_1"}}}`)
	rr := postWebhook(r, payload, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWebhookRejectsWrongSecret(t *testing.T) {
	r, _ := newWebhookRouter(t)

	payload := []byte(`{"id": "evt_1", "type": "checkout.session.completed", "data": {"object": {"id": "cs_1"}}}`)
	rr := postWebhook(r, payload, signPayload(payload, "whsec_other"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWebhookAppliesCompletedSession(t *testing.T) {
	r, purchases := newWebhookRouter(t)

	payload := []byte(`{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_1", "object": "checkout.session", "metadata": {"userId": "7", "cart": "Book"}}}
	}`)
	rr := postWebhook(r, payload, signPayload(payload, testWebhookSecret))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"received": true}`, rr.Body.String())

	record, err := purchases.Get(context.Background(), "cs_1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, record.IsCompleted())
}

func TestWebhookAcknowledgesUnhandledTypes(t *testing.T) {
	r, _ := newWebhookRouter(t)

	payload := []byte(`{"id": "evt_2", "object": "event", "type": "customer.created", "data": {"object": {"id": "cus_1"}}}`)
	rr := postWebhook(r, payload, signPayload(payload, testWebhookSecret))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"received": true}`, rr.Body.String())
}
