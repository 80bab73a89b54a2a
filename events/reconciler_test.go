package events

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/influence-engine/funnel-go/billing"
	"github.com/influence-engine/funnel-go/models"
	"github.com/influence-engine/funnel-go/stores"
)

const testWebhookSecret = "whsec_test_secret"

// signPayload produces a Stripe-format signature header for the payload:
// t=<unix>,v1=<hex hmac-sha256 of "<unix>.<payload>">.
func signPayload(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func completedSessionPayload(eventID, sessionID, userID, cart string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": %q,
				"object": "checkout.session",
				"metadata": {"userId": %q, "cart": %q, "email": "buyer@example.com"}
			}
		}
	}`, eventID, sessionID, userID, cart))
}

type fakeReceiptSender struct {
	calls int
	err   error
}

func (f *fakeReceiptSender) SendPurchaseReceipt(email, firstname string, products []models.ProductKey, total float64) error {
	f.calls++
	return f.err
}

type recordingSink struct {
	events []string
}

func (s *recordingSink) RecordEvent(name string, fields map[string]string) {
	s.events = append(s.events, name)
}

type testEnv struct {
	reconciler *Reconciler
	purchases  *stores.MemoryPurchaseRepository
	profiles   *stores.MemoryProfileRepository
	audits     *stores.MemoryWebhookEventRepository
	receipts   *fakeReceiptSender
	sink       *recordingSink
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gateway, err := billing.NewStripeGateway(billing.StripeConfig{
		SecretKey:     "sk_test_x",
		WebhookSecret: testWebhookSecret,
		SuccessURL:    "https://example.com/success",
		CancelURL:     "https://example.com/cancel",
	})
	require.NoError(t, err)

	env := &testEnv{
		purchases: stores.NewMemoryPurchaseRepository(),
		profiles:  stores.NewMemoryProfileRepository(),
		audits:    stores.NewMemoryWebhookEventRepository(),
		receipts:  &fakeReceiptSender{},
		sink:      &recordingSink{},
	}
	env.reconciler = NewReconciler(gateway, env.purchases, env.profiles, env.audits, env.receipts, env.sink)
	return env
}

func TestProcessRejectsBadSignature(t *testing.T) {
	env := newTestEnv(t)
	payload := completedSessionPayload("evt_1", "cs_1", "7", "Book")

	err := env.reconciler.Process(context.Background(), payload, signPayload(payload, "whsec_wrong"))

	var signatureErr *models.SignatureVerificationError
	require.True(t, errors.As(err, &signatureErr))

	// Nothing applied, nothing audited.
	record, getErr := env.purchases.Get(context.Background(), "cs_1")
	require.NoError(t, getErr)
	assert.Nil(t, record)
	assert.Empty(t, env.audits.All())
}

func TestProcessRejectsMissingSignature(t *testing.T) {
	env := newTestEnv(t)
	payload := completedSessionPayload("evt_1", "cs_1", "7", "Book")

	err := env.reconciler.Process(context.Background(), payload, "")

	var signatureErr *models.SignatureVerificationError
	assert.True(t, errors.As(err, &signatureErr))
}

func TestProcessAppliesCompletedSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	profile := &models.Profile{Email: "buyer@example.com"}
	require.NoError(t, env.profiles.Create(ctx, profile))

	require.NoError(t, env.purchases.CreatePending(ctx, &models.PurchaseRecord{
		SessionID: "cs_1",
		UserID:    profile.ID,
		Products:  []models.ProductKey{models.ProductBook, models.ProductToolkit},
		Total:     78,
	}))

	payload := completedSessionPayload("evt_1", "cs_1", profile.ID, "Book,Toolkit")
	require.NoError(t, env.reconciler.Process(ctx, payload, signPayload(payload, testWebhookSecret)))

	record, err := env.purchases.Get(ctx, "cs_1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, record.IsCompleted())
	assert.Equal(t, []models.ProductKey{models.ProductBook, models.ProductToolkit}, record.Products)
	assert.Equal(t, 78.0, record.Total)

	stored, err := env.profiles.GetByID(ctx, profile.ID)
	require.NoError(t, err)
	assert.True(t, stored.OwnsBook)
	assert.True(t, stored.OwnsToolkit)
	assert.False(t, stored.IEMember)

	assert.Equal(t, 1, env.receipts.calls)
	assert.Contains(t, env.sink.events, "purchase_completed")

	audits := env.audits.All()
	require.Len(t, audits, 1)
	assert.True(t, audits[0].Processed)
	assert.Equal(t, "evt_1", audits[0].EventID)
}

func TestProcessRedeliveryIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	profile := &models.Profile{Email: "buyer@example.com"}
	require.NoError(t, env.profiles.Create(ctx, profile))

	payload := completedSessionPayload("evt_1", "cs_1", profile.ID, "Book,Toolkit")

	// Same event id delivered three times.
	for i := 0; i < 3; i++ {
		require.NoError(t, env.reconciler.Process(ctx, payload, signPayload(payload, testWebhookSecret)))
	}

	record, err := env.purchases.Get(ctx, "cs_1")
	require.NoError(t, err)
	require.True(t, record.IsCompleted())
	assert.Equal(t, []models.ProductKey{models.ProductBook, models.ProductToolkit}, record.Products)

	stored, err := env.profiles.GetByID(ctx, profile.ID)
	require.NoError(t, err)
	assert.True(t, stored.OwnsBook)
	assert.True(t, stored.OwnsToolkit)
	require.NotNil(t, stored.PaidAt)

	// The audit log is delivery-count-accurate while the purchase record is
	// event-id-idempotent, and the receipt goes out once.
	assert.Len(t, env.audits.All(), 3)
	assert.Equal(t, 1, env.receipts.calls)
}

func TestProcessToleratesMissingPendingRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	payload := completedSessionPayload("evt_1", "cs_raced", "7", "Book")
	require.NoError(t, env.reconciler.Process(ctx, payload, signPayload(payload, testWebhookSecret)))

	record, err := env.purchases.Get(ctx, "cs_raced")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, record.IsCompleted())
	assert.Equal(t, 29.0, record.Total)
}

func TestProcessAuditsPaymentFailureOnly(t *testing.T) {
	env := newTestEnv(t)
	payload := []byte(`{"id": "evt_2", "object": "event", "type": "payment_intent.payment_failed", "data": {"object": {"id": "pi_1"}}}`)

	require.NoError(t, env.reconciler.Process(context.Background(), payload, signPayload(payload, testWebhookSecret)))

	audits := env.audits.All()
	require.Len(t, audits, 1)
	assert.Equal(t, "payment_intent.payment_failed", audits[0].Type)
	assert.False(t, audits[0].Processed)
	assert.Contains(t, env.sink.events, EventPaymentFailed)
}

func TestProcessAcceptsUnhandledEventTypes(t *testing.T) {
	env := newTestEnv(t)
	payload := []byte(`{"id": "evt_3", "object": "event", "type": "customer.created", "data": {"object": {"id": "cus_1"}}}`)

	require.NoError(t, env.reconciler.Process(context.Background(), payload, signPayload(payload, testWebhookSecret)))
	assert.Len(t, env.audits.All(), 1)
}

func TestProcessToleratesReceiptFailure(t *testing.T) {
	env := newTestEnv(t)
	env.receipts.err = errors.New("smtp down")
	ctx := context.Background()

	payload := completedSessionPayload("evt_1", "cs_1", "7", "Book")
	require.NoError(t, env.reconciler.Process(ctx, payload, signPayload(payload, testWebhookSecret)))

	record, err := env.purchases.Get(ctx, "cs_1")
	require.NoError(t, err)
	assert.True(t, record.IsCompleted())
	assert.Equal(t, 1, env.receipts.calls)
}
