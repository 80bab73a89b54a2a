package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v83"

	"github.com/influence-engine/funnel-go/billing"
	"github.com/influence-engine/funnel-go/models"
	"github.com/influence-engine/funnel-go/pricing"
	"github.com/influence-engine/funnel-go/stores"
)

// Event types the reconciler recognizes. Payment intent events are audited
// only; session completion is applied to the purchase store.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventPaymentSucceeded         = "payment_intent.succeeded"
	EventPaymentFailed            = "payment_intent.payment_failed"
)

// ReceiptSender sends a purchase confirmation after a completed order is
// applied. Failures are logged and never block reconciliation.
type ReceiptSender interface {
	SendPurchaseReceipt(email, firstname string, products []models.ProductKey, total float64) error
}

// Reconciler verifies and applies provider events. Each event moves
// through one of two paths:
//
//	unverified ---(bad signature)---> rejected
//	unverified ---(signature ok)---> verified ---(dispatch)---> applied
//
// Rejection returns an error so the HTTP layer answers non-success and the
// provider does not treat the payload as handled. Applying a session
// completion is idempotent per event: the purchase store's conditional
// completion makes redeliveries no-ops.
type Reconciler struct {
	verifier  billing.WebhookVerifier
	purchases stores.PurchaseRepository
	profiles  stores.ProfileRepository
	audits    stores.WebhookEventRepository
	receipts  ReceiptSender
	sink      Sink
}

// NewReconciler wires the reconciler's collaborators. receipts may be nil
// when receipt email is disabled.
func NewReconciler(
	verifier billing.WebhookVerifier,
	purchases stores.PurchaseRepository,
	profiles stores.ProfileRepository,
	audits stores.WebhookEventRepository,
	receipts ReceiptSender,
	sink Sink,
) *Reconciler {
	if sink == nil {
		sink = LogSink{}
	}
	return &Reconciler{
		verifier:  verifier,
		purchases: purchases,
		profiles:  profiles,
		audits:    audits,
		receipts:  receipts,
		sink:      sink,
	}
}

// Process verifies one delivery and dispatches it. Every verified delivery
// is appended to the audit log exactly once, including redeliveries of an
// already-applied event; the audit log counts deliveries while the purchase
// store stays idempotent per event.
func (r *Reconciler) Process(ctx context.Context, payload []byte, signatureHeader string) error {
	event, err := r.verifier.VerifyEvent(payload, signatureHeader)
	if err != nil {
		log.Printf("Rejected webhook delivery: %v", err)
		return err
	}

	var processErr error
	processed := false

	switch string(event.Type) {
	case EventCheckoutSessionCompleted:
		processErr = r.applyCompletedSession(ctx, event)
		processed = processErr == nil
	case EventPaymentSucceeded, EventPaymentFailed:
		// Audited only. No compensating action exists for failed payments;
		// recovery flows live outside this service.
		r.sink.RecordEvent(string(event.Type), map[string]string{"eventId": event.ID})
	default:
		log.Printf("Unhandled webhook event type %s (%s)", event.Type, event.ID)
	}

	audit := &models.WebhookEventAudit{
		EventID:    event.ID,
		Type:       string(event.Type),
		Payload:    string(payload),
		Processed:  processed,
		ReceivedAt: time.Now().UTC(),
	}
	if err := r.audits.Append(ctx, audit); err != nil {
		// The audit log is for replay/debugging; losing a row is logged but
		// does not fail an otherwise-applied event.
		log.Printf("Failed to append webhook audit for %s: %v", event.ID, err)
	}

	return processErr
}

// applyCompletedSession applies a checkout.session.completed event. User
// identity and cart come from the session's embedded metadata snapshot, not
// from any currently-mutable record.
func (r *Reconciler) applyCompletedSession(ctx context.Context, event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("failed to parse session payload for event %s: %w", event.ID, err)
	}

	userID := session.Metadata["userId"]
	products := parseCartMetadata(session.Metadata["cart"])
	if len(products) == 0 {
		// Nothing to reconcile; record and move on.
		log.Printf("Session %s completed with empty cart metadata", session.ID)
	}

	// Charge amount is authoritative from the catalog, not from any
	// client-declared number carried in metadata.
	total, err := pricing.Total(products)
	if err != nil {
		return fmt.Errorf("failed to price session %s products: %w", session.ID, err)
	}

	// Redeliveries still flow through the store's conditional completion,
	// but the receipt and tracking event only fire on first application.
	prior, err := r.purchases.Get(ctx, session.ID)
	if err != nil {
		return err
	}
	alreadyCompleted := prior != nil && prior.IsCompleted()

	record, err := r.purchases.MarkCompleted(ctx, session.ID, models.CompletionDetails{
		UserID:      userID,
		Products:    products,
		Total:       total,
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		// A lost completion is a revenue-integrity defect; surfacing the
		// error makes the provider redeliver.
		return err
	}

	if userID != "" {
		// Markers only move false to true, so reapplying is harmless.
		if err := r.profiles.SetPaymentMarkers(ctx, userID, products); err != nil {
			return err
		}
	}

	if !alreadyCompleted {
		r.sink.RecordEvent("purchase_completed", map[string]string{
			"eventId":   event.ID,
			"sessionId": session.ID,
			"userId":    userID,
			"products":  session.Metadata["cart"],
		})

		if r.receipts != nil {
			email := session.Metadata["email"]
			if email == "" && session.CustomerDetails != nil {
				email = session.CustomerDetails.Email
			}
			if email != "" {
				if err := r.receipts.SendPurchaseReceipt(email, "", record.Products, record.Total); err != nil {
					log.Printf("Failed to send receipt for session %s: %v", session.ID, err)
				}
			}
		}
	}

	log.Printf("Applied completed session %s (event %s) for user %s", session.ID, event.ID, userID)
	return nil
}

// parseCartMetadata splits the metadata cart CSV ("Book,Toolkit") into
// product keys.
func parseCartMetadata(csv string) []models.ProductKey {
	if csv == "" {
		return []models.ProductKey{}
	}
	parts := strings.Split(csv, ",")
	keys := make([]models.ProductKey, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			keys = append(keys, models.ProductKey(trimmed))
		}
	}
	return keys
}
