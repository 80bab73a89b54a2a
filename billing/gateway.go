// Package billing wraps the payment provider: hosted checkout session
// creation and webhook signature verification.
package billing

import (
	"context"

	"github.com/stripe/stripe-go/v83"

	"github.com/influence-engine/funnel-go/models"
)

// Identity is the purchaser as known at session-creation time.
type Identity struct {
	UserID string
	Email  string
	Name   string
}

// SessionMetadata is the self-sufficient snapshot embedded into the
// provider session. Completion processing reads only this snapshot, never
// the user's current record.
type SessionMetadata struct {
	UserID    string
	Email     string
	Cart      []models.ProductKey
	Source    string
	Campaign  string
	NdaSigned bool
}

// Session is the provider-hosted checkout session the visitor is sent to.
// Immutable once created; the provider may expire it on its own schedule.
type Session struct {
	ID          string
	RedirectURL string
}

// Gateway creates provider-hosted checkout sessions.
type Gateway interface {
	CreateSession(ctx context.Context, identity Identity, lineItems []models.LineItem, metadata SessionMetadata) (*Session, error)
}

// WebhookVerifier checks an inbound event payload against the shared
// signing secret before anything trusts it.
type WebhookVerifier interface {
	VerifyEvent(payload []byte, signatureHeader string) (stripe.Event, error)
}
