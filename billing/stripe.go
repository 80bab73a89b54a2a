package billing

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/checkout/session"
	"github.com/stripe/stripe-go/v83/webhook"

	"github.com/influence-engine/funnel-go/models"
)

// StripeConfig holds the keys and redirect targets for the Stripe gateway.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

// Validate checks the configuration is usable.
func (c StripeConfig) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("stripe secret key is required")
	}
	if c.WebhookSecret == "" {
		return fmt.Errorf("stripe webhook secret is required")
	}
	if c.SuccessURL == "" || c.CancelURL == "" {
		return fmt.Errorf("checkout success and cancel URLs are required")
	}
	return nil
}

// StripeGateway implements Gateway and WebhookVerifier against Stripe.
type StripeGateway struct {
	config StripeConfig
}

// NewStripeGateway creates the gateway and sets the global Stripe API key.
func NewStripeGateway(config StripeConfig) (*StripeGateway, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid stripe configuration: %w", err)
	}

	stripe.Key = config.SecretKey

	return &StripeGateway{config: config}, nil
}

// CreateSession creates a hosted checkout session with the metadata
// snapshot embedded, so later webhook processing is self-sufficient.
func (g *StripeGateway) CreateSession(ctx context.Context, identity Identity, lineItems []models.LineItem, metadata SessionMetadata) (*Session, error) {
	if identity.Email == "" {
		return nil, models.NewValidationError("email", "email is required")
	}
	if len(lineItems) == 0 {
		return nil, models.NewValidationError("lineItems", "at least one line item is required")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(g.config.SuccessURL),
		CancelURL:     stripe.String(g.config.CancelURL),
		CustomerEmail: stripe.String(identity.Email),
	}
	params.Context = ctx

	for _, item := range lineItems {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Price:    stripe.String(item.PriceReference),
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	cartKeys := make([]string, 0, len(metadata.Cart))
	for _, key := range metadata.Cart {
		cartKeys = append(cartKeys, string(key))
	}
	params.AddMetadata("userId", metadata.UserID)
	params.AddMetadata("email", metadata.Email)
	params.AddMetadata("cart", strings.Join(cartKeys, ","))
	params.AddMetadata("source", metadata.Source)
	params.AddMetadata("campaign", metadata.Campaign)
	params.AddMetadata("ndaSigned", strconv.FormatBool(metadata.NdaSigned))

	sess, err := session.New(params)
	if err != nil {
		return nil, wrapStripeError("create checkout session", err)
	}

	log.Printf("Created checkout session %s for %s", sess.ID, identity.Email)
	return &Session{ID: sess.ID, RedirectURL: sess.URL}, nil
}

// VerifyEvent verifies the signature header against the webhook secret and
// returns the parsed event. API version mismatch is tolerated so CLI-forwarded
// test events still verify.
func (g *StripeGateway) VerifyEvent(payload []byte, signatureHeader string) (stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, g.config.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, &models.SignatureVerificationError{Err: err}
	}
	return event, nil
}

// wrapStripeError converts Stripe SDK errors into the provider error type,
// preserving the Stripe error code when present.
func wrapStripeError(op string, err error) error {
	if stripeErr, ok := err.(*stripe.Error); ok {
		return &models.ProviderError{
			Op:  op,
			Err: fmt.Errorf("%s: %s", stripeErr.Code, stripeErr.Msg),
		}
	}
	return &models.ProviderError{Op: op, Err: err}
}
