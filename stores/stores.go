// Package stores is the persistence boundary. Each entity gets an explicit
// typed repository; implementations exist for SQL (SQLite or Turso) and
// in-memory (tests, ephemeral dev runs).
package stores

import (
	"context"

	"github.com/influence-engine/funnel-go/models"
)

// PurchaseRepository persists orders keyed by the provider session id.
//
// All writes are idempotent per key: CreatePending on a session id that
// already exists is a no-op, and MarkCompleted on an already-completed
// record returns the existing record unchanged. MarkCompleted must be an
// atomic complete-if-not-already-complete, not read-then-write, so two
// concurrent deliveries of the same event cannot both apply.
type PurchaseRepository interface {
	CreatePending(ctx context.Context, record *models.PurchaseRecord) error
	MarkCompleted(ctx context.Context, sessionID string, details models.CompletionDetails) (*models.PurchaseRecord, error)
	Get(ctx context.Context, sessionID string) (*models.PurchaseRecord, error)
}

// WebhookEventRepository is the append-only audit log of verified provider
// events. One row per delivery, including redeliveries.
type WebhookEventRepository interface {
	Append(ctx context.Context, audit *models.WebhookEventAudit) error
}

// ProfileRepository stores visitor profiles and their payment markers.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) error
	SetPaymentMarkers(ctx context.Context, userID string, products []models.ProductKey) error
}
