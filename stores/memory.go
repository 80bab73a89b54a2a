package stores

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/influence-engine/funnel-go/models"
)

// MemoryPurchaseRepository is an in-process purchase store with the same
// conditional-write semantics as the SQL implementation. Used by tests and
// ephemeral dev runs.
type MemoryPurchaseRepository struct {
	mu      sync.Mutex
	records map[string]*models.PurchaseRecord
}

// NewMemoryPurchaseRepository creates an empty in-memory purchase store.
func NewMemoryPurchaseRepository() *MemoryPurchaseRepository {
	return &MemoryPurchaseRepository{records: make(map[string]*models.PurchaseRecord)}
}

// CreatePending inserts a pending record; duplicate session ids are no-ops.
func (r *MemoryPurchaseRepository) CreatePending(ctx context.Context, record *models.PurchaseRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[record.SessionID]; exists {
		return nil
	}

	stored := *record
	if stored.ID == "" {
		stored.ID = ulid.Make().String()
	}
	now := time.Now().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	stored.Status = models.OrderStatusPending
	stored.Products = append([]models.ProductKey{}, record.Products...)
	r.records[record.SessionID] = &stored
	return nil
}

// MarkCompleted completes the record if not already completed, under the
// store mutex so concurrent deliveries serialize on the same check.
func (r *MemoryPurchaseRepository) MarkCompleted(ctx context.Context, sessionID string, details models.CompletionDetails) (*models.PurchaseRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	completedAt := details.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}

	existing, exists := r.records[sessionID]
	if exists && existing.Status == models.OrderStatusCompleted {
		copied := *existing
		return &copied, nil
	}

	if !exists {
		existing = &models.PurchaseRecord{
			ID:        ulid.Make().String(),
			SessionID: sessionID,
			CreatedAt: completedAt,
		}
		r.records[sessionID] = existing
	}

	existing.UserID = details.UserID
	existing.Products = append([]models.ProductKey{}, details.Products...)
	existing.Total = details.Total
	existing.Status = models.OrderStatusCompleted
	existing.UpdatedAt = completedAt
	existing.CompletedAt = &completedAt

	copied := *existing
	return &copied, nil
}

// Get fetches a record by session id; nil when none exists.
func (r *MemoryPurchaseRepository) Get(ctx context.Context, sessionID string) (*models.PurchaseRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.records[sessionID]
	if !exists {
		return nil, nil
	}
	copied := *record
	copied.Products = append([]models.ProductKey{}, record.Products...)
	return &copied, nil
}

// MemoryWebhookEventRepository is an in-process append-only audit log.
type MemoryWebhookEventRepository struct {
	mu     sync.Mutex
	events []models.WebhookEventAudit
}

// NewMemoryWebhookEventRepository creates an empty in-memory audit log.
func NewMemoryWebhookEventRepository() *MemoryWebhookEventRepository {
	return &MemoryWebhookEventRepository{}
}

// Append records one delivery.
func (r *MemoryWebhookEventRepository) Append(ctx context.Context, audit *models.WebhookEventAudit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *audit
	if stored.ID == "" {
		stored.ID = ulid.Make().String()
	}
	if stored.ReceivedAt.IsZero() {
		stored.ReceivedAt = time.Now().UTC()
	}
	r.events = append(r.events, stored)
	return nil
}

// All returns a snapshot of the audit log.
func (r *MemoryWebhookEventRepository) All() []models.WebhookEventAudit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.WebhookEventAudit{}, r.events...)
}

// MemoryProfileRepository is an in-process profile store.
type MemoryProfileRepository struct {
	mu       sync.Mutex
	profiles map[string]*models.Profile
}

// NewMemoryProfileRepository creates an empty in-memory profile store.
func NewMemoryProfileRepository() *MemoryProfileRepository {
	return &MemoryProfileRepository{profiles: make(map[string]*models.Profile)}
}

// GetByID fetches a profile by id; nil when none exists.
func (r *MemoryProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile, exists := r.profiles[id]
	if !exists {
		return nil, nil
	}
	copied := *profile
	return &copied, nil
}

// GetByEmail fetches a profile by email; nil when none exists.
func (r *MemoryProfileRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, profile := range r.profiles {
		if profile.Email == email {
			copied := *profile
			return &copied, nil
		}
	}
	return nil, nil
}

// Create inserts a new profile.
func (r *MemoryProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if profile.ID == "" {
		profile.ID = ulid.Make().String()
	}
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	stored := *profile
	r.profiles[profile.ID] = &stored
	return nil
}

// SetPaymentMarkers flips ownership flags for the purchased products.
func (r *MemoryProfileRepository) SetPaymentMarkers(ctx context.Context, userID string, products []models.ProductKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile, exists := r.profiles[userID]
	if !exists {
		return nil
	}

	now := time.Now().UTC()
	for _, key := range products {
		switch key {
		case models.ProductBook:
			profile.OwnsBook = true
		case models.ProductToolkit:
			profile.OwnsToolkit = true
		case models.ProductIEAnnual, models.ProductBundle:
			profile.IEMember = true
		}
	}
	if profile.PaidAt == nil {
		profile.PaidAt = &now
	}
	profile.UpdatedAt = now
	return nil
}
