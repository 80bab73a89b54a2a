package stores

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/influence-engine/funnel-go/models"
)

// SQLWebhookEventRepository is the SQL-backed audit log.
type SQLWebhookEventRepository struct {
	db *DB
}

// NewSQLWebhookEventRepository creates an audit repository over the given DB.
func NewSQLWebhookEventRepository(db *DB) *SQLWebhookEventRepository {
	return &SQLWebhookEventRepository{db: db}
}

// Append inserts one audit row. Rows are never updated; redeliveries of the
// same event id each get their own row.
func (r *SQLWebhookEventRepository) Append(ctx context.Context, audit *models.WebhookEventAudit) error {
	if audit.ID == "" {
		audit.ID = ulid.Make().String()
	}
	if audit.ReceivedAt.IsZero() {
		audit.ReceivedAt = time.Now().UTC()
	}

	_, err := r.db.Conn.ExecContext(ctx, `
		INSERT INTO webhook_events (id, event_id, type, payload, processed, received_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		audit.ID, audit.EventID, audit.Type, audit.Payload, audit.Processed, audit.ReceivedAt)
	if err != nil {
		return &models.PersistenceError{Op: "appendAudit", Err: err}
	}
	return nil
}
