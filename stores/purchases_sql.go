package stores

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/influence-engine/funnel-go/models"
)

// SQLPurchaseRepository is the SQL-backed purchase store.
type SQLPurchaseRepository struct {
	db *DB
}

// NewSQLPurchaseRepository creates a purchase repository over the given DB.
func NewSQLPurchaseRepository(db *DB) *SQLPurchaseRepository {
	return &SQLPurchaseRepository{db: db}
}

// CreatePending inserts a pending record. A duplicate session id is a no-op;
// sessions are created once.
func (r *SQLPurchaseRepository) CreatePending(ctx context.Context, record *models.PurchaseRecord) error {
	if record.ID == "" {
		record.ID = ulid.Make().String()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	record.Status = models.OrderStatusPending

	_, err := r.db.Conn.ExecContext(ctx, `
		INSERT INTO purchases (id, user_id, external_session_id, products, total, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_session_id) DO NOTHING`,
		record.ID, record.UserID, record.SessionID, joinProducts(record.Products),
		record.Total, record.Status, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return &models.PersistenceError{Op: "createPending", Err: err}
	}
	return nil
}

// MarkCompleted transitions a record to completed exactly once. The UPDATE
// is conditional on the record not already being completed, which closes the
// race window between concurrent deliveries of the same event. When no
// pending record exists (completion arrived before the pending insert was
// visible) a completed record is created directly from the details.
func (r *SQLPurchaseRepository) MarkCompleted(ctx context.Context, sessionID string, details models.CompletionDetails) (*models.PurchaseRecord, error) {
	completedAt := details.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}

	result, err := r.db.Conn.ExecContext(ctx, `
		UPDATE purchases
		SET status = ?, user_id = ?, products = ?, total = ?, updated_at = ?, completed_at = ?
		WHERE external_session_id = ? AND status != ?`,
		models.OrderStatusCompleted, details.UserID, joinProducts(details.Products),
		details.Total, completedAt, completedAt, sessionID, models.OrderStatusCompleted)
	if err != nil {
		return nil, &models.PersistenceError{Op: "markCompleted", Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, &models.PersistenceError{Op: "markCompleted", Err: err}
	}

	if affected == 0 {
		existing, err := r.Get(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			// Already completed by an earlier delivery; no-op.
			return existing, nil
		}

		// No pending record yet. Insert the completed record directly; a
		// concurrent insert loses on the unique session id and we re-read.
		_, err = r.db.Conn.ExecContext(ctx, `
			INSERT INTO purchases (id, user_id, external_session_id, products, total, status, created_at, updated_at, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(external_session_id) DO NOTHING`,
			ulid.Make().String(), details.UserID, sessionID, joinProducts(details.Products),
			details.Total, models.OrderStatusCompleted, completedAt, completedAt, completedAt)
		if err != nil {
			return nil, &models.PersistenceError{Op: "markCompleted", Err: err}
		}
	}

	record, err := r.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, &models.PersistenceError{Op: "markCompleted", Err: sql.ErrNoRows}
	}
	return record, nil
}

// Get fetches a record by session id; nil when none exists.
func (r *SQLPurchaseRepository) Get(ctx context.Context, sessionID string) (*models.PurchaseRecord, error) {
	row := r.db.Conn.QueryRowContext(ctx, `
		SELECT id, user_id, external_session_id, products, total, status, created_at, updated_at, completed_at
		FROM purchases WHERE external_session_id = ?`, sessionID)

	var record models.PurchaseRecord
	var products string
	var completedAt sql.NullTime
	err := row.Scan(&record.ID, &record.UserID, &record.SessionID, &products,
		&record.Total, &record.Status, &record.CreatedAt, &record.UpdatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &models.PersistenceError{Op: "get", Err: err}
	}

	record.Products = splitProducts(products)
	if completedAt.Valid {
		record.CompletedAt = &completedAt.Time
	}
	return &record, nil
}

func joinProducts(keys []models.ProductKey) string {
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, string(key))
	}
	return strings.Join(parts, ",")
}

func splitProducts(csv string) []models.ProductKey {
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
