package stores

import (
	"context"
	"database/sql"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/influence-engine/funnel-go/models"
)

// SQLProfileRepository is the SQL-backed profile store.
type SQLProfileRepository struct {
	db *DB
}

// NewSQLProfileRepository creates a profile repository over the given DB.
func NewSQLProfileRepository(db *DB) *SQLProfileRepository {
	return &SQLProfileRepository{db: db}
}

const profileColumns = `id, firstname, email, codeword_hash, nda_signed, owns_book, owns_toolkit, ie_member, paid_at, created_at, updated_at`

// GetByID fetches a profile by id; nil when none exists.
func (r *SQLProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	row := r.db.Conn.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	return scanProfile(row)
}

// GetByEmail fetches a profile by email; nil when none exists.
func (r *SQLProfileRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	row := r.db.Conn.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE email = ?`, email)
	return scanProfile(row)
}

// Create inserts a new profile.
func (r *SQLProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	if profile.ID == "" {
		profile.ID = ulid.Make().String()
	}
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	_, err := r.db.Conn.ExecContext(ctx, `
		INSERT INTO profiles (id, firstname, email, codeword_hash, nda_signed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		profile.ID, profile.Firstname, profile.Email, profile.CodewordHash,
		profile.NdaSigned, profile.CreatedAt, profile.UpdatedAt)
	if err != nil {
		return &models.PersistenceError{Op: "createProfile", Err: err}
	}
	return nil
}

// SetPaymentMarkers flips ownership flags for the purchased products. The
// flags only ever move false to true, so reapplying the same purchase is
// harmless.
func (r *SQLProfileRepository) SetPaymentMarkers(ctx context.Context, userID string, products []models.ProductKey) error {
	ownsBook, ownsToolkit, ieMember := false, false, false
	for _, key := range products {
		switch key {
		case models.ProductBook:
			ownsBook = true
		case models.ProductToolkit:
			ownsToolkit = true
		case models.ProductIEAnnual, models.ProductBundle:
			ieMember = true
		}
	}

	now := time.Now().UTC()
	_, err := r.db.Conn.ExecContext(ctx, `
		UPDATE profiles
		SET owns_book = owns_book OR ?,
			owns_toolkit = owns_toolkit OR ?,
			ie_member = ie_member OR ?,
			paid_at = COALESCE(paid_at, ?),
			updated_at = ?
		WHERE id = ?`,
		ownsBook, ownsToolkit, ieMember, now, now, userID)
	if err != nil {
		return &models.PersistenceError{Op: "setPaymentMarkers", Err: err}
	}
	return nil
}

func scanProfile(row *sql.Row) (*models.Profile, error) {
	var profile models.Profile
	var paidAt sql.NullTime
	err := row.Scan(&profile.ID, &profile.Firstname, &profile.Email, &profile.CodewordHash,
		&profile.NdaSigned, &profile.OwnsBook, &profile.OwnsToolkit, &profile.IEMember,
		&paidAt, &profile.CreatedAt, &profile.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &models.PersistenceError{Op: "getProfile", Err: err}
	}
	if paidAt.Valid {
		profile.PaidAt = &paidAt.Time
	}
	return &profile, nil
}
