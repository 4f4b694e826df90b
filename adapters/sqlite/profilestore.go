package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gengate/gengate/domain/identity"
	"github.com/gengate/gengate/ports"
)

// ProfileStore implements ports.ProfileStore using SQLite.
type ProfileStore struct {
	db *DB
}

// NewProfileStore creates a new SQLite profile store.
func NewProfileStore(db *DB) *ProfileStore {
	return &ProfileStore{db: db}
}

const profileColumns = `id, email, role, plan_id, monthly_generation_limit,
	is_active, stripe_customer_id, created_at, updated_at`

// Get retrieves a profile by ID.
func (s *ProfileStore) Get(ctx context.Context, id string) (identity.Identity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM users
		WHERE id = ?
	`, id)
	return scanProfile(row)
}

// GetByEmail retrieves a profile by email.
func (s *ProfileStore) GetByEmail(ctx context.Context, email string) (identity.Identity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM users
		WHERE email = ?
		ORDER BY created_at
		LIMIT 1
	`, email)
	return scanProfile(row)
}

// Create stores a new profile. A primary-key collision surfaces as
// ports.ErrDuplicate so first-touch provisioning can re-read.
func (s *ProfileStore) Create(ctx context.Context, id identity.Identity) error {
	now := time.Now().UTC()
	if id.CreatedAt.IsZero() {
		id.CreatedAt = now
	}
	if id.UpdatedAt.IsZero() {
		id.UpdatedAt = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (
			id, email, role, plan_id, monthly_generation_limit,
			is_active, stripe_customer_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id.ID, id.Email, id.Role.String(), id.PlanID, id.MonthlyGenerationLimit,
		boolToInt(id.IsActive), id.StripeCustomerID, id.CreatedAt, id.UpdatedAt,
	)
	if err != nil && isUniqueConstraintError(err) {
		return ports.ErrDuplicate
	}
	return err
}

// Update modifies an existing profile.
func (s *ProfileStore) Update(ctx context.Context, id identity.Identity) error {
	id.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET email = ?, role = ?, plan_id = ?, monthly_generation_limit = ?,
		    is_active = ?, stripe_customer_id = ?, updated_at = ?
		WHERE id = ?
	`,
		id.Email, id.Role.String(), id.PlanID, id.MonthlyGenerationLimit,
		boolToInt(id.IsActive), id.StripeCustomerID, id.UpdatedAt, id.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func scanProfile(row *sql.Row) (identity.Identity, error) {
	var id identity.Identity
	var role string
	var isActive int

	err := row.Scan(
		&id.ID, &id.Email, &role, &id.PlanID, &id.MonthlyGenerationLimit,
		&isActive, &id.StripeCustomerID, &id.CreatedAt, &id.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.Identity{}, ports.ErrNotFound
	}
	if err != nil {
		return identity.Identity{}, err
	}

	id.Role = identity.ParseRole(role)
	id.IsActive = isActive != 0
	return id, nil
}
