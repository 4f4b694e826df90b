package sqlite

import (
	"context"

	"github.com/gengate/gengate/domain/credit"
)

// CreditStore implements ports.CreditStore using SQLite. Idempotency rides
// on the UNIQUE(user_id, source_reference) constraint.
type CreditStore struct {
	db *DB
}

// NewCreditStore creates a new SQLite credit store.
func NewCreditStore(db *DB) *CreditStore {
	return &CreditStore{db: db}
}

// InsertGrantIfAbsent inserts a grant unless one already exists for the
// same (user, source reference). A constraint hit is success with
// applied=false, not an error.
func (s *CreditStore) InsertGrantIfAbsent(ctx context.Context, g credit.Grant) (bool, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credit_grants (id, user_id, amount, source_reference, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, g.ID, g.UserID, g.Amount, g.SourceReference, nullTime(g.ExpiresAt), g.CreatedAt.UTC())
	if err != nil {
		if isUniqueConstraintError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
