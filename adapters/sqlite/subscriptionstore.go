package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gengate/gengate/domain/billing"
	"github.com/gengate/gengate/ports"
)

// SubscriptionStore implements ports.SubscriptionStore using SQLite.
type SubscriptionStore struct {
	db *DB
}

// NewSubscriptionStore creates a new SQLite subscription store.
func NewSubscriptionStore(db *DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

// MostRecentActive returns the most recently created active subscription
// for a user.
func (s *SubscriptionStore) MostRecentActive(ctx context.Context, userID string) (billing.Subscription, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, plan_id, external_id, status,
		       current_period_start, current_period_end,
		       cancel_at_period_end, canceled_at, created_at, updated_at
		FROM subscriptions
		WHERE user_id = ? AND status = 'active'
		ORDER BY created_at DESC
		LIMIT 1
	`, userID)
	return scanSubscription(row)
}

// UpsertByExternalID inserts or updates a record keyed by external_id as
// one atomic statement, so concurrent reconciliation runs converge without
// a read-then-write window.
func (s *SubscriptionStore) UpsertByExternalID(ctx context.Context, sub billing.Subscription) error {
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (
			id, user_id, plan_id, external_id, status,
			current_period_start, current_period_end,
			cancel_at_period_end, canceled_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			user_id = excluded.user_id,
			plan_id = excluded.plan_id,
			status = excluded.status,
			current_period_start = excluded.current_period_start,
			current_period_end = excluded.current_period_end,
			cancel_at_period_end = excluded.cancel_at_period_end,
			canceled_at = excluded.canceled_at,
			updated_at = excluded.updated_at
	`,
		sub.ID, sub.UserID, sub.PlanID, sub.ExternalID, string(sub.Status),
		sub.CurrentPeriodStart.UTC(), sub.CurrentPeriodEnd.UTC(),
		boolToInt(sub.CancelAtPeriodEnd), nullTime(sub.CanceledAt),
		sub.CreatedAt, sub.UpdatedAt,
	)
	return err
}

// MarkCanceledByUser marks every non-canceled subscription row for a user
// as canceled.
func (s *SubscriptionStore) MarkCanceledByUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = 'canceled', canceled_at = ?, updated_at = ?
		WHERE user_id = ? AND status != 'canceled'
	`, at.UTC(), at.UTC(), userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanSubscription(row *sql.Row) (billing.Subscription, error) {
	var sub billing.Subscription
	var status string
	var cancelAtPeriodEnd int
	var canceledAt sql.NullTime

	err := row.Scan(
		&sub.ID, &sub.UserID, &sub.PlanID, &sub.ExternalID, &status,
		&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd,
		&cancelAtPeriodEnd, &canceledAt, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return billing.Subscription{}, ports.ErrNotFound
	}
	if err != nil {
		return billing.Subscription{}, err
	}

	sub.Status = billing.SubscriptionStatus(status)
	sub.CancelAtPeriodEnd = cancelAtPeriodEnd != 0
	if canceledAt.Valid {
		t := canceledAt.Time
		sub.CanceledAt = &t
	}
	return sub, nil
}
