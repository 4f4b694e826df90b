package sqlite

import (
	"context"
	"time"

	"github.com/gengate/gengate/domain/usage"
	"github.com/gengate/gengate/ports"
)

// LedgerStore implements ports.LedgerStore using SQLite. The ledger is
// append-only; deleted rows stay in the table and drop out of aggregates.
type LedgerStore struct {
	db *DB
}

// NewLedgerStore creates a new SQLite ledger store.
func NewLedgerStore(db *DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// Record appends a consumption event.
func (s *LedgerStore) Record(ctx context.Context, e usage.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO consumption_events (
			id, user_id, kind, video_duration_seconds, status, occurred_at, deleted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID, e.UserID, string(e.Kind), e.VideoDurationSeconds,
		string(e.Status), e.OccurredAt.UTC(), nullTime(e.DeletedAt),
	)
	return err
}

// SumCompletedThisMonth aggregates completed, undeleted events inside
// [start, end): generation count plus normalized credits. The video credit
// math mirrors domain/credit: ceil(seconds * rate), minimum 1 per event.
func (s *LedgerStore) SumCompletedThisMonth(ctx context.Context, userID string, start, end time.Time, perSecondRate float64) (usage.Summary, error) {
	// Times are stored in UTC; format for SQLite comparison.
	startStr := start.UTC().Format("2006-01-02 15:04:05")
	endStr := end.UTC().Format("2006-01-02 15:04:05")

	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) AS generation_count,
			COALESCE(SUM(
				CASE WHEN kind = 'video'
				     THEN MAX(1, CAST(video_duration_seconds * ? + 0.999999 AS INTEGER))
				     ELSE 1
				END
			), 0) AS credits_used
		FROM consumption_events
		WHERE user_id = ?
		  AND status = 'completed'
		  AND deleted_at IS NULL
		  AND datetime(occurred_at) >= datetime(?)
		  AND datetime(occurred_at) < datetime(?)
	`, perSecondRate, userID, startStr, endStr)

	summary := usage.Summary{UserID: userID, PeriodStart: start, PeriodEnd: end}
	if err := row.Scan(&summary.Count, &summary.CreditsUsed); err != nil {
		return usage.Summary{}, err
	}
	return summary, nil
}

// MarkDeleted flags an event as administratively deleted, excluding it
// from aggregates without removing the row.
func (s *LedgerStore) MarkDeleted(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE consumption_events
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, at.UTC(), id)
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
