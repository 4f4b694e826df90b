// Package usage provides consumption event types and aggregation functions.
// All functions are pure - no side effects.
package usage

import (
	"time"

	"github.com/gengate/gengate/domain/credit"
)

// Status is the lifecycle state of a generation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Event represents a single consumption event (immutable value type).
// Events are append-only; an administrative delete sets DeletedAt and the
// row drops out of every aggregate.
type Event struct {
	ID                   string
	UserID               string
	Kind                 credit.Kind
	VideoDurationSeconds float64 // present only for video events
	Status               Status
	OccurredAt           time.Time
	DeletedAt            *time.Time
}

// Counts reports whether the event contributes to usage aggregates.
func (e Event) Counts() bool {
	return e.Status == StatusCompleted && e.DeletedAt == nil
}

// Cost returns the credit cost of the event at the given video rate.
func (e Event) Cost(perSecondRate float64) int64 {
	return credit.Cost(credit.Operation{
		Kind:                 e.Kind,
		VideoDurationSeconds: e.VideoDurationSeconds,
	}, perSecondRate)
}

// Summary is aggregated consumption for a window (value type).
type Summary struct {
	UserID      string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Count       int64 // completed generations
	CreditsUsed int64 // normalized credits consumed
}

// MonthWindow returns the current usage window for an instant:
// [first instant of the calendar month, now).
// This is a PURE function.
func MonthWindow(now time.Time) (start, end time.Time) {
	start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return start, now
}

// Aggregate combines events that fall inside [start, end) into a summary.
// Only completed, undeleted events count.
// This is a PURE function.
func Aggregate(events []Event, perSecondRate float64, start, end time.Time) Summary {
	s := Summary{PeriodStart: start, PeriodEnd: end}
	for _, e := range events {
		if !e.Counts() {
			continue
		}
		if e.OccurredAt.Before(start) || !e.OccurredAt.Before(end) {
			continue
		}
		if s.UserID == "" {
			s.UserID = e.UserID
		}
		s.Count++
		s.CreditsUsed += e.Cost(perSecondRate)
	}
	return s
}
