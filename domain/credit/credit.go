// Package credit provides the normalized consumption unit and pure cost
// functions. One image costs 1 credit; video is scaled by duration.
package credit

import (
	"math"
	"time"
)

// Kind identifies what a generation operation produces.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Operation describes a requested generation before it runs (value type).
type Operation struct {
	Kind                 Kind
	VideoDurationSeconds float64 // present only for KindVideo
}

// Cost returns the credit cost of an operation. perSecondRate is the
// system-wide video rate in credits per second of output. Every operation
// costs at least 1 credit.
// This is a PURE function.
func Cost(op Operation, perSecondRate float64) int64 {
	if op.Kind == KindVideo {
		c := int64(math.Ceil(op.VideoDurationSeconds * perSecondRate))
		if c < 1 {
			return 1
		}
		return c
	}
	return 1
}

// Grant represents credits added to an account (immutable value type).
// (UserID, SourceReference) is the idempotency boundary: at most one grant
// is ever persisted per pair, enforced by the storage layer.
type Grant struct {
	ID              string
	UserID          string
	Amount          int64 // positive for grants
	SourceReference string // e.g. a Stripe checkout session ID
	ExpiresAt       *time.Time // nil = never expires
	CreatedAt       time.Time
}

// IsExpired reports whether the grant has expired at the given instant.
func (g Grant) IsExpired(now time.Time) bool {
	return g.ExpiresAt != nil && !now.Before(*g.ExpiresAt)
}
