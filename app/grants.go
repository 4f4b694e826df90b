package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gengate/gengate/domain/credit"
	"github.com/gengate/gengate/ports"
	"github.com/rs/zerolog"
)

// GrantService applies credit grants with at-most-once semantics. The
// storage layer's uniqueness constraint on (user_id, source_reference)
// carries the guarantee; no in-process locking.
type GrantService struct {
	credits ports.CreditStore
	idGen   ports.IDGenerator
	clock   ports.Clock
	logger  zerolog.Logger
}

// NewGrantService creates a grant service.
func NewGrantService(credits ports.CreditStore, idGen ports.IDGenerator, clock ports.Clock, logger zerolog.Logger) *GrantService {
	return &GrantService{credits: credits, idGen: idGen, clock: clock, logger: logger}
}

// Apply persists a grant unless one already exists for the same source
// reference. A retried webhook or client call reports applied=false and
// succeeds: the credit was already applied.
func (s *GrantService) Apply(ctx context.Context, userID string, amount int64, sourceReference string, expiresAt *time.Time) (applied bool, err error) {
	if userID == "" || sourceReference == "" {
		return false, fmt.Errorf("grant requires user and source reference")
	}
	if amount <= 0 {
		return false, fmt.Errorf("grant amount must be positive, got %d", amount)
	}

	g := credit.Grant{
		ID:              s.idGen.New(),
		UserID:          userID,
		Amount:          amount,
		SourceReference: sourceReference,
		ExpiresAt:       expiresAt,
		CreatedAt:       s.clock.Now().UTC(),
	}

	applied, err = s.credits.InsertGrantIfAbsent(ctx, g)
	if err != nil {
		return false, fmt.Errorf("%w: insert grant: %v", ErrDependencyUnavailable, err)
	}

	evt := s.logger.Info().
		Str("user_id", userID).
		Str("source_reference", sourceReference).
		Int64("amount", amount)
	if applied {
		evt.Msg("credit grant applied")
	} else {
		evt.Msg("credit grant already applied, skipping")
	}
	return applied, nil
}
