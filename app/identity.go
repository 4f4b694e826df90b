package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gengate/gengate/domain/identity"
	"github.com/gengate/gengate/domain/plan"
	"github.com/gengate/gengate/ports"
	"github.com/rs/zerolog"
)

// PlanSource supplies the current plan catalog and credit pricing. The
// config holder implements it; the catalog is swapped wholesale on reload.
type PlanSource interface {
	Catalog() plan.Catalog
	VideoCreditRate() float64
}

// IdentityResolver verifies bearer credentials against two schemes and
// yields a canonical identity, provisioning a profile on first sight.
// No token is cached; every call re-verifies.
type IdentityResolver struct {
	local    ports.LocalTokenVerifier
	external ports.ExternalTokenVerifier
	profiles ports.ProfileStore
	plans    PlanSource
	clock    ports.Clock
	logger   zerolog.Logger
}

// NewIdentityResolver creates an identity resolver.
func NewIdentityResolver(
	local ports.LocalTokenVerifier,
	external ports.ExternalTokenVerifier,
	profiles ports.ProfileStore,
	plans PlanSource,
	clock ports.Clock,
	logger zerolog.Logger,
) *IdentityResolver {
	return &IdentityResolver{
		local:    local,
		external: external,
		profiles: profiles,
		plans:    plans,
		clock:    clock,
		logger:   logger,
	}
}

// Resolve verifies a bearer credential. The local scheme is tried first;
// its claims are self-contained and need no store read. The external
// scheme falls back to a remote verification plus a profile lookup,
// creating the profile on first sight.
func (r *IdentityResolver) Resolve(ctx context.Context, credential string) (identity.Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return identity.Identity{}, ErrUnauthenticated
	}

	if claims, err := r.local.Verify(credential); err == nil {
		return r.identityFromClaims(claims), nil
	}

	subject, err := r.external.Verify(ctx, credential)
	if err != nil {
		r.logger.Debug().Err(err).Msg("credential rejected by both schemes")
		return identity.Identity{}, ErrInvalidCredential
	}

	id, err := r.profiles.Get(ctx, subject.ID)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ports.ErrNotFound) {
		return identity.Identity{}, fmt.Errorf("%w: profile lookup: %v", ErrDependencyUnavailable, err)
	}

	return r.provision(ctx, subject)
}

// provision creates a first-touch profile with default values. A duplicate
// on insert means a concurrent request won the race; re-read and use its
// row so both callers observe the same identity.
func (r *IdentityResolver) provision(ctx context.Context, subject ports.ExternalSubject) (identity.Identity, error) {
	defaultPlan, ok := r.plans.Catalog().Default()
	if !ok {
		return identity.Identity{}, fmt.Errorf("%w: no default plan configured", ErrDependencyUnavailable)
	}

	now := r.clock.Now().UTC()
	id := identity.Identity{
		ID:                     subject.ID,
		Email:                  subject.Email,
		Role:                   identity.RoleUser,
		PlanID:                 defaultPlan.ID,
		MonthlyGenerationLimit: defaultPlan.MonthlyGenerationLimit,
		IsActive:               true,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	err := r.profiles.Create(ctx, id)
	if err == nil {
		r.logger.Info().
			Str("user_id", id.ID).
			Str("plan_id", id.PlanID).
			Msg("provisioned profile on first sight")
		return id, nil
	}
	if errors.Is(err, ports.ErrDuplicate) {
		existing, rerr := r.profiles.Get(ctx, subject.ID)
		if rerr != nil {
			return identity.Identity{}, fmt.Errorf("%w: re-read after duplicate: %v", ErrDependencyUnavailable, rerr)
		}
		return existing, nil
	}
	return identity.Identity{}, fmt.Errorf("%w: profile create: %v", ErrDependencyUnavailable, err)
}

func (r *IdentityResolver) identityFromClaims(claims ports.LocalClaims) identity.Identity {
	planID := claims.PlanID
	limit := 0
	if p, ok := r.plans.Catalog().Find(planID); ok {
		limit = p.MonthlyGenerationLimit
	} else if def, ok := r.plans.Catalog().Default(); ok {
		planID = def.ID
		limit = def.MonthlyGenerationLimit
	}
	return identity.Identity{
		ID:                     claims.UserID,
		Email:                  claims.Email,
		Role:                   claims.Role,
		PlanID:                 planID,
		MonthlyGenerationLimit: limit,
		IsActive:               true,
	}
}

// RequireRole is the access gate: it passes iff the identity's role is at
// least the required one in the user < admin < super_admin order.
func RequireRole(id *identity.Identity, required identity.Role) error {
	if id == nil {
		return ErrUnauthenticated
	}
	if !identity.HasRole(*id, required) {
		return ErrInsufficientRole
	}
	return nil
}
