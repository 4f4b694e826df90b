// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/gengate/gengate/domain/billing"
	"github.com/gengate/gengate/domain/credit"
	"github.com/gengate/gengate/domain/identity"
	"github.com/gengate/gengate/domain/usage"
)

// ErrNotFound is returned by stores when an entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned by stores on a uniqueness-constraint violation.
// Callers treat it as "someone else got there first", never as corruption.
var ErrDuplicate = errors.New("duplicate")

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// ProfileStore persists identity profiles. Create must surface a
// uniqueness violation on ID as ErrDuplicate so concurrent first-touch
// provisioning can re-read instead of erroring.
type ProfileStore interface {
	// Get retrieves a profile by its stable ID (the external subject).
	Get(ctx context.Context, id string) (identity.Identity, error)

	// GetByEmail retrieves a profile by email.
	GetByEmail(ctx context.Context, email string) (identity.Identity, error)

	// Create stores a new profile.
	Create(ctx context.Context, id identity.Identity) error

	// Update modifies an existing profile.
	Update(ctx context.Context, id identity.Identity) error
}

// LedgerStore persists consumption events. The ledger is append-only;
// administratively deleted rows are excluded from every aggregate.
type LedgerStore interface {
	// Record appends a consumption event.
	Record(ctx context.Context, e usage.Event) error

	// SumCompletedThisMonth aggregates completed events inside
	// [start, end) for a user: generation count and normalized credits
	// at the given video rate.
	SumCompletedThisMonth(ctx context.Context, userID string, start, end time.Time, perSecondRate float64) (usage.Summary, error)
}

// SubscriptionStore persists cached billing subscriptions.
type SubscriptionStore interface {
	// MostRecentActive returns the most recently created active
	// subscription for a user, or ErrNotFound.
	MostRecentActive(ctx context.Context, userID string) (billing.Subscription, error)

	// UpsertByExternalID inserts or updates a record keyed by its
	// external subscription ID as a single atomic statement.
	UpsertByExternalID(ctx context.Context, sub billing.Subscription) error

	// MarkCanceledByUser marks every subscription row for a user as
	// canceled. Returns the number of rows touched.
	MarkCanceledByUser(ctx context.Context, userID string, at time.Time) (int64, error)
}

// CreditStore persists credit grants behind a uniqueness constraint on
// (user_id, source_reference).
type CreditStore interface {
	// InsertGrantIfAbsent inserts a grant unless one already exists for
	// the same (user, source reference). Reports whether this call
	// persisted the grant; a duplicate is success with applied=false.
	InsertGrantIfAbsent(ctx context.Context, g credit.Grant) (applied bool, err error)
}

// -----------------------------------------------------------------------------
// Credential Verification Ports
// -----------------------------------------------------------------------------

// LocalClaims are the claims embedded in a locally issued token. They are
// trusted as-is; no store lookup backs them.
type LocalClaims struct {
	UserID string
	Email  string
	Role   identity.Role
	PlanID string
}

// LocalTokenVerifier verifies a self-contained signed token.
type LocalTokenVerifier interface {
	// Verify checks signature and expiry and returns the embedded claims.
	Verify(credential string) (LocalClaims, error)
}

// ExternalSubject identifies a user at the external identity provider.
type ExternalSubject struct {
	ID    string
	Email string
}

// ExternalTokenVerifier verifies an identity-provider token remotely.
type ExternalTokenVerifier interface {
	Verify(ctx context.Context, credential string) (ExternalSubject, error)
}

// -----------------------------------------------------------------------------
// External Service Ports
// -----------------------------------------------------------------------------

// BillingProvider reads subscription state from the billing system
// (Stripe). The billing system is authoritative and is never mutated here.
type BillingProvider interface {
	// ListActiveSubscriptions returns the customer's live subscriptions
	// in active or trialing state, most recent first.
	ListActiveSubscriptions(ctx context.Context, customerRef string) ([]billing.ExternalSubscription, error)

	// GetPriceMetadata resolves the plan mapping attached to a price.
	GetPriceMetadata(ctx context.Context, priceID string) (billing.PriceMetadata, error)
}
