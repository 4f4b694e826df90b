// Package plan provides plan value types and pure catalog functions.
package plan

// FreeTierRank is the tier rank of the free plan. Every paid plan ranks
// strictly above it.
const FreeTierRank = 0

// Plan represents a subscription tier (immutable value type).
type Plan struct {
	ID                     string
	Name                   string
	TierRank               int // strictly increasing with purchasing power; free = 0
	MonthlyGenerationLimit int
	CreditAllowance        int64 // displayed credit budget per calendar month
	StripePriceID          string
	Capabilities           []string // capability names resolved once, never branched on plan ID
	IsDefault              bool
}

// IsFree reports whether this plan is at the free tier.
func (p Plan) IsFree() bool {
	return p.TierRank == FreeTierRank
}

// HasCapability reports whether the plan grants a named capability.
// This is a PURE function.
func (p Plan) HasCapability(name string) bool {
	for _, c := range p.Capabilities {
		if c == name {
			return true
		}
	}
	return false
}

// Catalog is an immutable set of plans. It is built wholesale from config
// and swapped atomically on reload, never patched in place.
type Catalog struct {
	plans []Plan
}

// NewCatalog creates a catalog from a plan list.
func NewCatalog(plans []Plan) Catalog {
	cp := make([]Plan, len(plans))
	copy(cp, plans)
	return Catalog{plans: cp}
}

// Find returns a plan by ID.
// This is a PURE function.
func (c Catalog) Find(id string) (Plan, bool) {
	for _, p := range c.plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// ByStripePrice returns the plan mapped to a Stripe price ID.
// This is a PURE function.
func (c Catalog) ByStripePrice(priceID string) (Plan, bool) {
	if priceID == "" {
		return Plan{}, false
	}
	for _, p := range c.plans {
		if p.StripePriceID == priceID {
			return p, true
		}
	}
	return Plan{}, false
}

// Default returns the default (free) plan.
// This is a PURE function.
func (c Catalog) Default() (Plan, bool) {
	for _, p := range c.plans {
		if p.IsDefault {
			return p, true
		}
	}
	return Plan{}, false
}

// TierRank returns the tier rank for a plan ID, or FreeTierRank if the
// plan is unknown (an unrecognized local plan never blocks reconciliation).
// This is a PURE function.
func (c Catalog) TierRank(id string) int {
	if p, ok := c.Find(id); ok {
		return p.TierRank
	}
	return FreeTierRank
}

// All returns a copy of every plan in catalog order.
func (c Catalog) All() []Plan {
	cp := make([]Plan, len(c.plans))
	copy(cp, c.plans)
	return cp
}
