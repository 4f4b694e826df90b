package billing

// Outcome classifies the effect of a reconciliation run.
type Outcome string

const (
	// OutcomePreserved keeps a manually elevated or admin plan when the
	// billing system has no active subscription.
	OutcomePreserved Outcome = "preserved"
	// OutcomeResetToFree downgrades a user to the free plan.
	OutcomeResetToFree Outcome = "reset_to_free"
	// OutcomePreservedHigherTier keeps a local plan that outranks the
	// billing system's active subscription.
	OutcomePreservedHigherTier Outcome = "preserved_higher_tier"
	// OutcomeSynced adopts the billing system's plan.
	OutcomeSynced Outcome = "synced"
)

// Decide resolves the reconciliation outcome from tier ranks. elevated is
// true for admin and super_admin identities, whose plans are never reset.
// This is a PURE function; record mutation happens in the app layer.
func Decide(localRank, externalRank int, elevated, hasExternal bool) Outcome {
	if !hasExternal {
		if elevated || localRank > 0 {
			return OutcomePreserved
		}
		return OutcomeResetToFree
	}
	if localRank > externalRank {
		return OutcomePreservedHigherTier
	}
	return OutcomeSynced
}
