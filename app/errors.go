// Package app contains the application services: identity resolution,
// entitlement evaluation, subscription reconciliation, and credit grants.
// All business rules are pure domain functions; I/O happens at the edges
// via injected ports.
package app

import "errors"

// Terminal authentication/authorization failures. Never retried.
var (
	// ErrUnauthenticated means no credential was presented.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrInvalidCredential means both verification schemes rejected the
	// credential.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrInsufficientRole means the identity does not satisfy the
	// required role.
	ErrInsufficientRole = errors.New("insufficient role")
)

// Reconciliation failures.
var (
	// ErrPlanResolution means the billing system's price metadata did
	// not map to a known plan. Reconciliation never guesses.
	ErrPlanResolution = errors.New("plan resolution failed")

	// ErrReconcilePersistence means a record write failed mid-run. The
	// billing system stays authoritative; the caller may retry.
	ErrReconcilePersistence = errors.New("reconciliation persistence failed")
)

// ErrDependencyUnavailable wraps transient store or provider connectivity
// failures. Callers may retry once with backoff; a failure is never
// treated as "allow".
var ErrDependencyUnavailable = errors.New("dependency unavailable")
