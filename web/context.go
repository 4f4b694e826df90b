package web

import (
	"context"

	"github.com/gengate/gengate/domain/identity"
)

type contextKey string

const identityKey contextKey = "identity"

// withIdentity stores the resolved identity in the request context.
func withIdentity(ctx context.Context, id identity.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// identityFrom retrieves the resolved identity from the request context.
func identityFrom(ctx context.Context) (identity.Identity, bool) {
	id, ok := ctx.Value(identityKey).(identity.Identity)
	return id, ok
}
