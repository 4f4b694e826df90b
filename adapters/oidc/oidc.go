// Package oidc verifies identity-provider tokens against the provider's
// published keys. It implements ports.ExternalTokenVerifier.
package oidc

import (
	"context"
	"errors"
	"fmt"

	gooidc "github.com/coreos/go-oidc/v3/oidc"

	"github.com/gengate/gengate/ports"
)

// Verifier validates ID tokens issued by an external OIDC provider.
// Discovery runs once at construction; key rotation is handled by the
// underlying remote key set.
type Verifier struct {
	verifier *gooidc.IDTokenVerifier
}

// New discovers the provider at issuerURL and builds a verifier bound to
// clientID.
func New(ctx context.Context, issuerURL, clientID string) (*Verifier, error) {
	provider, err := gooidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("discover provider: %w", err)
	}

	return &Verifier{
		verifier: provider.Verifier(&gooidc.Config{ClientID: clientID}),
	}, nil
}

// Disabled rejects every credential. Used when no external provider is
// configured, so the local scheme is the only way in.
type Disabled struct{}

// Verify always fails.
func (Disabled) Verify(ctx context.Context, credential string) (ports.ExternalSubject, error) {
	return ports.ExternalSubject{}, errors.New("external identity provider not configured")
}

// Verify checks signature, issuer, audience and expiry, and returns the
// token's subject.
func (v *Verifier) Verify(ctx context.Context, credential string) (ports.ExternalSubject, error) {
	token, err := v.verifier.Verify(ctx, credential)
	if err != nil {
		return ports.ExternalSubject{}, err
	}

	var claims struct {
		Email string `json:"email"`
	}
	if err := token.Claims(&claims); err != nil {
		return ports.ExternalSubject{}, fmt.Errorf("decode claims: %w", err)
	}
	if token.Subject == "" {
		return ports.ExternalSubject{}, errors.New("token missing subject")
	}

	return ports.ExternalSubject{
		ID:    token.Subject,
		Email: claims.Email,
	}, nil
}
