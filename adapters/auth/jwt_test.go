package auth_test

import (
	"testing"
	"time"

	"github.com/gengate/gengate/adapters/auth"
	"github.com/gengate/gengate/domain/identity"
)

func testIdentity() identity.Identity {
	return identity.Identity{
		ID:     "user-1",
		Email:  "test@example.com",
		Role:   identity.RoleAdmin,
		PlanID: "premium",
	}
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc := auth.NewTokenService("test-secret", time.Hour)

	token, expiresAt, err := svc.GenerateToken(testIdentity())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if time.Until(expiresAt) > time.Hour {
		t.Errorf("expiry too far out: %v", expiresAt)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("UserID = %s, want user-1", claims.UserID)
	}
	if claims.Email != "test@example.com" {
		t.Errorf("Email = %s, want test@example.com", claims.Email)
	}
	if claims.Role != identity.RoleAdmin {
		t.Errorf("Role = %v, want admin", claims.Role)
	}
	if claims.PlanID != "premium" {
		t.Errorf("PlanID = %s, want premium", claims.PlanID)
	}
}

func TestTokenService_WrongSecret(t *testing.T) {
	issuer := auth.NewTokenService("secret-a", time.Hour)
	verifier := auth.NewTokenService("secret-b", time.Hour)

	token, _, err := issuer.GenerateToken(testIdentity())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := verifier.Verify(token); err == nil {
		t.Error("token signed with a different secret verified")
	}
}

func TestTokenService_Expired(t *testing.T) {
	svc := auth.NewTokenService("test-secret", -time.Minute)

	token, _, err := svc.GenerateToken(testIdentity())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := svc.Verify(token); err == nil {
		t.Error("expired token verified")
	}
}

func TestTokenService_Garbage(t *testing.T) {
	svc := auth.NewTokenService("test-secret", time.Hour)

	for _, cred := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := svc.Verify(cred); err == nil {
			t.Errorf("Verify(%q) succeeded, want error", cred)
		}
	}
}

func TestTokenService_UnknownRoleMapsToUser(t *testing.T) {
	svc := auth.NewTokenService("test-secret", time.Hour)

	id := testIdentity()
	id.Role = identity.Role(99)
	token, _, err := svc.GenerateToken(id)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Role != identity.RoleUser {
		t.Errorf("Role = %v, want user fallback", claims.Role)
	}
}
