// Package auth provides stateless local authentication using JWT.
// Designed for horizontal scaling - no shared state between instances.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gengate/gengate/domain/identity"
	"github.com/gengate/gengate/ports"
)

// Claims represents the JWT claims for locally issued tokens. The claims
// are self-contained: verification never touches the profile store.
type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	PlanID string `json:"plan"`
	jwt.RegisteredClaims
}

// TokenService provides stateless JWT token operations. It implements
// ports.LocalTokenVerifier. Thread-safe and suitable for concurrent use.
type TokenService struct {
	secret     []byte
	issuer     string
	expiration time.Duration
}

// NewTokenService creates a new JWT token service.
// If secret is empty, a random 32-byte secret is generated.
func NewTokenService(secret string, expiration time.Duration) *TokenService {
	var secretBytes []byte
	if secret == "" {
		secretBytes = make([]byte, 32)
		rand.Read(secretBytes)
	} else {
		secretBytes = []byte(secret)
	}

	if expiration == 0 {
		expiration = 24 * time.Hour
	}

	return &TokenService{
		secret:     secretBytes,
		issuer:     "gengate",
		expiration: expiration,
	}
}

// GenerateToken creates a new JWT token for the given identity.
func (s *TokenService) GenerateToken(id identity.Identity) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(s.expiration)

	claims := Claims{
		UserID: id.ID,
		Email:  id.Email,
		Role:   id.Role.String(),
		PlanID: id.PlanID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// Verify validates a locally issued token and returns the embedded claims.
func (s *TokenService) Verify(credential string) (ports.LocalClaims, error) {
	token, err := jwt.ParseWithClaims(credential, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return ports.LocalClaims{}, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return ports.LocalClaims{}, errors.New("invalid token")
	}
	if claims.UserID == "" {
		return ports.LocalClaims{}, errors.New("token missing subject")
	}

	return ports.LocalClaims{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   identity.ParseRole(claims.Role),
		PlanID: claims.PlanID,
	}, nil
}

// GenerateSecret generates a random secret suitable for JWT signing.
func GenerateSecret() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}
