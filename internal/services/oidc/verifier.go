package oidc

import (
	"context"
	"errors"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Claims are the identity claims the API relies on
type Claims struct {
	Subject  string
	Email    string
	Name     string
	Verified bool
}

// ErrMissingSubject is returned for tokens without a sub claim
var ErrMissingSubject = errors.New("token missing subject claim")

// Verifier verifies bearer tokens issued by one identity provider
type Verifier struct {
	jwks     *JWKSManager
	jwksURL  string
	issuer   string
	audience string
}

// NewVerifier creates a verifier for tokens from issuer signed with keys at
// jwksURL. An empty audience skips the aud check.
func NewVerifier(jwks *JWKSManager, jwksURL, issuer, audience string) *Verifier {
	return &Verifier{
		jwks:     jwks,
		jwksURL:  jwksURL,
		issuer:   issuer,
		audience: audience,
	}
}

// Verify checks the signature, expiry, issuer and audience of token and
// returns its identity claims
func (v *Verifier) Verify(ctx context.Context, token string) (*Claims, error) {
	parsed, err := v.parse(ctx, token)
	if err != nil {
		return nil, err
	}

	if parsed.Subject() == "" {
		return nil, ErrMissingSubject
	}

	claims := &Claims{Subject: parsed.Subject()}
	private := parsed.PrivateClaims()
	if email, ok := private["email"].(string); ok {
		claims.Email = email
	}
	if name, ok := private["name"].(string); ok {
		claims.Name = name
	}
	if verified, ok := private["email_verified"].(bool); ok {
		claims.Verified = verified
	}
	return claims, nil
}

func (v *Verifier) parse(ctx context.Context, token string) (jwt.Token, error) {
	keys, err := v.jwks.GetJWKS(ctx, v.jwksURL)
	if err != nil {
		return nil, err
	}

	opts := []jwt.ParseOption{
		jwt.WithKeySet(keys),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	parsed, err := jwt.Parse([]byte(token), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}
	return parsed, nil
}
