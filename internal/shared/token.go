package shared

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims holds the registered claims of a bearer token issued by the FlowMaster API.
type TokenClaims struct {
	Subject   string
	ExpiresAt time.Time
}

// InspectToken decodes the claims of a JWT bearer token without verifying its signature.
//
// The client never holds the signing key; the claims are informational only.
// Returns [ErrInvalidToken] when the token is not a JWT.
func InspectToken(token string) (*TokenClaims, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, ErrInvalidToken
	}

	tc := &TokenClaims{Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		tc.ExpiresAt = claims.ExpiresAt.Time
	}
	return tc, nil
}
