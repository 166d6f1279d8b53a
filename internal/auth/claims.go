package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims are the claims carried by an RS256 access token.
// Subject holds the user id; Role lets middleware authorise without a
// database lookup.
type AccessClaims struct {
	jwt.RegisteredClaims
	Role Role `json:"role"`
}

// RefreshClaims are the claims carried by an HS256 refresh token.
// The registered ID (jti) holds the backing database record id; a
// refresh token whose record is gone is revoked.
type RefreshClaims struct {
	jwt.RegisteredClaims
	Role Role `json:"role"`
}
