package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// IssuerConfig holds the static parameters of a TokenIssuer.
type IssuerConfig struct {
	// Issuer is the iss claim stamped on every token.
	Issuer string

	// KeyID is the kid header on access tokens; it must name an entry
	// in the verifier's KeySet.
	KeyID string

	// AccessTTL is the access token lifetime.
	AccessTTL time.Duration

	// RefreshTTL is the refresh token lifetime.
	RefreshTTL time.Duration
}

// TokenIssuer mints and verifies the two token kinds.
//
// Access tokens are RS256: any holder of the public key set can verify
// them with no database access. Refresh tokens are HS256 and only valid
// while their backing record exists, so they can be revoked server-side.
type TokenIssuer struct {
	cfg           IssuerConfig
	privateKey    *rsa.PrivateKey
	publicKeys    KeySet
	refreshSecret []byte
	tokens        TokenRepository
}

// NewTokenIssuer creates a TokenIssuer. The private key may be nil on
// verify-only deployments; issuing then fails.
func NewTokenIssuer(cfg IssuerConfig, privateKey *rsa.PrivateKey, publicKeys KeySet, refreshSecret []byte, tokens TokenRepository) *TokenIssuer {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 365 * 24 * time.Hour
	}
	return &TokenIssuer{
		cfg:           cfg,
		privateKey:    privateKey,
		publicKeys:    publicKeys,
		refreshSecret: refreshSecret,
		tokens:        tokens,
	}
}

// AccessTTL returns the configured access token lifetime.
func (ti *TokenIssuer) AccessTTL() time.Duration { return ti.cfg.AccessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (ti *TokenIssuer) RefreshTTL() time.Duration { return ti.cfg.RefreshTTL }

// IssueAccessToken creates a signed RS256 access token for a user.
// Access tokens are validated by signature only (no DB hit).
func (ti *TokenIssuer) IssueAccessToken(user *User) (string, error) {
	if ti.privateKey == nil {
		return "", fmt.Errorf("issuing access token: no private key loaded")
	}

	now := time.Now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ti.cfg.Issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.cfg.AccessTTL)),
			ID:        uuid.NewString(),
		},
		Role: user.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = ti.cfg.KeyID

	signed, err := token.SignedString(ti.privateKey)
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// VerifyAccessToken validates an RS256 access token against the public
// key set, selecting the key by the kid header. It checks the
// signature, expiry, and required fields.
func (ti *TokenIssuer) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("missing kid header")
		}
		key, ok := ti.publicKeys[kid]
		if !ok {
			return nil, fmt.Errorf("unknown key id %q", kid)
		}
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	if claims.Role == "" {
		return nil, fmt.Errorf("%w: missing role", ErrTokenInvalid)
	}

	return claims, nil
}

// IssueRefreshToken persists a new refresh token record and returns the
// signed HS256 token embedding the record id. The record is written
// before the token is signed, so a signed token without a record can
// only mean revocation.
func (ti *TokenIssuer) IssueRefreshToken(ctx context.Context, user *User) (string, *RefreshToken, error) {
	now := time.Now()
	record := &RefreshToken{
		UserID:    user.ID,
		ExpiresAt: now.Add(ti.cfg.RefreshTTL),
	}
	if err := ti.tokens.Create(ctx, record); err != nil {
		return "", nil, fmt.Errorf("persisting refresh token: %w", err)
	}

	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ti.cfg.Issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(record.ExpiresAt),
			ID:        record.ID,
		},
		Role: user.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.refreshSecret)
	if err != nil {
		// Remove the orphaned record so it can't linger until the sweep.
		_ = ti.tokens.DeleteByID(ctx, record.ID) //nolint:errcheck // best effort cleanup
		return "", nil, fmt.Errorf("signing refresh token: %w", err)
	}
	return signed, record, nil
}

// VerifyRefreshToken validates an HS256 refresh token and loads its
// backing record. A token whose record no longer exists returns
// ErrTokenRevoked even if the signature and expiry are fine.
func (ti *TokenIssuer) VerifyRefreshToken(ctx context.Context, tokenString string) (*RefreshToken, *RefreshClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &RefreshClaims{}, func(_ *jwt.Token) (any, error) {
		return ti.refreshSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*RefreshClaims)
	if !ok || !token.Valid {
		return nil, nil, ErrTokenInvalid
	}

	if claims.ID == "" || claims.Subject == "" {
		return nil, nil, fmt.Errorf("%w: missing record id or subject", ErrTokenInvalid)
	}

	record, err := ti.tokens.GetByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil, nil, ErrTokenRevoked
		}
		return nil, nil, err
	}

	if record.UserID != claims.Subject {
		return nil, nil, fmt.Errorf("%w: subject mismatch", ErrTokenInvalid)
	}

	if time.Now().After(record.ExpiresAt) {
		return nil, nil, ErrTokenExpired
	}

	return record, claims, nil
}
