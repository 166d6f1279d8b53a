// Package auth provides authentication and authorisation for TenAuth.
//
// It implements a 3-tier role model (customer → manager → admin) with:
//   - bcrypt password hashing with bounded concurrency
//   - RS256 access tokens verified statelessly against a public key set
//   - HS256 refresh tokens backed by a database record, revocable by
//     deleting the record regardless of signature or expiry
//   - Refresh token rotation: each refresh consumes the old record and
//     issues a new one
//   - Static role checks (compile-time, no database lookup)
//
// Access tokens carry a key id header so verifiers can hold several
// public keys at once and keys can be rotated without invalidating
// tokens signed by the previous key.
package auth
