package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost matches the cost the original accounts were hashed
// with. Raising it only affects newly hashed passwords.
const DefaultBcryptCost = 10

// defaultMaxConcurrentHashes bounds parallel bcrypt work. Each hash
// pins a core for tens of milliseconds; unbounded concurrency lets a
// login flood starve the rest of the process.
const defaultMaxConcurrentHashes = 8

// Hasher hashes and verifies passwords using bcrypt, with a semaphore
// limiting how many hash operations run at once.
type Hasher struct {
	cost int
	sem  chan struct{}
}

// NewHasher creates a Hasher with the given bcrypt cost and concurrency
// limit. Out-of-range values fall back to the defaults.
func NewHasher(cost, maxConcurrent int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrentHashes
	}
	return &Hasher{
		cost: cost,
		sem:  make(chan struct{}, maxConcurrent),
	}
}

// Hash hashes a plaintext password. Blocks while the concurrency limit
// is saturated; honours context cancellation while waiting.
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.acquire(ctx); err != nil {
		return "", err
	}
	defer h.release()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// Verify checks a plaintext password against a bcrypt hash.
// Returns true if the password matches.
func (h *Hasher) Verify(ctx context.Context, password, encodedHash string) (bool, error) {
	if err := h.acquire(ctx); err != nil {
		return false, err
	}
	defer h.release()

	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, fmt.Errorf("verifying password: %w", err)
	}
	return true, nil
}

// DummyVerify burns one bcrypt comparison against a fixed hash. Called
// on the unknown-email login path so it costs the same as a real
// password check.
func (h *Hasher) DummyVerify(ctx context.Context) {
	_, _ = h.Verify(ctx, "tenauth-timing-pad", dummyHash) //nolint:errcheck // result is discarded
}

// dummyHash is a valid bcrypt hash of an unguessable throwaway value,
// cost 10 to match DefaultBcryptCost.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

func (h *Hasher) acquire(ctx context.Context) error {
	select {
	case h.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for hash slot: %w", ctx.Err())
	}
}

func (h *Hasher) release() {
	<-h.sem
}
