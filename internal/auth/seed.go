package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// seedPasswordBytes is the number of random bytes for the seed admin password.
const seedPasswordBytes = 16

// seedAdminEmail is the address of the first-boot admin account.
const seedAdminEmail = "admin@tenauth.local"

// SeedAdmin creates the initial admin account on first boot if no users
// exist. The generated password is logged once and must be changed
// immediately. Returns the generated password (empty string if seeding
// was skipped).
func SeedAdmin(ctx context.Context, userRepo UserRepository, hasher *Hasher, logger *slog.Logger) (string, error) {
	count, err := userRepo.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking user count: %w", err)
	}

	if count > 0 {
		logger.Info("users exist, skipping admin seed")
		return "", nil
	}

	// Generate a random password
	passwordBytes := make([]byte, seedPasswordBytes)
	if _, err := rand.Read(passwordBytes); err != nil {
		return "", fmt.Errorf("generating seed password: %w", err)
	}
	password := hex.EncodeToString(passwordBytes)

	hash, err := hasher.Hash(ctx, password)
	if err != nil {
		return "", fmt.Errorf("hashing seed password: %w", err)
	}

	admin := &User{
		FirstName:    "System",
		LastName:     "Admin",
		Email:        seedAdminEmail,
		PasswordHash: hash,
		Role:         RoleAdmin,
	}

	if err := userRepo.Create(ctx, admin); err != nil {
		return "", fmt.Errorf("creating seed admin: %w", err)
	}

	logger.Warn("seed admin account created",
		"email", seedAdminEmail,
		"password", password,
		"action_required", "change this password immediately",
	)

	return password, nil
}
