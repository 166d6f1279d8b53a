package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// KeySet holds RSA public keys indexed by key id. Verifiers pick the
// key named in a token's kid header.
type KeySet map[string]*rsa.PublicKey

// LoadPrivateKey reads an RSA private key from a PEM file.
// Accepts PKCS#1 and PKCS#8 encodings.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in %s", path)
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key in %s is not RSA", path)
	}
	return key, nil
}

// LoadPublicKeys reads every *.pem file in dir into a KeySet. The key
// id is the filename without extension, so rotating keys is dropping a
// new PEM file next to the old one.
func LoadPublicKeys(dir string) (KeySet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading public key dir: %w", err)
	}

	keys := make(KeySet)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".pem") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		key, err := loadPublicKey(path)
		if err != nil {
			return nil, err
		}
		keys[KeyIDFromPath(path)] = key
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("no public keys found in %s", dir)
	}
	return keys, nil
}

// KeyIDFromPath derives a key id from a PEM file path: the base name
// with the extension stripped.
func KeyIDFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// loadPublicKey reads a single RSA public key from a PEM file.
// Accepts PKIX and PKCS#1 encodings.
func loadPublicKey(path string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading public key: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in %s", path)
	}

	if parsed, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		key, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("public key in %s is not RSA", path)
		}
		return key, nil
	}

	key, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}
	return key, nil
}
