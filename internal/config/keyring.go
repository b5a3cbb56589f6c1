package config

import (
	"fmt"
	"log/slog"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name in the OS keychain
	KeyringService = "archlens"

	KeyringGeminiKeyItem     = "gemini-api-key"
	KeyringOpenAIKeyItem     = "openai-api-key"
	KeyringNeo4jPasswordItem = "neo4j-password"
)

// KeyringManager handles secure credential storage in OS keychain
type KeyringManager struct {
	logger *slog.Logger
}

// NewKeyringManager creates a new keyring manager
func NewKeyringManager() *KeyringManager {
	return &KeyringManager{
		logger: slog.Default().With("component", "keyring"),
	}
}

// Set stores a secret under item
func (km *KeyringManager) Set(item, secret string) error {
	if secret == "" {
		return fmt.Errorf("%s cannot be empty", item)
	}
	if err := keyring.Set(KeyringService, item, secret); err != nil {
		km.logger.Error("failed to save secret to keychain", "item", item, "error", err)
		return fmt.Errorf("failed to save to OS keychain: %w", err)
	}
	km.logger.Info("secret saved to keychain", "service", KeyringService, "item", item)
	return nil
}

// Get returns the secret stored under item, or "" when none is stored
func (km *KeyringManager) Get(item string) (string, error) {
	secret, err := keyring.Get(KeyringService, item)
	if err == keyring.ErrNotFound {
		return "", nil
	}
	if err != nil {
		km.logger.Error("failed to read secret from keychain", "item", item, "error", err)
		return "", fmt.Errorf("failed to read from OS keychain: %w", err)
	}
	return secret, nil
}

// Delete removes item. Deleting a missing item is not an error.
func (km *KeyringManager) Delete(item string) error {
	err := keyring.Delete(KeyringService, item)
	if err == keyring.ErrNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete from OS keychain: %w", err)
	}
	km.logger.Info("secret deleted from keychain", "item", item)
	return nil
}

// IsAvailable checks if OS keychain is available.
// Returns false on headless systems (CI/CD) without a secret service.
func (km *KeyringManager) IsAvailable() bool {
	_, err := keyring.Get(KeyringService, "test-availability")
	if err == keyring.ErrNotFound || err == nil {
		return true
	}
	km.logger.Debug("keychain not available", "error", err)
	return false
}

// MaskSecret masks a credential for display.
// Shows first 7 chars and last 4 chars: "sk-proj...abc123"
func MaskSecret(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) < 12 {
		return "***"
	}
	return fmt.Sprintf("%s...%s", secret[:7], secret[len(secret)-4:])
}
