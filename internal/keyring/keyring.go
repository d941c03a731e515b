package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/habitbot/internal/constants"
)

var (
	// ErrNotFound is returned when no secret is stored under the requested name
	ErrNotFound = errors.New("credentials not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
	// ErrUnknownSecret is returned for names outside Secrets
	ErrUnknownSecret = errors.New("unknown secret name")
)

// Secrets lists the entries habitbot keeps in the OS keyring, keyed by CLI name
var Secrets = map[string]string{
	"database":   constants.KeyringDatabase,
	"telegram":   constants.KeyringTelegramToken,
	"openrouter": constants.KeyringOpenRouterKey,
}

// Resolve maps a CLI secret name to its keyring entry
func Resolve(name string) (string, error) {
	entry, ok := Secrets[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSecret, name)
	}
	return entry, nil
}

// Get retrieves a secret from the OS keyring.
// Returns ErrNotFound if nothing is stored under entry.
func Get(entry string) (string, error) {
	secret, err := keyring.Get(constants.AppName, entry)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return secret, nil
}

// Set stores a secret in the OS keyring
func Set(entry, secret string) error {
	if secret == "" {
		return errors.New("secret cannot be empty")
	}
	if err := keyring.Set(constants.AppName, entry, secret); err != nil {
		return fmt.Errorf("failed to store credentials in keyring: %w", err)
	}
	return nil
}

// Delete removes a secret from the OS keyring
func Delete(entry string) error {
	err := keyring.Delete(constants.AppName, entry)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete credentials from keyring: %w", err)
	}
	return nil
}

// GetConnectionString retrieves the database connection string from the OS keyring
func GetConnectionString() (string, error) {
	return Get(constants.KeyringDatabase)
}

// IsAvailable checks if the OS keyring is available on the current system.
// This is a best-effort check and may not catch all failure scenarios.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
