// Package keyring keeps banquet's secrets (database connection strings with passwords,
// the Redis password) out of the config file.
package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/banquet/internal/constants"
)

var (
	ErrNotFound           = errors.New("secret not found in keyring")
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// Secret names one keyring entry under the banquet service.
type Secret string

const (
	ConnectionString Secret = constants.DefaultKeyringUser
	RedisPassword    Secret = "redis-password"
)

func (s Secret) Get() (string, error) {
	value, err := keyring.Get(constants.AppName, string(s))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%s: %w", s, ErrNotFound)
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return value, nil
}

func (s Secret) Set(value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", s)
	}
	if err := keyring.Set(constants.AppName, string(s), value); err != nil {
		return fmt.Errorf("failed to store %s in keyring: %w", s, err)
	}
	return nil
}

func (s Secret) Delete() error {
	if err := keyring.Delete(constants.AppName, string(s)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("%s: %w", s, ErrNotFound)
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", s, err)
	}
	return nil
}

// Lookup returns the secret, or "" when none is stored. Only an unavailable
// keyring is an error.
func (s Secret) Lookup() (string, error) {
	value, err := s.Get()
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return value, err
}

// IsAvailable probes the keyring with a read. A missing entry still means it works.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "availability-probe")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
