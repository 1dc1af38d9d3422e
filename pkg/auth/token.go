// Package auth stores the GitHub token used by the collection adapters.
package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "healthscore"
	keyringUser    = "github_token"

	// TokenEnvVar overrides the stored token.
	TokenEnvVar = "GITHUB_TOKEN"
)

// ErrNoToken is returned when no token is configured anywhere.
var ErrNoToken = errors.New("no GitHub token, run 'healthscore auth' or set " + TokenEnvVar)

// SaveToken stores the token in the OS keychain.
func SaveToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is required")
	}
	if err := keyring.Set(keyringService, keyringUser, token); err != nil {
		return fmt.Errorf("saving token to keychain: %w", err)
	}
	return nil
}

// GetToken returns the token from the environment or the OS keychain.
func GetToken() (string, error) {
	if t := strings.TrimSpace(os.Getenv(TokenEnvVar)); t != "" {
		slog.Debug("using token from environment", "var", TokenEnvVar)
		return t, nil
	}

	token, err := keyring.Get(keyringService, keyringUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("reading token from keychain: %w", err)
	}
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// DeleteToken removes the stored token. Missing tokens are not an error.
func DeleteToken() error {
	if err := keyring.Delete(keyringService, keyringUser); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("deleting token from keychain: %w", err)
	}
	return nil
}
