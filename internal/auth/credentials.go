// Package auth handles API key storage, the token service client and local
// JWT verification.
package auth

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gregdefoy/zettl/internal/apperr"
)

// EnvAPIKey overrides the stored API key when set.
const EnvAPIKey = "ZETTL_API_KEY"

// ConfigPath returns the credential file path, ~/.zettl/config.
func ConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".zettl", "config"), nil
}

// LoadAPIKey resolves the API key: the environment variable wins, then the
// api_key entry in the credential file.
func LoadAPIKey() (string, error) {
	if key := strings.TrimSpace(os.Getenv(EnvAPIKey)); key != "" {
		return key, nil
	}

	path, err := ConfigPath()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("no API key: set %s or run `zettl auth setup`: %w", EnvAPIKey, apperr.ErrUnauthorized)
	}
	if err != nil {
		return "", fmt.Errorf("read credentials: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		k, v, ok := strings.Cut(strings.TrimSpace(line), "=")
		if ok && strings.TrimSpace(k) == "api_key" {
			if key := strings.TrimSpace(v); key != "" {
				return key, nil
			}
		}
	}
	return "", fmt.Errorf("credential file has no api_key entry: %w", apperr.ErrUnauthorized)
}

// SaveAPIKey writes the API key to the credential file, creating ~/.zettl
// with owner-only permissions.
func SaveAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("empty API key: %w", apperr.ErrBadRequest)
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte("api_key="+key+"\n"), 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}
