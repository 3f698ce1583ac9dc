package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// DefaultSecret is used when no secret is configured. It is only suitable for development.
const DefaultSecret = "default-secret-key-for-dev"

// LoadSecret picks the signing secret. A non-empty file path wins over the inline value; the file
// content is trimmed of surrounding whitespace.
func LoadSecret(fs afero.Fs, inline, path string) (string, error) {
	if path != "" {
		content, readErr := afero.ReadFile(fs, path)
		if readErr != nil {
			return "", fmt.Errorf("failed to read secret file %s: %w", path, readErr)
		}
		secret := strings.TrimSpace(string(content))
		if secret == "" {
			return "", errors.New("secret file is empty")
		}
		return secret, nil
	}
	if inline == "" {
		return "", errors.New("secret must not be empty")
	}
	if inline == DefaultSecret {
		logrus.Warn("Using the default development secret, tokens can be forged by anyone")
	}
	return inline, nil
}
