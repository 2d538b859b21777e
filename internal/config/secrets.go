package config

import (
	"fmt"
	"strings"

	"github.com/billgraziano/dpapi"
)

// sealedPrefix marks a token that has been encrypted with the Windows Data
// Protection API for the current user.
const sealedPrefix = "dpapi:"

// SealToken encrypts a notifier token for storage in the config file.
// Sealing an already-sealed value is a no-op.
func SealToken(plain string) (string, error) {
	if plain == "" || strings.HasPrefix(plain, sealedPrefix) {
		return plain, nil
	}

	enc, err := dpapi.Encrypt(plain)
	if err != nil {
		return "", fmt.Errorf("sealing token: %w", err)
	}

	return sealedPrefix + enc, nil
}

// OpenToken returns the plain-text token. Unsealed values pass through
// untouched so hand-edited config files keep working.
func OpenToken(stored string) (string, error) {
	if !strings.HasPrefix(stored, sealedPrefix) {
		return stored, nil
	}

	plain, err := dpapi.Decrypt(strings.TrimPrefix(stored, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("opening sealed token: %w", err)
	}

	return plain, nil
}

// SealSecrets encrypts any plain-text notifier tokens in place and
// reports whether anything changed, so the caller knows the config
// needs re-persisting. Tokens never sit on disk unprotected.
func (c *Config) SealSecrets() (bool, error) {
	changed := false
	for _, token := range []*string{&c.Discord.Token, &c.Telegram.Token} {
		sealed, err := SealToken(*token)
		if err != nil {
			return changed, err
		}
		if sealed != *token {
			*token = sealed
			changed = true
		}
	}
	return changed, nil
}
