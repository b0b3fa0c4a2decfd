package totp

import (
	"github.com/dmitrymomot/twofactor/pkg/config"
)

type Config struct {
	EncryptionPassphrase string `env:"TOTP_ENCRYPTION_PASSPHRASE,required"` // Server-wide passphrase the secret encryption key is derived from
	EncryptionSalt       string `env:"TOTP_ENCRYPTION_SALT"`                // Salt for key derivation, DefaultKeySalt when empty
}

// LoadConfig parses the TOTP configuration from the environment.
// A missing passphrase is reported as ErrEncryptionKeyNotSet.
func LoadConfig() (Config, error) {
	cfg, err := config.Load[Config]()
	if err != nil {
		return Config{}, err
	}
	if cfg.EncryptionPassphrase == "" {
		return Config{}, ErrEncryptionKeyNotSet
	}
	return cfg, nil
}
