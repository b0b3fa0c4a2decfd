package twofactor

import (
	"errors"
	"time"

	"github.com/dmitrymomot/twofactor/pkg/jwt"
	"github.com/dmitrymomot/twofactor/pkg/totp"
)

// Config is the environment configuration of the workflow.
type Config struct {
	totp.Config

	Issuer      string        `env:"TWOFACTOR_ISSUER" envDefault:"TwoFactor"`
	JWTSecret   string        `env:"TWOFACTOR_JWT_SECRET,required"`
	PendingTTL  time.Duration `env:"TWOFACTOR_PENDING_TTL" envDefault:"5m"`
	BackupCodes int           `env:"TWOFACTOR_BACKUP_CODES" envDefault:"10"`
}

// NewFromConfig derives the encryption key and builds the pending-login
// issuer from cfg, then applies opts on top. Key derivation is slow; call
// this once at startup.
func NewFromConfig(storage Storage, cfg Config, opts ...Option) (*Service, error) {
	key, err := totp.LoadEncryptionKey(cfg.Config)
	if err != nil {
		return nil, errors.Join(ErrConfiguration, err)
	}
	defer clear(key)

	if cfg.JWTSecret == cfg.EncryptionPassphrase {
		return nil, errors.Join(ErrConfiguration, errors.New("token signing secret must differ from the encryption passphrase"))
	}

	signer, err := jwt.NewFromString(cfg.JWTSecret, jwt.WithIssuer(cfg.Issuer))
	if err != nil {
		return nil, errors.Join(ErrConfiguration, err)
	}
	pending, err := NewPendingTokenIssuer(signer, cfg.PendingTTL)
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithIssuer(cfg.Issuer),
		WithBackupCodeCount(cfg.BackupCodes),
		WithTokenIssuer(pending),
	}
	return New(storage, key, append(base, opts...)...)
}
