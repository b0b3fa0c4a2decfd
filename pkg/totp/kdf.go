package totp

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/scrypt"
)

// scrypt cost parameters. Deliberately slow: derive once at startup and keep the key.
const (
	scryptN = 1 << 14
	scryptR = 8
	scryptP = 1
)

// DefaultKeySalt is used when no salt is configured.
const DefaultKeySalt = "twofactor-totp-secret-v1"

// DeriveKey stretches the server-wide passphrase into an AES-256 key with scrypt.
// The same passphrase and salt always produce the same key.
func DeriveKey(passphrase, salt string) ([]byte, error) {
	if passphrase == "" {
		return nil, errors.Join(ErrFailedToDeriveEncryptionKey, ErrEncryptionKeyNotSet)
	}
	if salt == "" {
		salt = DefaultKeySalt
	}

	key, err := scrypt.Key([]byte(passphrase), []byte(salt), scryptN, scryptR, scryptP, AESKeySize)
	if err != nil {
		return nil, errors.Join(ErrFailedToDeriveEncryptionKey, err)
	}
	return key, nil
}

// LoadEncryptionKey derives the encryption key from the configuration.
// Call it once during startup; a missing passphrase is a fatal configuration error.
func LoadEncryptionKey(cfg Config) ([]byte, error) {
	if cfg.EncryptionPassphrase == "" {
		return nil, errors.Join(ErrFailedToLoadEncryptionKey, ErrEncryptionKeyNotSet)
	}
	key, err := DeriveKey(cfg.EncryptionPassphrase, cfg.EncryptionSalt)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadEncryptionKey, err)
	}
	return key, nil
}

// GeneratePassphrase returns a random base64 string suitable for TOTP_ENCRYPTION_PASSPHRASE
// or TOTP_ENCRYPTION_SALT.
func GeneratePassphrase() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Join(ErrFailedToGenerateEncryptionKey, err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}
