package totp

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"strings"
)

const (
	AESKeySize = 32 // Required key size for AES-256 (256 bits / 8 = 32 bytes)

	// CipherDelimiter separates iv, tag and cipher text in the stored blob.
	CipherDelimiter = ":"

	gcmNonceSize = 12
	gcmTagSize   = 16
)

// EncryptSecret seals the raw TOTP secret with AES-256-GCM under a fresh random IV.
// The result is "hex(iv):hex(tag):hex(ciphertext)".
func EncryptSecret(plain []byte, key []byte) (string, error) {
	aesGCM, err := newGCM(key)
	if err != nil {
		return "", errors.Join(ErrFailedToEncryptSecret, err)
	}

	iv := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", errors.Join(ErrFailedToEncryptSecret, err)
	}

	sealed := aesGCM.Seal(nil, iv, plain, nil)
	body, tag := sealed[:len(sealed)-gcmTagSize], sealed[len(sealed)-gcmTagSize:]

	return strings.Join([]string{
		hex.EncodeToString(iv),
		hex.EncodeToString(tag),
		hex.EncodeToString(body),
	}, CipherDelimiter), nil
}

// DecryptSecret parses a blob produced by EncryptSecret and verifies its tag.
// A malformed blob fails with ErrMalformedCiphertext and a tag mismatch with
// ErrIntegrityCheckFailed; both are joined with ErrFailedToDecryptSecret.
func DecryptSecret(blob string, key []byte) ([]byte, error) {
	aesGCM, err := newGCM(key)
	if err != nil {
		return nil, errors.Join(ErrFailedToDecryptSecret, err)
	}

	iv, tag, body, err := parseBlob(blob)
	if err != nil {
		return nil, errors.Join(ErrFailedToDecryptSecret, err)
	}

	sealed := make([]byte, 0, len(body)+len(tag))
	sealed = append(sealed, body...)
	sealed = append(sealed, tag...)

	plain, err := aesGCM.Open(make([]byte, 0, len(body)), iv, sealed, nil)
	if err != nil {
		return nil, errors.Join(ErrFailedToDecryptSecret, ErrIntegrityCheckFailed)
	}
	return plain, nil
}

// GenerateEncryptionKey creates a new random 32-byte key suitable for AES-256 encryption.
// Useful in tests and for callers that manage raw keys themselves instead of a passphrase.
func GenerateEncryptionKey() ([]byte, error) {
	key := make([]byte, AESKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, errors.Join(ErrFailedToGenerateEncryptionKey, err)
	}
	return key, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != AESKeySize {
		return nil, ErrInvalidEncryptionKeyLength
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// parseBlob splits and hex-decodes the three blob parts. Only the canonical
// lower-case hex produced by EncryptSecret is accepted.
func parseBlob(blob string) (iv, tag, body []byte, err error) {
	parts := strings.Split(blob, CipherDelimiter)
	if len(parts) != 3 {
		return nil, nil, nil, ErrMalformedCiphertext
	}

	decoded := make([][]byte, 3)
	for i, part := range parts {
		if !isLowerHex(part) {
			return nil, nil, nil, ErrMalformedCiphertext
		}
		b, err := hex.DecodeString(part)
		if err != nil {
			return nil, nil, nil, errors.Join(ErrMalformedCiphertext, err)
		}
		decoded[i] = b
	}

	iv, tag, body = decoded[0], decoded[1], decoded[2]
	if len(iv) != gcmNonceSize || len(tag) != gcmTagSize {
		return nil, nil, nil, ErrMalformedCiphertext
	}
	return iv, tag, body, nil
}

func isLowerHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
