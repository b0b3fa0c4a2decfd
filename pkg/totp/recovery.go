package totp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// DefaultBackupCodeCount is the number of backup codes issued per generation.
const DefaultBackupCodeCount = 10

// GenerateBackupCodes creates count single-use recovery codes formatted XXXX-XXXX,
// each carrying 32 bits of entropy.
func GenerateBackupCodes(count int) ([]string, error) {
	if count < 1 {
		return nil, ErrInvalidBackupCodeCount
	}

	codes := make([]string, count)
	for i := range count {
		raw := make([]byte, 4)
		if _, err := rand.Read(raw); err != nil {
			return nil, errors.Join(ErrFailedToGenerateBackupCode, err)
		}
		code := fmt.Sprintf("%X", raw)
		codes[i] = code[:4] + "-" + code[4:]
	}
	return codes, nil
}

// NormalizeBackupCode upper-cases the code and drops dashes and whitespace, so
// "aaaa-bbbb", "AAAA BBBB" and "AAAABBBB" are the same code.
func NormalizeBackupCode(code string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, strings.ToUpper(code))
}

// HashBackupCode returns the SHA-256 hex digest of the normalized code.
func HashBackupCode(code string) string {
	hash := sha256.Sum256([]byte(NormalizeBackupCode(code)))
	return hex.EncodeToString(hash[:])
}

// HashBackupCodes hashes every code in order.
func HashBackupCodes(codes []string) []string {
	hashes := make([]string, len(codes))
	for i, code := range codes {
		hashes[i] = HashBackupCode(code)
	}
	return hashes
}

// ConsumeBackupCode looks the submitted code up in hashes. On a match it returns a
// new slice without the matched entry and true. The input slice is never modified.
func ConsumeBackupCode(hashes []string, code string) ([]string, bool) {
	if NormalizeBackupCode(code) == "" {
		return hashes, false
	}

	computed := []byte(HashBackupCode(code))
	idx := -1
	for i, h := range hashes {
		if subtle.ConstantTimeCompare(computed, []byte(h)) == 1 && idx < 0 {
			idx = i
		}
	}
	if idx < 0 {
		return hashes, false
	}

	remaining := make([]string, 0, len(hashes)-1)
	remaining = append(remaining, hashes[:idx]...)
	remaining = append(remaining, hashes[idx+1:]...)
	return remaining, true
}
