package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/twofactor/pkg/base32"
)

const (
	DefaultDigits    = 6      // Standard 6-digit TOTP codes
	DefaultPeriod    = 30     // 30-second validity window (RFC 6238 standard)
	DefaultAlgorithm = "SHA1" // HMAC-SHA1 algorithm (RFC 6238 standard)
	DefaultSkew      = 1      // Accepted steps before and after the current one

	SecretSize = 20 // 160-bit secret (RFC 4226 recommendation)
)

// GenerateSecret returns fresh random shared-secret material.
func GenerateSecret() ([]byte, error) {
	secret := make([]byte, SecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, errors.Join(ErrFailedToGenerateSecretKey, err)
	}
	return secret, nil
}

// GenerateSecretKey returns a new secret already Base32-encoded for display.
func GenerateSecretKey() (string, error) {
	secret, err := GenerateSecret()
	if err != nil {
		return "", err
	}
	return base32.Encode(secret), nil
}

// ComputeCode returns the zero-padded 6-digit code for the time step containing t,
// shifted by offset steps.
func ComputeCode(secret []byte, t time.Time, offset int) string {
	counter := t.Unix()/DefaultPeriod + int64(offset)
	return fmt.Sprintf("%0*d", DefaultDigits, GenerateHOTP(secret, counter, DefaultDigits))
}

// VerifyCode reports whether code matches the step containing t or one of its
// immediate neighbours. Malformed input simply does not match.
func VerifyCode(secret []byte, code string, t time.Time) bool {
	code = strings.TrimSpace(code)
	if len(secret) == 0 || !isDigits(code, DefaultDigits) {
		return false
	}

	matched := 0
	for offset := -DefaultSkew; offset <= DefaultSkew; offset++ {
		expected := ComputeCode(secret, t, offset)
		matched |= subtle.ConstantTimeCompare([]byte(expected), []byte(code))
	}
	return matched == 1
}

// GenerateHOTP implements RFC 4226 HMAC-based One-Time Password algorithm.
// The algorithm converts a counter value into a numeric code using HMAC-SHA1.
func GenerateHOTP(key []byte, counter int64, digits int) int {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	hash := mac.Sum(nil)

	// Dynamic truncation: low nibble of the last byte selects a 4-byte window
	offset := hash[len(hash)-1] & 0x0f
	code := (int(hash[offset]&0x7f) << 24) |
		(int(hash[offset+1]) << 16) |
		(int(hash[offset+2]) << 8) |
		int(hash[offset+3])

	return code % int(math.Pow10(digits))
}

// BuildEnrollmentURI creates the otpauth:// URI handed to authenticator apps.
// Issuer and account are percent-encoded in the label, colons and spaces
// included; the query parameters are emitted in the fixed order secret,
// issuer, algorithm, digits, period.
// See https://github.com/google/google-authenticator/wiki/Key-Uri-Format
func BuildEnrollmentURI(secret []byte, account, issuer string) (string, error) {
	if len(secret) == 0 {
		return "", ErrMissingSecret
	}
	if account == "" {
		return "", ErrMissingAccountName
	}
	if issuer == "" {
		return "", ErrMissingIssuer
	}

	var b strings.Builder
	b.WriteString("otpauth://totp/")
	b.WriteString(escapeLabel(issuer))
	b.WriteString(":")
	b.WriteString(escapeLabel(account))
	b.WriteString("?secret=")
	b.WriteString(base32.Encode(secret))
	b.WriteString("&issuer=")
	b.WriteString(strings.ReplaceAll(url.QueryEscape(issuer), "+", "%20"))
	b.WriteString("&algorithm=")
	b.WriteString(DefaultAlgorithm)
	b.WriteString("&digits=")
	b.WriteString(strconv.Itoa(DefaultDigits))
	b.WriteString("&period=")
	b.WriteString(strconv.Itoa(DefaultPeriod))

	return b.String(), nil
}

// escapeLabel percent-encodes one label segment. The colon is escaped too,
// since it separates issuer from account.
func escapeLabel(s string) string {
	return strings.ReplaceAll(url.PathEscape(s), ":", "%3A")
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
