// Package totp provides the cryptographic building blocks of two-factor authentication:
// time-based one-time passwords, encryption of the shared secret at rest, and
// single-use backup codes.
//
// The package has no state of its own. It is consumed by package twofactor, which
// owns the per-user secret record and the enrollment workflow.
//
// # Architecture
//
//   • kdf.go    – DeriveKey stretches the server-wide passphrase into an AES-256 key with
//     scrypt. It is slow on purpose; derive the key once at startup (LoadEncryptionKey).
//
//   • aes256.go – EncryptSecret/DecryptSecret seal the raw secret with AES-256-GCM. Each call
//     uses a fresh IV and the blob is stored as "hex(iv):hex(tag):hex(ciphertext)". A modified
//     blob never decrypts: it fails with ErrMalformedCiphertext or ErrIntegrityCheckFailed.
//
//   • otp.go    – GenerateSecret, ComputeCode, VerifyCode (RFC 6238, SHA1, 6 digits, 30s, ±1 step)
//     and BuildEnrollmentURI producing the otpauth:// URI for authenticator apps.
//
//   • recovery.go – GenerateBackupCodes (XXXX-XXXX), HashBackupCode (SHA-256 over the
//     normalized code) and ConsumeBackupCode, which returns a new hash list instead of
//     mutating the stored one.
//
// Configuration is read from TOTP_ENCRYPTION_PASSPHRASE (required) and TOTP_ENCRYPTION_SALT.
// The helper in ./cmd prints fresh random values for both.
//
// # Usage
//
//	key, err := totp.LoadEncryptionKey(cfg) // once
//
//	secret, _ := totp.GenerateSecret()
//	blob, _ := totp.EncryptSecret(secret, key)
//	uri, _ := totp.BuildEnrollmentURI(secret, "alice@example.com", "Acme")
//
//	raw, err := totp.DecryptSecret(blob, key)
//	ok := totp.VerifyCode(raw, "123456", time.Now())
//
// # Error Handling
//
// Errors are wrapped with errors.Join; match them with errors.Is against the package
// sentinels such as ErrFailedToDecryptSecret, ErrIntegrityCheckFailed or ErrEncryptionKeyNotSet.
//
// # See Also
//
//   • RFC 4226 – HMAC-Based One-Time Password (HOTP) Algorithm
//   • RFC 6238 – Time-Based One-Time Password (TOTP) Algorithm
//   • RFC 4648 – Base32 encoding (package base32)
package totp
