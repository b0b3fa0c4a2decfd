package twofactor

import (
	"context"
	"slices"
	"time"
)

// State is the enrollment state of a user.
type State string

const (
	// StateNone means no secret record exists.
	StateNone State = "none"
	// StatePending means a secret was generated but never verified.
	StatePending State = "pending"
	// StateActive means two-factor authentication is enabled and verified.
	StateActive State = "active"
)

// Secret is the persisted two-factor record of a single user.
// Secret holds the encrypted TOTP secret; BackupCodes holds SHA-256 hashes.
// Plaintext values never appear in this type.
type Secret struct {
	UserID          string
	Secret          string
	Enabled         bool
	Verified        bool
	BackupCodes     []string
	BackupCodesUsed int
	LastUsedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// State derives the enrollment state from the record flags.
func (s *Secret) State() State {
	switch {
	case s == nil:
		return StateNone
	case s.Enabled && s.Verified:
		return StateActive
	default:
		return StatePending
	}
}

// Clone returns a deep copy so stores never alias caller memory.
func (s *Secret) Clone() *Secret {
	if s == nil {
		return nil
	}
	c := *s
	c.BackupCodes = slices.Clone(s.BackupCodes)
	if s.LastUsedAt != nil {
		t := *s.LastUsedAt
		c.LastUsedAt = &t
	}
	return &c
}

func (s *Secret) reset(blob string, hashes []string, now time.Time) {
	s.Secret = blob
	s.Enabled = false
	s.Verified = false
	s.BackupCodes = hashes
	s.BackupCodesUsed = 0
	s.LastUsedAt = nil
	s.UpdatedAt = now
}

func (s *Secret) touch(now time.Time) {
	s.LastUsedAt = &now
	s.UpdatedAt = now
}

// Storage persists Secret records. GetSecret returns ErrSecretNotFound when
// the user has no record. CreateSecret returns ErrAlreadyEnrolled when one exists.
type Storage interface {
	GetSecret(ctx context.Context, userID string) (*Secret, error)
	CreateSecret(ctx context.Context, secret *Secret) error
	UpdateSecret(ctx context.Context, secret *Secret) error
	DeleteSecret(ctx context.Context, userID string) error
}

// Locker serializes read-modify-write cycles per user. The returned unlock
// function must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Enrollment is returned by Enable. Secret and BackupCodes are plaintext and
// are shown to the user exactly once.
type Enrollment struct {
	Secret      string   `json:"secret"`
	URI         string   `json:"uri"`
	BackupCodes []string `json:"backup_codes"`
}

// Status describes a user's two-factor state without exposing secrets.
type Status struct {
	Enrolled             bool       `json:"enrolled"`
	Enabled              bool       `json:"enabled"`
	Verified             bool       `json:"verified"`
	BackupCodesRemaining int        `json:"backup_codes_remaining"`
	LastUsedAt           *time.Time `json:"last_used_at,omitempty"`
}

// Method tells which factor satisfied a login check.
type Method string

const (
	// MethodNone is reported when two-factor authentication is not required.
	MethodNone       Method = "none"
	MethodTOTP       Method = "totp"
	MethodBackupCode Method = "backup_code"
)

// LoginResult is returned by ValidateLogin on success.
type LoginResult struct {
	Required bool   `json:"required"`
	Method   Method `json:"method"`
}
