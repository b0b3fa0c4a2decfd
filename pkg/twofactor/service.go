package twofactor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/twofactor/pkg/base32"
	"github.com/dmitrymomot/twofactor/pkg/locker"
	"github.com/dmitrymomot/twofactor/pkg/logger"
	"github.com/dmitrymomot/twofactor/pkg/totp"
)

const component = "twofactor"

// Service runs the enrollment and verification workflow.
// Every operation that reads and then writes a record holds the user's lock
// for the whole cycle, so a backup code can be consumed only once even when
// login attempts race.
type Service struct {
	storage         Storage
	key             []byte
	issuer          string
	locker          Locker
	backupCodeCount int
	now             func() time.Time
	logger          *slog.Logger
	pending         *PendingTokenIssuer
}

// New creates the workflow service. key is the AES-256 key derived once at
// startup (see totp.LoadEncryptionKey); a missing or short key is ErrConfiguration.
func New(storage Storage, key []byte, opts ...Option) (*Service, error) {
	if storage == nil {
		return nil, errors.Join(ErrConfiguration, errors.New("storage is required"))
	}
	if len(key) != totp.AESKeySize {
		return nil, errors.Join(ErrConfiguration, totp.ErrInvalidEncryptionKeyLength)
	}

	s := &Service{
		storage:         storage,
		key:             append([]byte(nil), key...),
		issuer:          DefaultIssuer,
		locker:          locker.NewLocal(),
		backupCodeCount: totp.DefaultBackupCodeCount,
		now:             time.Now,
		logger:          logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Enable starts enrollment. A pending enrollment is replaced with a fresh
// secret and backup codes; an active one is ErrAlreadyEnrolled.
func (s *Service) Enable(ctx context.Context, userID, accountLabel string) (*Enrollment, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	if accountLabel == "" {
		accountLabel = userID
	}

	var enrollment *Enrollment
	err := s.withUserLock(ctx, userID, func() error {
		rec, err := s.load(ctx, userID)
		if err != nil {
			return err
		}
		if rec.State() == StateActive {
			return ErrAlreadyEnrolled
		}

		raw, err := totp.GenerateSecret()
		if err != nil {
			return err
		}
		defer clear(raw)

		uri, err := totp.BuildEnrollmentURI(raw, accountLabel, s.issuer)
		if err != nil {
			return err
		}
		codes, err := totp.GenerateBackupCodes(s.backupCodeCount)
		if err != nil {
			return err
		}
		blob, err := totp.EncryptSecret(raw, s.key)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		if rec == nil {
			rec = &Secret{UserID: userID, CreatedAt: now}
			rec.reset(blob, totp.HashBackupCodes(codes), now)
			if err := s.storage.CreateSecret(ctx, rec); err != nil {
				return storageError(err)
			}
		} else {
			rec.reset(blob, totp.HashBackupCodes(codes), now)
			if err := s.storage.UpdateSecret(ctx, rec); err != nil {
				return storageError(err)
			}
		}

		enrollment = &Enrollment{
			Secret:      base32.Encode(raw),
			URI:         uri,
			BackupCodes: codes,
		}
		return nil
	})
	if err != nil {
		s.logFailure(ctx, "enable", userID, err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "two-factor enrollment started",
		logger.Component(component),
		logger.Event("enrollment_started"),
		logger.UserID(userID),
	)
	return enrollment, nil
}

// Verify checks a TOTP code against the stored secret. The first success
// activates two-factor authentication.
func (s *Service) Verify(ctx context.Context, userID, code string) error {
	if userID == "" {
		return ErrMissingUserID
	}

	var activated bool
	err := s.withUserLock(ctx, userID, func() error {
		rec, err := s.load(ctx, userID)
		if err != nil {
			return err
		}
		if rec == nil {
			return ErrNotEnrolled
		}

		now := s.now()
		ok, err := s.checkTOTP(rec, code, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidCode
		}

		activated = rec.State() != StateActive
		rec.Enabled = true
		rec.Verified = true
		rec.touch(now.UTC())
		return storageError(s.storage.UpdateSecret(ctx, rec))
	})
	if err != nil {
		s.logFailure(ctx, "verify", userID, err)
		return err
	}

	event := "verified"
	if activated {
		event = "enabled"
	}
	s.logger.InfoContext(ctx, "two-factor code verified",
		logger.Component(component),
		logger.Event(event),
		logger.UserID(userID),
	)
	return nil
}

// Disable removes the user's record after proof of possession with either a
// TOTP code or an unused backup code. It requires an active enrollment.
func (s *Service) Disable(ctx context.Context, userID, code string) error {
	if userID == "" {
		return ErrMissingUserID
	}

	var method Method
	err := s.withUserLock(ctx, userID, func() error {
		rec, err := s.loadActive(ctx, userID)
		if err != nil {
			return err
		}

		method, err = s.checkAny(rec, code, s.now())
		if err != nil {
			return err
		}

		if err := s.storage.DeleteSecret(ctx, userID); err != nil {
			if errors.Is(err, ErrSecretNotFound) {
				return ErrNotEnrolled
			}
			return storageError(err)
		}
		return nil
	})
	if err != nil {
		s.logFailure(ctx, "disable", userID, err)
		return err
	}

	s.logger.InfoContext(ctx, "two-factor authentication disabled",
		logger.Component(component),
		logger.Event("disabled"),
		logger.Method(string(method)),
		logger.UserID(userID),
	)
	return nil
}

// ValidateLogin checks the second factor during sign in. Users without an
// active enrollment pass with Required=false. TOTP is tried first, then the
// backup codes; a matched backup code is consumed.
func (s *Service) ValidateLogin(ctx context.Context, userID, code string) (*LoginResult, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}

	result := &LoginResult{Method: MethodNone}
	err := s.withUserLock(ctx, userID, func() error {
		rec, err := s.load(ctx, userID)
		if err != nil {
			return err
		}
		if rec.State() != StateActive {
			return nil
		}

		now := s.now()
		method, err := s.checkAny(rec, code, now)
		if err != nil {
			return err
		}

		rec.touch(now.UTC())
		if err := s.storage.UpdateSecret(ctx, rec); err != nil {
			return storageError(err)
		}
		result.Required = true
		result.Method = method
		return nil
	})
	if err != nil {
		s.logFailure(ctx, "validate_login", userID, err)
		return nil, err
	}

	if result.Required {
		s.logger.InfoContext(ctx, "two-factor login accepted",
			logger.Component(component),
			logger.Event("login_verified"),
			logger.Method(string(result.Method)),
			logger.UserID(userID),
		)
	}
	return result, nil
}

// RegenerateBackupCodes replaces all backup codes. Only a TOTP code is
// accepted as proof, so a leaked backup code cannot mint a new set.
func (s *Service) RegenerateBackupCodes(ctx context.Context, userID, code string) ([]string, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}

	var codes []string
	err := s.withUserLock(ctx, userID, func() error {
		rec, err := s.loadActive(ctx, userID)
		if err != nil {
			return err
		}

		now := s.now()
		ok, err := s.checkTOTP(rec, code, now)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidCode
		}

		fresh, err := totp.GenerateBackupCodes(s.backupCodeCount)
		if err != nil {
			return err
		}
		rec.BackupCodes = totp.HashBackupCodes(fresh)
		rec.BackupCodesUsed = 0
		rec.touch(now.UTC())
		if err := s.storage.UpdateSecret(ctx, rec); err != nil {
			return storageError(err)
		}
		codes = fresh
		return nil
	})
	if err != nil {
		s.logFailure(ctx, "regenerate_backup_codes", userID, err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "two-factor backup codes regenerated",
		logger.Component(component),
		logger.Event("backup_codes_regenerated"),
		logger.UserID(userID),
	)
	return codes, nil
}

// Status reports the user's enrollment. A user without a record gets the
// zero Status rather than an error.
func (s *Service) Status(ctx context.Context, userID string) (*Status, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}

	rec, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return &Status{}, nil
	}

	st := &Status{
		Enrolled:             true,
		Enabled:              rec.Enabled,
		Verified:             rec.Verified,
		BackupCodesRemaining: len(rec.BackupCodes),
	}
	if rec.LastUsedAt != nil {
		t := *rec.LastUsedAt
		st.LastUsedAt = &t
	}
	return st, nil
}

// IssuePendingToken signs a short-lived token for a user whose password was
// accepted but whose second factor is still outstanding.
func (s *Service) IssuePendingToken(userID string) (string, error) {
	if s.pending == nil {
		return "", errors.Join(ErrConfiguration, errors.New("pending token issuer is not configured"))
	}
	return s.pending.Issue(userID)
}

// VerifyPendingToken returns the user id carried by a pending-login token.
// Any failure yields ("", false); the caller should restart the login.
func (s *Service) VerifyPendingToken(token string) (string, bool) {
	if s.pending == nil {
		return "", false
	}
	return s.pending.Verify(token)
}

func (s *Service) withUserLock(ctx context.Context, userID string, fn func() error) error {
	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return errors.Join(ErrLockFailed, err)
	}
	defer unlock()
	return fn()
}

// load returns nil without error when the user has no record.
func (s *Service) load(ctx context.Context, userID string) (*Secret, error) {
	rec, err := s.storage.GetSecret(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSecretNotFound) {
			return nil, nil
		}
		return nil, storageError(err)
	}
	return rec, nil
}

func (s *Service) loadActive(ctx context.Context, userID string) (*Secret, error) {
	rec, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rec.State() != StateActive {
		return nil, ErrNotEnrolled
	}
	return rec, nil
}

func (s *Service) checkTOTP(rec *Secret, code string, now time.Time) (bool, error) {
	raw, err := totp.DecryptSecret(rec.Secret, s.key)
	if err != nil {
		return false, errors.Join(ErrIntegrity, err)
	}
	defer clear(raw)
	return totp.VerifyCode(raw, code, now), nil
}

// checkAny accepts a TOTP code or consumes a backup code from rec.
func (s *Service) checkAny(rec *Secret, code string, now time.Time) (Method, error) {
	ok, err := s.checkTOTP(rec, code, now)
	if err != nil {
		return MethodNone, err
	}
	if ok {
		return MethodTOTP, nil
	}

	remaining, ok := totp.ConsumeBackupCode(rec.BackupCodes, code)
	if !ok {
		return MethodNone, ErrInvalidCode
	}
	rec.BackupCodes = remaining
	rec.BackupCodesUsed++
	return MethodBackupCode, nil
}

func (s *Service) logFailure(ctx context.Context, op, userID string, err error) {
	level := slog.LevelError
	switch {
	case errors.Is(err, ErrInvalidCode), errors.Is(err, ErrNotEnrolled), errors.Is(err, ErrAlreadyEnrolled):
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, fmt.Sprintf("two-factor %s failed", op),
		logger.Component(component),
		logger.Event(op+"_failed"),
		logger.UserID(userID),
		logger.Error(err),
	)
}

// storageError tags unexpected storage failures while keeping domain errors
// returned by stores inspectable.
func storageError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrAlreadyEnrolled), errors.Is(err, ErrSecretNotFound):
		return err
	default:
		return errors.Join(ErrStorage, err)
	}
}
