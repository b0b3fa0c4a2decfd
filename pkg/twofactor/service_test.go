package twofactor_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/twofactor/pkg/base32"
	"github.com/dmitrymomot/twofactor/pkg/logger"
	"github.com/dmitrymomot/twofactor/pkg/totp"
	"github.com/dmitrymomot/twofactor/pkg/twofactor"
	"github.com/dmitrymomot/twofactor/pkg/twofactor/memstore"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("requires storage", func(t *testing.T) {
		_, err := twofactor.New(nil, testKey)
		assert.ErrorIs(t, err, twofactor.ErrConfiguration)
	})

	t.Run("requires 32 byte key", func(t *testing.T) {
		for _, key := range [][]byte{nil, make([]byte, 16), make([]byte, 33)} {
			_, err := twofactor.New(memstore.New(), key)
			assert.ErrorIs(t, err, twofactor.ErrConfiguration)
			assert.ErrorIs(t, err, totp.ErrInvalidEncryptionKeyLength)
		}
	})
}

func TestService_EnrollAndVerify(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTestService(t, twofactor.WithIssuer("Acme"))

	enrollment, err := svc.Enable(ctx, "u1", "alice@example.com")
	require.NoError(t, err)
	require.Len(t, enrollment.BackupCodes, totp.DefaultBackupCodeCount)
	assert.Len(t, enrollment.Secret, 32)
	assert.True(t, strings.HasPrefix(enrollment.URI, "otpauth://totp/Acme:alice@example.com?secret="+enrollment.Secret+"&issuer=Acme"))

	status, err := svc.Status(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, &twofactor.Status{Enrolled: true, BackupCodesRemaining: 10}, status)

	code := totp.ComputeCode(base32.Decode(enrollment.Secret), testNow, 0)
	require.NoError(t, svc.Verify(ctx, "u1", code))

	status, err = svc.Status(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, status.Enrolled)
	assert.True(t, status.Enabled)
	assert.True(t, status.Verified)
	assert.Equal(t, 10, status.BackupCodesRemaining)
	require.NotNil(t, status.LastUsedAt)
	assert.True(t, testNow.Equal(*status.LastUsedAt))
}

func TestService_Enable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("missing user id", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.Enable(ctx, "", "label")
		assert.ErrorIs(t, err, twofactor.ErrMissingUserID)
	})

	t.Run("already active", func(t *testing.T) {
		svc, store := newTestService(t)
		seedSecret(t, store, "u1", true)

		_, err := svc.Enable(ctx, "u1", "alice")
		assert.ErrorIs(t, err, twofactor.ErrAlreadyEnrolled)
	})

	t.Run("pending enrollment is replaced", func(t *testing.T) {
		svc, store := newTestService(t)

		first, err := svc.Enable(ctx, "u1", "alice")
		require.NoError(t, err)
		before, err := store.GetSecret(ctx, "u1")
		require.NoError(t, err)

		second, err := svc.Enable(ctx, "u1", "alice")
		require.NoError(t, err)
		after, err := store.GetSecret(ctx, "u1")
		require.NoError(t, err)

		assert.NotEqual(t, first.Secret, second.Secret)
		assert.NotEqual(t, before.Secret, after.Secret)
		assert.Equal(t, twofactor.StatePending, after.State())
		assert.Equal(t, totp.HashBackupCodes(second.BackupCodes), after.BackupCodes)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("secret is stored encrypted", func(t *testing.T) {
		svc, store := newTestService(t)

		enrollment, err := svc.Enable(ctx, "u1", "alice")
		require.NoError(t, err)
		rec, err := store.GetSecret(ctx, "u1")
		require.NoError(t, err)

		assert.NotContains(t, rec.Secret, enrollment.Secret)
		raw, err := totp.DecryptSecret(rec.Secret, testKey)
		require.NoError(t, err)
		assert.Equal(t, base32.Decode(enrollment.Secret), raw)
		for i, code := range enrollment.BackupCodes {
			assert.NotEqual(t, code, rec.BackupCodes[i])
			assert.Equal(t, totp.HashBackupCode(code), rec.BackupCodes[i])
		}
	})

	t.Run("account label defaults to user id", func(t *testing.T) {
		svc, _ := newTestService(t, twofactor.WithIssuer("Acme"))
		enrollment, err := svc.Enable(ctx, "user-7", "")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(enrollment.URI, "otpauth://totp/Acme:user-7?"))
	})

	t.Run("custom backup code count", func(t *testing.T) {
		svc, _ := newTestService(t, twofactor.WithBackupCodeCount(4))
		enrollment, err := svc.Enable(ctx, "u1", "alice")
		require.NoError(t, err)
		assert.Len(t, enrollment.BackupCodes, 4)
	})
}

func TestService_Verify(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("not enrolled", func(t *testing.T) {
		svc, _ := newTestService(t)
		assert.ErrorIs(t, svc.Verify(ctx, "nobody", codeCurrent), twofactor.ErrNotEnrolled)
	})

	t.Run("accepts one step of skew", func(t *testing.T) {
		for _, code := range []string{codePrevious, codeCurrent, codeNext} {
			svc, store := newTestService(t)
			seedSecret(t, store, "u1", false)
			require.NoError(t, svc.Verify(ctx, "u1", code), code)
		}
	})

	t.Run("rejects wrong code and keeps record pending", func(t *testing.T) {
		svc, store := newTestService(t)
		seedSecret(t, store, "u1", false)

		for _, code := range []string{"000000", codeTooLate, "", "28708", "abcdef", "AAAA-BBBB"} {
			assert.ErrorIs(t, svc.Verify(ctx, "u1", code), twofactor.ErrInvalidCode, code)
		}

		rec, err := store.GetSecret(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, twofactor.StatePending, rec.State())
		assert.Nil(t, rec.LastUsedAt)
	})

	t.Run("tampered secret is an integrity error", func(t *testing.T) {
		svc, store := newTestService(t)
		seedSecret(t, store, "u1", true)

		rec, err := store.GetSecret(ctx, "u1")
		require.NoError(t, err)
		last := rec.Secret[len(rec.Secret)-1]
		flipped := byte('0')
		if last == '0' {
			flipped = '1'
		}
		rec.Secret = rec.Secret[:len(rec.Secret)-1] + string(flipped)
		require.NoError(t, store.UpdateSecret(ctx, rec))

		err = svc.Verify(ctx, "u1", codeCurrent)
		assert.ErrorIs(t, err, twofactor.ErrIntegrity)
		assert.ErrorIs(t, err, totp.ErrIntegrityCheckFailed)
	})

	t.Run("wrong key is an integrity error", func(t *testing.T) {
		store := memstore.New()
		seedSecret(t, store, "u1", true)
		svc, err := twofactor.New(store, bytes.Repeat([]byte{9}, totp.AESKeySize), twofactor.WithClock(fixedClock))
		require.NoError(t, err)

		_, err = svc.ValidateLogin(ctx, "u1", codeCurrent)
		assert.ErrorIs(t, err, twofactor.ErrIntegrity)
	})
}

func TestService_ValidateLogin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("not required without record", func(t *testing.T) {
		svc, _ := newTestService(t)
		res, err := svc.ValidateLogin(ctx, "u1", "")
		require.NoError(t, err)
		assert.Equal(t, &twofactor.LoginResult{Required: false, Method: twofactor.MethodNone}, res)
	})

	t.Run("not required while pending", func(t *testing.T) {
		svc, store := newTestService(t)
		seedSecret(t, store, "u1", false)
		res, err := svc.ValidateLogin(ctx, "u1", "000000")
		require.NoError(t, err)
		assert.False(t, res.Required)
	})

	t.Run("accepts totp", func(t *testing.T) {
		svc, store := newTestService(t)
		seedSecret(t, store, "u1", true)

		res, err := svc.ValidateLogin(ctx, "u1", codeCurrent)
		require.NoError(t, err)
		assert.Equal(t, &twofactor.LoginResult{Required: true, Method: twofactor.MethodTOTP}, res)

		rec, err := store.GetSecret(ctx, "u1")
		require.NoError(t, err)
		require.NotNil(t, rec.LastUsedAt)
		assert.True(t, testNow.Equal(*rec.LastUsedAt))
		assert.Len(t, rec.BackupCodes, len(testBackups))
	})

	t.Run("consumes backup code once", func(t *testing.T) {
		svc, store := newTestService(t)
		seedSecret(t, store, "u1", true)

		res, err := svc.ValidateLogin(ctx, "u1", "aaaa-bbbb")
		require.NoError(t, err)
		assert.Equal(t, twofactor.MethodBackupCode, res.Method)

		rec, err := store.GetSecret(ctx, "u1")
		require.NoError(t, err)
		assert.Len(t, rec.BackupCodes, len(testBackups)-1)
		assert.Equal(t, 1, rec.BackupCodesUsed)

		for _, again := range []string{"AAAA-BBBB", "aaaabbbb", "AAAABBBB"} {
			_, err = svc.ValidateLogin(ctx, "u1", again)
			assert.ErrorIs(t, err, twofactor.ErrInvalidCode)
		}

		rec, err = store.GetSecret(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 1, rec.BackupCodesUsed)

		status, err := svc.Status(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, len(testBackups)-1, status.BackupCodesRemaining)
	})

	t.Run("wrong code fails generically", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithLevel(slog.LevelDebug))
		svc, store := newTestService(t, twofactor.WithLogger(log))
		seedSecret(t, store, "u1", true)

		_, err := svc.ValidateLogin(ctx, "u1", "000000")
		require.ErrorIs(t, err, twofactor.ErrInvalidCode)
		assert.Equal(t, twofactor.ErrInvalidCode.Error(), err.Error())

		out := buf.String()
		assert.Contains(t, out, `"user_id":"u1"`)
		assert.Contains(t, out, `"level":"WARN"`)
		assert.NotContains(t, out, "000000")

		rec, err := store.GetSecret(ctx, "u1")
		require.NoError(t, err)
		assert.Nil(t, rec.LastUsedAt)
		assert.Len(t, rec.BackupCodes, len(testBackups))
	})
}

func TestService_ValidateLogin_ConcurrentBackupCode(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, store := newTestService(t)
	seedSecret(t, store, "u1", true)

	var wg sync.WaitGroup
	var ok, invalid int32
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.ValidateLogin(ctx, "u1", "CCCC-DDDD")
			switch {
			case err == nil && res.Method == twofactor.MethodBackupCode:
				atomic.AddInt32(&ok, 1)
			case errors.Is(err, twofactor.ErrInvalidCode):
				atomic.AddInt32(&invalid, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok)
	assert.Equal(t, int32(19), invalid)

	rec, err := store.GetSecret(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.BackupCodesUsed)
	assert.Len(t, rec.BackupCodes, len(testBackups)-1)
}

func TestService_Disable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("with backup code", func(t *testing.T) {
		svc, store := newTestService(t)
		seedSecret(t, store, "u1", true)

		require.NoError(t, svc.Disable(ctx, "u1", "eeee-ffff"))

		status, err := svc.Status(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, &twofactor.Status{}, status)
		assert.Zero(t, store.Len())
	})

	t.Run("with totp", func(t *testing.T) {
		svc, store := newTestService(t)
		seedSecret(t, store, "u1", true)
		require.NoError(t, svc.Disable(ctx, "u1", codeCurrent))
		assert.Zero(t, store.Len())
	})

	t.Run("wrong code keeps record", func(t *testing.T) {
		svc, store := newTestService(t)
		seedSecret(t, store, "u1", true)

		assert.ErrorIs(t, svc.Disable(ctx, "u1", "000000"), twofactor.ErrInvalidCode)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("requires active enrollment", func(t *testing.T) {
		svc, store := newTestService(t)
		assert.ErrorIs(t, svc.Disable(ctx, "u1", codeCurrent), twofactor.ErrNotEnrolled)

		seedSecret(t, store, "u1", false)
		assert.ErrorIs(t, svc.Disable(ctx, "u1", codeCurrent), twofactor.ErrNotEnrolled)
		assert.Equal(t, 1, store.Len())
	})
}

func TestService_RegenerateBackupCodes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("with totp", func(t *testing.T) {
		svc, store := newTestService(t)
		seedSecret(t, store, "u1", true)

		_, err := svc.ValidateLogin(ctx, "u1", "1234-5678")
		require.NoError(t, err)

		codes, err := svc.RegenerateBackupCodes(ctx, "u1", codeCurrent)
		require.NoError(t, err)
		require.Len(t, codes, totp.DefaultBackupCodeCount)

		rec, err := store.GetSecret(ctx, "u1")
		require.NoError(t, err)
		assert.Zero(t, rec.BackupCodesUsed)
		assert.Equal(t, totp.HashBackupCodes(codes), rec.BackupCodes)

		for _, old := range testBackups {
			_, err := svc.ValidateLogin(ctx, "u1", old)
			assert.ErrorIs(t, err, twofactor.ErrInvalidCode, old)
		}

		res, err := svc.ValidateLogin(ctx, "u1", strings.ToLower(codes[0]))
		require.NoError(t, err)
		assert.Equal(t, twofactor.MethodBackupCode, res.Method)
	})

	t.Run("backup code is not accepted", func(t *testing.T) {
		svc, store := newTestService(t)
		seedSecret(t, store, "u1", true)

		_, err := svc.RegenerateBackupCodes(ctx, "u1", "AAAA-BBBB")
		assert.ErrorIs(t, err, twofactor.ErrInvalidCode)

		rec, err := store.GetSecret(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, totp.HashBackupCodes(testBackups), rec.BackupCodes)
	})

	t.Run("requires active enrollment", func(t *testing.T) {
		svc, store := newTestService(t)
		seedSecret(t, store, "u1", false)
		_, err := svc.RegenerateBackupCodes(ctx, "u1", codeCurrent)
		assert.ErrorIs(t, err, twofactor.ErrNotEnrolled)
	})
}

func TestService_StorageFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	boom := errors.New("connection reset")

	t.Run("read failure", func(t *testing.T) {
		storage := &MockStorage{}
		storage.On("GetSecret", mock.Anything, "u1").Return(nil, boom)
		svc, err := twofactor.New(storage, testKey)
		require.NoError(t, err)

		_, err = svc.Status(ctx, "u1")
		assert.ErrorIs(t, err, twofactor.ErrStorage)
		assert.ErrorIs(t, err, boom)

		_, err = svc.ValidateLogin(ctx, "u1", codeCurrent)
		assert.ErrorIs(t, err, twofactor.ErrStorage)
		storage.AssertExpectations(t)
	})

	t.Run("create failure", func(t *testing.T) {
		storage := &MockStorage{}
		storage.On("GetSecret", mock.Anything, "u1").Return(nil, twofactor.ErrSecretNotFound)
		storage.On("CreateSecret", mock.Anything, mock.MatchedBy(func(s *twofactor.Secret) bool {
			return s.UserID == "u1" && !s.Enabled && len(s.BackupCodes) == totp.DefaultBackupCodeCount
		})).Return(boom)
		svc, err := twofactor.New(storage, testKey)
		require.NoError(t, err)

		_, err = svc.Enable(ctx, "u1", "alice")
		assert.ErrorIs(t, err, twofactor.ErrStorage)
		storage.AssertExpectations(t)
	})

	t.Run("create race surfaces conflict", func(t *testing.T) {
		storage := &MockStorage{}
		storage.On("GetSecret", mock.Anything, "u1").Return(nil, twofactor.ErrSecretNotFound)
		storage.On("CreateSecret", mock.Anything, mock.Anything).Return(twofactor.ErrAlreadyEnrolled)
		svc, err := twofactor.New(storage, testKey)
		require.NoError(t, err)

		_, err = svc.Enable(ctx, "u1", "alice")
		assert.ErrorIs(t, err, twofactor.ErrAlreadyEnrolled)
		assert.NotErrorIs(t, err, twofactor.ErrStorage)
	})
}

func TestService_LockFailure(t *testing.T) {
	t.Parallel()

	locker := &MockLocker{}
	locker.On("Lock", mock.Anything, "u1").Return(nil, context.DeadlineExceeded)
	storage := &MockStorage{}

	svc, err := twofactor.New(storage, testKey, twofactor.WithLocker(locker))
	require.NoError(t, err)

	_, err = svc.ValidateLogin(context.Background(), "u1", codeCurrent)
	assert.ErrorIs(t, err, twofactor.ErrLockFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	storage.AssertNotCalled(t, "GetSecret", mock.Anything, mock.Anything)
	locker.AssertExpectations(t)
}

func TestService_LockIsReleased(t *testing.T) {
	t.Parallel()

	var released int32
	locker := &MockLocker{}
	locker.On("Lock", mock.Anything, "u1").Return(func() { atomic.AddInt32(&released, 1) }, nil)

	store := memstore.New()
	seedSecret(t, store, "u1", true)
	svc, err := twofactor.New(store, testKey, twofactor.WithLocker(locker), twofactor.WithClock(fixedClock))
	require.NoError(t, err)

	_, err = svc.ValidateLogin(context.Background(), "u1", "000000")
	require.ErrorIs(t, err, twofactor.ErrInvalidCode)
	_, err = svc.ValidateLogin(context.Background(), "u1", codeCurrent)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&released))
}
