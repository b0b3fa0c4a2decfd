package twofactor_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/twofactor/pkg/totp"
	"github.com/dmitrymomot/twofactor/pkg/twofactor"
	"github.com/dmitrymomot/twofactor/pkg/twofactor/memstore"
)

var (
	testKey = bytes.Repeat([]byte{7}, totp.AESKeySize)
	// RFC 6238 reference secret. At T=59s the codes for steps 0, 1, 2 are
	// 755224, 287082 and 359152; step 3 is 969429.
	rfcSecret   = []byte("12345678901234567890")
	testNow     = time.Unix(59, 0).UTC()
	testBackups = []string{"AAAA-BBBB", "CCCC-DDDD", "EEEE-FFFF", "1234-5678"}
)

const (
	codeCurrent  = "287082"
	codePrevious = "755224"
	codeNext     = "359152"
	codeTooLate  = "969429"
)

func fixedClock() time.Time { return testNow }

func newTestService(t *testing.T, opts ...twofactor.Option) (*twofactor.Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	svc, err := twofactor.New(store, testKey, append([]twofactor.Option{twofactor.WithClock(fixedClock)}, opts...)...)
	require.NoError(t, err)
	return svc, store
}

// seedSecret stores a record for userID holding the RFC secret.
func seedSecret(t *testing.T, store twofactor.Storage, userID string, active bool) {
	t.Helper()
	blob, err := totp.EncryptSecret(rfcSecret, testKey)
	require.NoError(t, err)

	require.NoError(t, store.CreateSecret(context.Background(), &twofactor.Secret{
		UserID:      userID,
		Secret:      blob,
		Enabled:     active,
		Verified:    active,
		BackupCodes: totp.HashBackupCodes(testBackups),
		CreatedAt:   testNow,
		UpdatedAt:   testNow,
	}))
}
