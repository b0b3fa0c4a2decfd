package twofactor

import (
	"errors"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/dmitrymomot/twofactor/pkg/jwt"
)

const (
	// PendingTokenTTL bounds the time between password and second factor.
	PendingTokenTTL = 5 * time.Minute
	// PendingTokenPurpose tags pending-login tokens.
	PendingTokenPurpose = "2fa_pending"
)

// TokenSigner signs and verifies tokens. *jwt.Service implements it.
type TokenSigner interface {
	Sign(claims jwt.Claims, ttl time.Duration) (string, error)
	Verify(token string) (*jwt.Claims, error)
}

// PendingTokenIssuer threads the user id from "password accepted" to
// "second factor accepted" without creating a session.
type PendingTokenIssuer struct {
	signer TokenSigner
	ttl    time.Duration
}

// NewPendingTokenIssuer returns an issuer with ttl, or PendingTokenTTL when ttl <= 0.
func NewPendingTokenIssuer(signer TokenSigner, ttl time.Duration) (*PendingTokenIssuer, error) {
	if signer == nil {
		return nil, errors.Join(ErrConfiguration, errors.New("token signer is required"))
	}
	if ttl <= 0 {
		ttl = PendingTokenTTL
	}
	return &PendingTokenIssuer{signer: signer, ttl: ttl}, nil
}

// Issue signs a pending-login token for userID.
func (p *PendingTokenIssuer) Issue(userID string) (string, error) {
	if userID == "" {
		return "", ErrMissingUserID
	}
	return p.signer.Sign(jwt.Claims{
		Purpose:          PendingTokenPurpose,
		RegisteredClaims: gojwt.RegisteredClaims{Subject: userID},
	}, p.ttl)
}

// Verify returns the subject of a valid pending-login token. Bad signature,
// expiry, wrong purpose or a missing subject all yield ("", false).
func (p *PendingTokenIssuer) Verify(token string) (string, bool) {
	claims, err := p.signer.Verify(token)
	if err != nil || claims == nil {
		return "", false
	}
	if claims.Purpose != PendingTokenPurpose || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}
