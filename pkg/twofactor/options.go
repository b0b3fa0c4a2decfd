package twofactor

import (
	"log/slog"
	"time"
)

// DefaultIssuer is shown in authenticator apps when no issuer is configured.
const DefaultIssuer = "TwoFactor"

// Option configures Service.
type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIssuer sets the issuer label embedded in enrollment URIs.
func WithIssuer(issuer string) Option {
	return func(s *Service) {
		if issuer != "" {
			s.issuer = issuer
		}
	}
}

// WithLocker replaces the in-process per-user lock, e.g. with a Redis lock
// when several instances share one store.
func WithLocker(l Locker) Option {
	return func(s *Service) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithBackupCodeCount sets how many backup codes are issued per generation.
func WithBackupCodeCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.backupCodeCount = n
		}
	}
}

// WithClock overrides the time source used for TOTP steps and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTokenIssuer enables IssuePendingToken and VerifyPendingToken.
func WithTokenIssuer(p *PendingTokenIssuer) Option {
	return func(s *Service) { s.pending = p }
}
