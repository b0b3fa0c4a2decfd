// Package memstore keeps two-factor records in process memory. It is meant
// for tests and single-instance development setups.
package memstore

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrymomot/twofactor/pkg/twofactor"
)

var ErrNilSecret = errors.New("memstore: nil secret")

// Store implements twofactor.Storage. Records are copied on the way in and
// out, so callers never share memory with the store.
type Store struct {
	mu      sync.RWMutex
	secrets map[string]*twofactor.Secret
}

func New() *Store {
	return &Store{secrets: make(map[string]*twofactor.Secret)}
}

func (s *Store) GetSecret(_ context.Context, userID string) (*twofactor.Secret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.secrets[userID]
	if !ok {
		return nil, twofactor.ErrSecretNotFound
	}
	return rec.Clone(), nil
}

func (s *Store) CreateSecret(_ context.Context, secret *twofactor.Secret) error {
	if secret == nil {
		return ErrNilSecret
	}
	if secret.UserID == "" {
		return twofactor.ErrMissingUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.secrets[secret.UserID]; ok {
		return twofactor.ErrAlreadyEnrolled
	}
	s.secrets[secret.UserID] = secret.Clone()
	return nil
}

func (s *Store) UpdateSecret(_ context.Context, secret *twofactor.Secret) error {
	if secret == nil {
		return ErrNilSecret
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.secrets[secret.UserID]; !ok {
		return twofactor.ErrSecretNotFound
	}
	s.secrets[secret.UserID] = secret.Clone()
	return nil
}

func (s *Store) DeleteSecret(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.secrets[userID]; !ok {
		return twofactor.ErrSecretNotFound
	}
	delete(s.secrets, userID)
	return nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.secrets)
}
