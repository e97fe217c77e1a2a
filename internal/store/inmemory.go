package store

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// InMemory implements Gateway without a database. It backs tests and local
// development; the semantics mirror the PostgreSQL implementation, including
// case-insensitive username uniqueness.
type InMemory struct {
	mu          sync.RWMutex
	accounts    map[string]Account
	credentials map[string]Credential // keyed by lower-cased username
}

var _ Gateway = (*InMemory)(nil)

func NewInMemory() *InMemory {
	return &InMemory{
		accounts:    make(map[string]Account),
		credentials: make(map[string]Credential),
	}
}

func (s *InMemory) Ping(context.Context) error { return nil }

func (s *InMemory) CredentialByUsername(_ context.Context, username string) (Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.credentials[strings.ToLower(username)]
	if !ok {
		return Credential{}, ErrNotFound
	}
	return cred, nil
}

func (s *InMemory) AccountByID(_ context.Context, id string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return acct, nil
}

func (s *InMemory) CreateAccount(_ context.Context, in NewAccount) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(in.Username)
	if _, exists := s.credentials[username]; exists {
		return Account{}, ErrDuplicateUsername
	}

	acct := Account{
		ID:           uuid.NewString(),
		Username:     username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		CredentialID: uuid.NewString(),
	}
	s.accounts[acct.ID] = acct
	s.credentials[username] = Credential{
		ID:           acct.CredentialID,
		AccountID:    acct.ID,
		PasswordHash: in.PasswordHash,
	}
	return acct, nil
}
