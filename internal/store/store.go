// Package store is the persistence gateway for credentials and accounts.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the referenced row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicateUsername indicates the username uniqueness constraint fired.
	ErrDuplicateUsername = errors.New("store: username already exists")
)

// Credential is the authentication record, independent of profile data.
// AccountID is resolved through the owning account's foreign key.
type Credential struct {
	ID           string
	AccountID    string
	PasswordHash string
}

// Account is the profile record. Every account references exactly one
// credential; the store cascades credential deletion onto the account.
type Account struct {
	ID           string
	Username     string
	FirstName    string
	LastName     string
	CredentialID string
}

// NewAccount is the input for the atomic credential+account insert. The
// username is stored lower-cased and the password arrives pre-hashed.
type NewAccount struct {
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
}

// Gateway is the record store the handlers run against. Implementations
// bind query parameters, never concatenate them.
type Gateway interface {
	// CredentialByUsername resolves a credential by lower-cased username.
	CredentialByUsername(ctx context.Context, username string) (Credential, error)
	// AccountByID resolves an account, including its username.
	AccountByID(ctx context.Context, id string) (Account, error)
	// CreateAccount inserts the credential and its account in one
	// transaction; neither row persists if either insert fails.
	CreateAccount(ctx context.Context, in NewAccount) (Account, error)
	// Ping reports store reachability for the health check.
	Ping(ctx context.Context) error
}
