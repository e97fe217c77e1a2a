// Package account implements signup, login, and the current-account lookup.
package account

import (
	"context"
	"errors"
	"strings"

	"accountd/internal/apperr"
	"accountd/internal/store"
)

const (
	msgUnknownCredentials = "Unknown username or password."
	msgUsernameInUse      = "This username is already in use."
	msgCreateFailed       = "Oops, something went wrong creating your account. Please try again later."
	msgAccountNotFound    = "Oops, we could not find the account you requested."
)

// TokenIssuer mints an identity token for a freshly authenticated account.
type TokenIssuer interface {
	Issue(accountID, credentialID string) (string, error)
}

// Auth pairs a newly issued token with its account.
type Auth struct {
	Token   string
	Account store.Account
}

// CreateInput is the signup payload. Username is treated case-insensitively.
type CreateInput struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Credentials is the login payload.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Service wires the persistence gateway, password hasher, and token issuer
// into the three account operations.
type Service struct {
	store  store.Gateway
	hasher Hasher
	tokens TokenIssuer
}

func NewService(gw store.Gateway, hasher Hasher, tokens TokenIssuer) *Service {
	return &Service{store: gw, hasher: hasher, tokens: tokens}
}

// Create registers a new account. The credential and account rows are
// written atomically; a duplicate username surfaces as Conflict and every
// other store failure as a generic internal error that leaks nothing.
func (s *Service) Create(ctx context.Context, in CreateInput) (Auth, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	if username == "" || in.Password == "" {
		return Auth{}, apperr.New(apperr.BadRequest, "Username and password are required.")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Auth{}, apperr.Wrap(apperr.Internal, msgCreateFailed, err)
	}

	acct, err := s.store.CreateAccount(ctx, store.NewAccount{
		Username:     username,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			return Auth{}, apperr.New(apperr.Conflict, msgUsernameInUse)
		}
		return Auth{}, apperr.Wrap(apperr.Internal, msgCreateFailed, err)
	}

	tok, err := s.tokens.Issue(acct.ID, acct.CredentialID)
	if err != nil {
		return Auth{}, apperr.Wrap(apperr.Internal, msgCreateFailed, err)
	}

	return Auth{Token: tok, Account: acct}, nil
}

// Login authenticates a credential. Every failure along the way — unknown
// username, wrong password, a store hiccup — collapses to the same
// BadRequest so callers cannot enumerate usernames. The password comparison
// runs even when no credential exists, against an empty hash.
func (s *Service) Login(ctx context.Context, creds Credentials) (Auth, error) {
	username := strings.ToLower(strings.TrimSpace(creds.Username))

	cred, lookupErr := s.store.CredentialByUsername(ctx, username)

	var hash string
	if lookupErr == nil {
		hash = cred.PasswordHash
	}
	if compareErr := s.hasher.Compare(hash, creds.Password); compareErr != nil || lookupErr != nil {
		return Auth{}, apperr.New(apperr.BadRequest, msgUnknownCredentials)
	}

	acct, err := s.store.AccountByID(ctx, cred.AccountID)
	if err != nil {
		return Auth{}, apperr.Wrap(apperr.BadRequest, msgUnknownCredentials, err)
	}

	tok, err := s.tokens.Issue(acct.ID, acct.CredentialID)
	if err != nil {
		return Auth{}, apperr.Wrap(apperr.BadRequest, msgUnknownCredentials, err)
	}

	return Auth{Token: tok, Account: acct}, nil
}

// Get resolves an account by id for the current-account lookup.
func (s *Service) Get(ctx context.Context, accountID string) (store.Account, error) {
	acct, err := s.store.AccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Account{}, apperr.New(apperr.NotFound, msgAccountNotFound)
		}
		// Anything else is unexpected; the boundary formats it generically.
		return store.Account{}, err
	}
	return acct, nil
}
