package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const uniqueViolation = "23505"

// PG implements Gateway on PostgreSQL.
type PG struct {
	db *sql.DB
}

var _ Gateway = (*PG)(nil)

// Open connects to PostgreSQL with pool defaults tuned for a small service.
func Open(dsn string) (*PG, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &PG{db: db}, nil
}

// NewPG wraps an existing handle; used by tests.
func NewPG(db *sql.DB) *PG { return &PG{db: db} }

func (s *PG) Close() error { return s.db.Close() }

func (s *PG) DB() *sql.DB { return s.db }

func (s *PG) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *PG) CredentialByUsername(ctx context.Context, username string) (Credential, error) {
	var cred Credential
	var accountID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		select credential.id, credential.password, account.id
		from credential
			left outer join account on credential.id = account.credential_id
		where credential.username = lower($1)
		limit 1
	`, username).Scan(&cred.ID, &cred.PasswordHash, &accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return Credential{}, ErrNotFound
	}
	if err != nil {
		return Credential{}, err
	}
	if accountID.Valid {
		cred.AccountID = accountID.String
	}
	return cred, nil
}

func (s *PG) AccountByID(ctx context.Context, id string) (Account, error) {
	var acct Account
	err := s.db.QueryRowContext(ctx, `
		select account.id, credential.username, account.first_name, account.last_name, account.credential_id
		from account
			inner join credential on account.credential_id = credential.id
		where account.id = $1
		limit 1
	`, id).Scan(&acct.ID, &acct.Username, &acct.FirstName, &acct.LastName, &acct.CredentialID)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, err
	}
	return acct, nil
}

func (s *PG) CreateAccount(ctx context.Context, in NewAccount) (Account, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Account{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var credentialID string
	err = tx.QueryRowContext(ctx, `
		insert into credential (username, password)
		values (lower($1), $2)
		returning id
	`, in.Username, in.PasswordHash).Scan(&credentialID)
	if err != nil {
		return Account{}, translateInsertError(err)
	}

	var accountID string
	err = tx.QueryRowContext(ctx, `
		insert into account (first_name, last_name, credential_id)
		values ($1, $2, $3)
		returning id
	`, in.FirstName, in.LastName, credentialID).Scan(&accountID)
	if err != nil {
		return Account{}, translateInsertError(err)
	}

	if err := tx.Commit(); err != nil {
		return Account{}, err
	}

	return Account{
		ID:           accountID,
		Username:     strings.ToLower(in.Username),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		CredentialID: credentialID,
	}, nil
}

func translateInsertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateUsername
	}
	return err
}
