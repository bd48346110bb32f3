// Package userstore provides a SQLite-backed implementation of the
// auth.Directory capability. It is host-application plumbing: the façade
// core never persists anything itself, but the injected user-lookup
// collaborator has to live somewhere.
package userstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/quaylabs/syncgate/internal/auth"
)

// schema holds the accounts table. Roles are stored as a comma-separated
// list; the set is small and only ever read back whole.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	roles         TEXT NOT NULL DEFAULT '',
	is_active     INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_accounts_username ON accounts(username);
`

// Account is a stored user. It implements auth.User.
type Account struct {
	AccountID string
	Username  string
	roles     []string
}

// ID returns the account's stable identifier.
func (a *Account) ID() string { return a.AccountID }

// Roles returns the account's role names.
func (a *Account) Roles() []string { return a.roles }

// Store is a SQLite-backed auth.Directory.
type Store struct {
	db *sql.DB
}

// Open creates or opens the account database at the given path. Use
// ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening account database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating account schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts a new account with the given plaintext password, which is
// hashed with Argon2id before storage. The id is generated if empty.
func (s *Store) Create(ctx context.Context, id, username, password string, roles []string) (*Account, error) {
	if id == "" {
		id = "usr-" + uuid.NewString()[:8]
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, username, password_hash, roles, is_active) VALUES (?, ?, ?, ?, 1)`,
		id, username, hash, strings.Join(roles, ","),
	)
	if err != nil {
		return nil, fmt.Errorf("creating account: %w", err)
	}

	return &Account{AccountID: id, Username: username, roles: roles}, nil
}

// Authenticate implements auth.Directory. It verifies the password against
// the stored Argon2id hash and returns auth.ErrInvalidCredentials for an
// unknown username, wrong password, or inactive account alike.
func (s *Store) Authenticate(ctx context.Context, username, password string) (auth.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, roles, is_active FROM accounts WHERE username = ?`, username)

	var (
		account Account
		hash    string
		roles   string
		active  int
	)
	if err := row.Scan(&account.AccountID, &account.Username, &hash, &roles, &active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("querying account: %w", err)
	}

	ok, err := auth.VerifyPassword(password, hash)
	if err != nil || !ok {
		return nil, auth.ErrInvalidCredentials
	}
	if active == 0 {
		return nil, auth.ErrInvalidCredentials
	}

	account.roles = splitRoles(roles)
	return &account, nil
}

// Lookup implements auth.Directory, resolving a subject id from a verified
// token to an account.
func (s *Store) Lookup(ctx context.Context, id string) (auth.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, roles, is_active FROM accounts WHERE id = ?`, id)

	var (
		account Account
		roles   string
		active  int
	)
	if err := row.Scan(&account.AccountID, &account.Username, &roles, &active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("querying account: %w", err)
	}
	if active == 0 {
		return nil, auth.ErrUserInactive
	}

	account.roles = splitRoles(roles)
	return &account, nil
}

// SetActive enables or disables an account.
func (s *Store) SetActive(ctx context.Context, id string, active bool) error {
	val := 0
	if active {
		val = 1
	}
	result, err := s.db.ExecContext(ctx, `UPDATE accounts SET is_active = ? WHERE id = ?`, val, id)
	if err != nil {
		return fmt.Errorf("updating account: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

// Count returns the number of stored accounts, for seed-on-first-run checks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting accounts: %w", err)
	}
	return n, nil
}

func splitRoles(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
