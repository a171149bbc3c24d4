package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dsemenov/sentence-board/internal/models"
)

// Errors reported by the stores.
var (
	ErrNotFound      = errors.New("not found")
	ErrUsernameTaken = errors.New("username already taken")
	ErrEmailTaken    = errors.New("email already registered")
)

const uniqueViolation = "23505"

// PostgresStore handles account persistence against PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the users table and its uniqueness indexes. Uniqueness
// lives in the store so a concurrent duplicate registration surfaces as a
// conflict instead of a second row.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username   VARCHAR(50),
			email      VARCHAR(255),
			password   VARCHAR(255),
			google_id  VARCHAR(255),
			thumbnail  TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (password IS NOT NULL OR google_id IS NOT NULL)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_username_key
			ON users (LOWER(username)) WHERE username IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_email_key
			ON users (email) WHERE email IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_google_id_key
			ON users (google_id) WHERE google_id IS NOT NULL`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate users: %w", err)
		}
	}
	return nil
}

// CreateLocal inserts a password-based account. The email is stored
// lowercase. Unique index violations come back as ErrUsernameTaken or
// ErrEmailTaken.
func (s *PostgresStore) CreateLocal(ctx context.Context, username, email, hashedPassword, thumbnail string) (*models.Account, error) {
	a := &models.Account{
		Username:  username,
		Email:     strings.ToLower(email),
		Password:  hashedPassword,
		Thumbnail: thumbnail,
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password, thumbnail)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		a.Username, a.Email, a.Password, a.Thumbnail,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return nil, mapUniqueViolation(err)
	}
	return a, nil
}

// CreateFederated inserts a Google-backed account. email may be nil when
// the provider does not share one.
func (s *PostgresStore) CreateFederated(ctx context.Context, googleID, username string, email *string, thumbnail string) (*models.Account, error) {
	a := &models.Account{
		Username:  username,
		GoogleID:  googleID,
		Thumbnail: thumbnail,
	}
	if email != nil {
		a.Email = strings.ToLower(*email)
	}
	var emailArg *string
	if email != nil {
		emailArg = &a.Email
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, google_id, thumbnail)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		a.Username, emailArg, a.GoogleID, a.Thumbnail,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return nil, mapUniqueViolation(err)
	}
	return a, nil
}

const accountColumns = `id, COALESCE(username, ''), COALESCE(email, ''),
	COALESCE(password, ''), COALESCE(google_id, ''), thumbnail, created_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.Password, &a.GoogleID, &a.Thumbnail, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// GetByLogin finds the single account whose username matches login
// case-insensitively or whose email equals login lowercased. Zero or more
// than one match both report ErrNotFound.
func (s *PostgresStore) GetByLogin(ctx context.Context, login string) (*models.Account, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+accountColumns+` FROM users
		 WHERE LOWER(username) = LOWER($1) OR email = LOWER($1)
		 LIMIT 2`, login)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(matches) != 1 {
		return nil, ErrNotFound
	}
	return matches[0], nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return scanAccount(s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM users WHERE id = $1`, id))
}

func (s *PostgresStore) GetByGoogleID(ctx context.Context, googleID string) (*models.Account, error) {
	return scanAccount(s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM users WHERE google_id = $1`, googleID))
}

// UpdateThumbnail points the account's thumbnail at a new URL.
func (s *PostgresStore) UpdateThumbnail(ctx context.Context, id, url string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET thumbnail = $2 WHERE id = $1`, id, url)
	if err != nil {
		return fmt.Errorf("update thumbnail: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// mapUniqueViolation translates a 23505 on one of the users indexes into
// the matching conflict error; everything else is wrapped unchanged.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case "users_username_key":
			return ErrUsernameTaken
		case "users_email_key":
			return ErrEmailTaken
		}
	}
	return fmt.Errorf("create user: %w", err)
}
