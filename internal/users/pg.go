package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no user exists for the given username.
var ErrNotFound = errors.New("user not found")

// ErrAlreadyExists is returned by Create when the username is taken.
var ErrAlreadyExists = errors.New("user already exists")

// PGRepository is the Postgres-backed user repository.
type PGRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPGRepository(pool *pgxpool.Pool, logger *zap.Logger) *PGRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PGRepository{pool: pool, logger: logger}
}

func (r *PGRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	const q = `
		SELECT id, username, password_hash, role, disabled, created_at, COALESCE(last_login_at, 'epoch'::timestamptz)
		FROM console.users
		WHERE username = $1
		LIMIT 1;
	`

	row := r.pool.QueryRow(ctx, q, username)

	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.Disabled, &u.CreatedAt, &u.LastLoginAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("GetByUsername scan failed: %w", err)
	}

	return &u, nil
}

func (r *PGRepository) Create(ctx context.Context, username, passwordHash, role string) (*User, error) {
	const q = `
		INSERT INTO console.users (username, password_hash, role, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (username) DO NOTHING
		RETURNING id, username, password_hash, role, disabled, created_at;
	`

	row := r.pool.QueryRow(ctx, q, username, passwordHash, role)

	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.Disabled, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user [%s]: %w", username, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("Create scan failed: %w", err)
	}

	return &u, nil
}

func (r *PGRepository) TouchLastLogin(ctx context.Context, username string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE console.users
		SET last_login_at = NOW()
		WHERE username = $1;
	`, username)
	if err != nil {
		r.logger.Error("users.pg.touch_last_login_failed", zap.Error(err))
	}
	return err
}
