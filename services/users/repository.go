package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrDuplicateEmail is returned when the unique email index rejects a write.
var ErrDuplicateEmail = errors.New("email already registered")

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	name          VARCHAR(100) NOT NULL,
	email         VARCHAR(255) NOT NULL,
	password_hash TEXT NOT NULL,
	is_active     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users (LOWER(email));
`

// Repository define a interface para operações de banco de dados de usuários
type Repository interface {
	Migrate(ctx context.Context) error
	CreateUser(ctx context.Context, user *User) error
	// GetUserByID and GetUserByEmail return nil, nil when nothing matches.
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
}

type PostgresUserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) Repository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply users schema: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) CreateUser(ctx context.Context, user *User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, user.ID, user.Name, user.Email, user.PasswordHash, user.IsActive, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", mapError(err))
	}
	return nil
}

func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id string) (*User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *PostgresUserRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, `WHERE LOWER(email) = LOWER($1)`, email)
}

func (r *PostgresUserRepository) UpdateUser(ctx context.Context, user *User) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET name = $2, email = $3, password_hash = $4, is_active = $5, updated_at = $6
		WHERE id = $1
	`, user.ID, user.Name, user.Email, user.PasswordHash, user.IsActive, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", mapError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", user.ID)
	}
	return nil
}

func (r *PostgresUserRepository) getOne(ctx context.Context, where string, arg any) (*User, error) {
	var u User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, is_active, created_at, updated_at
		FROM users `+where, arg).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// mapError turns a unique violation into ErrDuplicateEmail.
func mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrDuplicateEmail
	}
	return err
}
