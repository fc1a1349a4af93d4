package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"accountapi/internal/model"
	"accountapi/internal/repository"
)

// UserPostgres is a PostgreSQL implementation of repository.UserRepository.
// It uses database/sql with parameterized queries and contains no business logic
// beyond credential hashing, which belongs to the persistence layer.
type UserPostgres struct {
	db *sql.DB
}

// NewUserPostgres creates a new UserPostgres repository.
func NewUserPostgres(db *sql.DB) *UserPostgres {
	return &UserPostgres{db: db}
}

var _ repository.UserRepository = (*UserPostgres)(nil)

// IsNoRowsError reports whether err means the query matched no rows.
func IsNoRowsError(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// FindByUsernameOrEmail fetches one account colliding on either identity key.
func (r *UserPostgres) FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error) {
	const q = `
		SELECT id, full_name, username, email, password, refresh_token, avatar_url, cover_image_url, created_at
		FROM users
		WHERE username = $1 OR email = $2
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, q, username, email)
	var u model.User
	if err := row.Scan(
		&u.ID,
		&u.FullName,
		&u.Username,
		&u.Email,
		&u.Password,
		&u.RefreshToken,
		&u.AvatarURL,
		&u.CoverImageURL,
		&u.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts a new account row and returns the stored record.
// The password is stored as a bcrypt hash, never as plaintext.
func (r *UserPostgres) Create(ctx context.Context, user *model.User) (*model.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	const q = `
		INSERT INTO users (id, full_name, username, email, password, refresh_token, avatar_url, cover_image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, full_name, username, email, avatar_url, cover_image_url, created_at
	`
	row := r.db.QueryRowContext(ctx, q,
		user.ID,
		user.FullName,
		user.Username,
		user.Email,
		string(hashed),
		user.RefreshToken,
		user.AvatarURL,
		user.CoverImageURL,
		user.CreatedAt,
	)
	var out model.User
	if err := row.Scan(
		&out.ID,
		&out.FullName,
		&out.Username,
		&out.Email,
		&out.AvatarURL,
		&out.CoverImageURL,
		&out.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindPublicByID fetches a single account by ID. The column list
// deliberately excludes password and refresh_token.
func (r *UserPostgres) FindPublicByID(ctx context.Context, id string) (*model.User, error) {
	const q = `
		SELECT id, full_name, username, email, avatar_url, cover_image_url, created_at
		FROM users
		WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, q, id)
	var u model.User
	if err := row.Scan(
		&u.ID,
		&u.FullName,
		&u.Username,
		&u.Email,
		&u.AvatarURL,
		&u.CoverImageURL,
		&u.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}
