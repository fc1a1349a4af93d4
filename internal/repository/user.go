package repository

// Package repository contains data access layer abstractions.
// Implementations live in subpackages (e.g. postgres) inside this directory.

import (
	"context"

	"accountapi/internal/model"
)

// UserRepository defines data access for accounts using SQL queries only.
// No business logic here — strictly persistence operations.
type UserRepository interface {
	// FindByUsernameOrEmail returns the first account whose username OR
	// email matches. The caller passes the username already lower-cased;
	// the email is compared with its original case. Returns (nil, nil)
	// when no account matches.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error)

	// Create inserts a new account record. The plaintext password on the
	// input is hashed by the implementation before it reaches the
	// database. Returns the stored record.
	Create(ctx context.Context, user *model.User) (*model.User, error)

	// FindPublicByID returns an account by ID with the password and
	// refresh-token credentials excluded from the selected columns.
	// Returns sql.ErrNoRows when the record does not exist.
	FindPublicByID(ctx context.Context, id string) (*model.User, error)
}
