package model

import "time"

// Package model contains domain models/data structures.
// These are pure domain types with no database-specific dependencies or tags,
// usable across layers (HTTP, service, storage) without coupling to persistence.

// User represents a registered account.
// Password holds a bcrypt hash set by the persistence layer and, like
// RefreshToken, is never serialized into a response body.
type User struct {
	ID            string    `json:"id"`
	FullName      string    `json:"fullName"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	Password      string    `json:"-"`
	RefreshToken  string    `json:"-"`
	AvatarURL     string    `json:"avatar"`
	CoverImageURL string    `json:"coverImage"`
	CreatedAt     time.Time `json:"createdAt"`
}

// RegistrationRequest carries the textual fields of a new-account request.
// All four fields are required non-blank after trimming.
type RegistrationRequest struct {
	FullName string `json:"fullName" form:"fullName"`
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// UploadedMedia describes a file that has been pushed to durable object
// storage. The account record references the URL; the object itself is
// owned by the blob store.
type UploadedMedia struct {
	URL string `json:"url"`
	Key string `json:"key"`
}
