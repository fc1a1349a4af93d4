package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"accountapi/internal/apperr"
	"accountapi/internal/model"
	"accountapi/internal/repository"
	"accountapi/internal/scratch"
	"accountapi/internal/storage"
)

// Multipart field names of the two media slots.
const (
	FieldAvatar     = "avatar"
	FieldCoverImage = "coverImage"
)

// RegistrationService defines the use case for creating a new account.
type RegistrationService interface {
	// Register runs the full pipeline: validate → uniqueness check →
	// media upload (avatar mandatory, cover image optional) → persist →
	// consistency re-read. files maps multipart field names to staged
	// scratch files; every staged file is deleted before Register
	// returns, on success and on every failure path.
	Register(ctx context.Context, req model.RegistrationRequest, files map[string]*scratch.File) (*model.User, error)
}

// registrationService is a concrete implementation of RegistrationService.
type registrationService struct {
	store         storage.Storage
	repo          repository.UserRepository
	staging       *scratch.Dir
	uploadTimeout time.Duration
}

// NewRegistrationService constructs a new RegistrationService.
// uploadTimeout bounds each remote upload attempt; zero disables the bound.
func NewRegistrationService(store storage.Storage, repo repository.UserRepository, staging *scratch.Dir, uploadTimeout time.Duration) RegistrationService {
	return &registrationService{store: store, repo: repo, staging: staging, uploadTimeout: uploadTimeout}
}

func (s *registrationService) Register(ctx context.Context, req model.RegistrationRequest, files map[string]*scratch.File) (*model.User, error) {
	// Scratch cleanup is unconditional: whatever the uploader has not
	// already consumed is swept here. Remove treats a missing file as
	// success, so this never masks the error being returned.
	defer func() {
		for _, f := range files {
			_ = s.staging.Remove(f)
		}
	}()

	if err := validate(req, files); err != nil {
		return nil, err
	}

	// Username is normalized to lower case for comparison and storage;
	// email keeps its original case. The asymmetry is intentional.
	username := strings.ToLower(strings.TrimSpace(req.Username))
	email := strings.TrimSpace(req.Email)

	existing, err := s.repo.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if existing != nil {
		return nil, apperr.Conflict("user with username or email already exists")
	}

	// Uploads run only after the uniqueness check so duplicate
	// registrations never consume upload bandwidth or remote storage.
	avatar := s.uploadMedia(ctx, files[FieldAvatar])
	if avatar == nil {
		return nil, apperr.Upload("avatar upload failed")
	}

	coverURL := ""
	if cover := s.uploadMedia(ctx, files[FieldCoverImage]); cover != nil {
		coverURL = cover.URL
	}

	user := &model.User{
		ID:            uuid.New().String(),
		FullName:      strings.TrimSpace(req.FullName),
		Username:      username,
		Email:         email,
		Password:      req.Password,
		AvatarURL:     avatar.URL,
		CoverImageURL: coverURL,
		CreatedAt:     time.Now().UTC(),
	}
	if _, err := s.repo.Create(ctx, user); err != nil {
		// The avatar (and cover) objects stay behind in the blob store
		// here; there is no distributed transaction spanning both stores.
		return nil, fmt.Errorf("create user: %w", err)
	}

	// Re-read with credentials excluded, guarding against a write that
	// silently did not take effect.
	created, err := s.repo.FindPublicByID(ctx, user.ID)
	if err != nil || created == nil {
		return nil, apperr.Persistence("something went wrong while registering the user")
	}
	return created, nil
}

// validate checks the textual fields and the mandatory avatar slot.
// It performs no cleanup; that is centralized in Register.
func validate(req model.RegistrationRequest, files map[string]*scratch.File) error {
	var details []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"fullName", req.FullName},
		{"username", req.Username},
		{"email", req.Email},
		{"password", req.Password},
	} {
		if strings.TrimSpace(f.value) == "" {
			details = append(details, f.name+" is required")
		}
	}
	if len(details) > 0 {
		return apperr.Validation("all fields are required", details...)
	}
	if files[FieldAvatar] == nil {
		return apperr.Validation("avatar file is required")
	}
	return nil
}
