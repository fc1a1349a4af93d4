package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"accountapi/internal/apperr"
	"accountapi/internal/model"
	repoMocks "accountapi/internal/repository/mocks"
	"accountapi/internal/scratch"
	"accountapi/internal/storage"
	storeMocks "accountapi/internal/storage/mocks"
)

func validRequest() model.RegistrationRequest {
	return model.RegistrationRequest{
		FullName: "Alice A",
		Username: "Alice",
		Email:    "a@example.com",
		Password: "secret",
	}
}

// stageFile places a file in the scratch dir the way the handler would.
func stageFile(t *testing.T, d *scratch.Dir, field, originalName, content string) *scratch.File {
	t.Helper()
	p := filepath.Join(d.Root(), uuid.New().String()+filepath.Ext(originalName))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return &scratch.File{
		Field:        field,
		Path:         p,
		OriginalName: originalName,
		ContentType:  "image/png",
		Size:         int64(len(content)),
	}
}

func newTestService(t *testing.T) (*storeMocks.MockStorage, *repoMocks.MockUserRepository, *scratch.Dir, RegistrationService) {
	t.Helper()
	d, err := scratch.New(t.TempDir())
	require.NoError(t, err)
	mStore := new(storeMocks.MockStorage)
	mRepo := new(repoMocks.MockUserRepository)
	return mStore, mRepo, d, NewRegistrationService(mStore, mRepo, d, time.Minute)
}

func assertScratchEmpty(t *testing.T, d *scratch.Dir) {
	t.Helper()
	entries, err := os.ReadDir(d.Root())
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch files leaked")
}

func keyFor(field string) any {
	return mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "media/"+field+"/")
	})
}

func TestRegister_Success(t *testing.T) {
	ctx := context.Background()
	mStore, mRepo, d, svc := newTestService(t)

	avatar := stageFile(t, d, FieldAvatar, "me.png", "avatar-bytes")
	cover := stageFile(t, d, FieldCoverImage, "beach.jpg", "cover-bytes")

	mRepo.On("FindByUsernameOrEmail", ctx, "alice", "a@example.com").Return(nil, nil)

	mStore.On("Put", mock.Anything, keyFor(FieldAvatar), mock.Anything, mock.MatchedBy(func(opt storage.PutObjectOptions) bool {
		return opt.Size == int64(len("avatar-bytes")) && opt.Metadata["original-filename"] == "me.png"
	})).Return(storage.ObjectInfo{Key: "media/avatar/x.png"}, nil)
	mStore.On("Put", mock.Anything, keyFor(FieldCoverImage), mock.Anything, mock.Anything).
		Return(storage.ObjectInfo{Key: "media/coverImage/y.jpg"}, nil)
	mStore.On("URL", "media/avatar/x.png").Return("http://blob/media/avatar/x.png")
	mStore.On("URL", "media/coverImage/y.jpg").Return("http://blob/media/coverImage/y.jpg")

	mRepo.On("Create", ctx, mock.MatchedBy(func(u *model.User) bool {
		return u.Username == "alice" && // lower-cased before storage
			u.Email == "a@example.com" &&
			u.AvatarURL == "http://blob/media/avatar/x.png" &&
			u.CoverImageURL == "http://blob/media/coverImage/y.jpg" &&
			u.ID != ""
	})).Return(&model.User{ID: "id-1"}, nil)

	mRepo.On("FindPublicByID", ctx, mock.Anything).Return(&model.User{
		ID:            "id-1",
		FullName:      "Alice A",
		Username:      "alice",
		Email:         "a@example.com",
		AvatarURL:     "http://blob/media/avatar/x.png",
		CoverImageURL: "http://blob/media/coverImage/y.jpg",
	}, nil)

	user, err := svc.Register(ctx, validRequest(), map[string]*scratch.File{
		FieldAvatar:     avatar,
		FieldCoverImage: cover,
	})

	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Empty(t, user.Password)
	assert.Empty(t, user.RefreshToken)

	assertScratchEmpty(t, d)
	mStore.AssertExpectations(t)
	mRepo.AssertExpectations(t)
}

func TestRegister_ValidationErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("blank fields", func(t *testing.T) {
		mStore, mRepo, d, svc := newTestService(t)
		avatar := stageFile(t, d, FieldAvatar, "me.png", "data")

		req := validRequest()
		req.Email = "   "
		req.FullName = ""

		_, err := svc.Register(ctx, req, map[string]*scratch.File{FieldAvatar: avatar})

		var ae *apperr.Error
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, apperr.KindValidation, ae.Kind)
		assert.Contains(t, ae.Details, "fullName is required")
		assert.Contains(t, ae.Details, "email is required")

		// No store lookup, no upload, and no leftover scratch file.
		mRepo.AssertNotCalled(t, "FindByUsernameOrEmail", mock.Anything, mock.Anything, mock.Anything)
		mStore.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		assertScratchEmpty(t, d)
	})

	t.Run("missing avatar", func(t *testing.T) {
		mStore, mRepo, d, svc := newTestService(t)
		cover := stageFile(t, d, FieldCoverImage, "beach.jpg", "data")

		_, err := svc.Register(ctx, validRequest(), map[string]*scratch.File{FieldCoverImage: cover})

		var ae *apperr.Error
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, apperr.KindValidation, ae.Kind)
		assert.Equal(t, "avatar file is required", ae.Message)

		mStore.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		mRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		assertScratchEmpty(t, d)
	})
}

func TestRegister_Conflict(t *testing.T) {
	ctx := context.Background()
	mStore, mRepo, d, svc := newTestService(t)
	avatar := stageFile(t, d, FieldAvatar, "me.png", "data")

	mRepo.On("FindByUsernameOrEmail", ctx, "alice", "a@example.com").
		Return(&model.User{ID: "existing"}, nil)

	_, err := svc.Register(ctx, validRequest(), map[string]*scratch.File{FieldAvatar: avatar})

	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindConflict, ae.Kind)

	// A duplicate registration never consumes upload bandwidth.
	mStore.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assertScratchEmpty(t, d)
}

func TestRegister_AvatarUploadFailure(t *testing.T) {
	ctx := context.Background()
	mStore, mRepo, d, svc := newTestService(t)
	avatar := stageFile(t, d, FieldAvatar, "me.png", "data")
	cover := stageFile(t, d, FieldCoverImage, "beach.jpg", "data")

	mRepo.On("FindByUsernameOrEmail", ctx, "alice", "a@example.com").Return(nil, nil)
	mStore.On("Put", mock.Anything, keyFor(FieldAvatar), mock.Anything, mock.Anything).
		Return(storage.ObjectInfo{}, errors.New("connection reset"))

	_, err := svc.Register(ctx, validRequest(), map[string]*scratch.File{
		FieldAvatar:     avatar,
		FieldCoverImage: cover,
	})

	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindUpload, ae.Kind)

	// Single attempt, no account record, and both staged files removed.
	mStore.AssertNumberOfCalls(t, "Put", 1)
	mRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assertScratchEmpty(t, d)
}

func TestRegister_CoverUploadFailureTolerated(t *testing.T) {
	ctx := context.Background()
	mStore, mRepo, d, svc := newTestService(t)
	avatar := stageFile(t, d, FieldAvatar, "me.png", "data")
	cover := stageFile(t, d, FieldCoverImage, "beach.jpg", "data")

	mRepo.On("FindByUsernameOrEmail", ctx, "alice", "a@example.com").Return(nil, nil)
	mStore.On("Put", mock.Anything, keyFor(FieldAvatar), mock.Anything, mock.Anything).
		Return(storage.ObjectInfo{Key: "media/avatar/x.png"}, nil)
	mStore.On("Put", mock.Anything, keyFor(FieldCoverImage), mock.Anything, mock.Anything).
		Return(storage.ObjectInfo{}, errors.New("connection reset"))
	mStore.On("URL", "media/avatar/x.png").Return("http://blob/media/avatar/x.png")

	mRepo.On("Create", ctx, mock.MatchedBy(func(u *model.User) bool {
		return u.CoverImageURL == "" && u.AvatarURL == "http://blob/media/avatar/x.png"
	})).Return(&model.User{ID: "id-1"}, nil)
	mRepo.On("FindPublicByID", ctx, mock.Anything).Return(&model.User{ID: "id-1", Username: "alice"}, nil)

	user, err := svc.Register(ctx, validRequest(), map[string]*scratch.File{
		FieldAvatar:     avatar,
		FieldCoverImage: cover,
	})

	require.NoError(t, err)
	assert.Equal(t, "id-1", user.ID)
	assertScratchEmpty(t, d)
	mRepo.AssertExpectations(t)
}

func TestRegister_NoCoverImage(t *testing.T) {
	ctx := context.Background()
	mStore, mRepo, d, svc := newTestService(t)
	avatar := stageFile(t, d, FieldAvatar, "me.png", "data")

	mRepo.On("FindByUsernameOrEmail", ctx, "alice", "a@example.com").Return(nil, nil)
	mStore.On("Put", mock.Anything, keyFor(FieldAvatar), mock.Anything, mock.Anything).
		Return(storage.ObjectInfo{Key: "media/avatar/x.png"}, nil)
	mStore.On("URL", "media/avatar/x.png").Return("http://blob/media/avatar/x.png")
	mRepo.On("Create", ctx, mock.MatchedBy(func(u *model.User) bool {
		return u.CoverImageURL == ""
	})).Return(&model.User{ID: "id-1"}, nil)
	mRepo.On("FindPublicByID", ctx, mock.Anything).Return(&model.User{ID: "id-1"}, nil)

	_, err := svc.Register(ctx, validRequest(), map[string]*scratch.File{FieldAvatar: avatar})

	require.NoError(t, err)
	mStore.AssertNumberOfCalls(t, "Put", 1)
	assertScratchEmpty(t, d)
}

func TestRegister_PersistenceFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("re-read yields nothing", func(t *testing.T) {
		mStore, mRepo, d, svc := newTestService(t)
		avatar := stageFile(t, d, FieldAvatar, "me.png", "data")

		mRepo.On("FindByUsernameOrEmail", ctx, "alice", "a@example.com").Return(nil, nil)
		mStore.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(storage.ObjectInfo{Key: "media/avatar/x.png"}, nil)
		mStore.On("URL", mock.Anything).Return("http://blob/media/avatar/x.png")
		mRepo.On("Create", ctx, mock.Anything).Return(&model.User{ID: "id-1"}, nil)
		mRepo.On("FindPublicByID", ctx, mock.Anything).Return(nil, sql.ErrNoRows)

		_, err := svc.Register(ctx, validRequest(), map[string]*scratch.File{FieldAvatar: avatar})

		var ae *apperr.Error
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, apperr.KindPersistence, ae.Kind)
		assertScratchEmpty(t, d)
	})

	t.Run("create failure is an unknown error", func(t *testing.T) {
		mStore, mRepo, d, svc := newTestService(t)
		avatar := stageFile(t, d, FieldAvatar, "me.png", "data")

		mRepo.On("FindByUsernameOrEmail", ctx, "alice", "a@example.com").Return(nil, nil)
		mStore.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(storage.ObjectInfo{Key: "media/avatar/x.png"}, nil)
		mStore.On("URL", mock.Anything).Return("http://blob/media/avatar/x.png")
		mRepo.On("Create", ctx, mock.Anything).Return(nil, errors.New("unique violation"))

		_, err := svc.Register(ctx, validRequest(), map[string]*scratch.File{FieldAvatar: avatar})

		require.Error(t, err)
		assert.Equal(t, apperr.KindUnknown, apperr.From(err).Kind)
		assertScratchEmpty(t, d)
	})
}

func TestRegister_ConcurrentRequestsKeepSeparateScratchFiles(t *testing.T) {
	ctx := context.Background()
	mStore, mRepo, d, svc := newTestService(t)

	mRepo.On("FindByUsernameOrEmail", ctx, mock.Anything, mock.Anything).Return(nil, nil)
	mStore.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(storage.ObjectInfo{Key: "media/avatar/x.png"}, nil)
	mStore.On("URL", mock.Anything).Return("http://blob/media/avatar/x.png")
	mRepo.On("Create", ctx, mock.Anything).Return(&model.User{ID: "id"}, nil)
	mRepo.On("FindPublicByID", ctx, mock.Anything).Return(&model.User{ID: "id"}, nil)

	// Same client-side filename in both requests; staged names differ.
	a := stageFile(t, d, FieldAvatar, "photo.png", "first")
	b := stageFile(t, d, FieldAvatar, "photo.png", "second")
	require.NotEqual(t, a.Path, b.Path)

	done := make(chan error, 2)
	for _, f := range []*scratch.File{a, b} {
		go func(f *scratch.File) {
			req := validRequest()
			req.Username = req.Username + filepath.Base(f.Path)
			req.Email = filepath.Base(f.Path) + "@example.com"
			_, err := svc.Register(ctx, req, map[string]*scratch.File{FieldAvatar: f})
			done <- err
		}(f)
	}
	for i := 0; i < 2; i++ {
		assert.NoError(t, <-done)
	}

	assertScratchEmpty(t, d)
}

func TestDetectContentType(t *testing.T) {
	dir := t.TempDir()

	t.Run("sniffs known types", func(t *testing.T) {
		p := filepath.Join(dir, "img.png")
		require.NoError(t, os.WriteFile(p, []byte("\x89PNG\r\n\x1a\nrest"), 0o644))
		f, err := os.Open(p)
		require.NoError(t, err)
		defer f.Close()

		assert.Equal(t, "image/png", detectContentType(f, "application/octet-stream"))

		// The reader is rewound for the subsequent upload.
		pos, err := f.Seek(0, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(0), pos)
	})

	t.Run("falls back to header for opaque bytes", func(t *testing.T) {
		p := filepath.Join(dir, "blob.bin")
		require.NoError(t, os.WriteFile(p, []byte{0x00, 0x01, 0x02, 0x03}, 0o644))
		f, err := os.Open(p)
		require.NoError(t, err)
		defer f.Close()

		assert.Equal(t, "image/webp", detectContentType(f, "image/webp"))
	})

	t.Run("empty file", func(t *testing.T) {
		p := filepath.Join(dir, "empty")
		require.NoError(t, os.WriteFile(p, nil, 0o644))
		f, err := os.Open(p)
		require.NoError(t, err)
		defer f.Close()

		assert.Equal(t, "application/octet-stream", detectContentType(f, ""))
	})
}
