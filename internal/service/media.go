package service

import (
	"context"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"accountapi/internal/model"
	"accountapi/internal/scratch"
	"accountapi/internal/storage"
)

// uploadMedia pushes one staged file to the blob store and returns the
// resulting media reference. It returns nil ("no media") on any failure
// instead of an error, leaving the per-field policy to the caller: a nil
// avatar is fatal, a nil cover image is tolerated.
//
// The scratch file is removed after the attempt on both the success and
// the failure path; a leaked temporary file is a defect. A single attempt
// is made per file, never a retry.
func (s *registrationService) uploadMedia(ctx context.Context, f *scratch.File) *model.UploadedMedia {
	if f == nil {
		return nil
	}
	defer func() {
		_ = s.staging.Remove(f)
	}()

	src, err := os.Open(f.Path)
	if err != nil {
		return nil
	}
	defer src.Close()

	contentType := detectContentType(src, f.ContentType)

	if s.uploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.uploadTimeout)
		defer cancel()
	}

	// Keyed by field and the staged (UUID-based) name, so concurrent
	// uploads of identically named client files never collide remotely.
	key := path.Join("media", f.Field, filepath.Base(f.Path))
	info, err := s.store.Put(ctx, key, src, storage.PutObjectOptions{
		Size:        f.Size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": f.OriginalName,
		},
	})
	if err != nil {
		return nil
	}

	return &model.UploadedMedia{URL: s.store.URL(info.Key), Key: info.Key}
}

// detectContentType sniffs the first 512 bytes of the file and rewinds it.
// The multipart header value is used when sniffing is inconclusive.
func detectContentType(src *os.File, fallback string) string {
	buf := make([]byte, 512)
	n, _ := src.Read(buf)
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		n = 0
	}
	if n == 0 {
		if fallback != "" {
			return fallback
		}
		return "application/octet-stream"
	}
	ct := http.DetectContentType(buf[:n])
	if ct == "application/octet-stream" && fallback != "" {
		return fallback
	}
	return ct
}
