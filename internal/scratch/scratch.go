// Package scratch manages the local staging area that holds uploaded files
// between receipt and remote-upload completion. Files are written under
// collision-resistant generated names so concurrent requests can never
// overwrite one another, and they are deleted again before the request
// that staged them completes.
package scratch

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// File is a staged upload awaiting transfer to object storage.
// It is owned by the request that staged it and must not outlive it.
type File struct {
	Field        string
	Path         string
	OriginalName string
	ContentType  string
	Size         int64
}

// Dir is a scratch directory shared by concurrent requests.
type Dir struct {
	root string
}

// New ensures the scratch directory exists and returns a handle to it.
func New(root string) (*Dir, error) {
	if root == "" {
		return nil, fmt.Errorf("scratch dir is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &Dir{root: root}, nil
}

// Root returns the scratch directory path.
func (d *Dir) Root() string {
	return d.root
}

// Save materializes one multipart file part to the scratch directory.
// The stored name is UUID + original extension, never the client-supplied
// filename.
func (d *Dir) Save(fh *multipart.FileHeader, field string) (*File, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open multipart file: %w", err)
	}
	defer src.Close()

	name := uuid.New().String() + filepath.Ext(fh.Filename)
	path := filepath.Join(d.root, name)

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create scratch file: %w", err)
	}

	n, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write scratch file: %w", err)
	}

	return &File{
		Field:        field,
		Path:         path,
		OriginalName: fh.Filename,
		ContentType:  fh.Header.Get("Content-Type"),
		Size:         n,
	}, nil
}

// Remove deletes a staged file. A file that is already gone is treated as
// success so cleanup can run on every exit path without masking earlier
// errors.
func (d *Dir) Remove(f *File) error {
	if f == nil {
		return nil
	}
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove scratch file: %w", err)
	}
	return nil
}
