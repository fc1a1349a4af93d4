package scratch

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fileHeader builds a real *multipart.FileHeader the way a server would
// receive it, so Save is exercised against the production types.
func fileHeader(t *testing.T, field, filename, content string) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))

	fhs := req.MultipartForm.File[field]
	require.Len(t, fhs, 1)
	return fhs[0]
}

func TestNew(t *testing.T) {
	t.Run("creates missing directory", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "nested", "temp")
		d, err := New(root)
		require.NoError(t, err)
		assert.Equal(t, root, d.Root())

		info, err := os.Stat(root)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("empty root rejected", func(t *testing.T) {
		_, err := New("")
		assert.Error(t, err)
	})
}

func TestSave(t *testing.T) {
	d, err := New(t.TempDir())
	require.NoError(t, err)

	fh := fileHeader(t, "avatar", "me.png", "png-bytes")

	f, err := d.Save(fh, "avatar")
	require.NoError(t, err)

	assert.Equal(t, "avatar", f.Field)
	assert.Equal(t, "me.png", f.OriginalName)
	assert.Equal(t, int64(len("png-bytes")), f.Size)

	// Stored under a generated name, not the client-supplied one.
	assert.NotEqual(t, "me.png", filepath.Base(f.Path))
	assert.Equal(t, ".png", filepath.Ext(f.Path))

	content, err := os.ReadFile(f.Path)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(content))
}

func TestSaveUniqueNames(t *testing.T) {
	d, err := New(t.TempDir())
	require.NoError(t, err)

	// Two uploads with the same original filename must never collide.
	a, err := d.Save(fileHeader(t, "avatar", "photo.jpg", "first"), "avatar")
	require.NoError(t, err)
	b, err := d.Save(fileHeader(t, "avatar", "photo.jpg", "second"), "avatar")
	require.NoError(t, err)

	assert.NotEqual(t, a.Path, b.Path)

	first, _ := os.ReadFile(a.Path)
	second, _ := os.ReadFile(b.Path)
	assert.Equal(t, "first", string(first))
	assert.Equal(t, "second", string(second))
}

func TestRemove(t *testing.T) {
	d, err := New(t.TempDir())
	require.NoError(t, err)

	f, err := d.Save(fileHeader(t, "coverImage", "cover.jpg", "data"), "coverImage")
	require.NoError(t, err)

	require.NoError(t, d.Remove(f))
	_, statErr := os.Stat(f.Path)
	assert.True(t, os.IsNotExist(statErr))

	// Removing again (or removing nil) is not an error.
	assert.NoError(t, d.Remove(f))
	assert.NoError(t, d.Remove(nil))
}
