package uploads_test

import (
	"os"
	"path/filepath"
	"testing"

	"healthportal/backend/internal/config"
	"healthportal/backend/internal/uploads"
	"healthportal/backend/internal/uploads/uploadstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"report.pdf":            "report.pdf",
		"../../etc/passwd":      "passwd",
		`C:\Users\kim\scan.png`: "scan.png",
		"my file.txt":           "my_file.txt",
		"...":                   "",
		"보건소 안내.hwp":            "보건소_안내.hwp",
		".hidden":               "hidden",
	}
	for in, want := range cases {
		assert.Equal(t, want, uploads.SanitizeName(in), in)
	}
}

func TestCheck(t *testing.T) {
	store := &uploads.Store{Dir: t.TempDir(), Allowed: config.PostAttachmentExtensions}

	name, err := store.Check(uploadstest.FileHeader(t, "Result.PDF", []byte("%PDF-1.4")))
	require.NoError(t, err)
	assert.Equal(t, "Result.PDF", name)

	_, err = store.Check(uploadstest.FileHeader(t, "run.exe", []byte("MZ")))
	assert.ErrorIs(t, err, uploads.ErrNotAllowed)

	_, err = store.Check(uploadstest.FileHeader(t, "..", []byte("x")))
	assert.ErrorIs(t, err, uploads.ErrEmptyName)
}

func TestStoresFromConfig(t *testing.T) {
	cfg := config.Config{PostUploadDir: t.TempDir(), ProfileUploadDir: t.TempDir()}

	posts := uploads.NewPostStore(cfg)
	_, err := posts.Check(uploadstest.FileHeader(t, "notice.hwp", []byte("x")))
	assert.NoError(t, err)
	_, err = posts.Check(uploadstest.FileHeader(t, "avatar.webp", []byte("x")))
	assert.ErrorIs(t, err, uploads.ErrNotAllowed)

	profiles := uploads.NewProfileStore(cfg)
	_, err = profiles.Check(uploadstest.FileHeader(t, "avatar.webp", []byte("x")))
	assert.NoError(t, err)
	_, err = profiles.Check(uploadstest.FileHeader(t, "cv.pdf", []byte("%PDF-1.4")))
	assert.ErrorIs(t, err, uploads.ErrNotAllowed)
}

func TestSaveAndRemove(t *testing.T) {
	dir := t.TempDir()
	store := &uploads.Store{Dir: filepath.Join(dir, "profiles"), Allowed: config.ProfileImageExtensions}

	saved, err := store.Save(uploadstest.FileHeader(t, "me.PNG", uploadstest.PNG))
	require.NoError(t, err)

	assert.Equal(t, "me.PNG", saved.OriginalName)
	assert.NotEqual(t, saved.OriginalName, saved.StoredName)
	assert.Equal(t, ".png", filepath.Ext(saved.StoredName))
	assert.Equal(t, "image/png", saved.MimeType)
	assert.Equal(t, int64(len(uploadstest.PNG)), saved.Size)

	path, err := store.Path(saved.StoredName)
	require.NoError(t, err)
	assert.FileExists(t, path)

	require.NoError(t, store.Remove(saved.StoredName))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, store.Remove(saved.StoredName), "removing twice is fine")
}

func TestSave_UniqueNames(t *testing.T) {
	store := &uploads.Store{Dir: t.TempDir(), Allowed: config.PostAttachmentExtensions}

	a, err := store.Save(uploadstest.FileHeader(t, "same.txt", []byte("a")))
	require.NoError(t, err)
	b, err := store.Save(uploadstest.FileHeader(t, "same.txt", []byte("b")))
	require.NoError(t, err)

	assert.NotEqual(t, a.StoredName, b.StoredName)
}

func TestPath_RejectsTraversal(t *testing.T) {
	store := &uploads.Store{Dir: t.TempDir()}
	for _, name := range []string{"", "..", "../x.png", "a/b.png", `a\b.png`} {
		_, err := store.Path(name)
		assert.ErrorIs(t, err, uploads.ErrInvalidStored, name)
	}
}
