// Package uploads stores user files on disk under random names.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"healthportal/backend/internal/config"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrEmptyName     = errors.New("upload has no usable file name")
	ErrNotAllowed    = errors.New("file type is not allowed")
	ErrInvalidStored = errors.New("invalid stored file name")
)

// Store writes files into Dir. Only extensions listed in Allowed are accepted.
type Store struct {
	Dir     string
	Allowed map[string]bool
}

// Saved describes a file written by Save.
type Saved struct {
	OriginalName string
	StoredName   string
	MimeType     string
	Size         int64
}

func NewPostStore(cfg config.Config) *Store {
	return &Store{Dir: cfg.PostUploadDir, Allowed: config.PostAttachmentExtensions}
}

func NewProfileStore(cfg config.Config) *Store {
	return &Store{Dir: cfg.ProfileUploadDir, Allowed: config.ProfileImageExtensions}
}

// SanitizeName strips any directory part and characters that are unsafe in a
// display name.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r), r == '/', r == ':', r == '"', r == '<', r == '>', r == '|', r == '*', r == '?':
			return -1
		case unicode.IsSpace(r):
			return '_'
		}
		return r
	}, name)
	name = strings.Trim(name, "._")
	if name == "" || name == "." {
		return ""
	}
	return name
}

// Check validates the name and extension of fh without reading its content.
func (s *Store) Check(fh *multipart.FileHeader) (string, error) {
	name := SanitizeName(fh.Filename)
	if name == "" {
		return "", ErrEmptyName
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !s.Allowed[ext] {
		return "", fmt.Errorf("%w: %q", ErrNotAllowed, ext)
	}
	return name, nil
}

// Save checks fh and copies it to Dir under uuid+ext.
func (s *Store) Save(fh *multipart.FileHeader) (Saved, error) {
	name, err := s.Check(fh)
	if err != nil {
		return Saved{}, err
	}

	src, err := fh.Open()
	if err != nil {
		return Saved{}, err
	}
	defer src.Close()

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return Saved{}, err
	}
	stored := uuid.NewString() + strings.ToLower(filepath.Ext(name))
	path := filepath.Join(s.Dir, stored)

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return Saved{}, err
	}
	size, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return Saved{}, err
	}

	mime := "application/octet-stream"
	if m, err := mimetype.DetectFile(path); err == nil {
		mime = m.String()
	}
	return Saved{OriginalName: name, StoredName: stored, MimeType: mime, Size: size}, nil
}

// Path resolves a stored name inside Dir. Names containing path elements are
// rejected.
func (s *Store) Path(stored string) (string, error) {
	if stored == "" || stored != filepath.Base(stored) || strings.ContainsAny(stored, `/\`) || stored == ".." {
		return "", ErrInvalidStored
	}
	return filepath.Join(s.Dir, stored), nil
}

// Remove deletes a stored file. A missing file is not an error.
func (s *Store) Remove(stored string) error {
	path, err := s.Path(stored)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
