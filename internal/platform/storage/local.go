package storage

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	// ErrUnsupportedType is returned for uploads outside the image allowlist.
	ErrUnsupportedType = errors.New("storage: unsupported file type")
	// ErrNotFound is returned when a stored image does not exist.
	ErrNotFound = errors.New("storage: file not found")
)

// allowedExtensions lists the accepted image upload extensions.
var allowedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".svg":  {},
	".webp": {},
}

// ImageStore persists uploaded product images and resolves their public URLs.
type ImageStore interface {
	Save(filename string, content io.Reader) (string, error)
	Delete(filename string) error
	Open(filename string) (io.ReadCloser, error)
	URL(filename string) string
}

// LocalImageStore stores images on the local filesystem below a single
// directory, the way the upload folder of a small deployment works.
type LocalImageStore struct {
	dir           string
	publicBaseURL string
	entropy       io.Reader
	clock         func() time.Time
}

// LocalImageStoreConfig configures the LocalImageStore.
type LocalImageStoreConfig struct {
	Dir           string
	PublicBaseURL string
	Entropy       io.Reader
	Clock         func() time.Time
}

// NewLocalImageStore creates the upload directory if needed and returns a store over it.
func NewLocalImageStore(cfg LocalImageStoreConfig) (*LocalImageStore, error) {
	dir := strings.TrimSpace(cfg.Dir)
	if dir == "" {
		return nil, errors.New("storage: upload directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create upload directory: %w", err)
	}

	entropy := cfg.Entropy
	if entropy == nil {
		entropy = rand.Reader
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &LocalImageStore{
		dir:           dir,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"),
		entropy:       entropy,
		clock:         clock,
	}, nil
}

// Save writes the upload under a ULID-prefixed name and returns the stored
// filename. The original name survives as a suffix so admins can recognise
// files on disk.
func (s *LocalImageStore) Save(filename string, content io.Reader) (string, error) {
	if s == nil {
		return "", errors.New("storage: store is nil")
	}

	base := sanitizeFilename(filename)
	ext := strings.ToLower(filepath.Ext(base))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}

	id, err := ulid.New(ulid.Timestamp(s.clock().UTC()), s.entropy)
	if err != nil {
		return "", fmt.Errorf("storage: generate file id: %w", err)
	}
	stored := fmt.Sprintf("%s_%s", id.String(), base)

	dst, err := os.OpenFile(filepath.Join(s.dir, stored), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("storage: create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, content); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	return stored, nil
}

// Delete removes a stored image. Deleting a missing file is not an error.
func (s *LocalImageStore) Delete(filename string) error {
	if s == nil {
		return errors.New("storage: store is nil")
	}
	name := sanitizeFilename(filename)
	if name == "" {
		return nil
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: delete file: %w", err)
	}
	return nil
}

// Open returns a reader over a stored image for serving.
func (s *LocalImageStore) Open(filename string) (io.ReadCloser, error) {
	if s == nil {
		return nil, errors.New("storage: store is nil")
	}
	name := sanitizeFilename(filename)
	if name == "" {
		return nil, ErrNotFound
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: open file: %w", err)
	}
	return f, nil
}

// URL resolves the public URL the storefront renders for a stored filename.
func (s *LocalImageStore) URL(filename string) string {
	if s == nil {
		return ""
	}
	name := sanitizeFilename(filename)
	if name == "" {
		return ""
	}
	return s.publicBaseURL + "/uploads/" + name
}

// sanitizeFilename strips directory components and characters that have no
// business in an upload name. Path traversal attempts collapse to the base name.
func sanitizeFilename(filename string) string {
	name := path.Base(filepath.ToSlash(strings.TrimSpace(filename)))
	if name == "." || name == ".." || name == "/" {
		return ""
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
