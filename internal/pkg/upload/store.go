// Package upload stores payment receipt files on local disk.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTooLarge        = errors.New("upload: file exceeds maximum size")
	ErrUnsupportedType = errors.New("upload: unsupported file type")
	ErrEmpty           = errors.New("upload: empty file")
)

// extensions maps sniffed content types to stored file extensions.
var extensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// URLPrefix is where stored files are served from.
const URLPrefix = "/uploads/"

// Store saves receipts under Dir as <uuid><ext>.
type Store struct {
	Dir     string
	MaxSize int64
}

func NewStore(dir string, maxSize int64) *Store {
	return &Store{Dir: dir, MaxSize: maxSize}
}

// Saved describes a stored file.
type Saved struct {
	Path        string
	URL         string
	ContentType string
	Size        int64
}

// Save validates r by content and size and writes it to disk.
func (s *Store) Save(r io.Reader) (*Saved, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if n == 0 {
		return nil, ErrEmpty
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	ext, ok := extensions[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	name := uuid.NewString() + ext
	path := filepath.Join(s.Dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}

	limit := s.MaxSize + 1
	written, err := io.Copy(f, io.LimitReader(io.MultiReader(bytes.NewReader(head), r), limit))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write upload file: %w", err)
	}
	if s.MaxSize > 0 && written > s.MaxSize {
		_ = os.Remove(path)
		return nil, ErrTooLarge
	}

	return &Saved{Path: path, URL: URLPrefix + name, ContentType: contentType, Size: written}, nil
}

// Remove deletes a stored file; a missing file is not an error.
func (s *Store) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Cleanup removes files modified before cutoff unless their path is in keep.
// It returns the number of files removed.
func (s *Store) Cleanup(cutoff time.Time, keep map[string]bool) (int, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(s.Dir, e.Name())
		if keep[path] {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err == nil {
			removed++
		}
	}
	return removed, nil
}
