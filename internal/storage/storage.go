package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidFilename = errors.New("invalid filename")
	// ErrExists is returned when two saves land on the same millisecond.
	ErrExists = errors.New("photo already exists")
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// PhotoStore keeps photos as plain files in a single flat directory.
// There is no cross-request locking; the filesystem is the only arbiter.
type PhotoStore struct {
	dir string
	now func() time.Time
}

type Option func(*PhotoStore)

// WithClock overrides the time source used to name new photos.
func WithClock(now func() time.Time) Option {
	return func(s *PhotoStore) {
		s.now = now
	}
}

func New(dir string, opts ...Option) (*PhotoStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create photos directory: %w", err)
	}
	s := &PhotoStore{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *PhotoStore) Dir() string {
	return s.dir
}

// Filename returns the name a photo captured at t is stored under.
func Filename(t time.Time) string {
	return fmt.Sprintf("photo-%d.png", t.UnixMilli())
}

// ValidateFilename rejects anything that is not a plain file name inside the directory.
func ValidateFilename(name string) error {
	if name == "" || name == "." || name == ".." {
		return ErrInvalidFilename
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") || strings.HasPrefix(name, ".") {
		return ErrInvalidFilename
	}
	if filepath.Base(name) != name {
		return ErrInvalidFilename
	}
	return nil
}

// Path returns the on-disk path of a validated filename.
func (s *PhotoStore) Path(name string) (string, error) {
	if err := ValidateFilename(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

// List returns image filenames, newest first. Names carrying a capture
// timestamp are ordered by its numeric value; any others follow in
// descending name order.
func (s *PhotoStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read photos directory: %w", err)
	}

	photos := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if !imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		photos = append(photos, entry.Name())
	}
	sort.Slice(photos, func(i, j int) bool {
		ti, iok := capturedAt(photos[i])
		tj, jok := capturedAt(photos[j])
		if iok != jok {
			return iok
		}
		if iok && ti != tj {
			return ti > tj
		}
		return photos[i] > photos[j]
	})
	return photos, nil
}

// capturedAt extracts the millisecond timestamp from a name made by Filename.
func capturedAt(name string) (int64, bool) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	digits, ok := strings.CutPrefix(stem, "photo-")
	if !ok {
		return 0, false
	}
	ms, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return ms, true
}

// Save writes data under a new timestamp-derived name and returns that name.
// The file is created exclusively: a name collision fails with ErrExists
// rather than overwriting the earlier photo.
func (s *PhotoStore) Save(data []byte) (string, error) {
	filename := Filename(s.now())
	path := filepath.Join(s.dir, filename)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("failed to save %s: %w", filename, ErrExists)
		}
		return "", fmt.Errorf("failed to save %s: %w", filename, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write %s: %w", filename, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close %s: %w", filename, err)
	}

	slog.Info("Photo saved", "filename", filename, "bytes", len(data))
	return filename, nil
}

// Delete removes a photo. Deleting a missing photo is an error every time.
func (s *PhotoStore) Delete(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	slog.Info("Photo deleted", "filename", name)
	return nil
}

// Stat returns file metadata of a stored photo.
func (s *PhotoStore) Stat(name string) (os.FileInfo, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fs.ErrNotExist
	}
	return info, nil
}
