package booth

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sync"
)

var ErrStreamStopped = errors.New("stream stopped")

// Device is a camera that can be opened into a live stream.
type Device interface {
	ID() string
	Label() string
	Open(ctx context.Context) (Stream, error)
}

// Stream yields the current frame of an open device.
type Stream interface {
	Frame() (image.Image, error)
	// Stop releases every track of the stream. Safe to call twice.
	Stop()
}

// FileDevice is a camera whose picture is an image file on disk.
// The file is re-read on every frame so it can be swapped while the booth runs.
type FileDevice struct {
	Path string
}

func (d FileDevice) ID() string {
	return d.Path
}

func (d FileDevice) Label() string {
	return filepath.Base(d.Path)
}

func (d FileDevice) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(d.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open device %s: %w", d.Label(), err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("failed to open device %s: is a directory", d.Label())
	}
	return &fileStream{path: d.Path}, nil
}

// FileDevices builds one device per path, in order.
func FileDevices(paths ...string) []Device {
	devices := make([]Device, 0, len(paths))
	for _, p := range paths {
		devices = append(devices, FileDevice{Path: p})
	}
	return devices
}

type fileStream struct {
	mu      sync.Mutex
	path    string
	stopped bool
}

func (s *fileStream) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, ErrStreamStopped
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return img, nil
}

func (s *fileStream) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}
