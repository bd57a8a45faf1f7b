package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"sync"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

// MaxSize bounds both thumbnail dimensions in pixels
const MaxSize = 300

// Cache stores generated JPEG thumbnails keyed by source path.
// An entry is reused only while the source modification time is unchanged.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
}

type entry struct {
	modUnixNano int64
	data        []byte
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]entry)}
}

// Get returns the thumbnail for the image at path, generating it on a miss.
func (c *Cache) Get(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	mod := info.ModTime().UnixNano()

	c.mu.RLock()
	cached, ok := c.entries[path]
	c.mu.RUnlock()
	if ok && cached.modUnixNano == mod {
		return cached.data, nil
	}

	data, err := Generate(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[path] = entry{modUnixNano: mod, data: data}
	c.mu.Unlock()
	return data, nil
}

// Forget drops the cached thumbnail of path.
func (c *Cache) Forget(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

// Len returns the number of cached thumbnails.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Generate decodes the image at path and returns a JPEG no larger than MaxSize.
func Generate(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	thumb := resize.Thumbnail(MaxSize, MaxSize, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
