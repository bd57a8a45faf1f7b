package booth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// MaxGallerySize is how many photos the gallery shows at once.
const MaxGallerySize = 10

var ErrNotInGallery = errors.New("photo not in gallery")

// Photo is a gallery entry. It references a stored photo and never holds its bytes.
type Photo struct {
	Filename string
	URL      string
}

type Lister interface {
	List(ctx context.Context) ([]string, error)
}

type Deleter interface {
	Delete(ctx context.Context, filename string) error
}

// Gallery is the newest-first view of recent photos.
// Evicting or clearing entries never touches the server.
type Gallery struct {
	mu     sync.Mutex
	photos []Photo
	urlFor func(filename string) string
}

// NewGallery builds an empty gallery. urlFor maps a server filename to its display URL.
func NewGallery(urlFor func(filename string) string) *Gallery {
	if urlFor == nil {
		urlFor = func(filename string) string { return "/photos/" + filename }
	}
	return &Gallery{urlFor: urlFor}
}

// Insert puts p at the head, dropping the oldest entry beyond MaxGallerySize.
func (g *Gallery) Insert(p Photo) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p.URL == "" {
		p.URL = g.urlFor(p.Filename)
	}
	g.photos = append([]Photo{p}, g.photos...)
	if len(g.photos) > MaxGallerySize {
		g.photos = g.photos[:MaxGallerySize]
	}
}

// Hydrate replaces the view with the first entries of the server listing, in listing order.
func (g *Gallery) Hydrate(ctx context.Context, l Lister) error {
	names, err := l.List(ctx)
	if err != nil {
		return err
	}
	if len(names) > MaxGallerySize {
		names = names[:MaxGallerySize]
	}

	photos := make([]Photo, 0, len(names))
	for _, name := range names {
		photos = append(photos, Photo{Filename: name, URL: g.urlFor(name)})
	}

	g.mu.Lock()
	g.photos = photos
	g.mu.Unlock()
	return nil
}

// Remove asks confirm, deletes the photo on the server and drops it from
// the view only when the delete succeeded. It reports whether the entry was removed.
func (g *Gallery) Remove(ctx context.Context, d Deleter, filename string, confirm func(Photo) bool) (bool, error) {
	g.mu.Lock()
	p, ok := g.find(filename)
	g.mu.Unlock()
	if !ok {
		return false, ErrNotInGallery
	}
	if confirm != nil && !confirm(p) {
		return false, nil
	}

	if err := d.Delete(ctx, filename); err != nil {
		slog.Error("Error deleting photo", "filename", filename, "err", err)
		return false, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for i, photo := range g.photos {
		if photo.Filename == filename {
			g.photos = append(g.photos[:i], g.photos[i+1:]...)
			break
		}
	}
	return true, nil
}

func (g *Gallery) find(filename string) (Photo, bool) {
	for _, p := range g.photos {
		if p.Filename == filename {
			return p, true
		}
	}
	return Photo{}, false
}

// List returns a copy of the view, newest first.
func (g *Gallery) List() []Photo {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Photo(nil), g.photos...)
}

// Clear empties the view. Server files stay.
func (g *Gallery) Clear() {
	g.mu.Lock()
	g.photos = nil
	g.mu.Unlock()
}

func (g *Gallery) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.photos)
}
