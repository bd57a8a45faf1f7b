package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/snapshot/internal/events"
	"github.com/lehigh-university-libraries/snapshot/internal/metrics"
	"github.com/lehigh-university-libraries/snapshot/internal/models"
	"github.com/lehigh-university-libraries/snapshot/internal/storage"
	"github.com/lehigh-university-libraries/snapshot/internal/thumbnail"
)

// Dispatcher hands a saved photo to the remote mirror without waiting.
type Dispatcher interface {
	Dispatch(path string)
}

// AlbumLinker resolves the public URL of the mirror album.
type AlbumLinker interface {
	AlbumURL() (string, error)
}

type Options struct {
	Store      *storage.PhotoStore
	Mirror     Dispatcher
	Album      AlbumLinker
	Events     *events.Hub
	Thumbnails *thumbnail.Cache
	Metrics    *metrics.Registry

	// MaxBodyBytes caps POST /photos bodies; zero means 50MB
	MaxBodyBytes int64
}

type Handler struct {
	store        *storage.PhotoStore
	mirror       Dispatcher
	album        AlbumLinker
	events       *events.Hub
	thumbnails   *thumbnail.Cache
	metrics      *metrics.Registry
	maxBodyBytes int64
}

func New(opts Options) *Handler {
	h := &Handler{
		store:        opts.Store,
		mirror:       opts.Mirror,
		album:        opts.Album,
		events:       opts.Events,
		thumbnails:   opts.Thumbnails,
		metrics:      opts.Metrics,
		maxBodyBytes: opts.MaxBodyBytes,
	}
	if h.maxBodyBytes <= 0 {
		h.maxBodyBytes = 50 << 20
	}
	if h.thumbnails == nil {
		h.thumbnails = thumbnail.NewCache()
	}
	return h
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// writeError logs the cause and sends only the generic message to the client.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, message string, code int, err error) {
	attrs := []any{"method", r.Method, "path", r.URL.Path, "status", code}
	if err != nil {
		attrs = append(attrs, "err", err)
	}
	if code >= 500 {
		slog.Error(message, attrs...)
	} else {
		slog.Warn(message, attrs...)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if encodeErr := json.NewEncoder(w).Encode(models.ErrorResponse{Error: message}); encodeErr != nil {
		slog.Error("Unable to encode error response", "err", encodeErr)
	}
}
