package handlers

import (
	"encoding/json"
	"errors"
	"image"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"github.com/lehigh-university-libraries/snapshot/internal/events"
	"github.com/lehigh-university-libraries/snapshot/internal/metrics"
	"github.com/lehigh-university-libraries/snapshot/internal/models"
	"github.com/lehigh-university-libraries/snapshot/internal/storage"
)

// PhotoURLPrefix is the relative URL saved photos are reachable under.
// It names the GET /photos/{filename} route, not the storage directory,
// so it stays the same whatever PHOTOS_DIR is.
const PhotoURLPrefix = "./photos/"

func (h *Handler) HandlePhotos(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		h.listPhotos(w, r)
	case "POST":
		h.savePhoto(w, r)
	default:
		h.writeError(w, r, "Method not allowed", http.StatusMethodNotAllowed, nil)
	}
}

func (h *Handler) HandlePhotoDetail(w http.ResponseWriter, r *http.Request) {
	filename := strings.TrimPrefix(r.URL.Path, "/photos/")
	if filename == "" {
		h.HandlePhotos(w, r)
		return
	}

	switch r.Method {
	case "GET", "HEAD":
		h.servePhoto(w, r, filename)
	case "DELETE":
		h.deletePhoto(w, r, filename)
	default:
		h.writeError(w, r, "Method not allowed", http.StatusMethodNotAllowed, nil)
	}
}

func (h *Handler) listPhotos(w http.ResponseWriter, r *http.Request) {
	photos, err := h.store.List()
	if err != nil {
		h.writeError(w, r, "Error listing photos", http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, photos)
}

func (h *Handler) savePhoto(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	var request models.SavePhotoRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, r, "Photo too large", http.StatusRequestEntityTooLarge, err)
			return
		}
		h.writeError(w, r, "Invalid JSON", http.StatusBadRequest, err)
		return
	}

	if request.Photo == "" {
		h.writeError(w, r, "No photo data provided", http.StatusBadRequest, nil)
		return
	}

	data, err := storage.DecodeDataURI(request.Photo)
	if err != nil {
		message := "Invalid image data format"
		if errors.Is(err, storage.ErrInvalidBase64) {
			message = "Invalid base64 image data"
		}
		h.writeError(w, r, message, http.StatusBadRequest, err)
		return
	}

	filename, err := h.store.Save(data)
	if err != nil {
		h.writeError(w, r, "Error saving photo", http.StatusInternalServerError, err)
		return
	}
	h.metrics.Inc(r.Context(), metrics.PhotosSaved, nil, 1)
	h.metrics.Inc(r.Context(), metrics.PhotoBytesStored, nil, int64(len(data)))

	relPath := PhotoURLPrefix + filename
	h.writeJSON(w, models.SavePhotoResponse{
		Message: "Photo saved: " + filename,
		Path:    relPath,
	})

	// Everything below happens after the client already has its answer.
	h.events.Publish(events.MsgPhotoSaved, filename, relPath)
	if h.mirror != nil {
		if path, err := h.store.Path(filename); err == nil {
			h.mirror.Dispatch(path)
		}
	}
}

func (h *Handler) deletePhoto(w http.ResponseWriter, r *http.Request, filename string) {
	path, err := h.store.Path(filename)
	if err != nil {
		h.writeError(w, r, "Invalid filename", http.StatusBadRequest, err)
		return
	}

	if err := h.store.Delete(filename); err != nil {
		h.writeError(w, r, "Error deleting photo", http.StatusInternalServerError, err)
		return
	}
	h.thumbnails.Forget(path)
	h.metrics.Inc(r.Context(), metrics.PhotosDeleted, nil, 1)
	h.events.Publish(events.MsgPhotoDeleted, filename, "")

	h.writeJSON(w, models.MessageResponse{Message: "Photo deleted"})
}

func (h *Handler) servePhoto(w http.ResponseWriter, r *http.Request, filename string) {
	info, err := h.store.Stat(filename)
	if errors.Is(err, storage.ErrInvalidFilename) {
		h.writeError(w, r, "Invalid filename", http.StatusBadRequest, err)
		return
	}
	if err != nil {
		h.writeError(w, r, "Photo not found", http.StatusNotFound, err)
		return
	}

	path, _ := h.store.Path(filename)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		h.writeError(w, r, "Photo not found", http.StatusNotFound, err)
		return
	}
	if err != nil {
		h.writeError(w, r, "Error reading photo", http.StatusInternalServerError, err)
		return
	}
	defer f.Close()

	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeContent(w, r, filename, info.ModTime(), f)
}

func (h *Handler) HandleThumbnail(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, r, "Method not allowed", http.StatusMethodNotAllowed, nil)
		return
	}

	filename := strings.TrimPrefix(r.URL.Path, "/thumbnails/")
	path, err := h.store.Path(filename)
	if err != nil {
		h.writeError(w, r, "Invalid filename", http.StatusBadRequest, err)
		return
	}

	data, err := h.thumbnails.Get(path)
	if errors.Is(err, fs.ErrNotExist) {
		h.writeError(w, r, "Photo not found", http.StatusNotFound, err)
		return
	}
	if errors.Is(err, image.ErrFormat) {
		h.writeError(w, r, "Unsupported image format", http.StatusUnsupportedMediaType, err)
		return
	}
	if err != nil {
		h.writeError(w, r, "Error generating thumbnail", http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

func (h *Handler) HandleAlbumURL(w http.ResponseWriter, r *http.Request) {
	if h.album == nil {
		h.writeError(w, r, "Album URL not configured", http.StatusServiceUnavailable, nil)
		return
	}
	albumURL, err := h.album.AlbumURL()
	if err != nil {
		h.writeError(w, r, "Album URL not configured", http.StatusServiceUnavailable, err)
		return
	}
	h.writeJSON(w, models.AlbumURLResponse{AlbumURL: albumURL})
}
