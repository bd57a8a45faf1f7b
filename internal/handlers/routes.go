package handlers

import (
	"log/slog"
	"net/http"
)

// Routes wires every endpoint of the photo service onto a fresh mux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/photos", h.HandlePhotos)
	mux.HandleFunc("/photos/", h.HandlePhotoDetail)
	mux.HandleFunc("/thumbnails/", h.HandleThumbnail)
	mux.HandleFunc("/album-url", h.HandleAlbumURL)
	if h.events != nil {
		mux.HandleFunc("/ws", h.events.ServeWS)
	}
	if h.metrics != nil {
		mux.Handle("/metrics", h.metrics)
	}
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})

	return HTTPLogger(h.metrics, mux)
}
