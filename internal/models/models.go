package models

// SavePhotoRequest is the body of POST /photos
type SavePhotoRequest struct {
	Photo string `json:"photo"` // data:image/png;base64,...
}

// SavePhotoResponse is returned after a photo was written to disk
type SavePhotoResponse struct {
	Message string `json:"message"`
	Path    string `json:"path"`
}

// MessageResponse acknowledges a request without payload
type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type AlbumURLResponse struct {
	AlbumURL string `json:"album_url"`
}

// MirrorJob describes one upload of a saved photo to the asset service
type MirrorJob struct {
	Filename       string
	Path           string
	AlbumID        string
	DeviceAssetID  string // <filename>-<mtime unix seconds>
	FileCreatedAt  string
	FileModifiedAt string
}
