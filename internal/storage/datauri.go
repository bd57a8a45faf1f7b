package storage

import (
	"encoding/base64"
	"errors"
	"strings"
)

var (
	ErrInvalidDataURI = errors.New("invalid image data format")
	ErrInvalidBase64  = errors.New("invalid base64 image data")
)

const dataURIPrefix = "data:image/"

// DecodeDataURI strips the media-type header of an image data URI and
// returns the decoded payload.
func DecodeDataURI(uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, dataURIPrefix) {
		return nil, ErrInvalidDataURI
	}
	_, payload, found := strings.Cut(uri, ",")
	if !found {
		return nil, ErrInvalidDataURI
	}
	payload = strings.TrimSpace(payload)

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// canvas encoders sometimes drop the padding
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, ErrInvalidBase64
		}
	}
	return data, nil
}

// EncodeDataURI is the inverse of DecodeDataURI for the given media type.
func EncodeDataURI(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
