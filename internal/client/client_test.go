package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lehigh-university-libraries/snapshot/internal/models"
	"github.com/stretchr/testify/require"
)

func TestList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "GET", r.Method)
		require.Equal(t, "/photos", r.URL.Path)
		w.Write([]byte(`["photo-2.png","photo-1.png"]`))
	}))
	defer srv.Close()

	names, err := NewClient(srv.URL + "/").List(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"photo-2.png", "photo-1.png"}, names)
}

func TestSave(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req models.SavePhotoRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "data:image/png;base64,AAAA", req.Photo)

		json.NewEncoder(w).Encode(models.SavePhotoResponse{
			Message: "Photo saved: photo-1.png",
			Path:    "./photos/photo-1.png",
		})
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).Save(context.Background(), "data:image/png;base64,AAAA")
	require.NoError(t, err)
	require.Equal(t, "./photos/photo-1.png", resp.Path)
}

func TestErrorsCarryServerMessage(t *testing.T) {
	tests := []struct {
		name            string
		status          int
		body            string
		expectedMessage string
	}{
		{name: "json error body", status: 500, body: `{"error":"Error deleting photo"}`, expectedMessage: "Error deleting photo"},
		{name: "plain body", status: 502, body: "bad gateway\n", expectedMessage: "bad gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := NewClient(srv.URL).Delete(context.Background(), "photo-1.png")
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			require.Equal(t, tt.status, apiErr.StatusCode)
			require.Equal(t, tt.expectedMessage, apiErr.Message)
		})
	}
}

func TestDeleteEscapesFilename(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Write([]byte(`{"message":"Photo deleted"}`))
	}))
	defer srv.Close()

	require.NoError(t, NewClient(srv.URL).Delete(context.Background(), "a b.png"))
	require.Equal(t, "/photos/a%20b.png", gotPath)
}
