package metrics

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryInc(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()

	reg.Inc(ctx, PhotosSaved, nil, 1)
	reg.Inc(ctx, PhotosSaved, nil, 2)
	reg.Inc(ctx, MirrorUploads, map[string]string{"outcome": "failed"}, 1)

	require.Equal(t, int64(3), reg.Value(PhotosSaved, nil))
	require.Equal(t, int64(1), reg.Value(MirrorUploads, map[string]string{"outcome": "failed"}))
	require.Equal(t, int64(0), reg.Value(MirrorUploads, map[string]string{"outcome": "ok"}))
}

func TestRegistryConcurrentInc(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.Inc(context.Background(), PhotosDeleted, nil, 1)
		}()
	}
	wg.Wait()
	require.Equal(t, int64(50), reg.Value(PhotosDeleted, nil))
}

func TestNilRegistryIsNoop(t *testing.T) {
	var reg *Registry
	require.NotPanics(t, func() {
		reg.Inc(context.Background(), PhotosSaved, nil, 1)
	})
}

func TestServeHTTP(t *testing.T) {
	reg := NewRegistry()
	reg.Inc(context.Background(), HTTPRequests, map[string]string{"method": "GET", "status": "2xx"}, 4)
	reg.Inc(context.Background(), PhotosSaved, nil, 1)

	rec := httptest.NewRecorder()
	reg.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	require.Contains(t, body, `http_requests_total{method="GET",status="2xx"} 4`)
	require.Contains(t, body, "photos_saved_total 1")
	require.True(t, strings.Index(body, "http_requests_total") < strings.Index(body, "photos_saved_total"))
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{
		101: "1xx",
		200: "2xx",
		304: "3xx",
		400: "4xx",
		500: "5xx",
		0:   "0",
	}
	for code, expected := range tests {
		require.Equal(t, expected, StatusClass(code), "code %d", code)
	}
}
