package cmd

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/snapshot/internal/handlers"
	"github.com/lehigh-university-libraries/snapshot/internal/storage"
	"github.com/stretchr/testify/require"
)

func executeCommand(stdin string, args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := root.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func newPhotoServer(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.New(dir)
	require.NoError(t, err)
	srv := httptest.NewServer(handlers.New(handlers.Options{Store: store}).Routes())
	t.Cleanup(srv.Close)
	return srv.URL, dir
}

func writeFrame(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frame.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	img := image.NewRGBA(image.Rect(0, 0, 16, 9))
	for x := 0; x < 16; x++ {
		img.Set(x, 4, color.RGBA{200, 40, 40, 255})
	}
	require.NoError(t, png.Encode(f, img))
	return path
}

func storedPhotos(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestCaptureUploadsPhoto(t *testing.T) {
	url, dir := newPhotoServer(t)
	frame := writeFrame(t)

	out, _, err := executeCommand("", "capture",
		"--server", url,
		"--device", frame,
		"--filter", "sepia",
		"--filters", filepath.Join(t.TempDir(), "missing.yaml"),
		"--countdown", "0",
	)
	require.NoError(t, err)

	photos := storedPhotos(t, dir)
	require.Len(t, photos, 1)
	require.Contains(t, out, "Saved "+photos[0])
}

func TestCaptureRejectsUnknownFilter(t *testing.T) {
	url, _ := newPhotoServer(t)
	_, _, err := executeCommand("", "capture",
		"--server", url,
		"--device", writeFrame(t),
		"--filters", filepath.Join(t.TempDir(), "missing.yaml"),
		"--filter", "vintage",
	)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown filter")
}

func TestCaptureRequiresDevice(t *testing.T) {
	_, _, err := executeCommand("", "capture")
	require.Error(t, err)
}

func TestCaptureInteractive(t *testing.T) {
	url, dir := newPhotoServer(t)
	frame := writeFrame(t)

	stdin := strings.Join([]string{
		"t 0",
		"f grayscale",
		"",
		"g",
		"x",
		"g",
		"q",
	}, "\n") + "\n"

	out, _, err := executeCommand(stdin, "capture", "-i",
		"--server", url,
		"--device", frame,
		"--filters", filepath.Join(t.TempDir(), "missing.yaml"),
	)
	require.NoError(t, err)

	photos := storedPhotos(t, dir)
	require.Len(t, photos, 1)
	require.Contains(t, out, "Filter grayscale")
	require.Contains(t, out, "Saved "+photos[0])
	require.Contains(t, out, "./photos/"+photos[0])
	require.Contains(t, out, "Gallery is empty")
	// clearing the gallery leaves the server alone
	require.Len(t, storedPhotos(t, dir), 1)
}

func TestPhotosListAndDelete(t *testing.T) {
	url, dir := newPhotoServer(t)
	for _, name := range []string{"photo-1.png", "photo-2.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	out, _, err := executeCommand("", "photos", "list", "--server", url)
	require.NoError(t, err)
	require.Equal(t, "photo-2.png\nphoto-1.png\n", out)

	out, _, err = executeCommand("n\n", "photos", "delete", "--server", url, "photo-1.png")
	require.NoError(t, err)
	require.Contains(t, out, "Skipped photo-1.png")
	require.Len(t, storedPhotos(t, dir), 2)

	out, _, err = executeCommand("y\n", "photos", "delete", "--server", url, "photo-1.png")
	require.NoError(t, err)
	require.Contains(t, out, "Deleted photo-1.png")
	require.Equal(t, []string{"photo-2.png"}, storedPhotos(t, dir))

	_, errOut, err := executeCommand("", "photos", "delete", "--yes", "--server", url, "photo-1.png")
	require.Error(t, err)
	require.Contains(t, errOut, "Error deleting photo")
}
