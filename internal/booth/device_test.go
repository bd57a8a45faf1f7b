package booth

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileDevice(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cam.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, solidFrame(4, 3, color.White)))
	require.NoError(t, f.Close())

	devices := FileDevices(path, filepath.Join(dir, "missing.png"))
	require.Len(t, devices, 2)
	require.Equal(t, "cam.png", devices[0].Label())

	stream, err := devices[0].Open(context.Background())
	require.NoError(t, err)
	frame, err := stream.Frame()
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 4, 3), frame.Bounds())

	stream.Stop()
	stream.Stop()
	_, err = stream.Frame()
	require.ErrorIs(t, err, ErrStreamStopped)

	_, err = devices[1].Open(context.Background())
	require.Error(t, err)

	_, err = FileDevice{Path: dir}.Open(context.Background())
	require.Error(t, err)
}
