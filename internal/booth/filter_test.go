package booth

import (
	"errors"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name     string
		css      string
		expected []Op
		wantErr  bool
	}{
		{name: "empty", css: "", expected: nil},
		{name: "none", css: "none", expected: nil},
		{name: "percentage", css: "grayscale(100%)", expected: []Op{{Func: "grayscale", Amount: 1}}},
		{name: "number", css: "saturate(2)", expected: []Op{{Func: "saturate", Amount: 2}}},
		{name: "omitted amount", css: "sepia()", expected: []Op{{Func: "sepia", Amount: 1}}},
		{name: "clamped to one", css: "invert(250%)", expected: []Op{{Func: "invert", Amount: 1}}},
		{
			name: "chain",
			css:  "contrast(150%)  brightness(0.5)",
			expected: []Op{
				{Func: "contrast", Amount: 1.5},
				{Func: "brightness", Amount: 0.5},
			},
		},
		{name: "degrees", css: "hue-rotate(180deg)", expected: []Op{{Func: "hue-rotate", Amount: math.Pi}}},
		{name: "turns", css: "hue-rotate(0.5turn)", expected: []Op{{Func: "hue-rotate", Amount: math.Pi}}},
		{name: "unknown function", css: "blur(2px)", wantErr: true},
		{name: "negative", css: "brightness(-1)", wantErr: true},
		{name: "angle without unit", css: "hue-rotate(90)", wantErr: true},
		{name: "garbage", css: "sepia(1) !!", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFilter(tt.name, tt.css)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, f.Ops, len(tt.expected))
			for i, op := range tt.expected {
				require.Equal(t, op.Func, f.Ops[i].Func)
				require.InDelta(t, op.Amount, f.Ops[i].Amount, 1e-9)
			}
		})
	}
}

func TestParseFilterUnknownIsSentinel(t *testing.T) {
	_, err := ParseFilter("x", "drop-shadow(1px)")
	require.True(t, errors.Is(err, ErrUnknownFilter))
}

func singlePixel(c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, c)
	return img
}

func TestFilterApply(t *testing.T) {
	tests := []struct {
		name     string
		css      string
		in       color.NRGBA
		expected color.NRGBA
	}{
		{name: "identity", css: "none", in: color.NRGBA{10, 20, 30, 255}, expected: color.NRGBA{10, 20, 30, 255}},
		{name: "full grayscale of white", css: "grayscale(100%)", in: color.NRGBA{255, 255, 255, 255}, expected: color.NRGBA{255, 255, 255, 255}},
		{name: "full grayscale of red", css: "grayscale(1)", in: color.NRGBA{255, 0, 0, 255}, expected: color.NRGBA{54, 54, 54, 255}},
		{name: "zero grayscale", css: "grayscale(0)", in: color.NRGBA{200, 100, 50, 255}, expected: color.NRGBA{200, 100, 50, 255}},
		{name: "invert", css: "invert(100%)", in: color.NRGBA{0, 128, 255, 255}, expected: color.NRGBA{255, 127, 0, 255}},
		{name: "half invert is grey", css: "invert(50%)", in: color.NRGBA{0, 0, 0, 255}, expected: color.NRGBA{128, 128, 128, 255}},
		{name: "brightness clamps", css: "brightness(200%)", in: color.NRGBA{200, 100, 0, 255}, expected: color.NRGBA{255, 200, 0, 255}},
		{name: "zero contrast is grey", css: "contrast(0)", in: color.NRGBA{0, 255, 40, 255}, expected: color.NRGBA{128, 128, 128, 255}},
		{name: "opacity", css: "opacity(50%)", in: color.NRGBA{1, 2, 3, 255}, expected: color.NRGBA{1, 2, 3, 128}},
		{name: "zero hue rotation", css: "hue-rotate(0deg)", in: color.NRGBA{90, 60, 30, 255}, expected: color.NRGBA{90, 60, 30, 255}},
		{name: "sepia of black", css: "sepia(100%)", in: color.NRGBA{0, 0, 0, 255}, expected: color.NRGBA{0, 0, 0, 255}},
		{name: "chain applies in order", css: "invert(100%) brightness(0)", in: color.NRGBA{0, 0, 0, 255}, expected: color.NRGBA{0, 0, 0, 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFilter(tt.name, tt.css)
			require.NoError(t, err)
			img := singlePixel(tt.in)
			f.Apply(img)
			require.Equal(t, tt.expected, img.NRGBAAt(0, 0))
		})
	}
}

func TestFilterApplyIsDeterministic(t *testing.T) {
	f, err := ParseFilter("mix", "sepia(60%) hue-rotate(45deg) saturate(150%)")
	require.NoError(t, err)

	a := singlePixel(color.NRGBA{120, 80, 200, 255})
	b := singlePixel(color.NRGBA{120, 80, 200, 255})
	f.Apply(a)
	f.Apply(b)
	require.Equal(t, a.Pix, b.Pix)
}

func TestDefaultPresets(t *testing.T) {
	p := DefaultPresets()
	require.Equal(t, []string{"none", "grayscale", "sepia", "invert", "saturate", "contrast", "hue-rotate", "brightness"}, p.Names())

	f, err := p.Lookup("sepia")
	require.NoError(t, err)
	require.False(t, f.IsIdentity())

	f, err = p.Lookup("")
	require.NoError(t, err)
	require.True(t, f.IsIdentity())

	_, err = p.Lookup("vintage")
	require.ErrorIs(t, err, ErrUnknownFilter)
}

func TestLoadPresets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filters.yaml")
	data := []byte(`filters:
  - name: noir
    css: grayscale(100%) contrast(150%)
  - name: warm
    css: sepia(30%) saturate(120%)
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	p, err := LoadPresets(path)
	require.NoError(t, err)
	require.Equal(t, []string{"noir", "warm"}, p.Names())

	noir, err := p.Lookup("noir")
	require.NoError(t, err)
	require.Len(t, noir.Ops, 2)
}

func TestParsePresetsRejectsBadEntries(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "missing name", yaml: "filters:\n  - css: sepia(1)\n"},
		{name: "duplicate", yaml: "filters:\n  - name: a\n    css: none\n  - name: a\n    css: none\n"},
		{name: "bad css", yaml: "filters:\n  - name: a\n    css: blur(3px)\n"},
		{name: "bad yaml", yaml: "filters: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePresets([]byte(tt.yaml))
			require.Error(t, err)
		})
	}
}
