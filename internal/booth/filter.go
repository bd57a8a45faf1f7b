package booth

import (
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrUnknownFilter = errors.New("unknown filter")

// Op is one CSS filter function such as sepia(80%).
type Op struct {
	Func   string
	Amount float64 // ratio, or radians for hue-rotate
}

// Filter is a named chain of CSS filter functions applied left to right.
type Filter struct {
	Name string `yaml:"name"`
	CSS  string `yaml:"css"`
	Ops  []Op   `yaml:"-"`
}

var filterFunc = regexp.MustCompile(`^\s*([a-z-]+)\(\s*([^)]*?)\s*\)`)

// ParseFilter parses a CSS filter value like "grayscale(100%) contrast(150%)".
// An empty value or "none" yields the identity filter.
func ParseFilter(name, css string) (Filter, error) {
	f := Filter{Name: name, CSS: strings.TrimSpace(css)}
	rest := f.CSS
	if rest == "" || rest == "none" {
		return f, nil
	}

	for strings.TrimSpace(rest) != "" {
		m := filterFunc.FindStringSubmatchIndex(rest)
		if m == nil {
			return Filter{}, fmt.Errorf("invalid filter %q near %q", css, strings.TrimSpace(rest))
		}
		fn := rest[m[2]:m[3]]
		arg := rest[m[4]:m[5]]
		op, err := parseOp(fn, arg)
		if err != nil {
			return Filter{}, fmt.Errorf("invalid filter %q: %w", css, err)
		}
		f.Ops = append(f.Ops, op)
		rest = rest[m[1]:]
	}
	return f, nil
}

func parseOp(fn, arg string) (Op, error) {
	switch fn {
	case "hue-rotate":
		rad, err := parseAngle(arg)
		return Op{Func: fn, Amount: rad}, err
	case "grayscale", "sepia", "invert", "opacity":
		v, err := parseAmount(arg)
		return Op{Func: fn, Amount: math.Min(v, 1)}, err
	case "saturate", "brightness", "contrast":
		v, err := parseAmount(arg)
		return Op{Func: fn, Amount: v}, err
	default:
		return Op{}, fmt.Errorf("%w: %s", ErrUnknownFilter, fn)
	}
}

// parseAmount reads a number or percentage. An omitted value means 1.
func parseAmount(s string) (float64, error) {
	if s == "" {
		return 1, nil
	}
	scale := 1.0
	if strings.HasSuffix(s, "%") {
		s = strings.TrimSuffix(s, "%")
		scale = 0.01
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad amount %q", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative amount %q", s)
	}
	return v * scale, nil
}

func parseAngle(s string) (float64, error) {
	if s == "" || s == "0" {
		return 0, nil
	}
	units := []struct {
		suffix string
		toRad  float64
	}{
		{"grad", math.Pi / 200},
		{"turn", 2 * math.Pi},
		{"deg", math.Pi / 180},
		{"rad", 1},
	}
	for _, u := range units {
		if strings.HasSuffix(s, u.suffix) {
			v, err := strconv.ParseFloat(strings.TrimSuffix(s, u.suffix), 64)
			if err != nil {
				return 0, fmt.Errorf("bad angle %q", s)
			}
			return v * u.toRad, nil
		}
	}
	return 0, fmt.Errorf("angle %q needs a unit", s)
}

// IsIdentity reports whether applying f leaves every pixel unchanged.
func (f Filter) IsIdentity() bool {
	return len(f.Ops) == 0
}

// Apply runs the filter chain over img in place.
func (f Filter) Apply(img *image.NRGBA) {
	if f.IsIdentity() {
		return
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for i := 0; i < len(row); i += 4 {
			r := float64(row[i]) / 255
			g := float64(row[i+1]) / 255
			bl := float64(row[i+2]) / 255
			a := float64(row[i+3]) / 255
			for _, op := range f.Ops {
				r, g, bl, a = op.apply(r, g, bl, a)
			}
			row[i] = to8(r)
			row[i+1] = to8(g)
			row[i+2] = to8(bl)
			row[i+3] = to8(a)
		}
	}
}

type matrix [3][3]float64

func (m matrix) mul(r, g, b float64) (float64, float64, float64) {
	return clamp(m[0][0]*r + m[0][1]*g + m[0][2]*b),
		clamp(m[1][0]*r + m[1][1]*g + m[1][2]*b),
		clamp(m[2][0]*r + m[2][1]*g + m[2][2]*b)
}

func (op Op) apply(r, g, b, a float64) (float64, float64, float64, float64) {
	switch op.Func {
	case "grayscale":
		r, g, b = grayscaleMatrix(op.Amount).mul(r, g, b)
	case "sepia":
		r, g, b = sepiaMatrix(op.Amount).mul(r, g, b)
	case "saturate":
		r, g, b = saturateMatrix(op.Amount).mul(r, g, b)
	case "hue-rotate":
		r, g, b = hueRotateMatrix(op.Amount).mul(r, g, b)
	case "invert":
		r = op.Amount + r*(1-2*op.Amount)
		g = op.Amount + g*(1-2*op.Amount)
		b = op.Amount + b*(1-2*op.Amount)
	case "brightness":
		r, g, b = clamp(r*op.Amount), clamp(g*op.Amount), clamp(b*op.Amount)
	case "contrast":
		r = clamp((r-0.5)*op.Amount + 0.5)
		g = clamp((g-0.5)*op.Amount + 0.5)
		b = clamp((b-0.5)*op.Amount + 0.5)
	case "opacity":
		a = clamp(a * op.Amount)
	}
	return r, g, b, a
}

// Coefficients follow the Filter Effects Module shorthand definitions.
func grayscaleMatrix(amount float64) matrix {
	k := 1 - amount
	return matrix{
		{0.2126 + 0.7874*k, 0.7152 - 0.7152*k, 0.0722 - 0.0722*k},
		{0.2126 - 0.2126*k, 0.7152 + 0.2848*k, 0.0722 - 0.0722*k},
		{0.2126 - 0.2126*k, 0.7152 - 0.7152*k, 0.0722 + 0.9278*k},
	}
}

func sepiaMatrix(amount float64) matrix {
	k := 1 - amount
	return matrix{
		{0.393 + 0.607*k, 0.769 - 0.769*k, 0.189 - 0.189*k},
		{0.349 - 0.349*k, 0.686 + 0.314*k, 0.168 - 0.168*k},
		{0.272 - 0.272*k, 0.534 - 0.534*k, 0.131 + 0.869*k},
	}
}

func saturateMatrix(s float64) matrix {
	return matrix{
		{0.213 + 0.787*s, 0.715 - 0.715*s, 0.072 - 0.072*s},
		{0.213 - 0.213*s, 0.715 + 0.285*s, 0.072 - 0.072*s},
		{0.213 - 0.213*s, 0.715 - 0.715*s, 0.072 + 0.928*s},
	}
}

func hueRotateMatrix(rad float64) matrix {
	c, s := math.Cos(rad), math.Sin(rad)
	return matrix{
		{0.213 + c*0.787 - s*0.213, 0.715 - c*0.715 - s*0.715, 0.072 - c*0.072 + s*0.928},
		{0.213 - c*0.213 + s*0.143, 0.715 + c*0.285 + s*0.140, 0.072 - c*0.072 - s*0.283},
		{0.213 - c*0.213 - s*0.787, 0.715 - c*0.715 + s*0.715, 0.072 + c*0.928 + s*0.072},
	}
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func to8(v float64) uint8 {
	return uint8(math.Round(clamp(v) * 255))
}

// Presets is an ordered set of named filters.
type Presets struct {
	Filters []Filter `yaml:"filters"`
}

var defaultPresetCSS = [][2]string{
	{"none", "none"},
	{"grayscale", "grayscale(100%)"},
	{"sepia", "sepia(100%)"},
	{"invert", "invert(100%)"},
	{"saturate", "saturate(200%)"},
	{"contrast", "contrast(150%)"},
	{"hue-rotate", "hue-rotate(90deg)"},
	{"brightness", "brightness(120%)"},
}

// DefaultPresets returns the filters offered when no presets file exists.
func DefaultPresets() *Presets {
	p := &Presets{}
	for _, d := range defaultPresetCSS {
		f, err := ParseFilter(d[0], d[1])
		if err != nil {
			panic(err)
		}
		p.Filters = append(p.Filters, f)
	}
	return p
}

// LoadPresets reads filter presets from a YAML file.
func LoadPresets(path string) (*Presets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read presets: %w", err)
	}
	return ParsePresets(data)
}

func ParsePresets(data []byte) (*Presets, error) {
	var p Presets
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse presets: %w", err)
	}
	seen := make(map[string]bool, len(p.Filters))
	for i, f := range p.Filters {
		if f.Name == "" {
			return nil, fmt.Errorf("preset %d has no name", i)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("duplicate preset %q", f.Name)
		}
		seen[f.Name] = true
		parsed, err := ParseFilter(f.Name, f.CSS)
		if err != nil {
			return nil, err
		}
		p.Filters[i] = parsed
	}
	return &p, nil
}

// Lookup finds a preset by name. An empty name or "none" is always the identity filter.
func (p *Presets) Lookup(name string) (Filter, error) {
	if name == "" || name == "none" {
		return Filter{Name: "none", CSS: "none"}, nil
	}
	for _, f := range p.Filters {
		if f.Name == name {
			return f, nil
		}
	}
	return Filter{}, fmt.Errorf("%w: %s", ErrUnknownFilter, name)
}

func (p *Presets) Names() []string {
	names := make([]string, 0, len(p.Filters))
	for _, f := range p.Filters {
		names = append(names, f.Name)
	}
	return names
}
