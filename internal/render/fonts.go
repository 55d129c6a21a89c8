package render

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

const DefaultFontFamily = "goregular"

var (
	ErrUnknownFont     = errors.New("unknown font family")
	ErrInvalidFontSize = errors.New("font size must not be negative")
)

// FontSpec names a font family and its size in pixels. A zero Size asks the
// renderer for its randomized default.
type FontSpec struct {
	Family string
	Size   float64
}

var fontFamilies = map[string][]byte{
	"goregular": goregular.TTF,
	"gomono":    gomono.TTF,
	"gobold":    gobold.TTF,
	"goitalic":  goitalic.TTF,
}

// FontFamilies lists the accepted FontSpec families.
func FontFamilies() []string {
	names := make([]string, 0, len(fontFamilies))
	for name := range fontFamilies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s FontSpec) validate() error {
	if _, ok := fontFamilies[s.Family]; !ok {
		return fmt.Errorf("%w %q", ErrUnknownFont, s.Family)
	}
	if s.Size < 0 {
		return fmt.Errorf("%w (got %v)", ErrInvalidFontSize, s.Size)
	}
	return nil
}

var (
	parsedMu    sync.Mutex
	parsedFonts = map[string]*truetype.Font{}
)

func parseFamily(family string) (*truetype.Font, error) {
	parsedMu.Lock()
	defer parsedMu.Unlock()
	if f, ok := parsedFonts[family]; ok {
		return f, nil
	}
	ttf, ok := fontFamilies[family]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownFont, family)
	}
	f, err := truetype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", family, err)
	}
	parsedFonts[family] = f
	return f, nil
}

// newFace builds a face where one point is one pixel.
func newFace(spec FontSpec) (font.Face, error) {
	f, err := parseFamily(spec.Family)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{Size: spec.Size, DPI: 72, Hinting: font.HintingFull}), nil
}
