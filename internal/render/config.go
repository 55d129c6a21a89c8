package render

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/rook-computer/captcha/internal/code"
)

// Default render configuration.
var (
	DefaultBackground = color.RGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xFF} // #000000
	DefaultForeground = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF} // #ffffff
	DefaultLineColor  = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF} // #808080

	// BorderColor outlines every challenge and is not configurable.
	BorderColor = color.RGBA{R: 0xFF, G: 0xFF, B: 0x00, A: 0xFF} // #ffff00
)

const (
	DefaultWidth     = 200
	DefaultHeight    = 50
	DefaultLineCount = 10
	DefaultDirectory = "images"
)

var (
	ErrInvalidConfig    = errors.New("invalid render config")
	ErrInvalidSize      = errors.New("canvas width and height must be positive")
	ErrInvalidLineCount = errors.New("line count must not be negative")
	ErrInvalidColor     = errors.New("color must be set")
	ErrNoChallenge      = errors.New("no challenge has been generated")
)

// LineMode selects how obscuring line endpoints are sampled.
type LineMode int

const (
	// LineModeFixed samples endpoints from absolute pixel ranges regardless of
	// the canvas size.
	LineModeFixed LineMode = iota
	// LineModeRelative samples endpoints from ranges proportional to the canvas.
	LineModeRelative
)

func (m LineMode) String() string {
	switch m {
	case LineModeFixed:
		return "fixed"
	case LineModeRelative:
		return "relative"
	}
	return "unknown"
}

// Config holds everything that controls a render.
type Config struct {
	Width      int
	Height     int
	Background color.Color
	Foreground color.Color
	LineColor  color.Color
	LineCount  int
	LineMode   LineMode
	Font       FontSpec
	CodeLength int

	// Directory is where SaveCurrentImage writes bitmaps.
	Directory string

	// Seed makes the random source reproducible; 0 seeds from the clock.
	// Changing it through SetConfig reseeds at once, and Reset reseeds from it.
	Seed uint64
}

func DefaultConfig() Config {
	return Config{
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		Background: DefaultBackground,
		Foreground: DefaultForeground,
		LineColor:  DefaultLineColor,
		LineCount:  DefaultLineCount,
		LineMode:   LineModeFixed,
		Font:       FontSpec{Family: DefaultFontFamily},
		CodeLength: code.DefaultLength,
		Directory:  DefaultDirectory,
	}
}

// Validate reports the first configuration problem, wrapped in ErrInvalidConfig.
// A zero Font.Size is valid and means a randomized default size.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: %w (got %dx%d)", ErrInvalidConfig, ErrInvalidSize, c.Width, c.Height)
	}
	if c.CodeLength < 1 {
		return fmt.Errorf("%w: %w (got %d)", ErrInvalidConfig, code.ErrInvalidLength, c.CodeLength)
	}
	if c.LineCount < 0 {
		return fmt.Errorf("%w: %w (got %d)", ErrInvalidConfig, ErrInvalidLineCount, c.LineCount)
	}
	if c.Background == nil || c.Foreground == nil || c.LineColor == nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrInvalidColor)
	}
	if err := c.Font.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ParseHexColor parses #rgb, #rrggbb and #rrggbbaa (the leading # is optional).
func ParseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
