package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rook-computer/captcha/internal/code"
	"github.com/rook-computer/captcha/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

var (
	testBackground = color.RGBA{R: 0xF0, G: 0xF8, B: 0xFF, A: 0xFF}
	testForeground = color.RGBA{R: 0x10, G: 0x10, B: 0x10, A: 0xFF}
	testLineColor  = color.RGBA{R: 0x00, G: 0x80, B: 0x00, A: 0xFF}
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 300
	cfg.Height = 200
	cfg.LineCount = 5
	cfg.Background = testBackground
	cfg.Foreground = testForeground
	cfg.LineColor = testLineColor
	cfg.Font = FontSpec{Family: DefaultFontFamily, Size: 24}
	cfg.Seed = 20240305
	return cfg
}

func newTestRenderer(t *testing.T, mutate func(*Config)) *Renderer {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	r, err := New(cfg)
	require.NoError(t, err)
	return r
}

// assertRegion checks every pixel of rect against want.
func assertRegion(t *testing.T, img *image.RGBA, rect image.Rectangle, want color.RGBA) {
	t.Helper()
	rect = rect.Intersect(img.Bounds())
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if got := img.RGBAAt(x, y); got != want {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func regionDiffers(img *image.RGBA, rect image.Rectangle, from color.RGBA) bool {
	rect = rect.Intersect(img.Bounds())
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if img.RGBAAt(x, y) != from {
				return true
			}
		}
	}
	return false
}

func TestNew_InvalidConfig(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "zero code length", mutate: func(c *Config) { c.CodeLength = 0 }, wantErr: code.ErrInvalidLength},
		{name: "negative code length", mutate: func(c *Config) { c.CodeLength = -1 }, wantErr: code.ErrInvalidLength},
		{name: "zero width", mutate: func(c *Config) { c.Width = 0 }, wantErr: ErrInvalidSize},
		{name: "negative height", mutate: func(c *Config) { c.Height = -5 }, wantErr: ErrInvalidSize},
		{name: "negative lines", mutate: func(c *Config) { c.LineCount = -1 }, wantErr: ErrInvalidLineCount},
		{name: "nil background", mutate: func(c *Config) { c.Background = nil }, wantErr: ErrInvalidColor},
		{name: "unknown font", mutate: func(c *Config) { c.Font.Family = "Tahoma" }, wantErr: ErrUnknownFont},
		{name: "negative font size", mutate: func(c *Config) { c.Font.Size = -2 }, wantErr: ErrInvalidFontSize},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			r, err := New(cfg)
			assert.Nil(t, r)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestRenderer_ConcreteScenario(t *testing.T) {
	r := newTestRenderer(t, nil)

	ch := r.NewChallenge()
	require.NotNil(t, ch)
	assert.Equal(t, image.Rect(0, 0, 300, 200), ch.Image().Bounds())
	assert.Len(t, ch.Code(), 6)
	assert.True(t, code.InAlphabet(ch.Code()))

	ok, err := r.Verify("")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.Verify(ch.Code())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRenderer_DefaultConfig(t *testing.T) {
	r, err := New(DefaultConfig())
	require.NoError(t, err)

	size := r.Config().Font.Size
	assert.GreaterOrEqual(t, size, 24.0)
	assert.Less(t, size, 28.0)

	ch := r.NewChallenge()
	assert.Equal(t, image.Rect(0, 0, DefaultWidth, DefaultHeight), ch.Image().Bounds())
	assert.Len(t, ch.Code(), code.DefaultLength+1)
}

func TestRenderer_VerifyBeforeChallenge(t *testing.T) {
	r := newTestRenderer(t, nil)

	ok, err := r.Verify("anything")
	assert.ErrorIs(t, err, ErrNoChallenge)
	assert.False(t, ok)

	_, err = r.VerifyValue(nil)
	assert.ErrorIs(t, err, ErrNoChallenge)
	assert.Nil(t, r.Current())
}

func TestRenderer_VerifyIsExact(t *testing.T) {
	r := newTestRenderer(t, nil)
	answer := r.NewChallenge().Code()

	for i := 0; i < len(answer); i++ {
		for _, c := range []byte{'a', 'Z', '0'} {
			if answer[i] == c {
				continue
			}
			guess := answer[:i] + string(c) + answer[i+1:]
			ok, err := r.Verify(guess)
			require.NoError(t, err)
			assert.False(t, ok, "guess %q matched %q", guess, answer)
		}
	}

	swapped := strings.Map(func(c rune) rune {
		switch {
		case c >= 'a' && c <= 'z':
			return c - 'a' + 'A'
		case c >= 'A' && c <= 'Z':
			return c - 'A' + 'a'
		}
		return c
	}, answer)
	if swapped != answer {
		ok, err := r.Verify(swapped)
		require.NoError(t, err)
		assert.False(t, ok)
	}

	for _, guess := range []string{answer + " ", " " + answer, answer[:len(answer)-1]} {
		ok, err := r.Verify(guess)
		require.NoError(t, err)
		assert.False(t, ok, "guess %q", guess)
	}
}

func TestRenderer_VerifyValue(t *testing.T) {
	r := newTestRenderer(t, nil)
	answer := r.NewChallenge().Code()

	testCases := []struct {
		name  string
		value interface{}
		want  bool
	}{
		{name: "nil", value: nil, want: false},
		{name: "exact string", value: answer, want: true},
		{name: "bytes", value: []byte(answer), want: true},
		{name: "stringer", value: stringer(answer), want: true},
		{name: "number", value: 12345, want: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := r.VerifyValue(tc.value)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

type stringer string

func (s stringer) String() string { return string(s) }

func TestRenderer_NewChallengeReplacesPrevious(t *testing.T) {
	r := newTestRenderer(t, nil)
	first := r.NewChallenge()
	second := r.NewChallenge()

	assert.Same(t, second, r.Current())
	assert.NotSame(t, first.Image(), second.Image())

	ok, err := r.Verify(first.Code())
	require.NoError(t, err)
	assert.Equal(t, first.Code() == second.Code(), ok)

	ok, err = r.Verify(second.Code())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRenderer_ImageSizeMatchesConfig(t *testing.T) {
	testCases := []struct {
		width, height, length, lines int
	}{
		{width: 1, height: 1, length: 1, lines: 0},
		{width: 1, height: 1, length: 20, lines: 30},
		{width: 40, height: 10, length: 12, lines: 10},
		{width: 200, height: 50, length: 5, lines: 10},
		{width: 1024, height: 64, length: 3, lines: 100},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%dx%d/%d/%d", tc.width, tc.height, tc.length, tc.lines), func(t *testing.T) {
			r := newTestRenderer(t, func(c *Config) {
				c.Width, c.Height = tc.width, tc.height
				c.CodeLength = tc.length
				c.LineCount = tc.lines
			})
			ch := r.NewChallenge()
			assert.Equal(t, image.Rect(0, 0, tc.width, tc.height), ch.Image().Bounds())
			assert.Len(t, ch.Code(), tc.length+1)
		})
	}
}

func TestRenderer_BorderAndBackground(t *testing.T) {
	r := newTestRenderer(t, func(c *Config) { c.LineCount = 0 })
	img := r.NewChallenge().Image()

	assertRegion(t, img, image.Rect(0, 0, 300, 1), BorderColor)
	assertRegion(t, img, image.Rect(0, 199, 300, 200), BorderColor)
	assertRegion(t, img, image.Rect(0, 0, 1, 200), BorderColor)
	assertRegion(t, img, image.Rect(299, 0, 300, 200), BorderColor)

	// Glyphs start 15px down and are about one font size tall.
	assertRegion(t, img, image.Rect(1, 100, 299, 199), testBackground)
	assert.True(t, regionDiffers(img, image.Rect(15, 15, 300, 60), testBackground), "no glyph pixels drawn")
}

func TestRenderer_FixedLinesStayInRange(t *testing.T) {
	r := newTestRenderer(t, func(c *Config) {
		c.Width, c.Height = 600, 400
		c.LineCount = 50
	})
	img := r.NewChallenge().Image()

	// Endpoints are sampled below 150px; allow for the 2px pen.
	assertRegion(t, img, image.Rect(1, 160, 599, 399), testBackground)
	assertRegion(t, img, image.Rect(160, 80, 599, 399), testBackground)
	assert.True(t, regionDiffers(img, image.Rect(1, 60, 160, 160), testBackground), "no line pixels drawn")
}

func TestRenderer_RelativeLinesScaleWithCanvas(t *testing.T) {
	r := newTestRenderer(t, func(c *Config) {
		c.Width, c.Height = 600, 400
		c.LineCount = 50
		c.LineMode = LineModeRelative
	})
	img := r.NewChallenge().Image()

	assertRegion(t, img, image.Rect(455, 305, 599, 399), testBackground)
	assert.True(t, regionDiffers(img, image.Rect(160, 160, 455, 305), testBackground), "lines did not leave the fixed corner")
}

func TestRenderer_ZeroLines(t *testing.T) {
	withLines := newTestRenderer(t, func(c *Config) { c.LineCount = 10 })
	without := newTestRenderer(t, func(c *Config) { c.LineCount = 0 })

	a := withLines.NewChallenge()
	b := without.NewChallenge()
	assert.Equal(t, a.Code(), b.Code())
	assert.NotEqual(t, a.Image().Pix, b.Image().Pix)

	ok, err := without.Verify(b.Code())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRenderer_SeededIsDeterministic(t *testing.T) {
	a := newTestRenderer(t, nil)
	b := newTestRenderer(t, nil)
	for i := 0; i < 3; i++ {
		ca, cb := a.NewChallenge(), b.NewChallenge()
		assert.Equal(t, ca.Code(), cb.Code())
		assert.True(t, bytes.Equal(ca.Image().Pix, cb.Image().Pix), "render %d differs", i)
	}
}

func TestRenderer_TransparentBackground(t *testing.T) {
	r := newTestRenderer(t, func(c *Config) {
		c.Background = color.NRGBA{}
		c.LineCount = 0
	})
	img := r.NewChallenge().Image()
	assert.Equal(t, color.RGBA{}, img.RGBAAt(150, 180))
	assert.Equal(t, BorderColor, img.RGBAAt(0, 100))
}

func TestRenderer_Setters(t *testing.T) {
	r := newTestRenderer(t, nil)
	before := r.Config()

	assert.ErrorIs(t, r.SetSize(0, 10), ErrInvalidSize)
	assert.ErrorIs(t, r.SetCodeLength(0), code.ErrInvalidLength)
	assert.ErrorIs(t, r.SetLineCount(-1), ErrInvalidLineCount)
	assert.ErrorIs(t, r.SetBackground(nil), ErrInvalidColor)
	assert.ErrorIs(t, r.SetFont(FontSpec{Family: "nope", Size: 12}), ErrUnknownFont)
	assert.ErrorIs(t, r.SetColors(color.White, nil, color.Black), ErrInvalidColor)
	assert.Equal(t, before, r.Config())

	require.NoError(t, r.SetColors(color.Black, color.White, color.White))
	assert.Equal(t, color.Black, r.Config().Background)

	require.NoError(t, r.SetSize(400, 120))
	require.NoError(t, r.SetCodeLength(8))
	require.NoError(t, r.SetLineCount(0))
	require.NoError(t, r.SetLineMode(LineModeRelative))
	require.NoError(t, r.SetBackground(color.White))
	require.NoError(t, r.SetForeground(color.Black))
	require.NoError(t, r.SetLineColor(color.Gray{Y: 0x40}))

	cfg := r.Config()
	assert.Equal(t, 400, cfg.Width)
	assert.Equal(t, 8, cfg.CodeLength)
	assert.Equal(t, LineModeRelative, cfg.LineMode)

	ch := r.NewChallenge()
	assert.Equal(t, image.Rect(0, 0, 400, 120), ch.Image().Bounds())
	assert.Len(t, ch.Code(), 9)
}

func TestRenderer_SetFont(t *testing.T) {
	r := newTestRenderer(t, func(c *Config) { c.LineCount = 0 })
	for _, family := range FontFamilies() {
		require.NoError(t, r.SetFont(FontSpec{Family: family, Size: 30}))
		assert.Equal(t, FontSpec{Family: family, Size: 30}, r.Config().Font)
		img := r.NewChallenge().Image()
		assert.True(t, regionDiffers(img, image.Rect(15, 15, 300, 70), testBackground), "%s drew nothing", family)
	}

	require.NoError(t, r.SetFont(FontSpec{Family: "gomono"}))
	assert.GreaterOrEqual(t, r.Config().Font.Size, 24.0)
	assert.Less(t, r.Config().Font.Size, 28.0)
}

func TestRenderer_Reset(t *testing.T) {
	r := newTestRenderer(t, nil)
	first := r.NewChallenge().Code()

	require.NoError(t, r.SetCodeLength(9))
	require.NoError(t, r.SetSize(500, 100))
	r.SetDirectory("elsewhere")
	r.NewChallenge()

	r.Reset()
	_, err := r.Verify(first)
	assert.ErrorIs(t, err, ErrNoChallenge)

	cfg := r.Config()
	assert.Equal(t, code.DefaultLength, cfg.CodeLength)
	assert.Equal(t, DefaultDirectory, cfg.Directory)
	assert.Equal(t, 500, cfg.Width)
	assert.Equal(t, testBackground, cfg.Background)

	// A seeded renderer replays its sequence after Reset.
	assert.Equal(t, first, r.NewChallenge().Code())
}

func TestRenderer_ResetReplaysRandomFontSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 99
	r, err := New(cfg)
	require.NoError(t, err)
	size := r.Config().Font.Size

	first := r.NewChallenge()
	r.NewChallenge()
	r.Reset()

	assert.Equal(t, size, r.Config().Font.Size)
	again := r.NewChallenge()
	assert.Equal(t, first.Code(), again.Code())
	assert.Equal(t, first.img.Pix, again.img.Pix)
}

func TestRenderer_SetFontSizeSurvivesReset(t *testing.T) {
	r := newTestRenderer(t, nil)
	require.NoError(t, r.SetFont(FontSpec{Family: DefaultFontFamily, Size: 40}))
	first := r.NewChallenge().Code()

	r.Reset()
	assert.Equal(t, float64(40), r.Config().Font.Size)
	assert.Equal(t, first, r.NewChallenge().Code())
}

func TestRenderer_SetConfigReseeds(t *testing.T) {
	r := newTestRenderer(t, nil)
	r.NewChallenge()
	r.NewChallenge()

	cfg := r.Config()
	cfg.Seed = 7
	require.NoError(t, r.SetConfig(cfg))
	got := r.NewChallenge()

	want := newTestRenderer(t, func(c *Config) { c.Seed = 7 }).NewChallenge()
	assert.Equal(t, want.Code(), got.Code())
	assert.Equal(t, want.img.Pix, got.img.Pix)
}

func TestRenderer_SetConfigReseedsRandomFontSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = 1
	r, err := New(cfg)
	require.NoError(t, err)
	r.NewChallenge()

	cfg.Seed = 99
	require.NoError(t, r.SetConfig(cfg))
	got := r.NewChallenge()

	fresh, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, fresh.Config().Font.Size, r.Config().Font.Size)
	assert.Equal(t, fresh.NewChallenge().Code(), got.Code())
}

func TestRenderer_SetConfigInvalidKeepsSequence(t *testing.T) {
	r := newTestRenderer(t, nil)
	twin := newTestRenderer(t, nil)

	cfg := r.Config()
	cfg.Seed = 7
	cfg.Width = 0
	assert.ErrorIs(t, r.SetConfig(cfg), ErrInvalidConfig)

	assert.Equal(t, uint64(20240305), r.Config().Seed)
	assert.Equal(t, twin.NewChallenge().Code(), r.NewChallenge().Code())
}

func TestRenderer_SaveCurrentImage(t *testing.T) {
	r := newTestRenderer(t, nil)

	_, err := r.SaveCurrentImage()
	assert.ErrorIs(t, err, ErrNoChallenge)

	dir := filepath.Join(t.TempDir(), "out")
	r.SetDirectory(dir)
	ch := r.NewChallenge()

	path, err := r.SaveCurrentImage()
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Equal(t, ".bmp", filepath.Ext(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	decoded, err := bmp.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, ch.Image().Bounds(), decoded.Bounds())
}

func TestRenderer_SaveFailureKeepsChallenge(t *testing.T) {
	r := newTestRenderer(t, nil)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	r.SetDirectory(filepath.Join(blocker, "sub"))

	ch := r.NewChallenge()
	pix := append([]byte(nil), ch.Image().Pix...)

	_, err := r.SaveCurrentImage()
	assert.ErrorIs(t, err, storage.ErrIO)

	assert.Same(t, ch, r.Current())
	assert.Equal(t, pix, r.Current().Image().Pix)
	ok, err := r.Verify(ch.Code())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRenderer_Logger(t *testing.T) {
	r := newTestRenderer(t, nil)
	rec := &recordingLogger{}
	r.Logger = rec

	ch := r.NewChallenge()
	require.NotEmpty(t, rec.infos)
	for _, line := range rec.infos {
		assert.NotContains(t, line, ch.Code())
	}
}

type recordingLogger struct {
	infos  []string
	errors []string
}

func (l *recordingLogger) Infof(component, format string, args ...interface{}) {
	l.infos = append(l.infos, component+": "+fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Errorf(component, format string, args ...interface{}) {
	l.errors = append(l.errors, component+": "+fmt.Sprintf(format, args...))
}

func TestChallenge_Encoding(t *testing.T) {
	ch := newTestRenderer(t, nil).NewChallenge()

	b, err := ch.EncodePNG()
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, ch.Image().Bounds(), decoded.Bounds())

	b, err = ch.EncodeBMP()
	require.NoError(t, err)
	decoded, err = bmp.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, ch.Image().Bounds(), decoded.Bounds())

	uri, err := ch.DataURI()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
	assert.NotContains(t, uri, ch.Code())
}

func TestVerifyCode(t *testing.T) {
	assert.True(t, VerifyCode("aB3", "aB3"))
	assert.False(t, VerifyCode("aB3", "ab3"))
	assert.False(t, VerifyCode("", ""))
}

func TestParseHexColor(t *testing.T) {
	testCases := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{in: "#ffdc00", want: color.NRGBA{R: 0xFF, G: 0xDC, B: 0x00, A: 0xFF}},
		{in: "9000ff", want: color.NRGBA{R: 0x90, G: 0x00, B: 0xFF, A: 0xFF}},
		{in: "#f0f", want: color.NRGBA{R: 0xFF, G: 0x00, B: 0xFF, A: 0xFF}},
		{in: "#00000000", want: color.NRGBA{}},
		{in: "#12345", wantErr: true},
		{in: "#gggggg", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseHexColor(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLineMode_String(t *testing.T) {
	assert.Equal(t, "fixed", LineModeFixed.String())
	assert.Equal(t, "relative", LineModeRelative.String())
	assert.Equal(t, "unknown", LineMode(9).String())
}
