package render

import (
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/fogleman/gg"
	"github.com/rook-computer/captcha/internal/code"
	"github.com/rook-computer/captcha/internal/render/layout"
	"github.com/rook-computer/captcha/internal/storage"
	"github.com/spf13/cast"
	"golang.org/x/exp/rand"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const lineWidth = 2

// Renderer draws challenges and remembers the most recent one.
//
// A Renderer is not safe for concurrent use: every NewChallenge replaces the
// held challenge in place. Use one Renderer per session or lock around it.
type Renderer struct {
	cfg     Config
	rng     *rand.Rand
	gen     *code.Generator
	face    font.Face
	current *Challenge

	// randomSize records that the font size came from the random source, so
	// reseeding draws it again and replays the same sequence.
	randomSize bool

	Logger interface {
		Infof(string, string, ...interface{})
		Errorf(string, string, ...interface{})
	}
}

// New validates cfg and returns a Renderer. The generator and the line sampler
// share one random source owned by the Renderer.
func New(cfg Config) (*Renderer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Renderer{randomSize: cfg.Font.Size == 0}
	cfg = r.reseed(cfg)
	if err := r.apply(cfg, true); err != nil {
		return nil, err
	}
	return r, nil
}

// reseed replaces the random source from cfg.Seed and, for a random font
// size, redraws it first, exactly as New does.
func (r *Renderer) reseed(cfg Config) Config {
	r.rng = code.NewRand(seedFor(cfg))
	if r.randomSize {
		cfg.Font.Size = r.defaultFontSize()
	}
	return cfg
}

func seedFor(cfg Config) uint64 {
	if cfg.Seed != 0 {
		return cfg.Seed
	}
	return uint64(time.Now().UnixNano())
}

// defaultFontSize is 10 plus a draw from [14, 18).
func (r *Renderer) defaultFontSize() float64 {
	return float64(10 + 14 + r.rng.Intn(4))
}

// apply installs a validated config, rebuilding the generator and font face
// when their inputs change. reseeded means r.rng was just replaced.
func (r *Renderer) apply(next Config, reseeded bool) error {
	if err := next.Validate(); err != nil {
		return err
	}
	if reseeded || r.gen == nil || next.CodeLength != r.cfg.CodeLength {
		gen, err := code.New(next.CodeLength, r.rng)
		if err != nil {
			return err
		}
		r.gen = gen
	}
	if r.face == nil || next.Font != r.cfg.Font {
		r.face = r.loadFace(next.Font)
	}
	r.cfg = next
	return nil
}

func (r *Renderer) loadFace(spec FontSpec) font.Face {
	face, err := newFace(spec)
	if err != nil {
		if r.Logger != nil {
			r.Logger.Errorf("render", "font %s %.0fpx unavailable, using basicfont: %v", spec.Family, spec.Size, err)
		}
		return basicfont.Face7x13
	}
	return face
}

// Config returns a copy of the current configuration.
func (r *Renderer) Config() Config { return r.cfg }

// Current returns the most recent challenge, or nil before the first render.
func (r *Renderer) Current() *Challenge { return r.current }

// NewChallenge generates a code, draws it and makes it the current challenge.
func (r *Renderer) NewChallenge() *Challenge {
	cfg := r.cfg
	text := r.gen.Generate()

	canvas := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: cfg.Background}, image.Point{}, draw.Src)
	drawBorder(canvas, BorderColor)
	drawCode(canvas, text, cfg.Foreground, r.face)
	r.drawLines(canvas, cfg)

	r.current = &Challenge{code: text, img: canvas}
	if r.Logger != nil {
		r.Logger.Infof("render", "challenge rendered, %dx%d, %d glyphs, %d lines", cfg.Width, cfg.Height, len(text), cfg.LineCount)
	}
	return r.current
}

func drawBorder(canvas *image.RGBA, c color.Color) {
	src := &image.Uniform{C: c}
	for _, edge := range layout.Edges(canvas.Bounds()) {
		draw.Draw(canvas, edge, src, image.Point{}, draw.Src)
	}
}

// drawCode places glyph i with its top-left corner at layout.GlyphOrigin; the
// text is neither wrapped nor shrunk to fit.
func drawCode(canvas *image.RGBA, text string, fg color.Color, face font.Face) {
	drawer := &font.Drawer{
		Dst:  canvas,
		Src:  &image.Uniform{C: fg},
		Face: face,
	}
	ascent := face.Metrics().Ascent.Ceil()
	width := canvas.Bounds().Dx()
	for i := 0; i < len(text); i++ {
		origin := layout.GlyphOrigin(width, i)
		drawer.Dot = fixed.P(origin.X, origin.Y+ascent)
		drawer.DrawString(text[i : i+1])
	}
}

func (r *Renderer) drawLines(canvas *image.RGBA, cfg Config) {
	if cfg.LineCount == 0 {
		return
	}
	from, to := layout.FixedLineAreas()
	if cfg.LineMode == LineModeRelative {
		from, to = layout.RelativeLineAreas(cfg.Width, cfg.Height)
	}

	dc := gg.NewContextForRGBA(canvas)
	dc.SetColor(cfg.LineColor)
	dc.SetLineWidth(lineWidth)
	for i := 0; i < cfg.LineCount; i++ {
		a := from.Pick(r.rng.Intn)
		b := to.Pick(r.rng.Intn)
		dc.DrawLine(float64(a.X), float64(a.Y), float64(b.X), float64(b.Y))
		dc.Stroke()
	}
}

// Verify compares guess with the current challenge's code. It fails with
// ErrNoChallenge until NewChallenge has been called.
func (r *Renderer) Verify(guess string) (bool, error) {
	if r.current == nil {
		return false, ErrNoChallenge
	}
	return r.current.Verify(guess), nil
}

// VerifyValue is Verify for any string-convertible value; nil compares as "".
func (r *Renderer) VerifyValue(v interface{}) (bool, error) {
	return r.Verify(cast.ToString(v))
}

// Reset forgets the current challenge and restores the code length, random
// source and directory defaults. Canvas, color, font and line settings stay,
// except that a random font size is drawn again from the new source.
func (r *Renderer) Reset() {
	r.current = nil
	next := r.cfg
	next.CodeLength = code.DefaultLength
	next.Directory = DefaultDirectory
	next = r.reseed(next)
	r.gen = code.MustNew(next.CodeLength, r.rng)
	if next.Font != r.cfg.Font {
		r.face = r.loadFace(next.Font)
	}
	r.cfg = next
}

// SaveCurrentImage writes the current image as a bitmap under the configured
// directory. A failed save leaves the current challenge untouched.
func (r *Renderer) SaveCurrentImage() (string, error) {
	if r.current == nil {
		return "", ErrNoChallenge
	}
	path, err := storage.Saver{Dir: r.cfg.Directory}.Save(r.current.img)
	if err != nil {
		if r.Logger != nil {
			r.Logger.Errorf("render", "save failed: %v", err)
		}
		return "", err
	}
	if r.Logger != nil {
		r.Logger.Infof("render", "challenge saved to %s", path)
	}
	return path, nil
}

// SetConfig replaces the whole configuration; on error nothing changes. A zero
// font size keeps the current one. A different Seed reseeds the random source
// immediately, as if the Renderer had been built with cfg.
func (r *Renderer) SetConfig(cfg Config) error {
	randomSize := r.randomSize
	if cfg.Font.Size == 0 {
		cfg.Font.Size = r.cfg.Font.Size
	} else {
		randomSize = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.randomSize = randomSize
	if cfg.Seed == r.cfg.Seed {
		return r.apply(cfg, false)
	}
	return r.apply(r.reseed(cfg), true)
}

func (r *Renderer) SetSize(width, height int) error {
	next := r.cfg
	next.Width, next.Height = width, height
	return r.apply(next, false)
}

func (r *Renderer) SetCodeLength(length int) error {
	next := r.cfg
	next.CodeLength = length
	return r.apply(next, false)
}

func (r *Renderer) SetLineCount(n int) error {
	next := r.cfg
	next.LineCount = n
	return r.apply(next, false)
}

func (r *Renderer) SetLineMode(mode LineMode) error {
	next := r.cfg
	next.LineMode = mode
	return r.apply(next, false)
}

// SetColors replaces background, foreground and line colors together.
func (r *Renderer) SetColors(bg, fg, line color.Color) error {
	next := r.cfg
	next.Background, next.Foreground, next.LineColor = bg, fg, line
	return r.apply(next, false)
}

func (r *Renderer) SetBackground(c color.Color) error {
	next := r.cfg
	next.Background = c
	return r.apply(next, false)
}

func (r *Renderer) SetForeground(c color.Color) error {
	next := r.cfg
	next.Foreground = c
	return r.apply(next, false)
}

func (r *Renderer) SetLineColor(c color.Color) error {
	next := r.cfg
	next.LineColor = c
	return r.apply(next, false)
}

func (r *Renderer) SetFont(spec FontSpec) error {
	next := r.cfg
	next.Font = spec
	if err := next.Validate(); err != nil {
		return err
	}
	if spec.Size == 0 {
		next.Font.Size = r.defaultFontSize()
	}
	if err := r.apply(next, false); err != nil {
		return err
	}
	r.randomSize = spec.Size == 0
	return nil
}

func (r *Renderer) SetDirectory(dir string) {
	r.cfg.Directory = dir
}
