package display

import (
	"image"
	"image/color"
	"image/draw"
	"sync"

	fb "github.com/gonutz/framebuffer"
	xdraw "golang.org/x/image/draw"
)

const DefaultDevice = "/dev/fb0"

// Display shows a challenge image to the person solving it.
type Display interface {
	Show(img image.Image) error
	Close() error
}

// Noop discards images. It is used when no screen is attached.
type Noop struct{}

func (Noop) Show(image.Image) error { return nil }
func (Noop) Close() error           { return nil }

type Logger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Infof(string, string, ...interface{})  {}
func (noopLogger) Errorf(string, string, ...interface{}) {}

// surface is the part of *fb.Device that blitting needs.
type surface interface {
	Bounds() image.Rectangle
	Set(x, y int, c color.Color)
}

// FBDisplay draws onto the Linux framebuffer.
type FBDisplay struct {
	Logger Logger
	// Background fills the letterbox around the scaled image.
	Background color.Color

	mu  sync.Mutex
	dev *fb.Device
}

// OpenFB opens the framebuffer device at path, DefaultDevice when empty, and
// puts the console into graphics mode until Close.
func OpenFB(path string, logger Logger) (*FBDisplay, error) {
	if path == "" {
		path = DefaultDevice
	}
	if logger == nil {
		logger = noopLogger{}
	}
	dev, err := fb.Open(path)
	if err != nil {
		return nil, err
	}
	bounds := dev.Bounds()
	logger.Infof("fb", "framebuffer open, bounds=%dx%d", bounds.Dx(), bounds.Dy())
	enterGraphics(logger)
	return &FBDisplay{Logger: logger, Background: color.Black, dev: dev}, nil
}

// Show scales img to the largest size that fits the screen, keeping its
// aspect ratio, and centers it.
func (d *FBDisplay) Show(img image.Image) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev == nil {
		return nil
	}
	bounds := d.dev.Bounds()
	blit(d.dev, Compose(img, bounds.Size(), d.Background))
	if d.Logger != nil {
		d.Logger.Infof("fb", "challenge shown, screen=%dx%d image=%dx%d",
			bounds.Dx(), bounds.Dy(), img.Bounds().Dx(), img.Bounds().Dy())
	}
	return nil
}

func (d *FBDisplay) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev != nil {
		d.dev.Close()
		d.dev = nil
		if d.Logger != nil {
			leaveGraphics(d.Logger)
		}
	}
	return nil
}

// Fit returns the largest rectangle with src's aspect ratio that fits in a
// dst-sized screen, centered.
func Fit(src image.Rectangle, dst image.Point) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	if sw <= 0 || sh <= 0 || dst.X <= 0 || dst.Y <= 0 {
		return image.Rectangle{}
	}
	w, h := dst.X, sh*dst.X/sw
	if h > dst.Y {
		w, h = sw*dst.Y/sh, dst.Y
	}
	x := (dst.X - w) / 2
	y := (dst.Y - h) / 2
	return image.Rect(x, y, x+w, y+h)
}

// Compose returns a screen-sized, fully opaque frame with img scaled in.
func Compose(img image.Image, screen image.Point, bg color.Color) *image.RGBA {
	frame := image.NewRGBA(image.Rectangle{Max: screen})
	if bg == nil {
		bg = color.Black
	}
	draw.Draw(frame, frame.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)
	if img == nil {
		return frame
	}
	target := Fit(img.Bounds(), screen)
	if target.Empty() {
		return frame
	}
	xdraw.NearestNeighbor.Scale(frame, target, img, img.Bounds(), xdraw.Over, nil)
	return frame
}

func blit(dst surface, frame *image.RGBA) {
	bounds := dst.Bounds()
	for y := 0; y < bounds.Dy() && y < frame.Rect.Dy(); y++ {
		for x := 0; x < bounds.Dx() && x < frame.Rect.Dx(); x++ {
			p := frame.RGBAAt(x, y)
			dst.Set(bounds.Min.X+x, bounds.Min.Y+y, color.RGBA{R: p.R, G: p.G, B: p.B, A: 0xFF})
		}
	}
}
