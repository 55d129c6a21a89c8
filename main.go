package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"os"
	"os/signal"
	"syscall"

	"github.com/rook-computer/captcha/internal/app"
	"github.com/rook-computer/captcha/internal/display"
	"github.com/rook-computer/captcha/internal/render"
)

const envStdioLog = "CAPTCHA_STDIO_LOG"

func main() {
	defaults := render.DefaultConfig()

	// Flags
	length := flag.Int("length", defaults.CodeLength, "code length; the drawn code has one more character")
	width := flag.Int("width", 300, "image width in pixels")
	height := flag.Int("height", 200, "image height in pixels")
	lines := flag.Int("lines", 5, "number of obscuring lines")
	bg := flag.String("bg", "#000000", "background color (#rgb, #rrggbb or #rrggbbaa)")
	fg := flag.String("fg", "#ffffff", "text color")
	lineColor := flag.String("line-color", "#808080", "obscuring line color")
	fontFamily := flag.String("font", render.DefaultFontFamily, fmt.Sprintf("font family %v", render.FontFamilies()))
	fontSize := flag.Float64("font-size", 0, "font size in pixels; 0 picks a random size from 24 to 27")
	dir := flag.String("dir", render.DefaultDirectory, "directory for saved bitmaps")
	relativeLines := flag.Bool("relative-lines", false, "scale obscuring lines with the image instead of fixed pixel ranges")
	seed := flag.Uint64("seed", 0, "random seed; 0 seeds from the clock")
	rounds := flag.Int("rounds", 0, "stop after this many guesses; 0 runs until end of input")
	useFB := flag.Bool("fb", false, "also show challenges on the Linux framebuffer")
	fbDevice := flag.String("fb-device", display.DefaultDevice, "framebuffer device")
	debug := flag.Bool("debug", false, "enable debug logging to ./captcha-debug.log")
	stdioLog := flag.String("stdio-log", "", "redirect stdout+stderr (including panics) to this file; also configurable via "+envStdioLog)
	flag.Parse()

	logPath := *stdioLog
	if logPath == "" {
		logPath = os.Getenv(envStdioLog)
	}
	if logPath != "" {
		if err := redirectStdIO(logPath); err != nil {
			fmt.Println("stdio log redirect error:", err)
		}
	}

	// Local file logger when debug enabled
	var logger app.Logger = app.NoopLogger{}
	if *debug {
		f := app.NewRotatingFile("./captcha-debug.log")
		defer f.Close()
		logger = app.NewFileLogger(f)
		logger.Infof("main", "debug logging enabled")
	}

	cfg := defaults
	cfg.CodeLength = *length
	cfg.Width, cfg.Height = *width, *height
	cfg.LineCount = *lines
	cfg.Font = render.FontSpec{Family: *fontFamily, Size: *fontSize}
	cfg.Directory = *dir
	cfg.Seed = *seed
	if *relativeLines {
		cfg.LineMode = render.LineModeRelative
	}
	for _, c := range []struct {
		flag string
		raw  string
		dst  *color.Color
	}{
		{"bg", *bg, &cfg.Background},
		{"fg", *fg, &cfg.Foreground},
		{"line-color", *lineColor, &cfg.LineColor},
	} {
		parsed, err := render.ParseHexColor(c.raw)
		if err != nil {
			fmt.Printf("-%s: %v\n", c.flag, err)
			os.Exit(2)
		}
		*c.dst = parsed
	}

	renderer, err := render.New(cfg)
	if err != nil {
		fmt.Println("config error:", err)
		os.Exit(2)
	}
	renderer.Logger = logger

	var screen display.Display = display.Noop{}
	if *useFB {
		fbDisplay, err := display.OpenFB(*fbDevice, logger)
		if err != nil {
			fmt.Println("framebuffer error:", err)
			os.Exit(1)
		}
		screen = fbDisplay
	}
	defer screen.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(renderer, screen, os.Stdin, os.Stdout)
	a.Logger = logger
	a.Rounds = *rounds
	if _, err := a.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}
