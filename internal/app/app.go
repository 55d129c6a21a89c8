package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rook-computer/captcha/internal/display"
	"github.com/rook-computer/captcha/internal/render"
)

const (
	MsgCorrect    = "Correct"
	MsgNotCorrect = "Not Correct"
)

// App runs the interactive loop: draw a challenge, show it, save it, read a
// guess and report the result.
type App struct {
	Renderer *render.Renderer
	Display  display.Display
	Logger   Logger

	In  io.Reader
	Out io.Writer

	// Save writes every challenge to the renderer's directory.
	Save bool
	// Rounds stops the loop after that many guesses; 0 runs until input ends.
	Rounds int
}

func New(r *render.Renderer, d display.Display, in io.Reader, out io.Writer) *App {
	return &App{Renderer: r, Display: d, Logger: NoopLogger{}, In: in, Out: out, Save: true}
}

// Result is the outcome of one round.
type Result struct {
	Guess   string
	Correct bool
	Path    string
}

// Run plays rounds until ctx is done, input ends or Rounds is reached. End of
// input is not an error.
func (app *App) Run(ctx context.Context) ([]Result, error) {
	if app.Logger == nil {
		app.Logger = NoopLogger{}
	}
	if app.Display == nil {
		app.Display = display.Noop{}
	}
	reader := bufio.NewReader(app.In)

	var results []Result
	for app.Rounds == 0 || len(results) < app.Rounds {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := app.round(reader)
		if errors.Is(err, io.EOF) {
			return results, nil
		}
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (app *App) round(reader *bufio.Reader) (Result, error) {
	ch := app.Renderer.NewChallenge()
	if err := app.Display.Show(ch.Image()); err != nil {
		app.Logger.Errorf("app", "display: %v", err)
	}

	var res Result
	if app.Save {
		path, err := app.Renderer.SaveCurrentImage()
		if err != nil {
			// The challenge is still valid; the player just has no file to open.
			app.Logger.Errorf("app", "save: %v", err)
			fmt.Fprintf(app.Out, "Could not save image: %v\n", err)
		} else {
			res.Path = path
			fmt.Fprintf(app.Out, "Image saved to %s\n", path)
		}
	}

	fmt.Fprint(app.Out, "Enter the code: ")
	line, err := reader.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		fmt.Fprintln(app.Out)
		return Result{}, err
	}
	res.Guess = strings.TrimRight(line, "\r\n")

	ok, err := app.Renderer.Verify(res.Guess)
	if err != nil {
		return Result{}, err
	}
	res.Correct = ok
	if ok {
		fmt.Fprintln(app.Out, MsgCorrect)
	} else {
		fmt.Fprintln(app.Out, MsgNotCorrect)
	}
	app.Logger.Infof("app", "guess checked, correct=%t", ok)
	return res, nil
}
