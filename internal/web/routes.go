package web

import (
	"io/fs"
	"net/http"
	"path"

	"github.com/rook-computer/captcha/internal/assets"
)

// Logger is the component logger shape shared with internal/app.
type Logger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Infof(string, string, ...interface{})  {}
func (noopLogger) Errorf(string, string, ...interface{}) {}

// RegisterAPIV1 registers the public API routes under /api/v1/.
func RegisterAPIV1(mux *http.ServeMux, svc ChallengeService, logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", apiV1Router(svc, logger)))
}

// RegisterUI serves the embedded page at "/".
func RegisterUI(mux *http.ServeMux) {
	mux.Handle("/", StaticUIHandler(assets.WebUI))
}

// StaticUIHandler serves files from fsys with cleaned paths.
func StaticUIHandler(fsys fs.FS) http.Handler {
	fileServer := http.FileServer(http.FS(fsys))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.URL.Path = path.Clean("/" + r.URL.Path)
		fileServer.ServeHTTP(w, r)
	})
}

// NewDefaultMux builds the standard mux:
// - /api/v1/* for the API
// - / for the web UI
func NewDefaultMux(svc ChallengeService, logger Logger) *http.ServeMux {
	mux := http.NewServeMux()
	RegisterAPIV1(mux, svc, logger)
	RegisterUI(mux)
	return mux
}
