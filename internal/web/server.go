// Package web serves the detection page and bridges form submissions to the
// screen controllers.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shahabahmd/soil-vegetation-detection/internal/screen"
)

//go:embed templates/*.tmpl static/*
var assets embed.FS

// sessionCookie names the cookie tying a browser to its screen controller.
const sessionCookie = "svd_session"

// maxUploadSize caps the multipart request body at 50MB.
const maxUploadSize = 50 << 20

// Server is the HTTP surface of the detection UI.
type Server struct {
	sessions *screen.Store
	tmpl     *template.Template
}

// NewServer creates the server around the given session store.
func NewServer(sessions *screen.Store) *Server {
	return &Server{
		sessions: sessions,
		tmpl:     template.Must(template.ParseFS(assets, "templates/*.tmpl")),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /detect", s.handleDetect)
	mux.HandleFunc("GET /preview/{token}", s.handlePreview)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	static, err := fs.Sub(assets, "static")
	if err != nil {
		// static assets are compiled in; a missing subtree is a build defect
		panic(err)
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))

	return requestLog(mux)
}

// requestLog logs each request with its duration.
func requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// session resolves the browser's screen controller from the session cookie,
// creating a session (and setting the cookie) when needed.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *screen.Controller {
	var token string
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		token = cookie.Value
	}

	newToken, controller := s.sessions.GetOrCreate(token)
	if newToken != token {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    newToken,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return controller
}
