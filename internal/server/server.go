// Package server serves the workbench as a single HTML page with one panel
// per stage. Every form post runs one stage to completion against the
// caller's session and re-renders the page.
package server

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/automl/dataframe"
	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/workbench"
)

//go:embed templates/*.html
var templateFS embed.FS

// CountsLimit is the exclusive nunique bound of value-count columns.
const CountsLimit = 40

// Options configures a Server.
type Options struct {
	// MaxUploadBytes bounds the upload request body.
	MaxUploadBytes int64
	Logger         zerolog.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	wb    *workbench.Workbench
	store *workbench.Store
	opts  Options
	log   zerolog.Logger
	tmpl  *template.Template
}

var funcs = template.FuncMap{
	"f4": func(v float64) string { return fmt.Sprintf("%.4f", v) },
	"join": strings.Join,
	"label": dataframe.FormatFloat,
	"pathEscape": func(s string) string {
		return strings.ReplaceAll(template.URLQueryEscaper(s), "+", "%20")
	},
}

// New parses the embedded templates.
func New(wb *workbench.Workbench, store *workbench.Store, opts Options) (*Server, error) {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 200 << 20
	}
	tmpl, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "parse templates")
	}
	return &Server{
		wb:    wb,
		store: store,
		opts:  opts,
		log:   opts.Logger.With().Str("component", "http").Logger(),
		tmpl:  tmpl,
	}, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.withSession)

		r.Get("/", s.handleIndex)
		r.Post("/upload", s.handleUpload)
		r.Post("/clean", s.handleClean)
		r.Post("/preprocess", s.handlePreprocess)
		r.Post("/train", s.handleTrain)

		r.Get("/charts/correlation.png", s.handleCorrelation)
		r.Get("/charts/counts/{column}.png", s.handleCounts)
		r.Get("/models/{index}/download", s.handleDownload)
	})
	return r
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
