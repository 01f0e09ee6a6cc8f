package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"ListingScraper/pkg/config"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Runner executes one scrape and returns the path of the written file.
type Runner func(ctx context.Context, landingURL string, pages int) (string, error)

type pageData struct {
	URL      string
	Pages    int
	Error    string
	Filename string
}

// Server is the web front-end: a form that starts a scrape and a download
// endpoint for the resulting file.
type Server struct {
	run       Runner
	outputDir string

	// running is held for the whole of a scrape; the run owns the only
	// browser session and the output file.
	running sync.Mutex
}

// New returns a server that serves downloads from outputDir.
func New(run Runner, outputDir string) *Server {
	return &Server{run: run, outputDir: outputDir}
}

// Handler returns the routes of the front-end.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.indexHandler)
	mux.HandleFunc("POST /{$}", s.scrapeHandler)
	mux.HandleFunc("GET /download/{filename}", s.downloadHandler)
	return mux
}

// Start listens on cfg.Server.Addr until the listener fails.
func Start(cfg *config.Config, run Runner) error {
	s := New(run, filepath.Dir(cfg.Output.Path))
	log.Printf("Starting web front-end on %s", cfg.Server.Addr)
	return http.ListenAndServe(cfg.Server.Addr, s.Handler())
}

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	render(w, http.StatusOK, pageData{Pages: 1})
}

func (s *Server) scrapeHandler(w http.ResponseWriter, r *http.Request) {
	landingURL := strings.TrimSpace(r.FormValue("product_url"))
	data := pageData{URL: landingURL, Pages: 1}

	if landingURL == "" {
		data.Error = "Please enter a valid Amazon landing page URL"
		render(w, http.StatusBadRequest, data)
		return
	}

	if raw := strings.TrimSpace(r.FormValue("pages")); raw != "" {
		pages, err := strconv.Atoi(raw)
		if err != nil || pages < 1 {
			data.Error = "Number of pages must be a positive whole number"
			render(w, http.StatusBadRequest, data)
			return
		}
		data.Pages = pages
	}

	if !s.running.TryLock() {
		data.Error = "A scrape is already running, try again when it finishes"
		render(w, http.StatusConflict, data)
		return
	}
	defer s.running.Unlock()

	log.Printf("Scrape requested: %s (%d pages)", landingURL, data.Pages)
	// the run outlives a client that disconnects mid-scrape so the file is still written
	path, err := s.run(context.WithoutCancel(r.Context()), landingURL, data.Pages)
	if err != nil {
		log.Printf("Scrape failed: %v", err)
		data.Error = fmt.Sprintf("An error occurred: %v", err)
		render(w, http.StatusInternalServerError, data)
		return
	}

	data.Filename = filepath.Base(path)
	render(w, http.StatusOK, data)
}

func (s *Server) downloadHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	path := filepath.Join(s.outputDir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	http.ServeFile(w, r, path)
}

func render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("Failed to render page: %v", err)
	}
}
