// Package api exposes editor sessions over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ByLCY/docbuilder/address"
	"github.com/ByLCY/docbuilder/config"
	"github.com/ByLCY/docbuilder/export"
	"github.com/ByLCY/docbuilder/layout"
	"github.com/ByLCY/docbuilder/renderer"
	"github.com/ByLCY/docbuilder/store"
	"github.com/ByLCY/docbuilder/style"
)

// maxBodyBytes bounds uploaded templates and documents.
const maxBodyBytes = 10 << 20

// Deps are the collaborators of the server. Drafts and Exporter are optional.
type Deps struct {
	Measurer layout.Measurer
	PDF      renderer.Renderer
	Docx     renderer.Renderer
	Drafts   *store.Store
	Exporter *export.Client
}

// Server is the HTTP API server for editor sessions.
type Server struct {
	router chi.Router
	log    *slog.Logger
	cfg    config.Config
	deps   Deps

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewServer creates and configures the HTTP server.
func NewServer(cfg config.Config, deps Deps, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		log:      log,
		cfg:      cfg,
		deps:     deps,
		sessions: map[string]*session{},
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)
	r.Get("/api/fonts", s.handleFonts)

	r.Post("/api/documents", s.handleCreate)
	r.Post("/api/documents/import", s.handleImportDocx)
	r.Route("/api/documents/{docID}", func(r chi.Router) {
		r.Get("/", s.handleGet)
		r.Delete("/", s.handleClose)

		r.Put("/lines/{lineID}/text", s.handleText)
		r.Post("/lines/{lineID}/enter", s.handleEnter)
		r.Post("/lines/{lineID}/join", s.handleJoin)
		r.Post("/lines/{lineID}/focus", s.handleFocus)
		r.Patch("/lines/{lineID}/style", s.handleStyle)
		r.Delete("/lines/{lineID}", s.handleDeleteLine)
		r.Post("/headings", s.handleAddHeading)
		r.Delete("/columns/{columnID}/trailing", s.handleTrimColumn)

		r.Post("/notice/hold", s.handleNoticeHold)
		r.Post("/notice/release", s.handleNoticeRelease)

		r.Get("/export.pdf", s.handleExport(".pdf"))
		r.Get("/export.docx", s.handleExport(".docx"))
		r.Post("/drafts", s.handleSaveDraft)
	})

	r.Get("/api/drafts", s.handleListDrafts)
	r.Post("/api/drafts/{draftID}/open", s.handleOpenDraft)
	r.Delete("/api/drafts/{draftID}", s.handleDeleteDraft)

	s.router = r
}

// Close ends every session.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		sess.board.Close()
		delete(s.sessions, id)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleFonts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"sizes":    style.Sizes,
		"families": style.Families,
		"default":  style.Default(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// jsonError writes the {status, error, message, path} error shape.
func jsonError(w http.ResponseWriter, r *http.Request, msg string, code int) {
	writeJSON(w, code, export.APIError{
		Status:  code,
		Cause:   http.StatusText(code),
		Message: msg,
		Path:    r.URL.Path,
	})
}

// errorStatus maps engine and style errors onto HTTP status codes.
func errorStatus(err error) int {
	var apiErr *export.APIError
	switch {
	case errors.Is(err, layout.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, layout.ErrCapacityExceeded):
		return http.StatusConflict
	case errors.Is(err, address.ErrMalformed),
		errors.Is(err, style.ErrSizeNotInScale),
		errors.Is(err, style.ErrUnknownField):
		return http.StatusBadRequest
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}
