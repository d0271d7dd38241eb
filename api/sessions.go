package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ByLCY/docbuilder/dsl"
	"github.com/ByLCY/docbuilder/importer"
	"github.com/ByLCY/docbuilder/layout"
)

// session is one open document. Its engine is single-threaded: every request
// and every liveness check from the notice board holds mu.
type session struct {
	mu      sync.Mutex
	id      string
	draftID string
	engine  *layout.Engine
	board   *layout.NoticeBoard
}

func (sess *session) live(key string) bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.engine != nil && sess.engine.Has(key)
}

// documentView is the read model returned to clients.
type documentView struct {
	ID       string          `json:"id"`
	Document layout.Snapshot `json:"document"`
	Focus    string          `json:"focus,omitempty"`
	Notice   *layout.Notice  `json:"notice,omitempty"`
	Flashing []string        `json:"flashing,omitempty"`
	DraftID  string          `json:"draftId,omitempty"`
}

// view must be called with sess.mu held.
func (sess *session) view() documentView {
	v := documentView{
		ID:       sess.id,
		Document: sess.engine.Snapshot(),
		Focus:    sess.engine.Focused(),
		DraftID:  sess.draftID,
	}
	if n, ok := sess.board.Current(); ok {
		v.Notice = &n
	}
	for _, col := range v.Document.Pages {
		for _, l := range col.Headings {
			if sess.board.Flashing(l.Key) {
				v.Flashing = append(v.Flashing, l.Key)
			}
		}
		for _, lines := range col.Columns {
			for _, l := range lines {
				if sess.board.Flashing(l.Key) {
					v.Flashing = append(v.Flashing, l.Key)
				}
			}
		}
	}
	return v
}

// newSession allocates a session and the options its engine is built with.
func (s *Server) newSession() (*session, layout.Options) {
	sess := &session{id: uuid.Must(uuid.NewV7()).String()}
	sess.board = layout.NewNoticeBoard(s.cfg.NoticeHold, s.cfg.FlashHold, sess.live, s.log)
	opts := layout.Options{
		Measurer: s.deps.Measurer,
		Geometry: s.cfg.Geometry,
		Notifier: sess.board,
		Logger:   s.log.With("session", sess.id),
	}
	return sess, opts
}

func (s *Server) register(sess *session) {
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	s.log.Info("session opened", "session", sess.id)
}

// withSession runs fn with the session's lock held.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(sess *session)) {
	id := chi.URLParam(r, "docID")
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		s.log.Warn("session not found", "session", id)
		jsonError(w, r, "unknown document "+id, http.StatusNotFound)
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	fn(sess)
}

type createRequest struct {
	Orientation string `json:"orientation"`
	Columns     int    `json:"columns"`
	Template    string `json:"template"`
	Data        any    `json:"data"`
	Strict      bool   `json:"strict"`
	Markdown    string `json:"markdown"`
	Title       string `json:"title"`
	FileName    string `json:"fileName"`
}

// handleCreate opens a document: blank, built from a template, or filled
// from markdown.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil && err != io.EOF {
		jsonError(w, r, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	sess, opts := s.newSession()
	if req.Orientation != "" {
		o, err := layout.ParseOrientation(req.Orientation)
		if err != nil {
			jsonError(w, r, err.Error(), http.StatusBadRequest)
			return
		}
		opts.Orientation = o
	}
	opts.Columns = req.Columns
	opts.Meta = layout.DocumentMeta{Title: req.Title, FileName: req.FileName}

	e, err := s.buildEngine(req, opts)
	if err != nil {
		sess.board.Close()
		s.log.Error("create document failed", "error", err)
		jsonError(w, r, err.Error(), errorStatus(err))
		return
	}
	sess.mu.Lock()
	sess.engine = e
	view := sess.view()
	sess.mu.Unlock()
	s.register(sess)
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) buildEngine(req createRequest, opts layout.Options) (*layout.Engine, error) {
	if strings.TrimSpace(req.Template) != "" {
		doc, err := dsl.ParseString(req.Template)
		if err != nil {
			return nil, err
		}
		return layout.Build(doc, req.Data, layout.BuildOptions{Options: opts, Strict: req.Strict})
	}
	e, err := layout.New(opts)
	if err != nil {
		return nil, err
	}
	if req.Markdown != "" {
		blocks, err := importer.Markdown(strings.NewReader(req.Markdown))
		if err != nil {
			return nil, err
		}
		if err := e.Fill(blocks); err != nil {
			return nil, fmt.Errorf("导入 Markdown 失败: %w", err)
		}
	}
	return e, nil
}

// handleImportDocx opens a document from an uploaded .docx body.
func (s *Server) handleImportDocx(w http.ResponseWriter, r *http.Request) {
	blocks, err := importer.Docx(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		jsonError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	sess, opts := s.newSession()
	if o, err := layout.ParseOrientation(r.URL.Query().Get("orientation")); err == nil {
		opts.Orientation = o
	}
	opts.Meta = layout.DocumentMeta{FileName: r.URL.Query().Get("fileName")}
	e, err := layout.New(opts)
	if err == nil {
		err = e.Fill(blocks)
	}
	if err != nil {
		sess.board.Close()
		jsonError(w, r, err.Error(), errorStatus(err))
		return
	}
	sess.mu.Lock()
	sess.engine = e
	view := sess.view()
	sess.mu.Unlock()
	s.register(sess)
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) {
		writeJSON(w, http.StatusOK, sess.view())
	})
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "docID")
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		jsonError(w, r, "unknown document "+id, http.StatusNotFound)
		return
	}
	sess.board.Close()
	s.log.Info("session closed", "session", id)
	w.WriteHeader(http.StatusNoContent)
}

func sessionLogger(log *slog.Logger, sess *session) *slog.Logger {
	return log.With("session", sess.id)
}
