package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ByLCY/docbuilder/export"
	"github.com/ByLCY/docbuilder/layout"
	"github.com/ByLCY/docbuilder/renderer"
)

// handleExport renders the document locally, or through the export backend
// when ?remote=true and a backend is configured.
func (s *Server) handleExport(ext string) http.HandlerFunc {
	pdf := ext == ".pdf"
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			snap  layout.Snapshot
			found bool
		)
		s.withSession(w, r, func(sess *session) {
			snap, found = sess.engine.Snapshot(), true
		})
		if !found {
			return
		}

		name := r.URL.Query().Get("fileName")
		if name == "" {
			name = snap.Meta.FileName
		}
		name = strings.TrimSuffix(strings.TrimSuffix(name, ".docx"), ".pdf")

		var (
			data []byte
			err  error
		)
		if r.URL.Query().Get("remote") == "true" && s.deps.Exporter != nil {
			data, name, err = s.deps.Exporter.ExportDocument(r.Context(), snap, name, pdf)
		} else {
			var ok bool
			if name, ok = export.AdjustFileName(name, pdf); !ok {
				jsonError(w, r, "invalid file name", http.StatusBadRequest)
				return
			}
			data, err = s.render(ext, &snap)
		}
		if err != nil {
			s.log.Error("export failed", "ext", ext, "error", err)
			jsonError(w, r, err.Error(), errorStatus(err))
			return
		}
		w.Header().Set("Content-Type", renderer.ContentType(ext))
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}

func (s *Server) render(ext string, snap *layout.Snapshot) ([]byte, error) {
	r := s.deps.Docx
	if ext == ".pdf" {
		r = s.deps.PDF
	}
	if r == nil {
		return nil, fmt.Errorf("没有可用的 %s 渲染器", ext)
	}
	return r.Render(snap)
}

type draftRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	if s.deps.Drafts == nil {
		jsonError(w, r, "draft store disabled", http.StatusNotImplemented)
		return
	}
	var req draftRequest
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, r, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.withSession(w, r, func(sess *session) {
		name := req.Name
		if name == "" {
			name = sess.engine.Meta().Title
		}
		id, err := s.deps.Drafts.Save(r.Context(), sess.draftID, name, sess.engine.Snapshot())
		if err != nil {
			s.log.Error("save draft failed", "session", sess.id, "error", err)
			jsonError(w, r, err.Error(), http.StatusInternalServerError)
			return
		}
		sess.draftID = id
		writeJSON(w, http.StatusOK, map[string]string{"draftId": id})
	})
}

func (s *Server) handleListDrafts(w http.ResponseWriter, r *http.Request) {
	if s.deps.Drafts == nil {
		jsonError(w, r, "draft store disabled", http.StatusNotImplemented)
		return
	}
	list, err := s.deps.Drafts.List(r.Context())
	if err != nil {
		jsonError(w, r, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"drafts": list})
}

// handleOpenDraft restores a draft into a new session.
func (s *Server) handleOpenDraft(w http.ResponseWriter, r *http.Request) {
	if s.deps.Drafts == nil {
		jsonError(w, r, "draft store disabled", http.StatusNotImplemented)
		return
	}
	d, err := s.deps.Drafts.Load(r.Context(), chi.URLParam(r, "draftID"))
	if err != nil {
		jsonError(w, r, err.Error(), errorStatus(err))
		return
	}
	sess, opts := s.newSession()
	e, err := layout.Restore(d.Snapshot, opts)
	if err != nil {
		sess.board.Close()
		jsonError(w, r, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	sess.mu.Lock()
	sess.engine = e
	sess.draftID = d.ID
	view := sess.view()
	sess.mu.Unlock()
	s.register(sess)
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	if s.deps.Drafts == nil {
		jsonError(w, r, "draft store disabled", http.StatusNotImplemented)
		return
	}
	if err := s.deps.Drafts.Delete(r.Context(), chi.URLParam(r, "draftID")); err != nil {
		jsonError(w, r, err.Error(), errorStatus(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
