package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ByLCY/docbuilder/address"
	"github.com/ByLCY/docbuilder/layout"
	"github.com/ByLCY/docbuilder/style"
)

// opResponse is the answer to every edit: the outcome plus the new document.
type opResponse struct {
	layout.Outcome
	Document layout.Snapshot `json:"document"`
}

func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err == io.EOF {
		return nil
	}
	return err
}

// edit runs op against the session's engine and maps the result: usage and
// resolution errors become 4xx, a rejected edit becomes 409 with its notice.
func (s *Server) edit(w http.ResponseWriter, r *http.Request, op func(e *layout.Engine) (layout.Outcome, error)) {
	s.withSession(w, r, func(sess *session) {
		out, err := op(sess.engine)
		if err != nil {
			sessionLogger(s.log, sess).Warn("edit failed", "path", r.URL.Path, "error", err)
			jsonError(w, r, err.Error(), errorStatus(err))
			return
		}
		code := http.StatusOK
		if !out.Applied {
			code = http.StatusConflict
		}
		writeJSON(w, code, opResponse{Outcome: out, Document: sess.engine.Snapshot()})
	})
}

type textRequest struct {
	Text   string `json:"text"`
	Probe  string `json:"probe"`
	Cursor *int   `json:"cursor"`
}

// handleText replaces a line's text, or inserts probe at cursor when a
// cursor is given (a keystroke).
func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, r, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	lineID := chi.URLParam(r, "lineID")
	s.edit(w, r, func(e *layout.Engine) (layout.Outcome, error) {
		if req.Cursor != nil {
			return e.Type(lineID, req.Probe, *req.Cursor)
		}
		return e.SetText(lineID, req.Text)
	})
}

type cursorRequest struct {
	Cursor int `json:"cursor"`
}

func (s *Server) handleEnter(w http.ResponseWriter, r *http.Request) {
	req := cursorRequest{Cursor: -1}
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, r, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	lineID := chi.URLParam(r, "lineID")
	s.edit(w, r, func(e *layout.Engine) (layout.Outcome, error) {
		return e.Enter(lineID, req.Cursor)
	})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	lineID := chi.URLParam(r, "lineID")
	s.edit(w, r, func(e *layout.Engine) (layout.Outcome, error) {
		return e.JoinPrevious(lineID)
	})
}

func (s *Server) handleFocus(w http.ResponseWriter, r *http.Request) {
	lineID := chi.URLParam(r, "lineID")
	s.edit(w, r, func(e *layout.Engine) (layout.Outcome, error) {
		if err := e.Focus(lineID); err != nil {
			return layout.Outcome{}, err
		}
		return layout.Outcome{Applied: true, Focus: e.Focused()}, nil
	})
}

// handleStyle applies {"size": "20", "bold": "true", ...} all at once.
func (s *Server) handleStyle(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, r, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	lineID := chi.URLParam(r, "lineID")
	s.edit(w, r, func(e *layout.Engine) (layout.Outcome, error) {
		return e.ApplyStyle(lineID, fields(req))
	})
}

func (s *Server) handleDeleteLine(w http.ResponseWriter, r *http.Request) {
	lineID := chi.URLParam(r, "lineID")
	s.edit(w, r, func(e *layout.Engine) (layout.Outcome, error) {
		return e.RemoveLine(lineID)
	})
}

type headingRequest struct {
	Page  int               `json:"page"`
	At    *int              `json:"at"`
	Text  string            `json:"text"`
	Style map[string]string `json:"style"`
}

func (s *Server) handleAddHeading(w http.ResponseWriter, r *http.Request) {
	var req headingRequest
	if err := decodeBody(r, &req); err != nil {
		jsonError(w, r, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	st, err := style.Derive(style.Default(), fields(req.Style))
	if err != nil {
		jsonError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	at := -1
	if req.At != nil {
		at = *req.At
	}
	s.edit(w, r, func(e *layout.Engine) (layout.Outcome, error) {
		return e.AddHeading(req.Page, at, req.Text, st)
	})
}

// handleTrimColumn removes ?n= trailing lines (default 1) of a column.
func (s *Server) handleTrimColumn(w http.ResponseWriter, r *http.Request) {
	col, err := address.Parse(chi.URLParam(r, "columnID"))
	if err != nil || col.Kind != address.KindColumn {
		msg := "not a column address"
		if err != nil {
			msg = err.Error()
		}
		jsonError(w, r, msg, http.StatusBadRequest)
		return
	}
	n := 1
	if v := r.URL.Query().Get("n"); v != "" {
		if n, err = strconv.Atoi(v); err != nil {
			jsonError(w, r, "invalid n", http.StatusBadRequest)
			return
		}
	}
	s.edit(w, r, func(e *layout.Engine) (layout.Outcome, error) {
		return e.RemoveTrailing(col, n)
	})
}

func (s *Server) handleNoticeHold(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) {
		sess.board.Hold()
		w.WriteHeader(http.StatusNoContent)
	})
}

func (s *Server) handleNoticeRelease(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(sess *session) {
		sess.board.Release()
		w.WriteHeader(http.StatusNoContent)
	})
}

func fields(in map[string]string) map[style.Field]string {
	out := make(map[style.Field]string, len(in))
	for k, v := range in {
		out[style.Field(k)] = v
	}
	return out
}
