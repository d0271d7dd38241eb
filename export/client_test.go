package export

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/tdewolff/test"

	"github.com/ByLCY/docbuilder/layout"
)

// backend 模拟导出服务：/getCsrfToken 下发令牌并设置会话 cookie，/buildDocument 校验两者。
type backend struct {
	token     string
	csrfCalls atomic.Int32
	builds    atomic.Int32
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/getCsrfToken", func(w http.ResponseWriter, r *http.Request) {
		b.csrfCalls.Add(1)
		http.SetCookie(w, &http.Cookie{Name: "SESSION", Value: "s1", Path: "/"})
		io.WriteString(w, b.token)
	})
	mux.HandleFunc("/buildDocument", func(w http.ResponseWriter, r *http.Request) {
		b.builds.Add(1)
		cookie, err := r.Cookie("SESSION")
		if r.Header.Get(DefaultCSRFHeader) != b.token || err != nil || cookie.Value != "s1" {
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(APIError{Status: 403, Cause: "Forbidden", Message: "bad token", Path: "/buildDocument"})
			return
		}
		var req exportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.URL.Query().Get("pdf") == "true" {
			io.WriteString(w, "%PDF "+req.FileName)
			return
		}
		io.WriteString(w, "PK "+req.FileName)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "kaputt", http.StatusInternalServerError)
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) {})
	return mux
}

func newTestClient(t *testing.T, b *backend) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(b.handler())
	t.Cleanup(srv.Close)
	c, err := NewClient(Options{BaseURL: srv.URL})
	test.Error(t, err)
	return c, srv
}

func snapshot() layout.Snapshot {
	return layout.Snapshot{Columns: 1, Pages: []layout.PageSnapshot{{Columns: [][]layout.Line{{{Key: "a", Text: "x"}}}}}}
}

func TestExportRetriesOnceAfterForbidden(t *testing.T) {
	b := &backend{token: "tok-1"}
	c, _ := newTestClient(t, b)

	data, name, err := c.ExportDocument(context.Background(), snapshot(), "Mein Brief", true)
	test.Error(t, err)
	test.String(t, name, "Mein_Brief.pdf")
	test.String(t, string(data), "%PDF Mein_Brief.pdf")
	test.T(t, b.builds.Load(), int32(2))
	test.T(t, b.csrfCalls.Load(), int32(1))
	test.String(t, c.Token(), "tok-1")

	_, _, err = c.ExportDocument(context.Background(), snapshot(), "", false)
	test.Error(t, err)
	test.T(t, b.csrfCalls.Load(), int32(1))
}

func TestExportForbiddenAfterRetry(t *testing.T) {
	// 服务端每次都拒绝：只重试一次，然后把 403 交给调用方。
	b2 := &backend{token: "x"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/getCsrfToken" {
			b2.csrfCalls.Add(1)
			io.WriteString(w, "still-wrong")
			return
		}
		b2.builds.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()
	c2, err := NewClient(Options{BaseURL: srv.URL})
	test.Error(t, err)

	_, _, err = c2.ExportDocument(context.Background(), snapshot(), "a.docx", false)
	var apiErr *APIError
	test.That(t, errors.As(err, &apiErr), "api error", err)
	test.T(t, apiErr.Status, http.StatusForbidden)
	test.T(t, b2.builds.Load(), int32(2))
	test.T(t, b2.csrfCalls.Load(), int32(1))
	test.String(t, c2.Token(), "still-wrong")
}

func TestFetchErrorShapes(t *testing.T) {
	b := &backend{token: "t"}
	c, srv := newTestClient(t, b)

	_, err := c.Fetch(context.Background(), http.MethodGet, "/broken", nil, nil)
	var apiErr *APIError
	test.That(t, errors.As(err, &apiErr), "api error")
	test.T(t, apiErr.Status, http.StatusInternalServerError)
	test.String(t, apiErr.Message, "kaputt")
	test.String(t, apiErr.Path, "/broken")

	_, _, err = c.ExportDocument(context.Background(), snapshot(), "bad/name", false)
	test.That(t, errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest, "invalid file name")

	srv.Close()
	_, err = c.Fetch(context.Background(), http.MethodGet, "/empty", nil, nil)
	test.That(t, errors.As(err, &apiErr), "transport failure is an api error")
	test.T(t, apiErr.Status, StatusFailedToFetch)
	test.That(t, apiErr.Cause != "", "cause recorded")
}

func TestFetchHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()
	c, err := NewClient(Options{BaseURL: srv.URL, CSRFHeader: "X-XSRF"})
	test.Error(t, err)
	c.setToken("abc")

	resp, err := c.Fetch(context.Background(), http.MethodPost, "/", map[string]int{"a": 1}, http.Header{"Content-Type": {"text/plain"}})
	test.Error(t, err)
	resp.Body.Close()
	test.String(t, got.Get("Content-Type"), "text/plain")
	test.String(t, got.Get("X-XSRF"), "abc")

	resp, err = c.Fetch(context.Background(), http.MethodGet, "/", nil, nil)
	test.Error(t, err)
	resp.Body.Close()
	test.String(t, got.Get("Content-Type"), "application/json")
}

func TestNewClientValidatesURL(t *testing.T) {
	_, err := NewClient(Options{})
	test.That(t, err != nil, "empty base url")
}
