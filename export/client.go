// Package export talks to the document export backend that turns a document
// snapshot into a .docx or .pdf file.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/ByLCY/docbuilder/layout"
)

const (
	// StatusFailedToFetch is reported when the request never got a response.
	StatusFailedToFetch = http.StatusServiceUnavailable

	DefaultCSRFHeader = "X-CSRF-TOKEN"
	csrfPath          = "/getCsrfToken"
	exportPath        = "/buildDocument"
)

// APIError is the single failure shape of every backend call.
type APIError struct {
	Status  int    `json:"status"`
	Cause   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Path    string `json:"path,omitempty"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Cause
	}
	return fmt.Sprintf("export: %s: status %d: %s", e.Path, e.Status, msg)
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	CSRFHeader string
	Timeout    time.Duration
	Logger     *slog.Logger
}

// Client sends requests with the session cookie and the CSRF token. A 403
// answer triggers exactly one token refresh and retry.
type Client struct {
	baseURL    string
	csrfHeader string
	httpClient *http.Client
	log        *slog.Logger

	mu    sync.Mutex
	token string
}

// NewClient creates a client with its own cookie jar.
func NewClient(opts Options) (*Client, error) {
	if _, err := url.Parse(opts.BaseURL); err != nil || opts.BaseURL == "" {
		return nil, fmt.Errorf("export: invalid base url %q", opts.BaseURL)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("export: cookie jar: %w", err)
	}
	if opts.CSRFHeader == "" {
		opts.CSRFHeader = DefaultCSRFHeader
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		csrfHeader: opts.CSRFHeader,
		httpClient: &http.Client{Timeout: opts.Timeout, Jar: jar},
		log:        opts.Logger,
	}, nil
}

// Token returns the CSRF token currently sent with every request.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) setToken(t string) {
	c.mu.Lock()
	c.token = t
	c.mu.Unlock()
}

// RefreshToken fetches a fresh CSRF token for the session. A failed request
// leaves an empty token.
func (c *Client) RefreshToken(ctx context.Context) string {
	resp, err := c.do(ctx, http.MethodGet, csrfPath, nil, nil)
	if err != nil {
		c.setToken("")
		return ""
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		c.setToken("")
		return ""
	}
	t := strings.TrimSpace(string(b))
	c.setToken(t)
	return t
}

// Fetch sends a request to path. body is JSON encoded when non-nil and the
// content type defaults to JSON. A non-2xx/3xx answer or a transport failure
// comes back as *APIError; on success the caller closes the response body.
func (c *Client) Fetch(ctx context.Context, method, path string, body any, headers http.Header) (*http.Response, error) {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("export: marshal body: %w", err)
		}
		payload = b
	}

	resp, err := c.do(ctx, method, path, payload, headers)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusForbidden {
		c.log.Info("export: forbidden, refreshing csrf token", "path", path)
		c.RefreshToken(ctx)
		resp, err = c.do(ctx, method, path, payload, headers)
	}
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, headers http.Header) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("export: create request: %w", err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get(c.csrfHeader) == "" {
		req.Header.Set(c.csrfHeader, c.Token())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		apiErr := &APIError{Status: StatusFailedToFetch, Cause: err.Error(), Message: "failed to fetch", Path: path}
		c.log.Error("export: request failed", "method", method, "path", path, "error", err)
		return nil, apiErr
	}
	if statusOK(resp.StatusCode) {
		return resp, nil
	}

	defer resp.Body.Close()
	apiErr := decodeError(resp, path)
	c.log.Error("export: backend error", "method", method, "path", path, "status", apiErr.Status, "message", apiErr.Message)
	return nil, apiErr
}

func decodeError(resp *http.Response, path string) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr APIError
	if err := json.Unmarshal(raw, &apiErr); err != nil || apiErr.Status == 0 {
		apiErr = APIError{Status: resp.StatusCode, Cause: http.StatusText(resp.StatusCode), Message: strings.TrimSpace(string(raw))}
	}
	if apiErr.Path == "" {
		apiErr.Path = path
	}
	return &apiErr
}

// statusOK reports informational, successful and redirection codes.
func statusOK(code int) bool { return code >= 100 && code < 400 }

type exportRequest struct {
	FileName string          `json:"fileName"`
	Document layout.Snapshot `json:"document"`
}

// ExportDocument posts the snapshot to the backend and returns the file it
// builds together with the adjusted file name.
func (c *Client) ExportDocument(ctx context.Context, snap layout.Snapshot, fileName string, pdf bool) ([]byte, string, error) {
	name, ok := AdjustFileName(fileName, pdf)
	if !ok {
		return nil, "", &APIError{Status: http.StatusBadRequest, Message: fmt.Sprintf("invalid file name %q", fileName), Path: exportPath}
	}
	path := exportPath + "?pdf=" + strconv.FormatBool(pdf)
	resp, err := c.Fetch(ctx, http.MethodPost, path, exportRequest{FileName: name, Document: snap}, nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil || len(data) == 0 {
		apiErr := &APIError{Status: http.StatusNotAcceptable, Message: "failed to get file from response", Path: path}
		if err != nil {
			apiErr.Cause = err.Error()
		}
		c.log.Error("export: empty response", "path", path, "error", err)
		return nil, "", apiErr
	}
	return data, name, nil
}

// CloseIdleConnections releases idle keep-alive connections.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}
