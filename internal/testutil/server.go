package testutil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"finitefield.org/agricred-web/internal/chat"
	"finitefield.org/agricred-web/internal/httpserver"
	"finitefield.org/agricred-web/internal/scoring"
	appsession "finitefield.org/agricred-web/internal/session"
)

// ServerOption customises the HTTP server configuration for tests.
type ServerOption func(*httpserver.Config)

// WithScoringService wires a custom scoring service implementation.
func WithScoringService(service scoring.Service) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Scoring = service
	}
}

// WithChatResponder overrides the assistant used by chat pages.
func WithChatResponder(responder chat.Responder) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Chat = responder
	}
}

// NewServer constructs an httptest server running the full HTTP stack with
// in-memory services.
func NewServer(t testing.TB, opts ...ServerOption) *httptest.Server {
	t.Helper()

	sessions, err := appsession.NewManager(appsession.Config{
		HashKey:  bytes.Repeat([]byte("h"), 32),
		BlockKey: bytes.Repeat([]byte("b"), 32),
	})
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}

	cfg := httpserver.Config{
		Address:  ":0",
		Sessions: sessions,
		Scoring:  scoring.NewStaticService(),
		Chat:     chat.StaticResponder{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	srv, err := httpserver.New(cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

// Client is a cookie-keeping browser stand-in that does not follow redirects.
type Client struct {
	t    testing.TB
	base string
	http *http.Client
}

// NewClient returns a client bound to ts.
func NewClient(t testing.TB, ts *httptest.Server) *Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &Client{
		t:    t,
		base: ts.URL,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Response is a fully read reply.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Get issues a GET for path.
func (c *Client) Get(path string, header ...string) Response {
	c.t.Helper()
	return c.do(http.MethodGet, path, nil, header)
}

// PostForm issues a form POST for path.
func (c *Client) PostForm(path string, form url.Values, header ...string) Response {
	c.t.Helper()
	return c.do(http.MethodPost, path, form, header)
}

// header is a list of alternating names and values.
func (c *Client) do(method, path string, form url.Values, header []string) Response {
	c.t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		c.t.Fatalf("build request: %v", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.t.Fatalf("read body: %v", err)
	}
	return Response{Status: resp.StatusCode, Header: resp.Header, Body: data}
}
