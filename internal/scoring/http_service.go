package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"finitefield.org/agricred-web/internal/observability"
)

const maxResponseBody = 4 << 20

// HTTPClient matches the subset of http.Client used by HTTPService.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// HTTPService implements Service against the remote REST endpoints.
type HTTPService struct {
	base   *url.URL
	client HTTPClient
}

// NewHTTPService constructs a Service talking to baseURL.
func NewHTTPService(baseURL string, client HTTPClient) (*HTTPService, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("scoring: base URL is required")
	}
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("scoring: parse base URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("scoring: base URL %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPService{base: parsed, client: client}, nil
}

// Predict scores a new farmer profile.
func (s *HTTPService) Predict(ctx context.Context, payload FarmerPayload) (ScoreResult, error) {
	var resp scoreResponse
	if err := s.call(ctx, "predict", http.MethodPost, "predict", payload, &resp); err != nil {
		return ScoreResult{}, err
	}
	return resp.result()
}

// GetUser fetches a stored farmer. A 404 matches ErrNotFound.
func (s *HTTPService) GetUser(ctx context.Context, username string) (*UserRecord, error) {
	var resp userResponse
	if err := s.call(ctx, "get-user", http.MethodGet, "get-user/"+url.PathEscape(username), nil, &resp); err != nil {
		return nil, err
	}
	rec, err := resp.record(username)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListUsers fetches all scored farmers, newest first. Entries missing a score
// or profile are defaulted; entries that cannot be decoded are skipped.
func (s *HTTPService) ListUsers(ctx context.Context) ([]UserRecord, error) {
	var resp []userResponse
	if err := s.call(ctx, "get-all-users", http.MethodGet, "get-all-users?order=desc", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]UserRecord, 0, len(resp))
	for i, item := range resp {
		rec, err := item.listRecord()
		if err != nil {
			observability.FromContext(ctx).Warn("skipping malformed user",
				zap.String("username", item.Username),
				zap.Error(fmt.Errorf("scoring: get-all-users: user %d: %w", i, err)),
			)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// UpdateUser rescores an edited profile.
func (s *HTTPService) UpdateUser(ctx context.Context, username string, payload FarmerPayload) (ScoreResult, error) {
	var resp scoreResponse
	if err := s.call(ctx, "update", http.MethodPut, "update/"+url.PathEscape(username), payload, &resp); err != nil {
		return ScoreResult{}, err
	}
	return resp.result()
}

// Login checks farmer credentials.
func (s *HTTPService) Login(ctx context.Context, creds Credentials) error {
	return s.call(ctx, "login", http.MethodPost, "login", creds, nil)
}

// AgentLogin checks agent credentials.
func (s *HTTPService) AgentLogin(ctx context.Context, creds Credentials) error {
	return s.call(ctx, "agent-login", http.MethodPost, "agent-login", creds, nil)
}

// SendCode emails a verification code.
func (s *HTTPService) SendCode(ctx context.Context, email string) error {
	body := map[string]string{"email": strings.TrimSpace(email)}
	return s.call(ctx, "send-code", http.MethodPost, "send-code", body, nil)
}

// VerifyCode confirms an emailed verification code.
func (s *HTTPService) VerifyCode(ctx context.Context, email, code string) error {
	body := map[string]string{"email": strings.TrimSpace(email), "code": strings.TrimSpace(code)}
	return s.call(ctx, "verify-code", http.MethodPost, "verify-code", body, nil)
}

// RegisterAgent creates an agent account.
func (s *HTTPService) RegisterAgent(ctx context.Context, payload AgentPayload) error {
	return s.call(ctx, "register-agent", http.MethodPost, "register_agent", payload, nil)
}

// GetAgent fetches an agent profile. A 404 matches ErrNotFound.
func (s *HTTPService) GetAgent(ctx context.Context, username string) (*Agent, error) {
	var agent Agent
	if err := s.call(ctx, "get-agent", http.MethodGet, "get-agent/"+url.PathEscape(username), nil, &agent); err != nil {
		return nil, err
	}
	if err := agent.validate(username); err != nil {
		return nil, err
	}
	return &agent, nil
}

// call issues one request. payload is JSON encoded when non-nil and a 2xx
// body is decoded into out when out is non-nil.
func (s *HTTPService) call(ctx context.Context, op, method, endpoint string, payload, out any) (err error) {
	ctx, span := observability.Tracer().Start(ctx, "scoring."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	req, err := s.newRequest(ctx, method, endpoint, payload)
	if err != nil {
		return err
	}
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", req.URL.Path),
	)

	logger := observability.FromContext(ctx).With(zap.String("op", op))
	resp, err := s.client.Do(req)
	if err != nil {
		logger.Warn("scoring request failed", zap.Error(err))
		return fmt.Errorf("scoring: %s request failed: %w", op, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := errorFromResponse(op, resp)
		logger.Warn("scoring request rejected", zap.Int("status", resp.StatusCode), zap.Error(apiErr))
		return apiErr
	}
	logger.Debug("scoring request completed", zap.Int("status", resp.StatusCode))

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidResponse, op, err)
	}
	return nil
}

func (s *HTTPService) newRequest(ctx context.Context, method, endpoint string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(payload); err != nil {
			return nil, fmt.Errorf("scoring: encode payload: %w", err)
		}
		body = &buf
	}
	req, err := http.NewRequestWithContext(ctx, method, s.resolve(endpoint), body)
	if err != nil {
		return nil, fmt.Errorf("scoring: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (s *HTTPService) resolve(endpoint string) string {
	ref, err := url.Parse(strings.TrimPrefix(endpoint, "/"))
	if err != nil {
		return s.base.String()
	}
	return s.base.ResolveReference(ref).String()
}
