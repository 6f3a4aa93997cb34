// Package chat talks to the AI assistant host and keeps short per-session
// transcripts of the conversation.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
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

// AssessmentPrompt is sent automatically when a lender opens a user's details.
const AssessmentPrompt = "You are to provide insights to the lender on this individual based on his profile, advise him briefly on whether he can be creditworthy. feel free to say he is not"

const maxReplyBody = 1 << 20

var (
	// ErrEmptyMessage is returned before any call when the message is blank.
	ErrEmptyMessage = errors.New("chat: message is empty")
	// ErrEmptyReply is returned when the assistant answers without a response field.
	ErrEmptyReply = errors.New("chat: empty reply")
)

// Reply is one assistant answer.
type Reply struct {
	Text string
	HTML template.HTML
}

// Responder answers a message about a profile.
type Responder interface {
	Send(ctx context.Context, message string, profile any) (Reply, error)
}

// StatusError is a non-2xx reply from the chat host.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chat: status %d: %s", e.Status, e.Body)
}

// UserMessage is shown in the chat error banner.
func (e *StatusError) UserMessage() string {
	return "Failed to get AI response"
}

// Client posts messages to the chat host's /chat endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient constructs a Client for baseURL.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("chat: parse base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("chat: base URL %q must be absolute", baseURL)
	}
	base.Path = strings.TrimSuffix(base.Path, "/") + "/chat"
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{endpoint: base.String(), http: httpClient}, nil
}

type request struct {
	Message string `json:"message"`
	Profile any    `json:"profile"`
}

type response struct {
	Response string `json:"response"`
}

// Send posts message with profile and renders the reply.
func (c *Client) Send(ctx context.Context, message string, profile any) (_ Reply, err error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, ErrEmptyMessage
	}

	ctx, span := observability.Tracer().Start(ctx, "chat.send", trace.WithSpanKind(trace.SpanKindClient))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	logger := observability.FromContext(ctx)

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(request{Message: message, Profile: profile}); err != nil {
		return Reply{}, fmt.Errorf("chat: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &buf)
	if err != nil {
		return Reply{}, fmt.Errorf("chat: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Warn("chat request failed", zap.Error(err))
		return Reply{}, fmt.Errorf("chat: request failed: %w", err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBody))
	if err != nil {
		return Reply{}, fmt.Errorf("chat: read reply: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		logger.Warn("chat request rejected", zap.Int("status", resp.StatusCode))
		return Reply{}, statusErr
	}

	var decoded response
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Reply{}, fmt.Errorf("chat: decode reply: %w", err)
	}
	if strings.TrimSpace(decoded.Response) == "" {
		return Reply{}, ErrEmptyReply
	}
	logger.Debug("chat reply received", zap.Int("chars", len(decoded.Response)))
	return NewReply(decoded.Response), nil
}

// NewReply renders text as sanitised HTML.
func NewReply(text string) Reply {
	return Reply{Text: text, HTML: Render(text)}
}
