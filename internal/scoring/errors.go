package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrNotFound is matched by errors for 404 responses.
	ErrNotFound = errors.New("scoring: not found")
	// ErrInvalidResponse indicates a 2xx body that does not match the expected schema.
	ErrInvalidResponse = errors.New("scoring: invalid response")
)

const maxErrorBody = 1 << 16

// APIError is a non-2xx reply from the scoring API.
type APIError struct {
	Op      string
	Status  int
	Message string
}

// Error implements error.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("scoring: %s status %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("scoring: %s status %d", e.Op, e.Status)
}

// Is lets errors.Is(err, ErrNotFound) match 404 replies.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// UserMessage is the remote explanation, safe to show in the error banner.
func (e *APIError) UserMessage() string {
	return e.Message
}

// MessageOr returns the remote message carried by err or fallback.
func MessageOr(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	return fallback
}

// errorFromResponse reads the body of a failed reply. FastAPI style
// {"detail": ...} and {"message": ...} bodies are unwrapped; anything else is
// returned as trimmed text.
func errorFromResponse(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
	return &APIError{Op: op, Status: resp.StatusCode, Message: extractMessage(body)}
}

func extractMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return trimmed
	}
	if msg := detailMessage(payload.Detail); msg != "" {
		return msg
	}
	if payload.Message != "" {
		return payload.Message
	}
	if payload.Error != "" {
		return payload.Error
	}
	return trimmed
}

func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
