package chat

import (
	"html/template"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	// MaxMessages bounds each transcript; older messages are dropped first.
	MaxMessages = 50
	// MaxTranscripts bounds the store; the least recently updated transcript
	// is evicted first.
	MaxTranscripts = 1000
)

// Role identifies who wrote a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "ai"
)

// Message is one transcript entry.
type Message struct {
	ID   string
	Role Role
	Text string
	HTML template.HTML
	At   time.Time
}

// Transcripts keeps the recent conversation per session and subject.
type Transcripts struct {
	mu    sync.Mutex
	byKey map[string][]Message
	now   func() time.Time
}

// NewTranscripts constructs an empty store.
func NewTranscripts() *Transcripts {
	return &Transcripts{byKey: make(map[string][]Message), now: time.Now}
}

// Key scopes a transcript to a session and the profile being discussed.
func Key(sessionID, subject string) string {
	return sessionID + "/" + subject
}

// Append records a message and returns it with its id.
func (t *Transcripts) Append(key string, role Role, text string, html template.HTML) Message {
	if html == "" {
		html = template.HTML(template.HTMLEscapeString(text))
	}
	msg := Message{ID: ulid.Make().String(), Role: role, Text: text, HTML: html, At: t.now()}

	t.mu.Lock()
	defer t.mu.Unlock()
	msgs := append(t.byKey[key], msg)
	if len(msgs) > MaxMessages {
		msgs = append([]Message(nil), msgs[len(msgs)-MaxMessages:]...)
	}
	t.byKey[key] = msgs
	if len(t.byKey) > MaxTranscripts {
		t.evictOldest()
	}
	return msg
}

// Messages returns a copy of the transcript in order.
func (t *Transcripts) Messages(key string) []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Message(nil), t.byKey[key]...)
}

// Reset drops a transcript.
func (t *Transcripts) Reset(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byKey, key)
}

func (t *Transcripts) evictOldest() {
	var (
		oldestKey string
		oldestAt  time.Time
	)
	for key, msgs := range t.byKey {
		last := msgs[len(msgs)-1].At
		if oldestKey == "" || last.Before(oldestAt) {
			oldestKey, oldestAt = key, last
		}
	}
	delete(t.byKey, oldestKey)
}
