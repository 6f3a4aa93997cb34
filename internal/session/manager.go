// Package session keeps per-browser state (sign-in, wizard drafts, the agent
// signup lead and flash messages) in a signed and encrypted cookie.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"

	"finitefield.org/agricred-web/internal/wizard"
)

const (
	defaultCookieName  = "agricred_session"
	defaultCookiePath  = "/"
	defaultLifetime    = 24 * time.Hour
	defaultIdleTimeout = 2 * time.Hour
	maxCookieLength    = 4096
)

// ErrExpired indicates the stored session is no longer valid due to idle or absolute expiry.
var ErrExpired = errors.New("session expired")

// ErrInvalidConfig indicates the manager was initialised with missing or invalid options.
var ErrInvalidConfig = errors.New("session: invalid config")

// Role distinguishes farmer and agent sign-ins.
type Role string

const (
	RoleIndividual Role = "individual"
	RoleAgent      Role = "agent"
)

// AgentLead is captured on the first agent signup screen and prefills the
// registration wizard once the email is verified.
type AgentLead struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	CodeSent  bool   `json:"codeSent"`
	Verified  bool   `json:"verified"`
}

// Flash is a one-shot banner shown on the next rendered page.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Data represents the full persisted session payload.
type Data struct {
	ID         string                  `json:"id"`
	CreatedAt  time.Time               `json:"createdAt"`
	LastActive time.Time               `json:"lastActive"`
	ExpiresAt  time.Time               `json:"expiresAt,omitempty"`
	CSRFToken  string                  `json:"csrfToken,omitempty"`
	Username   string                  `json:"username,omitempty"`
	Role       Role                    `json:"role,omitempty"`
	Drafts     map[string]wizard.State `json:"drafts,omitempty"`
	AgentLead  *AgentLead              `json:"agentLead,omitempty"`
	Flash      *Flash                  `json:"flash,omitempty"`
}

// Session holds mutable state for the current request lifecycle.
type Session struct {
	data      Data
	dirty     bool
	destroyed bool
}

// Config controls cookie encoding and lifecycle limits for the session manager.
type Config struct {
	CookieName     string
	HashKey        []byte
	BlockKey       []byte
	CookiePath     string
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite

	IdleTimeout time.Duration
	Lifetime    time.Duration
	Now         func() time.Time
}

// Manager decodes and persists session state via signed (and optionally encrypted) cookies.
type Manager struct {
	cfg   Config
	codec *securecookie.SecureCookie
	now   func() time.Time
}

// NewManager constructs a Manager using the provided configuration.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.HashKey) == 0 {
		return nil, fmt.Errorf("%w: hash key is required", ErrInvalidConfig)
	}
	switch len(cfg.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: block key must be 16, 24 or 32 bytes", ErrInvalidConfig)
	}

	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = defaultCookiePath
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = defaultLifetime
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.CookieSameSite == http.SameSiteDefaultMode {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}

	codec := securecookie.New(cfg.HashKey, cfg.BlockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxLength(maxCookieLength)
	codec.MaxAge(int(cfg.Lifetime / time.Second))

	return &Manager{cfg: cfg, codec: codec, now: nowFn}, nil
}

// CookieName returns the configured cookie name.
func (m *Manager) CookieName() string {
	return m.cfg.CookieName
}

// Load retrieves the session from the incoming request or creates a new one.
// A cookie that fails to decode yields a fresh session; an expired one yields
// ErrExpired.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil {
		return m.New(), nil
	}

	var stored Data
	if err := m.codec.Decode(m.cfg.CookieName, cookie.Value, &stored); err != nil {
		return m.New(), nil
	}

	sess := m.sessionFromData(stored)
	if m.isExpired(sess, m.now()) {
		return nil, ErrExpired
	}
	return sess, nil
}

// Save writes the session back to the response as a cookie. Destroyed sessions clear the cookie.
func (m *Manager) Save(w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return errors.New("session: nil session")
	}
	if sess.destroyed {
		m.Destroy(w)
		return nil
	}

	sess.Touch(m.now())
	data := sess.data

	encoded, err := m.codec.Encode(m.cfg.CookieName, data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	cookie := &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    encoded,
		Path:     m.cfg.CookiePath,
		Domain:   m.cfg.CookieDomain,
		Secure:   m.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: m.cfg.CookieSameSite,
	}
	if !data.ExpiresAt.IsZero() {
		expiry := data.ExpiresAt.UTC()
		cookie.Expires = expiry
		if remaining := expiry.Sub(m.now()); remaining <= 0 {
			cookie.MaxAge = -1
		} else {
			cookie.MaxAge = int(remaining.Round(time.Second).Seconds())
		}
	}

	http.SetCookie(w, cookie)
	sess.dirty = false
	return nil
}

// Destroy invalidates the session cookie immediately.
func (m *Manager) Destroy(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     m.cfg.CookiePath,
		Domain:   m.cfg.CookieDomain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   m.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: m.cfg.CookieSameSite,
	})
}

// New returns a pristine session with a generated identifier.
func (m *Manager) New() *Session {
	now := m.now().UTC()
	return &Session{
		data: Data{
			ID:         mustGenerateToken(24),
			CreatedAt:  now,
			LastActive: now,
			ExpiresAt:  now.Add(m.cfg.Lifetime),
		},
		dirty: true,
	}
}

func (m *Manager) sessionFromData(d Data) *Session {
	if d.ID == "" {
		return m.New()
	}
	return &Session{data: d}
}

func (m *Manager) isExpired(sess *Session, now time.Time) bool {
	now = now.UTC()
	if !sess.data.ExpiresAt.IsZero() && now.After(sess.data.ExpiresAt.UTC()) {
		return true
	}
	last := sess.data.LastActive
	if last.IsZero() {
		last = sess.data.CreatedAt
	}
	return !last.IsZero() && now.Sub(last) > m.cfg.IdleTimeout
}

// ID returns the stable session identifier.
func (s *Session) ID() string { return s.data.ID }

// CreatedAt returns the session creation timestamp.
func (s *Session) CreatedAt() time.Time { return s.data.CreatedAt }

// LastActive returns the last access timestamp.
func (s *Session) LastActive() time.Time { return s.data.LastActive }

// ExpiresAt returns the absolute expiry timestamp for the session.
func (s *Session) ExpiresAt() time.Time { return s.data.ExpiresAt }

// EnsureCSRFToken returns the existing CSRF token or generates a new one on demand.
func (s *Session) EnsureCSRFToken() (string, error) {
	if s.data.CSRFToken != "" {
		return s.data.CSRFToken, nil
	}
	token, err := generateToken(32)
	if err != nil {
		return "", err
	}
	s.data.CSRFToken = token
	s.dirty = true
	return token, nil
}

// CSRFToken returns the stored CSRF token value.
func (s *Session) CSRFToken() string { return s.data.CSRFToken }

// Username returns the signed-in account, if any.
func (s *Session) Username() string { return s.data.Username }

// Role returns the role of the signed-in account.
func (s *Session) Role() Role { return s.data.Role }

// SignIn records the account and rotates the CSRF token.
func (s *Session) SignIn(username string, role Role) {
	s.data.Username = username
	s.data.Role = role
	s.data.CSRFToken = ""
	s.dirty = true
}

// Draft returns the saved wizard state for flow.
func (s *Session) Draft(flow string) (wizard.State, bool) {
	st, ok := s.data.Drafts[flow]
	return st, ok
}

// SetDraft stores the wizard state for flow.
func (s *Session) SetDraft(flow string, st wizard.State) {
	if s.data.Drafts == nil {
		s.data.Drafts = make(map[string]wizard.State)
	}
	s.data.Drafts[flow] = st
	s.dirty = true
}

// ClearDraft discards the wizard state for flow.
func (s *Session) ClearDraft(flow string) {
	if _, ok := s.data.Drafts[flow]; !ok {
		return
	}
	delete(s.data.Drafts, flow)
	if len(s.data.Drafts) == 0 {
		s.data.Drafts = nil
	}
	s.dirty = true
}

// AgentLead returns a copy of the agent signup lead, if any.
func (s *Session) AgentLead() (AgentLead, bool) {
	if s.data.AgentLead == nil {
		return AgentLead{}, false
	}
	return *s.data.AgentLead, true
}

// SetAgentLead replaces the agent signup lead.
func (s *Session) SetAgentLead(lead AgentLead) {
	s.data.AgentLead = &lead
	s.dirty = true
}

// ClearAgentLead drops the agent signup lead.
func (s *Session) ClearAgentLead() {
	if s.data.AgentLead == nil {
		return
	}
	s.data.AgentLead = nil
	s.dirty = true
}

// SetFlash queues a banner for the next page.
func (s *Session) SetFlash(kind, message string) {
	s.data.Flash = &Flash{Kind: kind, Message: message}
	s.dirty = true
}

// PopFlash returns and clears the queued banner.
func (s *Session) PopFlash() (Flash, bool) {
	if s.data.Flash == nil {
		return Flash{}, false
	}
	f := *s.data.Flash
	s.data.Flash = nil
	s.dirty = true
	return f, true
}

// Destroy marks the session for deletion at the end of the request.
func (s *Session) Destroy() {
	s.destroyed = true
	s.dirty = true
}

// Destroyed exposes the destroy marker.
func (s *Session) Destroyed() bool { return s.destroyed }

// Touch updates the last active timestamp.
func (s *Session) Touch(now time.Time) {
	now = now.UTC()
	if now.After(s.data.LastActive) {
		s.data.LastActive = now
		s.dirty = true
	}
}

// Dirty indicates whether the session contents have changed since the last save.
func (s *Session) Dirty() bool { return s.dirty }

func mustGenerateToken(length int) string {
	token, err := generateToken(length)
	if err != nil {
		panic(err)
	}
	return token
}

func generateToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
