package ui

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"finitefield.org/agricred-web/internal/chat"
	custommw "finitefield.org/agricred-web/internal/httpserver/middleware"
	"finitefield.org/agricred-web/internal/observability"
	"finitefield.org/agricred-web/internal/scoring"
	"finitefield.org/agricred-web/internal/session"
	"finitefield.org/agricred-web/internal/submission"
	"finitefield.org/agricred-web/internal/wizard"
)

// Dependencies collects external services required by the UI handlers.
type Dependencies struct {
	Scoring     scoring.Service
	Chat        chat.Responder
	Transcripts *chat.Transcripts
	// TemplatesDir reads templates from disk and reparses them per request.
	TemplatesDir string
}

// Handlers exposes HTTP handlers for pages and htmx fragments.
type Handlers struct {
	scoring     scoring.Service
	adapter     *submission.Adapter
	chat        chat.Responder
	transcripts *chat.Transcripts
	renderer    *Renderer
	defs        map[string]*wizard.Definition
}

// NewHandlers wires the UI handler set. Missing services fall back to the
// in-memory implementations.
func NewHandlers(deps Dependencies) (*Handlers, error) {
	svc := deps.Scoring
	if svc == nil {
		svc = scoring.NewStaticService()
	}
	responder := deps.Chat
	if responder == nil {
		responder = chat.StaticResponder{}
	}
	transcripts := deps.Transcripts
	if transcripts == nil {
		transcripts = chat.NewTranscripts()
	}
	renderer, err := NewRenderer(deps.TemplatesDir)
	if err != nil {
		return nil, err
	}
	defs, err := wizard.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("ui: load forms: %w", err)
	}
	for _, flow := range []string{wizard.FarmerSignup, wizard.AgentRegistration, wizard.Recalculate} {
		if defs[flow] == nil {
			return nil, fmt.Errorf("ui: form %q is missing", flow)
		}
	}
	return &Handlers{
		scoring:     svc,
		adapter:     submission.NewAdapter(svc),
		chat:        responder,
		transcripts: transcripts,
		renderer:    renderer,
		defs:        defs,
	}, nil
}

type homePage struct {
	Page
}

// Home renders the landing page.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, r, http.StatusOK, "home", homePage{Page: newPage(r, "Bridge")})
}

type choicePage struct {
	Page
	Heading string
	Choices []choice
}

type choice struct {
	Href  string
	Label string
	Hint  string
}

// SignupSelect lets the visitor choose between farmer and agent signup.
func (h *Handlers) SignupSelect(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, r, http.StatusOK, "choice", choicePage{
		Page:    newPage(r, "Sign up"),
		Heading: "How would you like to join?",
		Choices: []choice{
			{Href: "/signup-individual", Label: "Sign Up as an Individual", Hint: "Create a farmer profile and get your credit score."},
			{Href: "/signup-agent", Label: "Sign Up as an Agent", Hint: "Register as a field agent supporting farmers."},
		},
	})
}

// LoginSelect lets the visitor choose between farmer and agent login.
func (h *Handlers) LoginSelect(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, r, http.StatusOK, "choice", choicePage{
		Page:    newPage(r, "Log in"),
		Heading: "Welcome back",
		Choices: []choice{
			{Href: "/login-individual", Label: "Login as an Individual"},
			{Href: "/login-agent", Label: "Login as an Agent"},
		},
	})
}

// Logout ends the session.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		sess.Destroy()
	}
	custommw.Redirect(w, r, "/")
}

// NotFound renders the not-found page for unknown routes.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.renderNotFound(w, r, "Page not found", "The page you are looking for does not exist.")
}

type statusPage struct {
	Page
	Heading string
	Message string
	Back    string
}

func (h *Handlers) renderNotFound(w http.ResponseWriter, r *http.Request, heading, message string) {
	h.renderer.renderPage(w, r, http.StatusNotFound, "not_found", statusPage{
		Page:    newPage(r, heading),
		Heading: heading,
		Message: message,
		Back:    "/dashboard",
	})
}

// renderFetchError maps a failed lookup to the not-found page for missing
// records and to the generic error page otherwise.
func (h *Handlers) renderFetchError(w http.ResponseWriter, r *http.Request, err error, what, heading string) {
	if errors.Is(err, scoring.ErrNotFound) {
		h.renderNotFound(w, r, strings.ToUpper(what[:1])+what[1:]+" not found", fmt.Sprintf("We could not find that %s.", what))
		return
	}
	observability.FromContext(r.Context()).Error("upstream fetch failed", zap.String("what", what), zap.Error(err))
	h.renderer.renderPage(w, r, http.StatusBadGateway, "error", statusPage{
		Page:    newPage(r, heading),
		Heading: heading,
		Message: scoring.MessageOr(err, "The scoring service is unavailable right now. Please try again shortly."),
		Back:    r.URL.Path,
	})
}

func currentSession(r *http.Request) *session.Session {
	sess, ok := custommw.SessionFromContext(r.Context())
	if !ok {
		// Handlers are always mounted behind the Session middleware.
		panic("ui: request has no session")
	}
	return sess
}
