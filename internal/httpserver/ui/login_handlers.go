package ui

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	custommw "finitefield.org/agricred-web/internal/httpserver/middleware"
	"finitefield.org/agricred-web/internal/observability"
	"finitefield.org/agricred-web/internal/scoring"
	"finitefield.org/agricred-web/internal/session"
)

type loginPage struct {
	Page
	Heading    string
	Action     string
	SignupPath string
	Login      string
	Error      *Banner
}

type loginKind struct {
	role       session.Role
	title      string
	path       string
	signupPath string
	missing    string
	call       func(scoring.Service, context.Context, scoring.Credentials) error
	rejected   func(*scoring.APIError) string
	failed     string
	landing    func(username string) string
}

var (
	individualLogin = loginKind{
		role:       session.RoleIndividual,
		title:      "Farmer log in",
		path:       "/login-individual",
		signupPath: "/signup-individual",
		missing:    "Please enter both username and password.",
		call:       scoring.Service.Login,
		rejected: func(e *scoring.APIError) string {
			msg := strings.TrimSpace(e.Message)
			if msg == "" {
				msg = "Invalid credentials"
			}
			return "Login failed: " + msg
		},
		failed:  "An error occurred during login. Please try again.",
		landing: profilePath,
	}
	agentLogin = loginKind{
		role:       session.RoleAgent,
		title:      "Agent log in",
		path:       "/login-agent",
		signupPath: "/signup-agent",
		missing:    "Username and Password are required.",
		call:       scoring.Service.AgentLogin,
		rejected: func(e *scoring.APIError) string {
			return scoring.MessageOr(e, "Login failed. Please check your credentials.")
		},
		failed:  "An unexpected error occurred. Please try again.",
		landing: agentDashboardPath,
	}
)

func (h *Handlers) renderLogin(w http.ResponseWriter, r *http.Request, kind loginKind, username string, banner *Banner) {
	h.renderer.renderPage(w, r, http.StatusOK, "login", loginPage{
		Page:       newPage(r, kind.title),
		Heading:    kind.title,
		Action:     kind.path,
		SignupPath: kind.signupPath,
		Login:      username,
		Error:      banner,
	})
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request, kind loginKind) {
	creds := scoring.Credentials{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
	if creds.Username == "" || creds.Password == "" {
		h.renderLogin(w, r, kind, creds.Username, errorBanner(kind.missing))
		return
	}

	if err := kind.call(h.scoring, r.Context(), creds); err != nil {
		logger := observability.FromContext(r.Context()).With(zap.String("role", string(kind.role)))
		var apiErr *scoring.APIError
		if errors.As(err, &apiErr) {
			logger.Info("login rejected", zap.Int("status", apiErr.Status))
			h.renderLogin(w, r, kind, creds.Username, errorBanner(kind.rejected(apiErr)))
			return
		}
		logger.Error("login failed", zap.Error(err))
		h.renderLogin(w, r, kind, creds.Username, errorBanner(kind.failed))
		return
	}

	sess := currentSession(r)
	sess.SignIn(creds.Username, kind.role)
	sess.SetFlash("success", "Login successful!")
	custommw.Redirect(w, r, kind.landing(creds.Username))
}

// FarmerLogin renders the farmer login form.
func (h *Handlers) FarmerLogin(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, individualLogin, "", nil)
}

// FarmerLoginPost checks farmer credentials and opens the profile.
func (h *Handlers) FarmerLoginPost(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, individualLogin)
}

// AgentLogin renders the agent login form.
func (h *Handlers) AgentLogin(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, agentLogin, "", nil)
}

// AgentLoginPost checks agent credentials and opens the agent dashboard.
func (h *Handlers) AgentLoginPost(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, agentLogin)
}
