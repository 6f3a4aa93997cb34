package ui

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	custommw "finitefield.org/agricred-web/internal/httpserver/middleware"
	"finitefield.org/agricred-web/internal/observability"
	"finitefield.org/agricred-web/internal/scoring"
	"finitefield.org/agricred-web/internal/session"
)

const avatarPlaceholder = "https://placehold.co/100x100/10b981/ffffff?text="

type agentSignupPage struct {
	Page
	FullName    string
	Email       string
	Error       *Banner
	Verify      bool
	VerifyEmail string
	VerifyError *Banner
}

func (h *Handlers) agentSignupPage(r *http.Request) agentSignupPage {
	p := agentSignupPage{Page: newPage(r, "Agent sign up")}
	if lead, ok := currentSession(r).AgentLead(); ok {
		p.FullName = strings.TrimSpace(lead.FirstName + " " + lead.LastName)
		p.Email = lead.Email
		p.Verify = lead.CodeSent && !lead.Verified
		p.VerifyEmail = lead.Email
	}
	return p
}

// AgentSignup renders the agent lead form and, once a code was sent, the
// verification form.
func (h *Handlers) AgentSignup(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, r, http.StatusOK, "agent_signup", h.agentSignupPage(r))
}

// AgentSignupPost stores the lead and emails a verification code.
func (h *Handlers) AgentSignupPost(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	fullName := strings.TrimSpace(r.PostFormValue("fullName"))
	email := strings.TrimSpace(r.PostFormValue("email"))

	data := h.agentSignupPage(r)
	data.FullName = fullName
	data.Email = email
	data.Verify = false
	if fullName == "" || email == "" {
		data.Error = errorBanner("Full Name and Email are required.")
		h.renderer.renderPage(w, r, http.StatusOK, "agent_signup", data)
		return
	}

	if err := h.scoring.SendCode(r.Context(), email); err != nil {
		observability.FromContext(r.Context()).Warn("send code failed", zap.Error(err))
		data.Error = errorBanner(scoring.MessageOr(err, "Failed to send verification email."))
		h.renderer.renderPage(w, r, http.StatusOK, "agent_signup", data)
		return
	}

	first, last := splitName(fullName)
	sess.SetAgentLead(session.AgentLead{
		FirstName: first,
		LastName:  last,
		Email:     email,
		CodeSent:  true,
	})
	custommw.Redirect(w, r, "/signup-agent")
}

// AgentVerify checks the emailed code and unlocks the registration wizard.
func (h *Handlers) AgentVerify(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	lead, ok := sess.AgentLead()
	if !ok || !lead.CodeSent {
		custommw.Redirect(w, r, "/signup-agent")
		return
	}

	data := h.agentSignupPage(r)
	code := strings.TrimSpace(r.PostFormValue("code"))
	if code == "" {
		data.VerifyError = errorBanner("Please enter the verification code.")
		h.renderer.renderPage(w, r, http.StatusOK, "agent_signup", data)
		return
	}
	if err := h.scoring.VerifyCode(r.Context(), lead.Email, code); err != nil {
		observability.FromContext(r.Context()).Info("verification rejected", zap.Error(err))
		data.VerifyError = errorBanner(scoring.MessageOr(err, "Verification failed. Please try again."))
		h.renderer.renderPage(w, r, http.StatusOK, "agent_signup", data)
		return
	}

	lead.Verified = true
	sess.SetAgentLead(lead)
	sess.SetFlash("success", "Email verified successfully! You can now proceed with full registration.")
	custommw.Redirect(w, r, agentRegistrationPath)
}

// splitName treats the first word as the first name and the rest as the last name.
func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

type agentDashboardPage struct {
	Page
	Agent       *scoring.Agent
	Name        string
	Avatar      string
	Communities string
	Languages   string
	Status      string
}

// AgentDashboard renders an agent's profile summary.
func (h *Handlers) AgentDashboard(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	agent, err := h.scoring.GetAgent(r.Context(), username)
	if err != nil {
		h.renderFetchError(w, r, err, "agent", "Error loading agent")
		return
	}

	name := strings.TrimSpace(agent.FirstName + " " + agent.LastName)
	avatar := agent.ProfilePicture
	if avatar == "" {
		avatar = avatarPlaceholder + url.QueryEscape(agent.Initials())
	}
	status := "Part-time Agent"
	if agent.IsFullTime {
		status = "Full-time Agent"
	}
	h.renderer.renderPage(w, r, http.StatusOK, "agent_dashboard", agentDashboardPage{
		Page:        newPage(r, name),
		Agent:       agent,
		Name:        name,
		Avatar:      avatar,
		Communities: strings.Join(agent.AssignedCommunities, ", "),
		Languages:   strings.Join(agent.LanguagesSpoken, ", "),
		Status:      status,
	})
}
