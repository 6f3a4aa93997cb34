package ui

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	custommw "finitefield.org/agricred-web/internal/httpserver/middleware"
	"finitefield.org/agricred-web/internal/observability"
	"finitefield.org/agricred-web/internal/scoring"
	"finitefield.org/agricred-web/internal/session"
	"finitefield.org/agricred-web/internal/wizard"
)

const (
	farmerSignupPath      = "/signup-individual"
	agentRegistrationPath = "/signup-agent-full"
)

type wizardPage struct {
	Page
	Wizard WizardView
	Back   string
}

// restoreForm resumes the draft of flow or starts a new form.
func (h *Handlers) restoreForm(sess *session.Session, flow string) (*wizard.Form, bool) {
	def := h.defs[flow]
	if st, ok := sess.Draft(flow); ok && !st.Submitted {
		return wizard.Restore(def, st), true
	}
	return wizard.New(def), false
}

// applyPhase copies the posted values of the current phase into form. An
// unchecked checkbox posts nothing and is stored as "". Password inputs are
// rendered empty, so an empty post keeps the stored password.
func applyPhase(r *http.Request, form *wizard.Form) {
	phase, _ := form.Definition().Phase(form.Phase())
	for _, f := range phase.Fields {
		value := r.PostFormValue(f.Name)
		if f.Kind == wizard.KindPassword && value == "" && form.Value(f.Name) != "" {
			continue
		}
		form.EditField(f.Name, value)
	}
}

// stepForm applies one posted action (next, back or submit) and reports
// whether the form was submitted successfully.
func stepForm(r *http.Request, form *wizard.Form, submitter wizard.Submitter) bool {
	applyPhase(r, form)
	switch r.PostFormValue("action") {
	case "back":
		form.Retreat()
	case "submit":
		if !form.IsFinal() {
			form.Advance()
			return false
		}
		err := form.Submit(r.Context(), submitter)
		if err == nil {
			return true
		}
		if !errors.Is(err, wizard.ErrInvalid) {
			observability.FromContext(r.Context()).Warn("wizard submission failed",
				zap.String("flow", form.Definition().Name),
				zap.Error(err),
			)
		}
	default:
		form.Advance()
	}
	return false
}

func (h *Handlers) renderWizard(w http.ResponseWriter, r *http.Request, data wizardPage) {
	if custommw.IsFragmentRequest(r.Context()) {
		h.renderer.renderTemplate(w, r, http.StatusOK, "wizard", "wizard_form", data)
		return
	}
	h.renderer.renderPage(w, r, http.StatusOK, "wizard", data)
}

// FarmerSignup renders the current phase of the farmer signup wizard.
func (h *Handlers) FarmerSignup(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	form, resumed := h.restoreForm(sess, wizard.FarmerSignup)
	if !resumed {
		sess.SetDraft(wizard.FarmerSignup, form.State())
	}
	h.renderWizard(w, r, wizardPage{
		Page:   newPage(r, form.Definition().Title),
		Wizard: buildWizardView(form, farmerSignupPath, farmerSignupPath+"/cancel"),
		Back:   "/signup",
	})
}

// FarmerSignupPost advances the farmer signup wizard and, on the final phase,
// scores the new profile.
func (h *Handlers) FarmerSignupPost(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	form, _ := h.restoreForm(sess, wizard.FarmerSignup)

	var result scoring.ScoreResult
	if stepForm(r, form, h.adapter.Submitter(wizard.FarmerSignup, "", &result)) {
		username := strings.TrimSpace(form.Value("username"))
		sess.ClearDraft(wizard.FarmerSignup)
		sess.SignIn(username, session.RoleIndividual)
		sess.SetFlash("success", fmt.Sprintf("Your profile is ready. Credit score %d, repayment probability %s.",
			result.CreditScore, repaymentText(result.Repayment)))
		custommw.Redirect(w, r, profilePath(username))
		return
	}

	sess.SetDraft(wizard.FarmerSignup, form.State())
	h.renderWizard(w, r, wizardPage{
		Page:   newPage(r, form.Definition().Title),
		Wizard: buildWizardView(form, farmerSignupPath, farmerSignupPath+"/cancel"),
		Back:   "/signup",
	})
}

// FarmerSignupCancel abandons the farmer signup draft.
func (h *Handlers) FarmerSignupCancel(w http.ResponseWriter, r *http.Request) {
	currentSession(r).ClearDraft(wizard.FarmerSignup)
	custommw.Redirect(w, r, "/signup")
}

// AgentRegistration renders the agent registration wizard. A fresh form is
// pre-filled from the verified agent lead.
func (h *Handlers) AgentRegistration(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	form, resumed := h.restoreForm(sess, wizard.AgentRegistration)
	if !resumed {
		if lead, ok := sess.AgentLead(); ok {
			form.EditField("firstName", lead.FirstName)
			form.EditField("lastName", lead.LastName)
			form.EditField("email", lead.Email)
		}
		sess.SetDraft(wizard.AgentRegistration, form.State())
	}
	h.renderWizard(w, r, wizardPage{
		Page:   newPage(r, form.Definition().Title),
		Wizard: buildWizardView(form, agentRegistrationPath, agentRegistrationPath+"/cancel"),
		Back:   "/signup-agent",
	})
}

// AgentRegistrationPost advances the agent registration wizard and creates
// the account on the final phase.
func (h *Handlers) AgentRegistrationPost(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	form, _ := h.restoreForm(sess, wizard.AgentRegistration)

	if stepForm(r, form, h.adapter.Submitter(wizard.AgentRegistration, "", nil)) {
		username := strings.TrimSpace(form.Value("username"))
		sess.ClearDraft(wizard.AgentRegistration)
		sess.ClearAgentLead()
		sess.SignIn(username, session.RoleAgent)
		sess.SetFlash("success", "Agent account created successfully!")
		custommw.Redirect(w, r, agentDashboardPath(username))
		return
	}

	sess.SetDraft(wizard.AgentRegistration, form.State())
	h.renderWizard(w, r, wizardPage{
		Page:   newPage(r, form.Definition().Title),
		Wizard: buildWizardView(form, agentRegistrationPath, agentRegistrationPath+"/cancel"),
		Back:   "/signup-agent",
	})
}

// AgentRegistrationCancel abandons the agent registration draft.
func (h *Handlers) AgentRegistrationCancel(w http.ResponseWriter, r *http.Request) {
	currentSession(r).ClearDraft(wizard.AgentRegistration)
	custommw.Redirect(w, r, "/signup")
}
