package ui

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finitefield.org/agricred-web/internal/chat"
	"finitefield.org/agricred-web/internal/format"
	"finitefield.org/agricred-web/internal/observability"
	"finitefield.org/agricred-web/internal/scoring"
	"finitefield.org/agricred-web/internal/submission"
	"finitefield.org/agricred-web/internal/wizard"
)

// UserCard is one farmer on the dashboard.
type UserCard struct {
	Username    string
	Name        string
	Email       string
	Avatar      string
	CreditScore int
	Repayment   scoring.Repayment
	LoanAmount  float64
	Age         int
	Href        string
}

type dashboardPage struct {
	Page
	Users []UserCard
}

// Dashboard lists every scored farmer in the order the API returns them.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	users, err := h.scoring.ListUsers(r.Context())
	if err != nil {
		h.renderFetchError(w, r, err, "users", "Error loading users")
		return
	}
	cards := make([]UserCard, 0, len(users))
	for i, u := range users {
		cards = append(cards, UserCard{
			Username:    u.Username,
			Name:        u.FullName(),
			Email:       u.ContactEmail(),
			Avatar:      fmt.Sprintf("https://picsum.photos/id/%d/100/100", i),
			CreditScore: u.CreditScore,
			Repayment:   u.Repayment,
			LoanAmount:  u.Profile.LoanAmount,
			Age:         u.Profile.Age,
			Href:        userPath(u.Username),
		})
	}
	h.renderer.renderPage(w, r, http.StatusOK, "dashboard", dashboardPage{
		Page:  newPage(r, "Dashboard"),
		Users: cards,
	})
}

type profilePage struct {
	Page
	User            *scoring.UserRecord
	RecalculatePath string
	ChatPath        string
	DetailsPath     string
}

// Profile shows a farmer's score. Unknown usernames get the not-found page.
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	rec, err := h.scoring.GetUser(r.Context(), username)
	if err != nil {
		h.renderFetchError(w, r, err, "profile", "Error loading profile")
		return
	}
	h.renderer.renderPage(w, r, http.StatusOK, "profile", profilePage{
		Page:            newPage(r, "User Profile: "+rec.Username),
		User:            rec,
		RecalculatePath: recalculatePath(rec.Username),
		ChatPath:        chatPath(rec.Username),
		DetailsPath:     userPath(rec.Username),
	})
}

// Recalculate shows the recalculation form pre-filled from the stored profile.
func (h *Handlers) Recalculate(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	rec, err := h.scoring.GetUser(r.Context(), username)
	if err != nil {
		h.renderFetchError(w, r, err, "profile", "Error loading profile")
		return
	}
	form := wizard.New(h.defs[wizard.Recalculate])
	for name, value := range submission.Values(rec.Profile) {
		if _, ok := form.Definition().Field(name); ok {
			form.EditField(name, value)
		}
	}
	h.renderWizard(w, r, wizardPage{
		Page:   newPage(r, form.Definition().Title),
		Wizard: buildWizardView(form, recalculatePath(username), ""),
		Back:   profilePath(username),
	})
}

// RecalculatePost rescores the edited profile and shows the result inline.
// The form is rebuilt from the post, so nothing is kept in the session.
func (h *Handlers) RecalculatePost(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	form := wizard.New(h.defs[wizard.Recalculate])

	var result scoring.ScoreResult
	submitted := stepForm(r, form, h.adapter.Submitter(wizard.Recalculate, username, &result))

	view := buildWizardView(form, recalculatePath(username), "")
	if submitted {
		view.Result = &ScoreView{CreditScore: result.CreditScore, Repayment: result.Repayment}
	}
	h.renderWizard(w, r, wizardPage{
		Page:   newPage(r, form.Definition().Title),
		Wizard: view,
		Back:   profilePath(username),
	})
}

// DetailRow is one labelled fact on the user details page.
type DetailRow struct {
	Label string
	Value string
}

type userDetailsPage struct {
	Page
	User           *scoring.UserRecord
	Name           string
	Email          string
	Avatar         string
	Details        []DetailRow
	AssessmentPath string
	ChatPath       string
}

// UserDetails shows a farmer to lenders. The AI assessment is loaded by htmx
// from UserAssessment once the page is shown.
func (h *Handlers) UserDetails(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	rec, err := h.scoring.GetUser(r.Context(), username)
	if err != nil {
		h.renderFetchError(w, r, err, "user", "Error loading user details")
		return
	}
	labels := submission.Values(rec.Profile)
	h.renderer.renderPage(w, r, http.StatusOK, "user_details", userDetailsPage{
		Page:   newPage(r, "User Details"),
		User:   rec,
		Name:   rec.FullName(),
		Email:  rec.ContactEmail(),
		Avatar: "https://picsum.photos/seed/" + url.PathEscape(rec.Username) + "/100/100",
		Details: []DetailRow{
			{Label: "Age", Value: labels["age"]},
			{Label: "Gender", Value: labels["gender"]},
			{Label: "Marital Status", Value: labels["maritalStatus"]},
			{Label: "Education", Value: labels["education"]},
			{Label: "Loan Amount", Value: format.Naira(rec.Profile.LoanAmount)},
			{Label: "Annual Income", Value: format.Naira(rec.Profile.AnnualIncome)},
			{Label: "Technology Use", Value: labels["technology"]},
		},
		AssessmentPath: userPath(rec.Username) + "/assessment",
		ChatPath:       chatPath(rec.Username),
	})
}

type assessmentFragment struct {
	Reply *chat.Reply
	Error string
}

// UserAssessment asks the assistant for a creditworthiness summary of the
// farmer and renders it as a fragment.
func (h *Handlers) UserAssessment(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	rec, err := h.scoring.GetUser(r.Context(), username)
	if err != nil {
		observability.FromContext(r.Context()).Warn("assessment profile lookup failed", zap.Error(err))
		h.renderer.renderTemplate(w, r, http.StatusOK, "user_details", "assessment", assessmentFragment{
			Error: scoring.MessageOr(err, "Could not load the profile for analysis."),
		})
		return
	}
	reply, err := h.chat.Send(r.Context(), chat.AssessmentPrompt, rec)
	if err != nil {
		observability.FromContext(r.Context()).Warn("assessment failed", zap.Error(err))
		h.renderer.renderTemplate(w, r, http.StatusOK, "user_details", "assessment", assessmentFragment{
			Error: chatFailed,
		})
		return
	}
	h.renderer.renderTemplate(w, r, http.StatusOK, "user_details", "assessment", assessmentFragment{Reply: &reply})
}
