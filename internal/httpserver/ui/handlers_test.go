package ui_test

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"finitefield.org/agricred-web/internal/scoring"
	"finitefield.org/agricred-web/internal/testutil"
)

func seededService(t *testing.T, usernames ...string) *scoring.StaticService {
	t.Helper()

	svc := scoring.NewStaticService()
	for _, name := range usernames {
		_, err := svc.Predict(context.Background(), scoring.FarmerPayload{
			FirstName:    strings.ToUpper(name[:1]) + name[1:],
			LastName:     "Okafor",
			Age:          41,
			AnnualIncome: 1200000,
			LoanAmount:   250000,
			Username:     name,
			Password:     "secret-" + name,
		})
		require.NoError(t, err)
	}
	return svc
}

// session fetches path and returns the parsed page and its CSRF token.
func session(t *testing.T, client *testutil.Client, path string) (*goquery.Document, string) {
	t.Helper()

	res := client.Get(path)
	require.Equal(t, http.StatusOK, res.Status)
	doc := testutil.ParseHTML(t, res.Body)
	return doc, testutil.CSRFToken(t, doc)
}

func TestFarmerSignupPhaseValidation(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	client := testutil.NewClient(t, ts)
	doc, token := session(t, client, "/signup-individual")
	require.Equal(t, "Personal Information", strings.TrimSpace(doc.Find("form#wizard h2").Text()))
	require.Equal(t, 0, doc.Find(`button[value="back"]`).Length())

	res := client.PostForm("/signup-individual", url.Values{
		"csrf_token": {token},
		"action":     {"next"},
		"firstName":  {"Amaka"},
	})
	require.Equal(t, http.StatusOK, res.Status)
	doc = testutil.ParseHTML(t, res.Body)
	require.Equal(t, "Personal Information", strings.TrimSpace(doc.Find("form#wizard h2").Text()))
	require.Equal(t, "Email is required.", strings.TrimSpace(doc.Find(".field-invalid #f-email").Parent().Find(".field-error").Text()))
	require.Equal(t, "Amaka", doc.Find("#f-firstName").AttrOr("value", ""))
	require.Equal(t, 0, doc.Find(".field-invalid #f-firstName").Length())

	res = client.PostForm("/signup-individual", url.Values{
		"csrf_token":    {token},
		"action":        {"next"},
		"email":         {"amaka@example.com"},
		"firstName":     {"Amaka"},
		"lastName":      {"Eze"},
		"address":       {"12 Market Road"},
		"age":           {"35"},
		"gender":        {"Female"},
		"education":     {"Secondary"},
		"maritalStatus": {"Married"},
		"region":        {"South East"},
		"state":         {"Enugu"},
	})
	require.Equal(t, http.StatusOK, res.Status)
	doc = testutil.ParseHTML(t, res.Body)
	require.Equal(t, "Farming & Employment", strings.TrimSpace(doc.Find("form#wizard h2").Text()))
	require.Equal(t, 0, doc.Find(".field-invalid").Length())

	// The draft survives a fresh page load.
	doc, _ = session(t, client, "/signup-individual")
	require.Equal(t, "Farming & Employment", strings.TrimSpace(doc.Find("form#wizard h2").Text()))

	res = client.PostForm("/signup-individual", url.Values{"csrf_token": {token}, "action": {"back"}})
	require.Equal(t, http.StatusOK, res.Status)
	doc = testutil.ParseHTML(t, res.Body)
	require.Equal(t, "Personal Information", strings.TrimSpace(doc.Find("form#wizard h2").Text()))
	require.Equal(t, "amaka@example.com", doc.Find("#f-email").AttrOr("value", ""))
	require.Equal(t, "Female", doc.Find("#f-gender option[selected]").AttrOr("value", ""))
}

func TestFarmerSignupFragmentForHTMX(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	client := testutil.NewClient(t, ts)
	_, token := session(t, client, "/signup-individual")

	res := client.PostForm("/signup-individual", url.Values{"csrf_token": {token}, "action": {"next"}}, "HX-Request", "true")
	require.Equal(t, http.StatusOK, res.Status)
	require.NotContains(t, string(res.Body), "<html")
	doc := testutil.ParseHTML(t, res.Body)
	require.Equal(t, 1, doc.Find("form#wizard").Length())
	require.Positive(t, doc.Find(".field-error").Length())
}

func TestFarmerSignupCancelClearsDraft(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	client := testutil.NewClient(t, ts)
	_, token := session(t, client, "/signup-individual")

	client.PostForm("/signup-individual", url.Values{"csrf_token": {token}, "firstName": {"Amaka"}})
	res := client.PostForm("/signup-individual/cancel", url.Values{"csrf_token": {token}})
	require.Equal(t, http.StatusSeeOther, res.Status)
	require.Equal(t, "/signup", res.Header.Get("Location"))

	doc, _ := session(t, client, "/signup-individual")
	require.Empty(t, doc.Find("#f-firstName").AttrOr("value", ""))
}

func TestDashboardListsUsers(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t, testutil.WithScoringService(seededService(t, "ada", "bola")))
	doc, _ := session(t, testutil.NewClient(t, ts), "/dashboard")

	var names []string
	doc.Find("a.user-card").Each(func(_ int, s *goquery.Selection) {
		names = append(names, s.AttrOr("data-username", ""))
		require.True(t, strings.HasSuffix(strings.TrimSpace(s.Find("span.repayment").Text()), "%"))
	})
	require.ElementsMatch(t, []string{"ada", "bola"}, names)
	require.Equal(t, "/users/ada", doc.Find(`a.user-card[data-username="ada"]`).AttrOr("href", ""))
}

func TestFarmerLogin(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t, testutil.WithScoringService(seededService(t, "ada")))
	client := testutil.NewClient(t, ts)
	_, token := session(t, client, "/login-individual")

	res := client.PostForm("/login-individual", url.Values{"csrf_token": {token}, "username": {"ada"}, "password": {"wrong"}})
	require.Equal(t, http.StatusOK, res.Status)
	doc := testutil.ParseHTML(t, res.Body)
	require.Contains(t, doc.Find(".banner-error").Text(), "Login failed: Invalid username or password")
	require.Equal(t, "ada", doc.Find("#username").AttrOr("value", ""))

	res = client.PostForm("/login-individual", url.Values{"csrf_token": {token}, "username": {"ada"}, "password": {"secret-ada"}})
	require.Equal(t, http.StatusSeeOther, res.Status)
	require.Equal(t, "/profile/ada", res.Header.Get("Location"))

	doc, _ = session(t, client, "/profile/ada")
	require.Equal(t, "Login successful!", strings.TrimSpace(doc.Find(".flash-success").Text()))
	require.Equal(t, "ada", doc.Find("span.username").Text())
	require.Equal(t, 1, doc.Find(`form[action="/logout"]`).Length())

	// The flash is shown once.
	doc, _ = session(t, client, "/profile/ada")
	require.Equal(t, 0, doc.Find(".flash").Length())
}

func TestAgentLoginRedirectsHTMX(t *testing.T) {
	t.Parallel()

	svc := scoring.NewStaticService()
	require.NoError(t, svc.RegisterAgent(context.Background(), scoring.AgentPayload{
		Username: "agent01", Password: "password1", FirstName: "Tunde", LastName: "Bakare",
	}))
	ts := testutil.NewServer(t, testutil.WithScoringService(svc))
	client := testutil.NewClient(t, ts)
	_, token := session(t, client, "/login-agent")

	res := client.PostForm("/login-agent", url.Values{"username": {"agent01"}, "password": {"password1"}},
		"X-CSRF-Token", token, "HX-Request", "true")
	require.Equal(t, http.StatusNoContent, res.Status)
	require.Equal(t, "/agent-dashboard/agent01", res.Header.Get("HX-Redirect"))

	doc, _ := session(t, client, "/agent-dashboard/agent01")
	require.Contains(t, doc.Text(), "Tunde Bakare")
}

func TestAgentLeadVerification(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	client := testutil.NewClient(t, ts)
	doc, token := session(t, client, "/signup-agent")
	require.Equal(t, 0, doc.Find("#verify").Length())

	res := client.PostForm("/signup-agent", url.Values{"csrf_token": {token}, "fullName": {""}, "email": {"tunde@example.com"}})
	require.Equal(t, http.StatusOK, res.Status)
	require.Contains(t, testutil.ParseHTML(t, res.Body).Find(".banner-error").Text(), "Full Name and Email are required.")

	res = client.PostForm("/signup-agent", url.Values{"csrf_token": {token}, "fullName": {"Tunde Bakare"}, "email": {"tunde@example.com"}})
	require.Equal(t, http.StatusSeeOther, res.Status)

	doc, _ = session(t, client, "/signup-agent")
	require.Contains(t, doc.Find("#verify").Text(), "A verification code has been sent to tunde@example.com.")

	res = client.PostForm("/signup-agent/verify", url.Values{"csrf_token": {token}, "code": {"000000"}})
	require.Equal(t, http.StatusOK, res.Status)
	require.Contains(t, testutil.ParseHTML(t, res.Body).Find("#verify .banner-error").Text(), "Invalid or expired code")

	res = client.PostForm("/signup-agent/verify", url.Values{"csrf_token": {token}, "code": {scoring.StaticVerificationCode}})
	require.Equal(t, http.StatusSeeOther, res.Status)
	require.Equal(t, "/signup-agent-full", res.Header.Get("Location"))

	doc, _ = session(t, client, "/signup-agent-full")
	require.Contains(t, doc.Find(".flash-success").Text(), "Email verified successfully!")
	require.Equal(t, "Tunde", doc.Find("#f-firstName").AttrOr("value", ""))
	require.Equal(t, "Bakare", doc.Find("#f-lastName").AttrOr("value", ""))
	require.Equal(t, "tunde@example.com", doc.Find("#f-email").AttrOr("value", ""))
}

func TestRecalculateShowsResultInline(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t, testutil.WithScoringService(seededService(t, "ada")))
	client := testutil.NewClient(t, ts)
	doc, token := session(t, client, "/recalculate/ada")
	require.Equal(t, "41", doc.Find("#f-age").AttrOr("value", ""))
	require.Equal(t, 0, doc.Find("#f-password").Length())

	form := url.Values{"csrf_token": {token}, "action": {"submit"}}
	doc.Find("form#wizard input, form#wizard select").Each(func(_ int, s *goquery.Selection) {
		name, ok := s.Attr("name")
		if !ok || name == "csrf_token" || name == "action" {
			return
		}
		if goquery.NodeName(s) == "select" {
			form.Set(name, s.Find("option[selected]").AttrOr("value", ""))
			return
		}
		form.Set(name, s.AttrOr("value", ""))
	})
	form.Set("loanAmount", "-5")

	res := client.PostForm("/recalculate/ada", form)
	require.Equal(t, http.StatusOK, res.Status)
	doc = testutil.ParseHTML(t, res.Body)
	require.Equal(t, 0, doc.Find(".result").Length())
	require.Equal(t, 1, doc.Find(".field-invalid #f-loanAmount").Length())
}

func TestChatExchangeFragment(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t, testutil.WithScoringService(seededService(t, "ada")))
	client := testutil.NewClient(t, ts)
	_, token := session(t, client, "/aichat/ada")

	res := client.PostForm("/aichat/ada", url.Values{"message": {"hello"}}, "X-CSRF-Token", token, "HX-Request", "true")
	require.Equal(t, http.StatusOK, res.Status)
	doc := testutil.ParseHTML(t, res.Body)
	require.Equal(t, "hello", strings.TrimSpace(doc.Find(".msg-user").Text()))
	require.Contains(t, doc.Find(".msg-ai").Text(), "Hello! How can I help you today?")
	require.Equal(t, "true", doc.Find("#chat-error").AttrOr("hx-swap-oob", ""))
	require.Equal(t, 0, doc.Find("#chat-error .banner").Length())

	res = client.PostForm("/aichat/ada", url.Values{"message": {"   "}}, "X-CSRF-Token", token, "HX-Request", "true")
	doc = testutil.ParseHTML(t, res.Body)
	require.Equal(t, 0, doc.Find(".msg").Length())
	require.Contains(t, doc.Find("#chat-error .banner-error").Text(), "Please type a message first.")

	doc, _ = session(t, client, "/aichat/ada")
	require.Equal(t, 2, doc.Find("#chat-log .msg").Length())
}

func TestUserAssessmentFragment(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t, testutil.WithScoringService(seededService(t, "ada")))
	client := testutil.NewClient(t, ts)

	doc, _ := session(t, client, "/users/ada")
	require.Equal(t, "/users/ada/assessment", doc.Find("#assessment").AttrOr("hx-get", ""))

	res := client.Get("/users/ada/assessment", "HX-Request", "true")
	require.Equal(t, http.StatusOK, res.Status)
	doc = testutil.ParseHTML(t, res.Body)
	require.Contains(t, doc.Find("#assessment .assessment-reply strong").Text(), "Assessment unavailable offline.")
}
