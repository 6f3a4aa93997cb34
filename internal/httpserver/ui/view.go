package ui

import (
	"net/http"
	"net/url"

	custommw "finitefield.org/agricred-web/internal/httpserver/middleware"
	"finitefield.org/agricred-web/internal/nav"
	"finitefield.org/agricred-web/internal/session"
)

// Page is embedded by every page view model and feeds the base layout.
type Page struct {
	Title     string
	Path      string
	Nav       []nav.RenderedItem
	Crumbs    []nav.Crumb
	CSRFToken string
	Flash     *session.Flash
	Username  string
	Role      session.Role
	SignedIn  bool
}

// Banner is a single error or notice shown above a form.
type Banner struct {
	Kind    string
	Title   string
	Message string
}

func errorBanner(message string) *Banner {
	if message == "" {
		return nil
	}
	return &Banner{Kind: "error", Title: "Error:", Message: message}
}

// newPage assembles the layout data for r. Reading the flash consumes it.
func newPage(r *http.Request, title string) Page {
	p := Page{
		Title:     title,
		Path:      r.URL.Path,
		Crumbs:    nav.Breadcrumbs(r.URL.Path),
		CSRFToken: custommw.CSRFTokenFromContext(r.Context()),
	}
	items := nav.Public
	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		if flash, ok := sess.PopFlash(); ok {
			p.Flash = &flash
		}
		if u := sess.Username(); u != "" {
			p.Username = u
			p.Role = sess.Role()
			p.SignedIn = true
			items = signedInItems(u, sess.Role())
		}
	}
	p.Nav = nav.Build(items, r.URL.Path)
	return p
}

func signedInItems(username string, role session.Role) []nav.Item {
	items := []nav.Item{
		{Path: "/", Label: "Home"},
		{Path: "/dashboard", Label: "Dashboard"},
	}
	if role == session.RoleAgent {
		return append(items, nav.Item{Path: agentDashboardPath(username), Label: "Agent dashboard"})
	}
	return append(items,
		nav.Item{Path: profilePath(username), Label: "My profile"},
		nav.Item{Path: chatPath(username), Label: "AI chat"},
	)
}

func profilePath(username string) string {
	return "/profile/" + url.PathEscape(username)
}

func recalculatePath(username string) string {
	return "/recalculate/" + url.PathEscape(username)
}

func userPath(username string) string {
	return "/users/" + url.PathEscape(username)
}

func chatPath(username string) string {
	return "/aichat/" + url.PathEscape(username)
}

func agentDashboardPath(username string) string {
	return "/agent-dashboard/" + url.PathEscape(username)
}
