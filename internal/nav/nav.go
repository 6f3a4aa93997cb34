// Package nav builds the header navigation and breadcrumbs.
package nav

import (
	"path"
	"strings"
)

// Item is a top-level navigation entry.
type Item struct {
	Path  string
	Label string
}

// RenderedItem is a view model for templates.
type RenderedItem struct {
	Href   string
	Label  string
	Active bool
}

// Crumb is a breadcrumb entry.
type Crumb struct {
	Href   string
	Label  string
	Active bool
}

// Public is shown to visitors who are not signed in.
var Public = []Item{
	{Path: "/", Label: "Home"},
	{Path: "/dashboard", Label: "Dashboard"},
	{Path: "/signup", Label: "Sign up"},
	{Path: "/login", Label: "Log in"},
}

// sections maps first path segments to breadcrumb labels.
var sections = map[string]string{
	"dashboard":         "Dashboard",
	"signup":            "Sign up",
	"signup-individual": "Farmer sign up",
	"signup-agent":      "Agent sign up",
	"signup-agent-full": "Agent registration",
	"login":             "Log in",
	"login-individual":  "Farmer log in",
	"login-agent":       "Agent log in",
	"profile":           "Profile",
	"recalculate":       "Recalculate",
	"users":             "Users",
	"aichat":            "AI chat",
	"agent-dashboard":   "Agent dashboard",
}

// Build renders items with the active state for currentPath.
func Build(items []Item, currentPath string) []RenderedItem {
	if currentPath == "" {
		currentPath = "/"
	}
	out := make([]RenderedItem, 0, len(items))
	for _, it := range items {
		out = append(out, RenderedItem{Href: it.Path, Label: it.Label, Active: isActive(it.Path, currentPath)})
	}
	return out
}

func isActive(itemPath, currentPath string) bool {
	if itemPath == "/" {
		return currentPath == "/"
	}
	return currentPath == itemPath || strings.HasPrefix(currentPath, itemPath+"/")
}

// Breadcrumbs builds entries from the current path, starting with Home.
// Sections like /profile have no index page of their own, so their crumb
// links to the dashboard.
func Breadcrumbs(currentPath string) []Crumb {
	if currentPath == "" {
		currentPath = "/"
	}
	crumbs := []Crumb{{Href: "/", Label: "Home", Active: currentPath == "/"}}
	if currentPath == "/" {
		return crumbs
	}

	clean := path.Clean("/" + strings.TrimPrefix(currentPath, "/"))
	parts := strings.Split(strings.TrimPrefix(clean, "/"), "/")

	label, ok := sections[parts[0]]
	if !ok {
		label = titleFromSegment(parts[0])
	}
	href := "/" + parts[0]
	if len(parts) > 1 && !hasIndex(parts[0]) {
		href = "/dashboard"
	}
	crumbs = append(crumbs, Crumb{Href: href, Label: label, Active: len(parts) == 1})

	for i := 1; i < len(parts); i++ {
		crumbs = append(crumbs, Crumb{
			Href:   "/" + strings.Join(parts[:i+1], "/"),
			Label:  parts[i],
			Active: i == len(parts)-1,
		})
	}
	return crumbs
}

func hasIndex(section string) bool {
	switch section {
	case "profile", "recalculate", "users", "aichat", "agent-dashboard":
		return false
	}
	return true
}

func titleFromSegment(seg string) string {
	s := strings.NewReplacer("-", " ", "_", " ").Replace(seg)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
