package nav

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBuildMarksActive(t *testing.T) {
	items := Build(Public, "/dashboard")
	for _, it := range items {
		if want := it.Href == "/dashboard"; it.Active != want {
			t.Errorf("%s active=%v, want %v", it.Href, it.Active, want)
		}
	}
	home := Build(Public, "")
	if !home[0].Active {
		t.Errorf("expected home to be active for empty path")
	}
	if Build(Public, "/login-agent")[3].Active {
		t.Errorf("/login must not match /login-agent")
	}
}

func TestBreadcrumbs(t *testing.T) {
	got := Breadcrumbs("/profile/ada")
	want := []Crumb{
		{Href: "/", Label: "Home"},
		{Href: "/dashboard", Label: "Profile"},
		{Href: "/profile/ada", Label: "ada", Active: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("breadcrumbs mismatch (-want +got):\n%s", diff)
	}

	got = Breadcrumbs("/signup-agent/verify")
	if got[1].Href != "/signup-agent" || got[1].Label != "Agent sign up" {
		t.Errorf("unexpected section crumb %+v", got[1])
	}

	got = Breadcrumbs("/")
	if len(got) != 1 || !got[0].Active {
		t.Errorf("unexpected home crumbs %+v", got)
	}
}
