package httpserver_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/agricred-web/internal/scoring"
	"finitefield.org/agricred-web/internal/testutil"
)

type unavailableService struct {
	scoring.Service
}

func (unavailableService) GetUser(context.Context, string) (*scoring.UserRecord, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func (unavailableService) ListUsers(context.Context) ([]scoring.UserRecord, error) {
	return nil, &scoring.APIError{Op: "list-users", Status: http.StatusInternalServerError}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	res := testutil.NewClient(t, ts).Get("/healthz")

	require.Equal(t, http.StatusOK, res.Status)
	require.Equal(t, "ok", string(res.Body))
}

func TestHomeRendersLayout(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	res := testutil.NewClient(t, ts).Get("/")

	require.Equal(t, http.StatusOK, res.Status)
	require.Equal(t, "no-store, max-age=0", res.Header.Get("Cache-Control"))

	doc := testutil.ParseHTML(t, res.Body)
	require.NotEmpty(t, testutil.CSRFToken(t, doc))
	require.Equal(t, "true", doc.Find("body").AttrOr("hx-boost", ""))
	require.Equal(t, 0, doc.Find(`form[action="/logout"]`).Length())
}

func TestUnknownRouteRendersNotFound(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	res := testutil.NewClient(t, ts).Get("/no/such/page")

	require.Equal(t, http.StatusNotFound, res.Status)
	doc := testutil.ParseHTML(t, res.Body)
	require.Equal(t, 1, doc.Find("section.not-found").Length())
}

func TestUnknownProfileIsNotFound(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	res := testutil.NewClient(t, ts).Get("/profile/ghost")

	require.Equal(t, http.StatusNotFound, res.Status)
	doc := testutil.ParseHTML(t, res.Body)
	require.Contains(t, doc.Find("section.not-found h1").Text(), "not found")
}

func TestUpstreamFailureIsBadGateway(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t, testutil.WithScoringService(unavailableService{}))
	client := testutil.NewClient(t, ts)

	res := client.Get("/profile/ada")
	require.Equal(t, http.StatusBadGateway, res.Status)
	doc := testutil.ParseHTML(t, res.Body)
	require.Equal(t, 0, doc.Find("section.not-found").Length())
	require.Contains(t, doc.Find(".banner-error").Text(), "scoring service is unavailable")

	res = client.Get("/dashboard")
	require.Equal(t, http.StatusBadGateway, res.Status)
	require.Contains(t, testutil.ParseHTML(t, res.Body).Find(".banner-error h1").Text(), "Error loading users")
}

func TestPostWithoutTokenIsForbidden(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	client := testutil.NewClient(t, ts)
	client.Get("/login-individual")

	res := client.PostForm("/login-individual", url.Values{"username": {"ada"}, "password": {"pw"}})
	require.Equal(t, http.StatusForbidden, res.Status)
}

func TestTokenAcceptedFromHeader(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	client := testutil.NewClient(t, ts)
	token := testutil.CSRFToken(t, testutil.ParseHTML(t, client.Get("/login-individual").Body))

	res := client.PostForm("/login-individual", url.Values{"username": {"ada"}}, "X-CSRF-Token", token)
	require.Equal(t, http.StatusOK, res.Status)
	require.True(t, strings.Contains(string(res.Body), "Please enter both username and password."))
}
