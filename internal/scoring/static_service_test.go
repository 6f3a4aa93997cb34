package scoring_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/agricred-web/internal/scoring"
)

func TestStaticServiceFarmerLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := scoring.NewStaticService()

	payload := scoring.FarmerPayload{FirstName: "Ada", LastName: "Obi", AnnualIncome: 900000, LoanAmount: 100000, Username: "ada", Password: "pw"}
	result, err := svc.Predict(ctx, payload)
	require.NoError(t, err)
	require.GreaterOrEqual(t, result.CreditScore, 300)
	require.LessOrEqual(t, result.CreditScore, 850)
	require.True(t, result.Repayment.HasPercent)

	_, err = svc.Predict(ctx, payload)
	var apiErr *scoring.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadRequest, apiErr.Status)

	rec, err := svc.GetUser(ctx, "ada")
	require.NoError(t, err)
	require.Equal(t, "Ada Obi", rec.FullName())
	require.Empty(t, rec.Profile.Password)

	require.NoError(t, svc.Login(ctx, scoring.Credentials{Username: "ada", Password: "pw"}))
	require.Error(t, svc.Login(ctx, scoring.Credentials{Username: "ada", Password: "nope"}))

	payload.RepaymentStatus = 2
	payload.Irrigation = 1
	updated, err := svc.UpdateUser(ctx, "ada", payload)
	require.NoError(t, err)
	require.Greater(t, updated.CreditScore, result.CreditScore)

	_, err = svc.GetUser(ctx, "ghost")
	require.ErrorIs(t, err, scoring.ErrNotFound)
	_, err = svc.UpdateUser(ctx, "ghost", payload)
	require.ErrorIs(t, err, scoring.ErrNotFound)
}

func TestStaticServiceListsNewestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := scoring.NewStaticService()
	for _, name := range []string{"first", "second", "third"} {
		_, err := svc.Predict(ctx, scoring.FarmerPayload{Username: name})
		require.NoError(t, err)
	}
	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	names := []string{users[0].Username, users[1].Username, users[2].Username}
	require.ElementsMatch(t, []string{"first", "second", "third"}, names)
}

func TestStaticServiceAgentFlow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := scoring.NewStaticService()

	require.Error(t, svc.VerifyCode(ctx, "musa@example.com", scoring.StaticVerificationCode))
	require.NoError(t, svc.SendCode(ctx, "Musa@Example.com"))
	require.Error(t, svc.VerifyCode(ctx, "musa@example.com", "000000"))
	require.NoError(t, svc.VerifyCode(ctx, "musa@example.com", scoring.StaticVerificationCode))

	err := svc.RegisterAgent(ctx, scoring.AgentPayload{
		Username:            "musab",
		Password:            "password1",
		FirstName:           "Musa",
		LastName:            "Bello",
		AssignedCommunities: "Kaura, Zonkwa",
		LanguagesSpoken:     "Hausa",
		YearsOfExperience:   3,
	})
	require.NoError(t, err)
	require.Error(t, svc.RegisterAgent(ctx, scoring.AgentPayload{Username: "musab"}))

	agent, err := svc.GetAgent(ctx, "musab")
	require.NoError(t, err)
	require.Equal(t, scoring.List{"Kaura", "Zonkwa"}, agent.AssignedCommunities)
	require.NoError(t, svc.AgentLogin(ctx, scoring.Credentials{Username: "musab", Password: "password1"}))
	require.Error(t, svc.AgentLogin(ctx, scoring.Credentials{Username: "musab", Password: "wrong"}))

	_, err = svc.GetAgent(ctx, "nobody")
	require.ErrorIs(t, err, scoring.ErrNotFound)
}
