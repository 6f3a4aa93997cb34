package submission_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"finitefield.org/agricred-web/internal/observability"
	"finitefield.org/agricred-web/internal/scoring"
	"finitefield.org/agricred-web/internal/submission"
	"finitefield.org/agricred-web/internal/wizard"
)

type recordingService struct {
	scoring.Service

	mu       sync.Mutex
	predicts []scoring.FarmerPayload
	updates  map[string]scoring.FarmerPayload
	agents   []scoring.AgentPayload
	calls    atomic.Int32
	release  chan struct{}
	err      error
}

func (s *recordingService) wait() {
	s.calls.Add(1)
	if s.release != nil {
		<-s.release
	}
}

func (s *recordingService) Predict(ctx context.Context, payload scoring.FarmerPayload) (scoring.ScoreResult, error) {
	s.wait()
	if err := ctx.Err(); err != nil {
		return scoring.ScoreResult{}, err
	}
	s.mu.Lock()
	s.predicts = append(s.predicts, payload)
	s.mu.Unlock()
	if s.err != nil {
		return scoring.ScoreResult{}, s.err
	}
	return scoring.ScoreResult{CreditScore: 701, Repayment: scoring.Repayment{Percent: 73.4, HasPercent: true}}, nil
}

func (s *recordingService) UpdateUser(ctx context.Context, username string, payload scoring.FarmerPayload) (scoring.ScoreResult, error) {
	s.wait()
	s.mu.Lock()
	if s.updates == nil {
		s.updates = make(map[string]scoring.FarmerPayload)
	}
	s.updates[username] = payload
	s.mu.Unlock()
	return scoring.ScoreResult{CreditScore: 655, Repayment: scoring.Repayment{Percent: 61, HasPercent: true}}, nil
}

func (s *recordingService) RegisterAgent(ctx context.Context, payload scoring.AgentPayload) error {
	s.wait()
	s.mu.Lock()
	s.agents = append(s.agents, payload)
	s.mu.Unlock()
	return s.err
}

func TestSubmitFarmerSignup(t *testing.T) {
	t.Parallel()

	svc := &recordingService{}
	adapter := submission.NewAdapter(svc)

	result, err := adapter.Submit(context.Background(), wizard.FarmerSignup, "", farmerValues())
	require.NoError(t, err)
	require.Equal(t, 701, result.CreditScore)
	require.Len(t, svc.predicts, 1)
	require.Equal(t, "ada", svc.predicts[0].Username)
	require.Equal(t, 34, svc.predicts[0].Age)
}

func TestSubmitRecalculateUsesPathUsername(t *testing.T) {
	t.Parallel()

	svc := &recordingService{}
	adapter := submission.NewAdapter(svc)

	values := farmerValues()
	delete(values, "username")
	delete(values, "password")
	result, err := adapter.Submit(context.Background(), wizard.Recalculate, "ada", values)
	require.NoError(t, err)
	require.Equal(t, 655, result.CreditScore)
	require.Contains(t, svc.updates, "ada")
	require.Empty(t, svc.updates["ada"].Username)
	require.Empty(t, svc.predicts)
}

func TestSubmitRefusesUnmappedLabels(t *testing.T) {
	t.Parallel()

	svc := &recordingService{}
	adapter := submission.NewAdapter(svc)

	values := farmerValues()
	values["state"] = "Atlantis"
	_, err := adapter.Submit(context.Background(), wizard.FarmerSignup, "", values)

	var unmapped *submission.UnmappedError
	require.True(t, errors.As(err, &unmapped))
	require.Equal(t, []string{"state"}, unmapped.Fields)
	require.Contains(t, wizard.MessageFor(err), "state")
	require.Zero(t, svc.calls.Load())
}

func TestSubmitLogsCoercedFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	ctx := observability.WithLogger(context.Background(), zap.New(core))

	svc := &recordingService{}
	adapter := submission.NewAdapter(svc)
	values := farmerValues()
	values["age"] = "abc"

	_, err := adapter.Submit(ctx, wizard.FarmerSignup, "", values)
	require.NoError(t, err)
	require.Equal(t, 0, svc.predicts[0].Age)

	entries := logs.FilterMessage("numeric fields coerced to zero").All()
	require.Len(t, entries, 1)
	require.Equal(t, wizard.FarmerSignup, entries[0].ContextMap()["flow"])
}

func TestSubmitUnknownFlow(t *testing.T) {
	t.Parallel()

	adapter := submission.NewAdapter(&recordingService{})
	_, err := adapter.Submit(context.Background(), "mystery", "", nil)
	require.ErrorIs(t, err, submission.ErrUnknownFlow)
}

func TestSubmitCollapsesConcurrentDuplicates(t *testing.T) {
	t.Parallel()

	svc := &recordingService{release: make(chan struct{})}
	adapter := submission.NewAdapter(svc)

	const n = 5
	var wg sync.WaitGroup
	results := make([]scoring.ScoreResult, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = adapter.Submit(context.Background(), wizard.FarmerSignup, "", farmerValues())
		}(i)
	}

	require.Eventually(t, func() bool { return svc.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	// let the other goroutines join the in-flight call before releasing it
	time.Sleep(50 * time.Millisecond)
	close(svc.release)
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, 701, results[i].CreditScore)
	}
	require.Equal(t, int32(1), svc.calls.Load())
}

func TestSubmitSharedCallOutlivesFirstCaller(t *testing.T) {
	t.Parallel()

	svc := &recordingService{release: make(chan struct{})}
	adapter := submission.NewAdapter(svc)

	firstCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var firstErr, secondErr error
	var second scoring.ScoreResult
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, firstErr = adapter.Submit(firstCtx, wizard.FarmerSignup, "", farmerValues())
	}()
	require.Eventually(t, func() bool { return svc.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	go func() {
		defer wg.Done()
		second, secondErr = adapter.Submit(context.Background(), wizard.FarmerSignup, "", farmerValues())
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	close(svc.release)
	wg.Wait()

	require.NoError(t, firstErr)
	require.NoError(t, secondErr)
	require.Equal(t, 701, second.CreditScore)
	require.Equal(t, int32(1), svc.calls.Load())
}

func TestSubmitterStoresResultAndSurfacesAPIErrors(t *testing.T) {
	t.Parallel()

	def, err := wizard.Load(wizard.FarmerSignup)
	require.NoError(t, err)
	svc := &recordingService{err: &scoring.APIError{Op: "predict", Status: 400, Message: "Username already exists"}}
	adapter := submission.NewAdapter(svc)

	form := wizard.Restore(def, wizard.State{Phase: def.Len(), Values: farmerValues()})
	var result scoring.ScoreResult
	err = form.Submit(context.Background(), adapter.Submitter(wizard.FarmerSignup, "", &result))
	require.Error(t, err)
	require.Equal(t, "Username already exists", form.APIError())
	require.False(t, form.Submitted())

	svc.err = nil
	require.NoError(t, form.Submit(context.Background(), adapter.Submitter(wizard.FarmerSignup, "", &result)))
	require.True(t, form.Submitted())
	require.Equal(t, 701, result.CreditScore)
}

func TestSubmitAgentRegistration(t *testing.T) {
	t.Parallel()

	svc := &recordingService{}
	adapter := submission.NewAdapter(svc)
	_, err := adapter.Submit(context.Background(), wizard.AgentRegistration, "", map[string]string{
		"username":          "musab",
		"firstName":         "Musa",
		"yearsOfExperience": "3",
		"isFullTime":        "false",
	})
	require.NoError(t, err)
	require.Len(t, svc.agents, 1)
	require.Equal(t, "musab", svc.agents[0].Username)
	require.InDelta(t, 3, svc.agents[0].YearsOfExperience, 0.0001)
}
