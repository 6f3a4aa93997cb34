package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"finitefield.org/agricred-web/internal/observability"
	"finitefield.org/agricred-web/internal/scoring"
	"finitefield.org/agricred-web/internal/wizard"
)

// ErrUnknownFlow is returned for a flow the adapter cannot submit.
var ErrUnknownFlow = errors.New("submission: unknown flow")

// UnmappedError refuses a payload that still carries unknown category labels.
type UnmappedError struct {
	Fields []string
}

func (e *UnmappedError) Error() string {
	return "submission: unmapped values for " + strings.Join(e.Fields, ", ")
}

// UserMessage implements wizard.UserMessenger.
func (e *UnmappedError) UserMessage() string {
	return "Some selections are not recognised (" + strings.Join(e.Fields, ", ") + "). Please choose them again."
}

// Adapter sends completed wizard forms to the scoring service.
type Adapter struct {
	scoring scoring.Service
	group   singleflight.Group
}

// NewAdapter constructs an Adapter.
func NewAdapter(svc scoring.Service) *Adapter {
	return &Adapter{scoring: svc}
}

// Submit sends values for flow with exactly one remote call. username is the
// profile being rescored for wizard.Recalculate and ignored otherwise.
// Concurrent submissions for the same flow and username share one call. The
// shared call ignores the first caller's cancellation and is bounded by the
// scoring client timeout.
func (a *Adapter) Submit(ctx context.Context, flow, username string, values map[string]string) (scoring.ScoreResult, error) {
	switch flow {
	case wizard.FarmerSignup, wizard.AgentRegistration:
		username = strings.TrimSpace(values["username"])
	case wizard.Recalculate:
	default:
		return scoring.ScoreResult{}, fmt.Errorf("%w: %q", ErrUnknownFlow, flow)
	}

	key := flow + ":" + username
	v, err, shared := a.group.Do(key, func() (any, error) {
		return a.send(context.WithoutCancel(ctx), flow, username, values)
	})
	if shared {
		observability.FromContext(ctx).Info("duplicate submission collapsed",
			zap.String("flow", flow), zap.String("username", username))
	}
	if err != nil {
		return scoring.ScoreResult{}, err
	}
	return v.(scoring.ScoreResult), nil
}

// Submitter binds flow and username to a wizard.Submitter. The score of a
// successful call is stored in out when out is non-nil.
func (a *Adapter) Submitter(flow, username string, out *scoring.ScoreResult) wizard.Submitter {
	return wizard.SubmitFunc(func(ctx context.Context, values map[string]string) error {
		result, err := a.Submit(ctx, flow, username, values)
		if err != nil {
			return err
		}
		if out != nil {
			*out = result
		}
		return nil
	})
}

func (a *Adapter) send(ctx context.Context, flow, username string, values map[string]string) (scoring.ScoreResult, error) {
	logger := observability.FromContext(ctx).With(zap.String("flow", flow))

	if flow == wizard.AgentRegistration {
		payload, report := EncodeAgent(values)
		warnCoerced(logger, report)
		if err := a.scoring.RegisterAgent(ctx, payload); err != nil {
			return scoring.ScoreResult{}, err
		}
		return scoring.ScoreResult{}, nil
	}

	payload, report := Encode(values)
	warnCoerced(logger, report)
	if !report.OK() {
		logger.Warn("submission refused", zap.Strings("unmapped", report.Unmapped))
		return scoring.ScoreResult{}, &UnmappedError{Fields: report.Unmapped}
	}
	if flow == wizard.Recalculate {
		payload.Username = ""
		payload.Password = ""
		return a.scoring.UpdateUser(ctx, username, payload)
	}
	return a.scoring.Predict(ctx, payload)
}

func warnCoerced(logger *zap.Logger, report Report) {
	if len(report.Coerced) > 0 {
		logger.Warn("numeric fields coerced to zero", zap.Strings("fields", report.Coerced))
	}
}
