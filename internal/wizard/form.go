package wizard

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotFinalPhase is returned by Submit before the last phase is reached.
	ErrNotFinalPhase = errors.New("wizard: submit is only allowed on the final phase")
	// ErrInvalid is returned by Submit when the final phase does not validate.
	ErrInvalid = errors.New("wizard: final phase has validation errors")
	// ErrAlreadySubmitted is returned by Submit once the form reached its terminal state.
	ErrAlreadySubmitted = errors.New("wizard: form already submitted")
)

// DefaultSubmitError is shown when a submission fails without a usable message.
const DefaultSubmitError = "We could not submit your details. Please try again."

// Submitter sends the completed form values to the remote service.
type Submitter interface {
	Submit(ctx context.Context, values map[string]string) error
}

// SubmitFunc adapts a function to Submitter.
type SubmitFunc func(ctx context.Context, values map[string]string) error

// Submit calls f.
func (f SubmitFunc) Submit(ctx context.Context, values map[string]string) error {
	return f(ctx, values)
}

// UserMessenger is implemented by errors carrying a message safe to show users.
type UserMessenger interface {
	UserMessage() string
}

// ErrorSet keeps validation messages in the order they were reported.
type ErrorSet struct {
	order    []string
	messages map[string]string
}

func newErrorSet(errs []FieldError) *ErrorSet {
	set := &ErrorSet{messages: make(map[string]string, len(errs))}
	for _, e := range errs {
		set.set(e.Field, e.Message)
	}
	return set
}

func (s *ErrorSet) set(field, msg string) {
	if _, ok := s.messages[field]; !ok {
		s.order = append(s.order, field)
	}
	s.messages[field] = msg
}

func (s *ErrorSet) clear(field string) {
	if _, ok := s.messages[field]; !ok {
		return
	}
	delete(s.messages, field)
	for i, name := range s.order {
		if name == field {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Get returns the message recorded for field.
func (s *ErrorSet) Get(field string) string {
	return s.messages[field]
}

// Has reports whether field has an error.
func (s *ErrorSet) Has(field string) bool {
	_, ok := s.messages[field]
	return ok
}

// Len returns the number of recorded errors.
func (s *ErrorSet) Len() int {
	return len(s.order)
}

// List returns the errors in order.
func (s *ErrorSet) List() []FieldError {
	out := make([]FieldError, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, FieldError{Field: name, Message: s.messages[name]})
	}
	return out
}

// State is the serialisable snapshot of a Form kept in the session between requests.
type State struct {
	Phase     int               `json:"phase"`
	Values    map[string]string `json:"values,omitempty"`
	Errors    []FieldError      `json:"errors,omitempty"`
	APIError  string            `json:"apiError,omitempty"`
	Submitted bool              `json:"submitted,omitempty"`
}

// Form is the mutable state of one wizard run.
type Form struct {
	def       *Definition
	phase     int
	values    map[string]string
	errors    *ErrorSet
	apiError  string
	submitted bool
}

// New starts a form on phase 1 with empty values.
func New(def *Definition) *Form {
	return &Form{
		def:    def,
		phase:  1,
		values: make(map[string]string),
		errors: newErrorSet(nil),
	}
}

// Restore rebuilds a form from a stored snapshot. Out of range phases are clamped.
func Restore(def *Definition, st State) *Form {
	f := New(def)
	f.phase = clamp(st.Phase, 1, def.Len())
	for k, v := range st.Values {
		f.values[k] = v
	}
	f.errors = newErrorSet(st.Errors)
	f.apiError = st.APIError
	f.submitted = st.Submitted
	return f
}

// State snapshots the form.
func (f *Form) State() State {
	values := make(map[string]string, len(f.values))
	for k, v := range f.values {
		values[k] = v
	}
	return State{
		Phase:     f.phase,
		Values:    values,
		Errors:    f.errors.List(),
		APIError:  f.apiError,
		Submitted: f.submitted,
	}
}

// Definition returns the wizard definition.
func (f *Form) Definition() *Definition { return f.def }

// Phase returns the current 1-based phase.
func (f *Form) Phase() int { return f.phase }

// IsFinal reports whether the form is on its last phase.
func (f *Form) IsFinal() bool { return f.phase == f.def.Len() }

// Submitted reports whether the form reached its terminal state.
func (f *Form) Submitted() bool { return f.submitted }

// Value returns the current value of a field.
func (f *Form) Value(name string) string { return f.values[name] }

// Values returns a copy of all values.
func (f *Form) Values() map[string]string {
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out
}

// Errors exposes the validation errors of the last pass.
func (f *Form) Errors() *ErrorSet { return f.errors }

// APIError returns the message of the last failed submission.
func (f *Form) APIError() string { return f.apiError }

// EditField replaces one value and clears any error recorded for it.
func (f *Form) EditField(name, value string) {
	f.values[name] = value
	f.errors.clear(name)
}

// Advance validates the current phase and moves forward when it passes.
func (f *Form) Advance() bool {
	errs := f.def.ValidatePhase(f.phase, f.values)
	f.errors = newErrorSet(errs)
	if len(errs) > 0 {
		return false
	}
	if f.phase < f.def.Len() {
		f.phase++
	}
	return true
}

// Retreat moves back one phase without validating.
func (f *Form) Retreat() {
	if f.phase > 1 {
		f.phase--
	}
}

// Submit validates the final phase and hands the values to s. A failed call
// stays on the final phase with the API error slot set.
func (f *Form) Submit(ctx context.Context, s Submitter) error {
	if f.submitted {
		return ErrAlreadySubmitted
	}
	if !f.IsFinal() {
		return ErrNotFinalPhase
	}
	errs := f.def.ValidatePhase(f.phase, f.values)
	f.errors = newErrorSet(errs)
	if len(errs) > 0 {
		return ErrInvalid
	}
	f.apiError = ""
	if err := s.Submit(ctx, f.Values()); err != nil {
		f.apiError = MessageFor(err)
		return err
	}
	f.submitted = true
	return nil
}

// MessageFor extracts a user-facing message from a submission error.
func MessageFor(err error) string {
	var um UserMessenger
	if errors.As(err, &um) {
		if msg := strings.TrimSpace(um.UserMessage()); msg != "" {
			return msg
		}
	}
	return DefaultSubmitError
}

// Step is a view model for the phase indicator.
type Step struct {
	Index       int
	Key         string
	Title       string
	Description string
	Active      bool
	Completed   bool
}

// Steps renders the phase indicator for the current position.
func (f *Form) Steps() []Step {
	steps := make([]Step, 0, f.def.Len())
	for i, p := range f.def.Phases {
		n := i + 1
		steps = append(steps, Step{
			Index:       n,
			Key:         p.Key,
			Title:       p.Title,
			Description: p.Description,
			Active:      n == f.phase,
			Completed:   n < f.phase || f.submitted,
		})
	}
	return steps
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
