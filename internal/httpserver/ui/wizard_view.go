package ui

import (
	"strconv"

	"finitefield.org/agricred-web/internal/scoring"
	"finitefield.org/agricred-web/internal/wizard"
)

// WizardView is the view model of one wizard phase.
type WizardView struct {
	Flow        string
	Title       string
	Action      string
	CancelPath  string
	Phase       int
	Total       int
	PhaseTitle  string
	Description string
	Note        string
	Steps       []wizard.Step
	Fields      []FieldView
	Review      []ReviewRow
	IsFirst     bool
	IsFinal     bool
	SubmitLabel string
	Error       *Banner
	ErrorCount  int
	Result      *ScoreView
}

// FieldView renders one input.
type FieldView struct {
	Name        string
	Label       string
	Kind        string
	Placeholder string
	Hint        string
	Value       string
	Error       string
	Required    bool
	Min         string
	Checked     bool
	Options     []OptionView
}

// OptionView is a select option.
type OptionView struct {
	Value    string
	Text     string
	Selected bool
}

// ReviewRow is one line of the summary shown on review phases.
type ReviewRow struct {
	Label string
	Value string
}

// ScoreView shows a scoring result inline.
type ScoreView struct {
	CreditScore int
	Repayment   scoring.Repayment
}

func buildWizardView(form *wizard.Form, action, cancel string) WizardView {
	def := form.Definition()
	phase, _ := def.Phase(form.Phase())
	errs := form.Errors()

	v := WizardView{
		Flow:        def.Name,
		Title:       def.Title,
		Action:      action,
		CancelPath:  cancel,
		Phase:       form.Phase(),
		Total:       def.Len(),
		PhaseTitle:  phase.Title,
		Description: phase.Description,
		Note:        phase.Note,
		IsFirst:     form.Phase() == 1,
		IsFinal:     form.IsFinal(),
		SubmitLabel: def.SubmitLabel,
		Error:       errorBanner(form.APIError()),
		ErrorCount:  errs.Len(),
	}
	if def.Len() > 1 {
		v.Steps = form.Steps()
	}

	for _, f := range phase.Fields {
		fv := FieldView{
			Name:        f.Name,
			Label:       f.Label,
			Kind:        string(f.Kind),
			Placeholder: f.Placeholder,
			Hint:        f.Hint,
			Value:       form.Value(f.Name),
			Error:       errs.Get(f.Name),
			Required:    f.Required,
		}
		if f.Min != nil {
			fv.Min = strconv.FormatFloat(*f.Min, 'f', -1, 64)
		}
		switch f.Kind {
		case wizard.KindPassword:
			// Stored passwords are never echoed into the page.
			fv.Value = ""
		case wizard.KindCheckbox:
			fv.Checked = wizard.IsChecked(fv.Value)
		case wizard.KindSelect:
			for _, opt := range f.Choices() {
				fv.Options = append(fv.Options, OptionView{
					Value:    opt.Value,
					Text:     opt.Text,
					Selected: opt.Value == fv.Value,
				})
			}
		}
		v.Fields = append(v.Fields, fv)
	}

	if phase.Review {
		v.Review = reviewRows(form)
	}
	return v
}

// reviewRows lists every answered field of the earlier phases.
func reviewRows(form *wizard.Form) []ReviewRow {
	def := form.Definition()
	var rows []ReviewRow
	for n := 1; n < form.Phase(); n++ {
		phase, _ := def.Phase(n)
		for _, f := range phase.Fields {
			if f.Kind == wizard.KindPassword {
				continue
			}
			value := form.Value(f.Name)
			if f.Kind == wizard.KindCheckbox {
				value = "No"
				if wizard.IsChecked(form.Value(f.Name)) {
					value = "Yes"
				}
			} else {
				value = f.DisplayValue(value)
			}
			if value == "" {
				continue
			}
			rows = append(rows, ReviewRow{Label: f.Label, Value: value})
		}
	}
	return rows
}
