// Package submission turns completed wizard values into scoring API payloads
// and sends them.
package submission

import (
	"math"
	"strconv"
	"strings"

	"finitefield.org/agricred-web/internal/mapping"
	"finitefield.org/agricred-web/internal/scoring"
	"finitefield.org/agricred-web/internal/wizard"
)

// Report lists the fields that did not encode cleanly.
type Report struct {
	// Coerced numeric fields did not parse and were sent as 0.
	Coerced []string
	// Unmapped categorical fields carry a label the mapping table does not know.
	Unmapped []string
}

// OK reports whether the payload may be sent.
func (r Report) OK() bool {
	return len(r.Unmapped) == 0
}

type categoryField struct {
	name     string
	category string
	set      func(*scoring.FarmerPayload, int)
	get      func(scoring.FarmerPayload) int
}

type numberField struct {
	name    string
	integer bool
	set     func(*scoring.FarmerPayload, float64)
	get     func(scoring.FarmerPayload) float64
}

var categoryFields = []categoryField{
	{"gender", mapping.Gender, func(p *scoring.FarmerPayload, v int) { p.Gender = v }, func(p scoring.FarmerPayload) int { return p.Gender }},
	{"education", mapping.Education, func(p *scoring.FarmerPayload, v int) { p.Education = v }, func(p scoring.FarmerPayload) int { return p.Education }},
	{"maritalStatus", mapping.MaritalStatus, func(p *scoring.FarmerPayload, v int) { p.MaritalStatus = v }, func(p scoring.FarmerPayload) int { return p.MaritalStatus }},
	{"region", mapping.Region, func(p *scoring.FarmerPayload, v int) { p.Region = v }, func(p scoring.FarmerPayload) int { return p.Region }},
	{"state", mapping.State, func(p *scoring.FarmerPayload, v int) { p.State = v }, func(p scoring.FarmerPayload) int { return p.State }},
	{"cropType", mapping.CropType, func(p *scoring.FarmerPayload, v int) { p.CropType = v }, func(p scoring.FarmerPayload) int { return p.CropType }},
	{"livestockType", mapping.LivestockType, func(p *scoring.FarmerPayload, v int) { p.LivestockType = v }, func(p scoring.FarmerPayload) int { return p.LivestockType }},
	{"irrigation", mapping.Irrigation, func(p *scoring.FarmerPayload, v int) { p.Irrigation = v }, func(p scoring.FarmerPayload) int { return p.Irrigation }},
	{"technology", mapping.TechnologyUse, func(p *scoring.FarmerPayload, v int) { p.TechnologyUse = v }, func(p scoring.FarmerPayload) int { return p.TechnologyUse }},
	{"previousLoan", mapping.PreviousLoans, func(p *scoring.FarmerPayload, v int) { p.PreviousLoans = v }, func(p scoring.FarmerPayload) int { return p.PreviousLoans }},
	{"repaymentStatus", mapping.RepaymentStatus, func(p *scoring.FarmerPayload, v int) { p.RepaymentStatus = v }, func(p scoring.FarmerPayload) int { return p.RepaymentStatus }},
	{"savings", mapping.SavingsBehavior, func(p *scoring.FarmerPayload, v int) { p.SavingsBehavior = v }, func(p scoring.FarmerPayload) int { return p.SavingsBehavior }},
	{"financialAccess", mapping.FinancialAccess, func(p *scoring.FarmerPayload, v int) { p.FinancialAccess = v }, func(p scoring.FarmerPayload) int { return p.FinancialAccess }},
	{"extensionServices", mapping.ExtensionServices, func(p *scoring.FarmerPayload, v int) { p.ExtensionServices = v }, func(p scoring.FarmerPayload) int { return p.ExtensionServices }},
	{"inputUsage", mapping.InputUsage, func(p *scoring.FarmerPayload, v int) { p.InputUsage = v }, func(p scoring.FarmerPayload) int { return p.InputUsage }},
	{"labourType", mapping.Labor, func(p *scoring.FarmerPayload, v int) { p.Labor = v }, func(p scoring.FarmerPayload) int { return p.Labor }},
}

var numberFields = []numberField{
	{"age", true, func(p *scoring.FarmerPayload, v float64) { p.Age = int(v) }, func(p scoring.FarmerPayload) float64 { return float64(p.Age) }},
	{"farmSize", false, func(p *scoring.FarmerPayload, v float64) { p.FarmSize = v }, func(p scoring.FarmerPayload) float64 { return p.FarmSize }},
	{"livestockNumber", true, func(p *scoring.FarmerPayload, v float64) { p.LivestockNumber = int(v) }, func(p scoring.FarmerPayload) float64 { return float64(p.LivestockNumber) }},
	{"cropCycles", true, func(p *scoring.FarmerPayload, v float64) { p.CropCycles = int(v) }, func(p scoring.FarmerPayload) float64 { return float64(p.CropCycles) }},
	{"loanAmount", false, func(p *scoring.FarmerPayload, v float64) { p.LoanAmount = v }, func(p scoring.FarmerPayload) float64 { return p.LoanAmount }},
	{"annualIncome", false, func(p *scoring.FarmerPayload, v float64) { p.AnnualIncome = v }, func(p scoring.FarmerPayload) float64 { return p.AnnualIncome }},
	{"marketDistance", false, func(p *scoring.FarmerPayload, v float64) { p.MarketDistance = v }, func(p scoring.FarmerPayload) float64 { return p.MarketDistance }},
	{"yieldLastSeason", false, func(p *scoring.FarmerPayload, v float64) { p.YieldPerSeason = v }, func(p scoring.FarmerPayload) float64 { return p.YieldPerSeason }},
}

// Encode builds the farmer payload from wizard values. Categorical labels are
// replaced by their codes and numeric text is parsed; integer fields are
// truncated toward zero.
func Encode(values map[string]string) (scoring.FarmerPayload, Report) {
	var (
		payload scoring.FarmerPayload
		report  Report
	)
	payload.FirstName = strings.TrimSpace(values["firstName"])
	payload.LastName = strings.TrimSpace(values["lastName"])
	payload.Username = strings.TrimSpace(values["username"])
	payload.Password = values["password"]

	for _, f := range categoryFields {
		code, ok := mapping.Encode(f.category, values[f.name])
		if !ok {
			report.Unmapped = append(report.Unmapped, f.name)
			continue
		}
		f.set(&payload, code)
	}
	for _, f := range numberFields {
		n, ok := parseNumber(values[f.name])
		if !ok {
			report.Coerced = append(report.Coerced, f.name)
			n = 0
		}
		if f.integer {
			n = math.Trunc(n)
		}
		f.set(&payload, n)
	}
	return payload, report
}

// Values decodes a stored profile back into wizard values for prefilling the
// recalculation form. Codes missing from the mapping table are left blank.
func Values(p scoring.FarmerPayload) map[string]string {
	values := map[string]string{
		"firstName": p.FirstName,
		"lastName":  p.LastName,
	}
	for _, f := range categoryFields {
		if label, ok := mapping.Decode(f.category, f.get(p)); ok {
			values[f.name] = label
		} else {
			values[f.name] = ""
		}
	}
	for _, f := range numberFields {
		values[f.name] = strconv.FormatFloat(f.get(p), 'f', -1, 64)
	}
	return values
}

// EncodeAgent builds the registration payload from agent wizard values.
func EncodeAgent(values map[string]string) (scoring.AgentPayload, Report) {
	var report Report
	years, ok := parseNumber(values["yearsOfExperience"])
	if !ok {
		report.Coerced = append(report.Coerced, "yearsOfExperience")
		years = 0
	}
	field := func(name string) string { return strings.TrimSpace(values[name]) }
	return scoring.AgentPayload{
		Username:            field("username"),
		Password:            values["password"],
		FirstName:           field("firstName"),
		LastName:            field("lastName"),
		Email:               field("email"),
		PhoneNumber:         field("phoneNumber"),
		Gender:              field("gender"),
		DateOfBirth:         field("dateOfBirth"),
		State:               field("state"),
		LGA:                 field("lga"),
		AssignedCommunities: field("assignedCommunities"),
		Organization:        field("organization"),
		YearsOfExperience:   years,
		AreaOfExpertise:     field("areaOfExpertise"),
		LanguagesSpoken:     field("languagesSpoken"),
		IsFullTime:          wizard.IsChecked(field("isFullTime")),
	}, report
}

func parseNumber(raw string) (float64, bool) {
	return wizard.ParseNumber(raw)
}
