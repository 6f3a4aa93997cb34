// Package mapping holds the fixed label/code tables the scoring API uses for
// categorical inputs.
package mapping

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Category names match the field names expected by the scoring API.
const (
	Gender            = "Gender"
	Education         = "Education"
	MaritalStatus     = "Marital_Status"
	Region            = "Region"
	State             = "State"
	CropType          = "Crop_Type"
	LivestockType     = "Livestock_Type"
	Irrigation        = "Irrigation"
	TechnologyUse     = "Technology_Use"
	PreviousLoans     = "Previous_Loans"
	RepaymentStatus   = "Repayment_Status"
	SavingsBehavior   = "Savings_Behavior"
	FinancialAccess   = "Financial_Access"
	ExtensionServices = "Extension_Services"
	InputUsage        = "Input_Usage"
	Labor             = "Labor"
)

// NotApplicable is the label the scoring model uses for a missing livestock
// type or input usage.
const NotApplicable = "nan"

type table struct {
	labels  []string
	byLabel map[string]int
	byCode  map[int]string
}

var yesNo = []string{"No", "Yes"}

var definitions = []struct {
	name   string
	labels []string
}{
	{Gender, []string{"Female", "Male"}},
	{Education, []string{"Primary", "Secondary", "Tertiary"}},
	{MaritalStatus, []string{"Divorced", "Married", "Single"}},
	{Region, []string{"North Central", "North East", "North West", "South East", "South South", "South West"}},
	{State, []string{
		"Abia", "Adamawa", "Akwa Ibom", "Anambra", "Bauchi", "Bayelsa", "Benue", "Borno",
		"Cross River", "Delta", "Ebonyi", "Edo", "Ekiti", "Enugu", "FCT", "Gombe", "Imo",
		"Jigawa", "Kaduna", "Kano", "Katsina", "Kebbi", "Kogi", "Kwara", "Lagos", "Nassarawa",
		"Niger", "Ogun", "Ondo", "Osun", "Oyo", "Plateau", "Rivers", "Sokoto", "Taraba",
		"Yobe", "Zamfara",
	}},
	{CropType, []string{
		"Beans", "Cassava", "Cocoa", "Cotton", "Cowpea", "Groundnut", "Maize", "Millet",
		"Oil Palm", "Plantain", "Rice", "Rubber", "Sesame", "Sorghum", "Soybeans",
		"Vegetables", "Yam",
	}},
	{LivestockType, []string{"Cattle", "Goats", "Pigs", "Poultry", "Sheep", NotApplicable}},
	{Irrigation, yesNo},
	{TechnologyUse, yesNo},
	{PreviousLoans, yesNo},
	{RepaymentStatus, []string{"Defaulted", "Late", "Paid on Time"}},
	{SavingsBehavior, yesNo},
	{FinancialAccess, yesNo},
	{ExtensionServices, yesNo},
	{InputUsage, []string{"All", "Some", NotApplicable}},
	{Labor, []string{"Both", "Family", "Hired"}},
}

var (
	tables = buildTables()
	order  = categoryOrder()
)

func buildTables() map[string]*table {
	out := make(map[string]*table, len(definitions))
	for _, def := range definitions {
		t := &table{
			labels:  make([]string, 0, len(def.labels)),
			byLabel: make(map[string]int, len(def.labels)),
			byCode:  make(map[int]string, len(def.labels)),
		}
		for code, label := range def.labels {
			key := normalize(label)
			if _, dup := t.byLabel[key]; dup {
				panic("mapping: duplicate label " + label + " in " + def.name)
			}
			t.labels = append(t.labels, label)
			t.byLabel[key] = code
			t.byCode[code] = label
		}
		out[def.name] = t
	}
	return out
}

func categoryOrder() []string {
	names := make([]string, 0, len(definitions))
	for _, def := range definitions {
		names = append(names, def.name)
	}
	sort.Strings(names)
	return names
}

// Encode returns the integer code for label in category. The boolean is false
// when the category or label is unknown.
func Encode(category, label string) (int, bool) {
	t, ok := tables[category]
	if !ok {
		return 0, false
	}
	code, ok := t.byLabel[normalize(label)]
	return code, ok
}

// Decode returns the label for code in category. The boolean is false when the
// category or code is unknown.
func Decode(category string, code int) (string, bool) {
	t, ok := tables[category]
	if !ok {
		return "", false
	}
	label, ok := t.byCode[code]
	return label, ok
}

// Labels lists the labels of category ordered by code.
func Labels(category string) []string {
	t, ok := tables[category]
	if !ok {
		return nil
	}
	out := make([]string, len(t.labels))
	copy(out, t.labels)
	return out
}

// Has reports whether category exists.
func Has(category string) bool {
	_, ok := tables[category]
	return ok
}

// Categories lists every known category name in sorted order.
func Categories() []string {
	out := make([]string, len(order))
	copy(out, order)
	return out
}

func normalize(label string) string {
	return norm.NFC.String(strings.TrimSpace(label))
}
