package scoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FarmerPayload is the encoded farmer profile accepted by /predict and
// /update. Categorical fields carry mapping codes.
type FarmerPayload struct {
	FirstName         string  `json:"FirstName"`
	LastName          string  `json:"LastName"`
	Age               int     `json:"Age"`
	Gender            int     `json:"Gender"`
	Education         int     `json:"Education"`
	MaritalStatus     int     `json:"Marital_Status"`
	Region            int     `json:"Region"`
	State             int     `json:"State"`
	FarmSize          float64 `json:"Farm_Size"`
	CropType          int     `json:"Crop_Type"`
	LivestockType     int     `json:"Livestock_Type"`
	LivestockNumber   int     `json:"Livestock_Number"`
	Irrigation        int     `json:"Irrigation"`
	CropCycles        int     `json:"Crop_Cycles"`
	TechnologyUse     int     `json:"Technology_Use"`
	PreviousLoans     int     `json:"Previous_Loans"`
	LoanAmount        float64 `json:"Loan_Amount"`
	RepaymentStatus   int     `json:"Repayment_Status"`
	SavingsBehavior   int     `json:"Savings_Behavior"`
	FinancialAccess   int     `json:"Financial_Access"`
	AnnualIncome      float64 `json:"Annual_Income"`
	ExtensionServices int     `json:"Extension_Services"`
	MarketDistance    float64 `json:"Market_Distance"`
	YieldPerSeason    float64 `json:"Yield_Per_Season"`
	InputUsage        int     `json:"Input_Usage"`
	Labor             int     `json:"Labor"`
	Username          string  `json:"Username,omitempty"`
	Password          string  `json:"Password,omitempty"`
}

// Repayment is the repayment likelihood reported by the scoring API. The API
// sends a percentage number; older records may carry a label instead.
type Repayment struct {
	Percent    float64
	HasPercent bool
	Label      string
}

// UnmarshalJSON accepts a number, a numeric string (optionally suffixed with
// "%") or a free-form label.
func (r *Repayment) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = Repayment{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if n, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64); err == nil {
			*r = Repayment{Percent: n, HasPercent: true}
			return nil
		}
		*r = Repayment{Label: s}
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("repayment: %w", err)
	}
	*r = Repayment{Percent: n, HasPercent: true}
	return nil
}

// MarshalJSON writes the percentage as a number or the label as a string.
func (r Repayment) MarshalJSON() ([]byte, error) {
	if r.HasPercent {
		return json.Marshal(r.Percent)
	}
	if r.Label == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.Label)
}

// Known reports whether the API returned any repayment figure.
func (r Repayment) Known() bool {
	return r.HasPercent || r.Label != ""
}

func (r Repayment) validate() error {
	if r.HasPercent && (math.IsNaN(r.Percent) || r.Percent < 0 || r.Percent > 100) {
		return fmt.Errorf("repayment percentage %v out of range", r.Percent)
	}
	return nil
}

// ScoreResult is returned by /predict and /update.
type ScoreResult struct {
	CreditScore int       `json:"credit_score"`
	Repayment   Repayment `json:"Repayment_status"`
}

type scoreResponse struct {
	CreditScore *float64   `json:"credit_score"`
	Repayment   *Repayment `json:"Repayment_status"`
}

func (s scoreResponse) result() (ScoreResult, error) {
	if s.CreditScore == nil {
		return ScoreResult{}, fmt.Errorf("%w: credit_score missing", ErrInvalidResponse)
	}
	if s.Repayment == nil || !s.Repayment.Known() {
		return ScoreResult{}, fmt.Errorf("%w: Repayment_status missing", ErrInvalidResponse)
	}
	if err := s.Repayment.validate(); err != nil {
		return ScoreResult{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return ScoreResult{
		CreditScore: int(math.Round(*s.CreditScore)),
		Repayment:   *s.Repayment,
	}, nil
}

// UserRecord is a stored farmer profile as returned by /get-user and /get-all-users.
type UserRecord struct {
	Username    string        `json:"username"`
	Email       string        `json:"email,omitempty"`
	Profile     FarmerPayload `json:"data"`
	CreditScore int           `json:"credit_score"`
	Repayment   Repayment     `json:"Repayment_status"`
}

// FullName joins first and last name, falling back to "Unknown".
func (u UserRecord) FullName() string {
	name := strings.TrimSpace(u.Profile.FirstName + " " + u.Profile.LastName)
	if name == "" {
		return "Unknown"
	}
	return name
}

// ContactEmail returns the stored email or a placeholder derived from the username.
func (u UserRecord) ContactEmail() string {
	if u.Email != "" {
		return u.Email
	}
	return u.Username + "@gmail.com"
}

type userResponse struct {
	Username    string          `json:"username"`
	Email       string          `json:"email"`
	Data        json.RawMessage `json:"data"`
	CreditScore *float64        `json:"credit_score"`
	Repayment   Repayment       `json:"Repayment_status"`
}

type profileData struct {
	FarmerPayload
	Email string `json:"email"`
}

func (u userResponse) record(fallbackUsername string) (UserRecord, error) {
	if len(bytes.TrimSpace(u.Data)) == 0 || bytes.Equal(bytes.TrimSpace(u.Data), []byte("null")) {
		return UserRecord{}, fmt.Errorf("%w: data missing", ErrInvalidResponse)
	}
	if u.CreditScore == nil {
		return UserRecord{}, fmt.Errorf("%w: credit_score missing", ErrInvalidResponse)
	}
	if err := u.Repayment.validate(); err != nil {
		return UserRecord{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return u.decode(fallbackUsername)
}

// listRecord is the lenient form used for dashboard entries: a missing
// profile reads as empty, a missing score as 0 and an out-of-range repayment
// as not available.
func (u userResponse) listRecord() (UserRecord, error) {
	if len(bytes.TrimSpace(u.Data)) == 0 || bytes.Equal(bytes.TrimSpace(u.Data), []byte("null")) {
		u.Data = json.RawMessage("{}")
	}
	if u.CreditScore == nil {
		zero := 0.0
		u.CreditScore = &zero
	}
	if u.Repayment.validate() != nil {
		u.Repayment = Repayment{}
	}
	return u.decode("")
}

func (u userResponse) decode(fallbackUsername string) (UserRecord, error) {
	var data profileData
	if err := json.Unmarshal(u.Data, &data); err != nil {
		return UserRecord{}, fmt.Errorf("%w: data: %v", ErrInvalidResponse, err)
	}
	rec := UserRecord{
		Username:    u.Username,
		Email:       u.Email,
		Profile:     data.FarmerPayload,
		CreditScore: int(math.Round(*u.CreditScore)),
		Repayment:   u.Repayment,
	}
	if rec.Username == "" {
		rec.Username = fallbackUsername
	}
	if rec.Email == "" {
		rec.Email = data.Email
	}
	return rec, nil
}

// Credentials are posted to /login and /agent-login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AgentPayload is posted to /register_agent.
type AgentPayload struct {
	Username            string  `json:"username"`
	Password            string  `json:"password"`
	FirstName           string  `json:"firstName"`
	LastName            string  `json:"lastName"`
	Email               string  `json:"email"`
	PhoneNumber         string  `json:"phoneNumber"`
	Gender              string  `json:"gender"`
	DateOfBirth         string  `json:"dateOfBirth"`
	State               string  `json:"state"`
	LGA                 string  `json:"lga"`
	AssignedCommunities string  `json:"assignedCommunities"`
	Organization        string  `json:"organization"`
	YearsOfExperience   float64 `json:"yearsOfExperience"`
	AreaOfExpertise     string  `json:"areaOfExpertise"`
	LanguagesSpoken     string  `json:"languagesSpoken"`
	IsFullTime          bool    `json:"isFullTime"`
}

// List decodes either a JSON array of strings or a comma separated string.
type List []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *List) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = compact(items)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("list: %w", err)
	}
	*l = SplitList(s)
	return nil
}

// SplitList splits a comma separated value and drops blanks.
func SplitList(s string) List {
	return compact(strings.Split(s, ","))
}

func compact(items []string) List {
	out := make(List, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Agent is the profile returned by /get-agent.
type Agent struct {
	Username            string  `json:"username"`
	FirstName           string  `json:"firstName"`
	LastName            string  `json:"lastName"`
	Email               string  `json:"email"`
	PhoneNumber         string  `json:"phoneNumber"`
	Gender              string  `json:"gender"`
	DateOfBirth         string  `json:"dateOfBirth"`
	State               string  `json:"state"`
	LGA                 string  `json:"lga"`
	AssignedCommunities List    `json:"assignedCommunities"`
	Organization        string  `json:"organization"`
	YearsOfExperience   float64 `json:"yearsOfExperience"`
	AreaOfExpertise     string  `json:"areaOfExpertise"`
	LanguagesSpoken     List    `json:"languagesSpoken"`
	IsFullTime          bool    `json:"isFullTime"`
	ProfilePicture      string  `json:"profilePicture,omitempty"`
}

// Initials returns up to two upper-case initials for avatar placeholders.
func (a Agent) Initials() string {
	var b strings.Builder
	for _, part := range []string{a.FirstName, a.LastName} {
		for _, r := range strings.TrimSpace(part) {
			b.WriteString(strings.ToUpper(string(r)))
			break
		}
	}
	if b.Len() == 0 && a.Username != "" {
		return strings.ToUpper(a.Username[:1])
	}
	return b.String()
}

func (a *Agent) validate(username string) error {
	if a.Username == "" {
		a.Username = username
	}
	if strings.TrimSpace(a.FirstName) == "" && strings.TrimSpace(a.LastName) == "" {
		return fmt.Errorf("%w: agent name missing", ErrInvalidResponse)
	}
	if a.YearsOfExperience < 0 {
		return fmt.Errorf("%w: negative yearsOfExperience", ErrInvalidResponse)
	}
	return nil
}
