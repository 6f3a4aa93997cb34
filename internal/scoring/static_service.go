package scoring

import (
	"context"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// StaticVerificationCode is accepted by StaticService.VerifyCode.
const StaticVerificationCode = "123456"

type staticUser struct {
	record    UserRecord
	password  string
	createdAt time.Time
}

type staticAgent struct {
	agent    Agent
	password string
}

// StaticService is an in-memory Service used for local development and tests
// when no scoring API is configured.
type StaticService struct {
	mu     sync.Mutex
	users  map[string]*staticUser
	agents map[string]*staticAgent
	codes  map[string]bool
	now    func() time.Time
}

// NewStaticService constructs an empty StaticService.
func NewStaticService() *StaticService {
	return &StaticService{
		users:  make(map[string]*staticUser),
		agents: make(map[string]*staticAgent),
		codes:  make(map[string]bool),
		now:    time.Now,
	}
}

// Predict stores the farmer and returns a deterministic score.
func (s *StaticService) Predict(ctx context.Context, payload FarmerPayload) (ScoreResult, error) {
	username := strings.TrimSpace(payload.Username)
	if username == "" {
		return ScoreResult{}, &APIError{Op: "predict", Status: http.StatusUnprocessableEntity, Message: "Username is required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[username]; exists {
		return ScoreResult{}, &APIError{Op: "predict", Status: http.StatusBadRequest, Message: "Username already exists"}
	}
	result := estimate(payload)
	stored := payload
	stored.Password = ""
	s.users[username] = &staticUser{
		record: UserRecord{
			Username:    username,
			Profile:     stored,
			CreditScore: result.CreditScore,
			Repayment:   result.Repayment,
		},
		password:  payload.Password,
		createdAt: s.now(),
	}
	return result, nil
}

// GetUser returns a stored farmer or a 404 APIError.
func (s *StaticService) GetUser(ctx context.Context, username string) (*UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return nil, &APIError{Op: "get-user", Status: http.StatusNotFound, Message: "User not found"}
	}
	rec := u.record
	return &rec, nil
}

// ListUsers returns every stored farmer, newest first.
func (s *StaticService) ListUsers(ctx context.Context) ([]UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]*staticUser, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].createdAt.Equal(users[j].createdAt) {
			return users[i].record.Username < users[j].record.Username
		}
		return users[i].createdAt.After(users[j].createdAt)
	})
	out := make([]UserRecord, 0, len(users))
	for _, u := range users {
		out = append(out, u.record)
	}
	return out, nil
}

// UpdateUser rescores a stored farmer.
func (s *StaticService) UpdateUser(ctx context.Context, username string, payload FarmerPayload) (ScoreResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return ScoreResult{}, &APIError{Op: "update", Status: http.StatusNotFound, Message: "User not found"}
	}
	result := estimate(payload)
	payload.Username = username
	payload.Password = ""
	u.record.Profile = payload
	u.record.CreditScore = result.CreditScore
	u.record.Repayment = result.Repayment
	return result, nil
}

// Login checks farmer credentials.
func (s *StaticService) Login(ctx context.Context, creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[creds.Username]
	if !ok || u.password != creds.Password {
		return &APIError{Op: "login", Status: http.StatusUnauthorized, Message: "Invalid username or password"}
	}
	return nil
}

// AgentLogin checks agent credentials.
func (s *StaticService) AgentLogin(ctx context.Context, creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[creds.Username]
	if !ok || a.password != creds.Password {
		return &APIError{Op: "agent-login", Status: http.StatusUnauthorized, Message: "Invalid username or password"}
	}
	return nil
}

// SendCode records that a code was sent to email.
func (s *StaticService) SendCode(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return &APIError{Op: "send-code", Status: http.StatusUnprocessableEntity, Message: "Email is required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[email] = true
	return nil
}

// VerifyCode accepts StaticVerificationCode for emails that were sent a code.
func (s *StaticService) VerifyCode(ctx context.Context, email, code string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.codes[email] || strings.TrimSpace(code) != StaticVerificationCode {
		return &APIError{Op: "verify-code", Status: http.StatusBadRequest, Message: "Invalid or expired code"}
	}
	return nil
}

// RegisterAgent stores an agent account.
func (s *StaticService) RegisterAgent(ctx context.Context, payload AgentPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.agents[payload.Username]; exists {
		return &APIError{Op: "register-agent", Status: http.StatusBadRequest, Message: "Username already exists"}
	}
	s.agents[payload.Username] = &staticAgent{
		agent: Agent{
			Username:            payload.Username,
			FirstName:           payload.FirstName,
			LastName:            payload.LastName,
			Email:               payload.Email,
			PhoneNumber:         payload.PhoneNumber,
			Gender:              payload.Gender,
			DateOfBirth:         payload.DateOfBirth,
			State:               payload.State,
			LGA:                 payload.LGA,
			AssignedCommunities: SplitList(payload.AssignedCommunities),
			Organization:        payload.Organization,
			YearsOfExperience:   payload.YearsOfExperience,
			AreaOfExpertise:     payload.AreaOfExpertise,
			LanguagesSpoken:     SplitList(payload.LanguagesSpoken),
			IsFullTime:          payload.IsFullTime,
		},
		password: payload.Password,
	}
	return nil
}

// GetAgent returns a stored agent or a 404 APIError.
func (s *StaticService) GetAgent(ctx context.Context, username string) (*Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[username]
	if !ok {
		return nil, &APIError{Op: "get-agent", Status: http.StatusNotFound, Message: "Agent not found"}
	}
	agent := a.agent
	return &agent, nil
}

// estimate is a transparent stand-in for the remote model, good enough to
// drive the UI in development.
func estimate(p FarmerPayload) ScoreResult {
	score := 450.0
	score += math.Min(p.AnnualIncome/20000, 120)
	score += math.Min(p.FarmSize*8, 60)
	score += float64(p.Education) * 15
	score += float64(p.Irrigation+p.TechnologyUse+p.SavingsBehavior+p.FinancialAccess+p.ExtensionServices) * 25
	switch p.RepaymentStatus {
	case 0:
		score -= 90
	case 1:
		score -= 30
	case 2:
		score += 60
	}
	if p.AnnualIncome > 0 {
		score -= math.Min(p.LoanAmount/p.AnnualIncome*40, 120)
	}
	score -= math.Min(p.MarketDistance*2, 40)
	score = math.Max(300, math.Min(850, score))

	percent := math.Round((score-300)/550*10000) / 100
	return ScoreResult{
		CreditScore: int(math.Round(score)),
		Repayment:   Repayment{Percent: percent, HasPercent: true},
	}
}
