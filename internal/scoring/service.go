// Package scoring is the client for the remote credit scoring and account API.
package scoring

import "context"

// Service is the set of calls the web app makes against the scoring API.
type Service interface {
	Predict(ctx context.Context, payload FarmerPayload) (ScoreResult, error)
	GetUser(ctx context.Context, username string) (*UserRecord, error)
	ListUsers(ctx context.Context) ([]UserRecord, error)
	UpdateUser(ctx context.Context, username string, payload FarmerPayload) (ScoreResult, error)
	Login(ctx context.Context, creds Credentials) error
	AgentLogin(ctx context.Context, creds Credentials) error
	SendCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) error
	RegisterAgent(ctx context.Context, payload AgentPayload) error
	GetAgent(ctx context.Context, username string) (*Agent, error)
}
