package chat

import (
	"context"
	"strings"
)

// StaticResponder answers with canned advice when no chat host is configured.
type StaticResponder struct{}

// Send implements Responder.
func (StaticResponder) Send(ctx context.Context, message string, profile any) (Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, ErrEmptyMessage
	}
	lower := strings.ToLower(message)
	var text string
	switch {
	case message == AssessmentPrompt:
		text = "**Assessment unavailable offline.** Review the credit score and repayment probability above before making a lending decision."
	case strings.Contains(lower, "credit score"):
		text = "To improve your credit score, focus on timely payments, reduce outstanding debt, and diversify your credit history."
	case strings.Contains(lower, "repayment probability"):
		text = "Repayment probability is influenced by factors like income stability, credit history, and loan amount. A strong financial track record increases your chances."
	case isGreeting(lower):
		text = "Hello! How can I help you today?"
	default:
		text = "I understand. Please provide more details so I can assist you better."
	}
	return NewReply(text), nil
}

func isGreeting(lower string) bool {
	for _, g := range []string{"hello", "hi", "hey"} {
		if lower == g || strings.HasPrefix(lower, g+" ") || strings.HasPrefix(lower, g+"!") || strings.HasPrefix(lower, g+",") {
			return true
		}
	}
	return false
}
