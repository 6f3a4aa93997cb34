package ui

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finitefield.org/agricred-web/internal/chat"
	custommw "finitefield.org/agricred-web/internal/httpserver/middleware"
	"finitefield.org/agricred-web/internal/observability"
)

const chatFailed = "Failed to get AI response"

type chatPage struct {
	Page
	Subject  string
	Action   string
	Messages []chat.Message
	Error    *Banner
}

type chatExchange struct {
	Messages []chat.Message
	Error    *Banner
}

// AIChat shows the conversation about a farmer's profile.
func (h *Handlers) AIChat(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	rec, err := h.scoring.GetUser(r.Context(), username)
	if err != nil {
		h.renderFetchError(w, r, err, "profile", "Error loading profile")
		return
	}
	key := chat.Key(currentSession(r).ID(), rec.Username)
	h.renderer.renderPage(w, r, http.StatusOK, "chat", chatPage{
		Page:     newPage(r, "AI chat"),
		Subject:  rec.FullName(),
		Action:   chatPath(rec.Username),
		Messages: h.transcripts.Messages(key),
	})
}

// AIChatPost sends one message with the profile as context. htmx requests get
// the new messages as a fragment appended to the log; plain posts redirect
// back to the conversation.
func (h *Handlers) AIChatPost(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	logger := observability.FromContext(r.Context())
	rec, err := h.scoring.GetUser(r.Context(), username)
	if err != nil {
		h.renderFetchError(w, r, err, "profile", "Error loading profile")
		return
	}
	sess := currentSession(r)
	key := chat.Key(sess.ID(), rec.Username)

	message := strings.TrimSpace(r.PostFormValue("message"))
	var exchange chatExchange
	reply, err := h.chat.Send(r.Context(), message, rec)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		exchange.Error = errorBanner("Please type a message first.")
	case err != nil:
		logger.Warn("chat failed", zap.String("username", rec.Username), zap.Error(err))
		exchange.Messages = append(exchange.Messages, h.transcripts.Append(key, chat.RoleUser, message, ""))
		exchange.Error = errorBanner(chatFailed)
	default:
		exchange.Messages = append(exchange.Messages,
			h.transcripts.Append(key, chat.RoleUser, message, ""),
			h.transcripts.Append(key, chat.RoleAssistant, reply.Text, reply.HTML),
		)
	}

	if custommw.IsFragmentRequest(r.Context()) {
		h.renderer.renderTemplate(w, r, http.StatusOK, "chat", "chat_exchange", exchange)
		return
	}
	if exchange.Error != nil {
		sess.SetFlash("error", exchange.Error.Message)
	}
	custommw.Redirect(w, r, chatPath(rec.Username))
}
