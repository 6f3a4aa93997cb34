package chat_test

import (
	"fmt"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"finitefield.org/agricred-web/internal/chat"
)

func TestTranscriptsKeepLastMessages(t *testing.T) {
	t.Parallel()

	store := chat.NewTranscripts()
	key := chat.Key("sess", "ada")
	for i := 0; i < chat.MaxMessages+5; i++ {
		store.Append(key, chat.RoleUser, fmt.Sprintf("m%d", i), "")
	}

	msgs := store.Messages(key)
	require.Len(t, msgs, chat.MaxMessages)
	require.Equal(t, "m5", msgs[0].Text)
	require.Equal(t, fmt.Sprintf("m%d", chat.MaxMessages+4), msgs[len(msgs)-1].Text)

	seen := make(map[string]bool)
	for _, m := range msgs {
		_, err := ulid.Parse(m.ID)
		require.NoError(t, err)
		require.False(t, seen[m.ID])
		seen[m.ID] = true
	}
}

func TestTranscriptsEscapeTextWithoutHTML(t *testing.T) {
	t.Parallel()

	store := chat.NewTranscripts()
	msg := store.Append("k", chat.RoleUser, "<b>hi</b>", "")
	require.Equal(t, "&lt;b&gt;hi&lt;/b&gt;", string(msg.HTML))
}

func TestTranscriptsAreScopedAndResettable(t *testing.T) {
	t.Parallel()

	store := chat.NewTranscripts()
	store.Append(chat.Key("a", "ada"), chat.RoleUser, "one", "")
	store.Append(chat.Key("b", "ada"), chat.RoleUser, "two", "")

	require.Len(t, store.Messages(chat.Key("a", "ada")), 1)
	store.Reset(chat.Key("a", "ada"))
	require.Empty(t, store.Messages(chat.Key("a", "ada")))
	require.Len(t, store.Messages(chat.Key("b", "ada")), 1)
}
