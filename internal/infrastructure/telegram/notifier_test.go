package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WorkshopScheduler/internal/domain"
)

func TestSendMessage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "42", r.PostForm.Get("chat_id"))
		assert.Equal(t, "*hello*", r.PostForm.Get("text"))
		assert.Equal(t, "Markdown", r.PostForm.Get("parse_mode"))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	}))
	defer server.Close()

	n := NewNotifier("TOKEN", "42", time.Second, WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	require.NoError(t, n.SendMessage(context.Background(), "*hello*"))
}

func TestSendMessageRejected(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: can't parse entities"}`))
	}))
	defer server.Close()

	n := NewNotifier("TOKEN", "42", time.Second, WithBaseURL(server.URL))
	err := n.SendMessage(context.Background(), "*broken")
	require.Error(t, err)
	assert.True(t, domain.IsUpstream(err))
	assert.Contains(t, err.Error(), "can't parse entities")
}

func TestSendMessageMisconfigured(t *testing.T) {
	t.Parallel()

	assert.Error(t, NewNotifier("", "42", time.Second).SendMessage(context.Background(), "x"))
	assert.Error(t, NewNotifier("TOKEN", "", time.Second).SendMessage(context.Background(), "x"))
}

func TestPoll(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/getUpdates", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "101", q.Get("offset"))
		assert.Equal(t, "30", q.Get("timeout"))
		assert.Equal(t, `["message"]`, q.Get("allowed_updates"))
		_, _ = w.Write([]byte(`{"ok":true,"result":[
			{"update_id":101,"message":{"text":"approve 2026-01-06","chat":{"id":42},"from":{"username":"ops"}}},
			{"update_id":102,"message":{"text":"hi","chat":{"id":-7},"from":{"first_name":"Ana"}}},
			{"update_id":103}
		]}`))
	}))
	defer server.Close()

	n := NewNotifier("TOKEN", "42", 30*time.Second, WithBaseURL(server.URL))
	msgs, err := n.Poll(context.Background(), 101, 30*time.Second)
	require.NoError(t, err)

	assert.Equal(t, []domain.InboundMessage{
		{UpdateID: 101, ChatID: "42", From: "ops", Text: "approve 2026-01-06"},
		{UpdateID: 102, ChatID: "-7", From: "Ana", Text: "hi"},
		{UpdateID: 103},
	}, msgs)
}

func TestPollNotOK(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"Conflict: terminated by other getUpdates request"}`))
	}))
	defer server.Close()

	n := NewNotifier("TOKEN", "42", time.Second, WithBaseURL(server.URL))
	_, err := n.Poll(context.Background(), 0, time.Second)
	require.Error(t, err)
	assert.True(t, domain.IsUpstream(err))
}

func TestTransportErrorHidesToken(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	n := NewNotifier("123:SECRET", "42", time.Second, WithBaseURL(base))
	err := n.SendMessage(context.Background(), "x")
	require.Error(t, err)
	assert.False(t, strings.Contains(err.Error(), "SECRET"), err.Error())
}
