package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResendSender_Send(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg-123"}`))
	}))
	defer srv.Close()

	sender, err := NewResendSender("re_test", "FireSim <noreply@example.com>").WithBaseURL(srv.URL + "/")
	require.NoError(t, err)

	res, err := sender.Send(context.Background(), SendRequest{
		To:      []string{"coach@example.com", " Coach@Example.com "},
		Subject: "보고서 제출",
		HTML:    "<p>hi</p>",
		Text:    "hi",
		Tags:    map[string]string{"session": "s1", "kind": "report_submitted"},
	})
	require.NoError(t, err)
	assert.Equal(t, "msg-123", res.MessageID)
	assert.Equal(t, "FireSim <noreply@example.com>", got["from"])
	assert.Equal(t, "보고서 제출", got["subject"])
	assert.Equal(t, []any{"coach@example.com"}, got["to"])
	assert.Equal(t, "hi", got["text"])
	assert.Equal(t, []any{
		map[string]any{"name": "kind", "value": "report_submitted"},
		map[string]any{"name": "session", "value": "s1"},
	}, got["tags"])
}

func TestResendSender_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"bad from"}`))
	}))
	defer srv.Close()

	sender, err := NewResendSender("re_test", "x@example.com").WithBaseURL(srv.URL + "/")
	require.NoError(t, err)
	_, err = sender.Send(context.Background(), SendRequest{To: []string{"a@example.com"}, Subject: "s"})
	assert.Error(t, err)
}

func TestSenders_RequireRecipients(t *testing.T) {
	_, err := NewResendSender("k", "f@example.com").Send(context.Background(), SendRequest{Subject: "s"})
	assert.ErrorIs(t, err, ErrNoRecipients)
	_, err = NewNoopSender().Send(context.Background(), SendRequest{Subject: "s"})
	assert.ErrorIs(t, err, ErrNoRecipients)
}

func TestNoopSender_Records(t *testing.T) {
	s := NewNoopSender()
	res, err := s.Send(context.Background(), SendRequest{To: []string{"a@example.com"}, Subject: "one"})
	require.NoError(t, err)
	assert.Equal(t, "noop-1", res.MessageID)
	require.Len(t, s.Sent(), 1)
	assert.Equal(t, "one", s.Sent()[0].Subject)
}

func TestRecipients(t *testing.T) {
	got, err := Recipients([]string{"", "Coach <coach@example.com>", "a@example.com", "COACH@example.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"coach@example.com", "a@example.com"}, got)

	_, err = Recipients([]string{"not an address"})
	assert.Error(t, err)
	_, err = Recipients([]string{" ", ""})
	assert.ErrorIs(t, err, ErrNoRecipients)
}
