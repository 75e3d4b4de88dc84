package webhook_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/vpn-telegram-bot/internal/http/handlers/webhook"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/telegram"
)

type fakeHandler struct {
	updates []telegram.Update
}

func (f *fakeHandler) HandleUpdate(_ context.Context, upd telegram.Update) {
	f.updates = append(f.updates, upd)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func doRequest(t *testing.T, handler http.HandlerFunc, secret, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", bytes.NewBufferString(body))
	if secret != "" {
		req.Header.Set("X-Telegram-Bot-Api-Secret-Token", secret)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestWebhookRejectsBadSecret(t *testing.T) {
	dispatcher := &fakeHandler{}
	handler := webhook.New(newNoopLogger(), "s3cret", dispatcher)

	rr := doRequest(t, handler, "wrong", `{"update_id":1}`)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, dispatcher.updates)
}

func TestWebhookRejectsMissingSecret(t *testing.T) {
	dispatcher := &fakeHandler{}
	handler := webhook.New(newNoopLogger(), "s3cret", dispatcher)

	rr := doRequest(t, handler, "", `{"update_id":1}`)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestWebhookDispatchesUpdate(t *testing.T) {
	dispatcher := &fakeHandler{}
	handler := webhook.New(newNoopLogger(), "s3cret", dispatcher)

	rr := doRequest(t, handler, "s3cret",
		`{"update_id":10,"message":{"message_id":1,"chat":{"id":42},"text":"/start"}}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"OK"}`, rr.Body.String())

	require.Len(t, dispatcher.updates, 1)
	require.NotNil(t, dispatcher.updates[0].Message)
	assert.Equal(t, "/start", dispatcher.updates[0].Message.Text)
}

func TestWebhookAcceptsBrokenBodyWithOK(t *testing.T) {
	dispatcher := &fakeHandler{}
	handler := webhook.New(newNoopLogger(), "s3cret", dispatcher)

	rr := doRequest(t, handler, "s3cret", "not json")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"OK"}`, rr.Body.String())
	assert.Empty(t, dispatcher.updates)
}
