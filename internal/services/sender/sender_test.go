package sender

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/vpn-telegram-bot/internal/models"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/telegram"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sentMessage struct {
	chatID int64
	text   string
}

type fakeSender struct {
	sent []sentMessage
	err  error
}

func (f *fakeSender) SendMessage(_ context.Context, chatID int64, text string, _ *telegram.InlineKeyboardMarkup) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{chatID, text})
	return nil
}

func encode(t *testing.T, msg models.ReminderMessage) []byte {
	t.Helper()
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	return body
}

func TestHandleUpcomingReminder(t *testing.T) {
	tg := &fakeSender{}
	body := encode(t, models.ReminderMessage{
		TelegramID: 42,
		DaysLeft:   3,
		ExpiresAt:  time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC),
	})

	require.NoError(t, New(newNoopLogger(), tg).Handle(context.Background(), body))

	require.Len(t, tg.sent, 1)
	assert.Equal(t, int64(42), tg.sent[0].chatID)
	assert.Contains(t, tg.sent[0].text, "13.03.2024")
	assert.Contains(t, tg.sent[0].text, "через 3 дн.")
}

func TestHandleExpiryDayReminderUsesDistinctText(t *testing.T) {
	tg := &fakeSender{}
	body := encode(t, models.ReminderMessage{
		TelegramID: 42,
		DaysLeft:   0,
		ExpiresAt:  time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
	})

	require.NoError(t, New(newNoopLogger(), tg).Handle(context.Background(), body))

	require.Len(t, tg.sent, 1)
	assert.Contains(t, tg.sent[0].text, "сегодня")
	assert.NotContains(t, tg.sent[0].text, "через")
}

func TestHandleRejectsBrokenBody(t *testing.T) {
	tg := &fakeSender{}

	err := New(newNoopLogger(), tg).Handle(context.Background(), []byte("not json"))
	require.Error(t, err)
	assert.Empty(t, tg.sent)
}

func TestHandlePropagatesSendFailure(t *testing.T) {
	tg := &fakeSender{err: errors.New("telegram is down")}
	body := encode(t, models.ReminderMessage{TelegramID: 42, DaysLeft: 3})

	require.Error(t, New(newNoopLogger(), tg).Handle(context.Background(), body))
}
