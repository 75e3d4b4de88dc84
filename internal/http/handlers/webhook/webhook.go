// Package webhook принимает обновления Bot API. Подлинность запроса
// проверяется секретным заголовком, который Telegram присылает с каждым
// вебхуком.
package webhook

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	resp "github.com/magabrotheeeer/vpn-telegram-bot/internal/http/response"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/lib/sl"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/metrics"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/telegram"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateHandler обрабатывает одно обновление Bot API.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, upd telegram.Update)
}

// New возвращает обработчик вебхука. Ответ Telegram всегда успешный,
// даже если обработка упала: повторная доставка того же обновления
// бесполезна и лишь дублирует сообщения пользователю.
func New(log *slog.Logger, secret string, handler UpdateHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqLog := log.With(slog.String("request_id", middleware.GetReqID(r.Context())))

		got := r.Header.Get(secretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			reqLog.Warn("webhook request with bad secret")
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("unauthorized"))
			return
		}

		var upd telegram.Update
		if err := render.DecodeJSON(r.Body, &upd); err != nil {
			reqLog.Error("failed to decode update", sl.Err(err))
			render.JSON(w, r, resp.OK())
			return
		}

		metrics.WebhookUpdates.WithLabelValues(updateType(upd)).Inc()
		handler.HandleUpdate(r.Context(), upd)
		render.JSON(w, r, resp.OK())
	}
}

func updateType(upd telegram.Update) string {
	switch {
	case upd.PreCheckoutQuery != nil:
		return "pre_checkout_query"
	case upd.CallbackQuery != nil:
		return "callback_query"
	case upd.Message != nil && upd.Message.SuccessfulPayment != nil:
		return "successful_payment"
	case upd.Message != nil:
		return "message"
	default:
		return "other"
	}
}
