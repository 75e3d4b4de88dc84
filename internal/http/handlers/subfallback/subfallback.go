// Package subfallback отвечает на переходы по ссылкам-заглушкам. Такая
// ссылка выдается, когда выдача подписки не удалась: по ней нет рабочей
// конфигурации, и пользователь должен получить понятное объяснение
// вместо пустого ответа.
package subfallback

import (
	"net/http"

	"github.com/go-chi/render"

	resp "github.com/magabrotheeeer/vpn-telegram-bot/internal/http/response"
)

// New возвращает обработчик ссылок-заглушек.
func New() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, resp.Error(
			"subscription is being prepared, contact support if the link does not start working"))
	}
}
