// Package health отдает проверку живости сервиса.
package health

import (
	"net/http"

	"github.com/go-chi/render"

	resp "github.com/magabrotheeeer/vpn-telegram-bot/internal/http/response"
)

// New возвращает обработчик проверки живости.
func New() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, resp.OK())
	}
}
