package bot

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/vpn-telegram-bot/internal/config"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/http/handlers/health"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/http/handlers/subfallback"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/http/handlers/webhook"
	resp "github.com/magabrotheeeer/vpn-telegram-bot/internal/http/response"
)

func newRouter(log *slog.Logger, cfg *config.Config, dispatcher webhook.UpdateHandler) chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	router.Get("/health", health.New())
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/sub/{token}", subfallback.New())

	router.Route("/telegram", func(r chi.Router) {
		r.Use(rateLimiter())
		r.Post("/webhook", webhook.New(log, cfg.Telegram.WebhookSecret, dispatcher))
	})

	return router
}

// rateLimiter ограничивает поток вебхука: Telegram присылает обновления
// всплесками, но устойчивый поток выше лимита означает проблему.
func rateLimiter() func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(30), 60)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.WriteHeader(http.StatusTooManyRequests)
				render.JSON(w, r, resp.Error("too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
