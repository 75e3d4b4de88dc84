// Package bot собирает HTTP-сервер вебхука: миграции, хранилище, redis,
// клиенты и диспетчер диалога.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/magabrotheeeer/vpn-telegram-bot/internal/cache"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/config"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/migrations"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/panel"
	botservice "github.com/magabrotheeeer/vpn-telegram-bot/internal/services/bot"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/services/provision"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/storage/repository"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/telegram"
)

// App — собранное приложение вебхука.
type App struct {
	log     *slog.Logger
	cfg     *config.Config
	storage *repository.Storage
	server  *http.Server
}

// New собирает приложение: подключает базу, накатывает миграции,
// поднимает redis и строит маршруты.
func New(ctx context.Context, log *slog.Logger, cfg *config.Config) (*App, error) {
	const op = "app.bot.New"

	storage, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := migrations.Run(storage.DB, cfg.MigrationsPath); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sessions, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tgClient := telegram.NewClient(cfg.Telegram.BotToken, adminRecipients(cfg), log)
	panelClient := panel.NewClient(cfg)
	provisioner := provision.New(log, cfg, panelClient, tgClient)
	dispatcher := botservice.New(log, tgClient, storage, sessions, provisioner, cfg)

	router := newRouter(log, cfg, dispatcher)
	server := &http.Server{
		Addr:         cfg.HTTPServer.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.TimeoutHTTP,
		WriteTimeout: cfg.HTTPServer.TimeoutHTTP,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	return &App{log: log, cfg: cfg, storage: storage, server: server}, nil
}

// adminRecipients возвращает получателей служебных уведомлений: отдельный
// список admin_notify_ids, а при его отсутствии — администраторов бота.
func adminRecipients(cfg *config.Config) []int64 {
	if len(cfg.Telegram.AdminNotify) > 0 {
		return cfg.Telegram.AdminNotify
	}
	return cfg.Telegram.AdminIDs
}

// Run запускает HTTP-сервер и блокируется до его остановки.
func (a *App) Run() error {
	const op = "app.bot.Run"

	a.log.Info("starting webhook server", slog.String("address", a.cfg.HTTPServer.AddressHTTP))
	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Stop останавливает сервер, дожидаясь активных запросов.
func (a *App) Stop(ctx context.Context) error {
	const op = "app.bot.Stop"

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := a.storage.DB.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	a.log.Info("webhook server stopped")
	return nil
}
