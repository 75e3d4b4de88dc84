// Бинарник scheduler запускает фоновые обходы по cron-расписанию:
// напоминания об истечении и приостановку истёкших подписок.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/magabrotheeeer/vpn-telegram-bot/internal/config"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/lib/sl"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/panel"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/services/reminder"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/services/suspender"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/storage/repository"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad()
	log := setupLogger(cfg.Env)
	log.Info("starting scheduler", slog.String("env", cfg.Env))

	storage, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		log.Error("failed to connect to storage", sl.Err(err))
		os.Exit(1)
	}
	waitForDB(log, storage)

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.RabbitMQURL, cfg.RabbitMQ.RabbitMQMaxRetries, cfg.RabbitMQ.RabbitMQRetryDelay)
	if err != nil {
		log.Error("failed to connect to rabbitmq", sl.Err(err))
		os.Exit(1)
	}
	defer func() {
		_ = conn.Close()
	}()

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		log.Error("failed to setup rabbitmq channel", sl.Err(err))
		os.Exit(1)
	}
	defer func() {
		_ = ch.Close()
	}()

	panelClient := panel.NewClient(cfg)
	reminderSvc := reminder.New(log, storage, rabbitmq.ChannelPublisher{Ch: ch}, cfg.Schedule.ReminderDays)
	suspenderSvc := suspender.New(log, storage, panelClient)

	// Все расписания в UTC: сравнение дат напоминаний тоже идет по UTC.
	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(cfg.Schedule.ReminderCron, func() {
		if err := reminderSvc.Run(context.Background()); err != nil {
			log.Error("reminder sweep failed", sl.Err(err))
		}
	}); err != nil {
		log.Error("bad reminder cron expression", sl.Err(err))
		os.Exit(1)
	}
	if _, err := c.AddFunc(cfg.Schedule.SuspendCron, func() {
		if err := suspenderSvc.Run(context.Background()); err != nil {
			log.Error("suspend sweep failed", sl.Err(err))
		}
	}); err != nil {
		log.Error("bad suspend cron expression", sl.Err(err))
		os.Exit(1)
	}
	c.Start()
	log.Info("scheduler started",
		slog.String("reminder_cron", cfg.Schedule.ReminderCron),
		slog.String("suspend_cron", cfg.Schedule.SuspendCron))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop

	<-c.Stop().Done()
	if err := storage.DB.Close(); err != nil {
		log.Error("failed to close storage", sl.Err(err))
	}
	log.Info("scheduler stopped")
}

// waitForDB дожидается, пока сервис бота накатит миграции.
func waitForDB(log *slog.Logger, storage *repository.Storage) {
	for {
		if err := repository.CheckDatabaseReady(storage); err != nil {
			log.Info("database is not ready, waiting", sl.Err(err))
			time.Sleep(3 * time.Second)
			continue
		}
		return
	}
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger
	switch env {
	case envLocal:
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return log
}
