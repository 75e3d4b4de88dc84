// Бинарник notification-sender читает очередь уведомлений и доставляет
// напоминания пользователям в Telegram.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/vpn-telegram-bot/internal/config"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/lib/sl"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/services/sender"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/telegram"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad()
	log := setupLogger(cfg.Env)
	log.Info("starting notification sender", slog.String("env", cfg.Env))

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

	tgClient := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.AdminNotify, log)
	svc := sender.New(log, tgClient)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, q := range rabbitmq.GetNotificationQueues() {
		go func(queueName string) {
			if err := svc.Consume(ctx, ch, queueName); err != nil && ctx.Err() == nil {
				log.Error("consumer stopped", slog.String("queue", queueName), sl.Err(err))
			}
		}(q.QueueName)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop

	cancel()
	log.Info("notification sender stopped")
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
