// Package sender потребляет очередь уведомлений и доставляет напоминания
// пользователям в Telegram.
package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/vpn-telegram-bot/internal/lib/sl"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/models"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/telegram"
)

// MessageSender доставляет текст пользователю.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard *telegram.InlineKeyboardMarkup) error
}

// Service — сервис доставки напоминаний.
type Service struct {
	log *slog.Logger
	tg  MessageSender
}

// New создаёт сервис доставки.
func New(log *slog.Logger, tg MessageSender) *Service {
	return &Service{log: log, tg: tg}
}

// Consume читает очередь до отмены контекста или закрытия канала.
// Сообщение подтверждается после успешной доставки; при ошибке уходит в
// nack без повторной постановки.
func (s *Service) Consume(ctx context.Context, ch *amqp.Channel, queueName string) error {
	const op = "sender.Consume"

	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("consuming notifications", slog.String("queue", queueName))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			if err := s.Handle(ctx, d.Body); err != nil {
				s.log.Error("failed to deliver notification",
					slog.String("queue", queueName), sl.Err(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle разбирает тело сообщения и отправляет напоминание.
func (s *Service) Handle(ctx context.Context, body []byte) error {
	const op = "sender.Handle"

	var msg models.ReminderMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.tg.SendMessage(ctx, msg.TelegramID, reminderText(msg), nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("reminder delivered",
		slog.Int64("telegram_id", msg.TelegramID),
		slog.Int("days_left", msg.DaysLeft))
	return nil
}

func reminderText(msg models.ReminderMessage) string {
	date := msg.ExpiresAt.Format("02.01.2006")
	if msg.DaysLeft > 0 {
		return fmt.Sprintf(
			"⏳ Ваша подписка заканчивается %s (через %d дн.).\n\nПродлите её заранее, чтобы доступ не прерывался: /start → «Купить».",
			date, msg.DaysLeft)
	}
	return fmt.Sprintf(
		"❗️ Срок вашей подписки истекает сегодня, %s.\n\nПосле окончания доступ будет приостановлен. Продлить: /start → «Купить».",
		date)
}
