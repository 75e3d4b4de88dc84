// Package reminder реализует ежедневный обход подписок: пользователям,
// чей срок заканчивается через настроенное число дней, публикуется
// напоминание в очередь уведомлений.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/vpn-telegram-bot/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/lib/sl"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/metrics"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/models"
)

// UserRepository — операции хранилища, нужные обходу напоминаний.
type UserRepository interface {
	FindUsersExpiringOn(ctx context.Context, day time.Time) ([]*models.User, error)
	ReminderWasSent(ctx context.Context, telegramID int64, key string) (bool, error)
	MarkReminderSent(ctx context.Context, telegramID int64, key string) error
}

// Publisher публикует сообщение в exchange уведомлений.
type Publisher interface {
	Publish(exchange, routingKey string, message any) error
}

// Service — сервис обхода напоминаний.
type Service struct {
	log  *slog.Logger
	repo UserRepository
	pub  Publisher
	days []int
	now  func() time.Time
}

// New создаёт сервис. days — смещения в днях от сегодняшней даты
// (например [3, 0]: за три дня и в день окончания).
func New(log *slog.Logger, repo UserRepository, pub Publisher, days []int) *Service {
	if len(days) == 0 {
		days = []int{3, 0}
	}
	return &Service{log: log, repo: repo, pub: pub, days: days, now: time.Now}
}

// Run выполняет один обход. Ключ "D{d}" в reminders_sent гарантирует не
// больше одного напоминания на пользователя и смещение; отметка ставится
// только после успешной публикации, поэтому сбой публикации будет
// повторен следующим обходом. Ошибки по отдельным пользователям не
// прерывают обход.
func (s *Service) Run(ctx context.Context) error {
	const op = "reminder.Run"
	today := s.now().UTC().Truncate(24 * time.Hour)

	var firstErr error
	for _, d := range s.days {
		day := today.AddDate(0, 0, d)
		users, err := s.repo.FindUsersExpiringOn(ctx, day)
		if err != nil {
			s.log.Error("failed to list expiring users",
				slog.Int("days_left", d), sl.Err(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", op, err)
			}
			continue
		}
		for _, user := range users {
			if err := s.remind(ctx, user, d); err != nil {
				s.log.Warn("failed to remind user",
					slog.Int64("telegram_id", user.TelegramID),
					slog.Int("days_left", d), sl.Err(err))
			}
		}
	}
	return firstErr
}

func (s *Service) remind(ctx context.Context, user *models.User, daysLeft int) error {
	const op = "reminder.remind"

	key := fmt.Sprintf("D%d", daysLeft)
	sent, err := s.repo.ReminderWasSent(ctx, user.TelegramID, key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if sent {
		return nil
	}

	routingKey := rabbitmq.RoutingKeyUpcoming
	if daysLeft == 0 {
		routingKey = rabbitmq.RoutingKeyExpiry
	}
	msg := models.ReminderMessage{
		TelegramID: user.TelegramID,
		Language:   user.Language,
		DaysLeft:   daysLeft,
	}
	if user.ExpiresAt != nil {
		msg.ExpiresAt = *user.ExpiresAt
	}
	if err := s.pub.Publish(rabbitmq.NotificationsExchange, routingKey, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	metrics.RemindersPublished.WithLabelValues(routingKey).Inc()

	if err := s.repo.MarkReminderSent(ctx, user.TelegramID, key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
