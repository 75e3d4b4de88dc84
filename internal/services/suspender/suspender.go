// Package suspender реализует почасовой обход: пользователи с истёкшим
// сроком отключаются в панели, чтобы закрыть доступ до нового платежа.
package suspender

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/vpn-telegram-bot/internal/lib/sl"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/metrics"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/models"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/panel"
)

// UserRepository — операции хранилища, нужные обходу приостановки.
type UserRepository interface {
	FindExpiredUsers(ctx context.Context, now time.Time) ([]*models.User, error)
}

// PanelClient — операции панели, нужные обходу приостановки.
type PanelClient interface {
	Configured() bool
	PatchUser(ctx context.Context, uuid string, patch panel.PatchUserRequest) error
}

// Service — сервис приостановки истёкших подписок.
type Service struct {
	log   *slog.Logger
	repo  UserRepository
	panel PanelClient
	now   func() time.Time
}

// New создаёт сервис приостановки.
func New(log *slog.Logger, repo UserRepository, panelClient PanelClient) *Service {
	return &Service{log: log, repo: repo, panel: panelClient, now: time.Now}
}

// Run выполняет один обход. Без настроенной панели обход — no-op. Ошибки
// по отдельным пользователям логируются и не прерывают обход.
func (s *Service) Run(ctx context.Context) error {
	const op = "suspender.Run"

	if !s.panel.Configured() {
		s.log.Debug("panel is not configured, skipping suspend sweep")
		return nil
	}

	users, err := s.repo.FindExpiredUsers(ctx, s.now().UTC())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, user := range users {
		panelUUID, ok := extractPanelUUID(user.SubURL)
		if !ok {
			// Ссылки-заглушки и внешние ссылки не содержат uuid панели.
			s.log.Debug("no panel uuid in sub link, skipping",
				slog.Int64("telegram_id", user.TelegramID))
			continue
		}
		if err := s.suspend(ctx, panelUUID); err != nil {
			s.log.Warn("failed to suspend expired user",
				slog.Int64("telegram_id", user.TelegramID), sl.Err(err))
			continue
		}
		metrics.SuspensionsApplied.Inc()
		s.log.Info("expired user suspended",
			slog.Int64("telegram_id", user.TelegramID))
	}
	return nil
}

func (s *Service) suspend(ctx context.Context, panelUUID string) error {
	disable := false
	return s.panel.PatchUser(ctx, panelUUID, panel.PatchUserRequest{
		Enable:   &disable,
		IsActive: &disable,
	})
}

// extractPanelUUID достает uuid панели из сохранённой ссылки подписки:
// последний сегмент пути без query и fragment. Сегмент принимается только
// если разбирается как uuid.
func extractPanelUUID(subURL string) (string, bool) {
	if subURL == "" {
		return "", false
	}
	parsed, err := url.Parse(subURL)
	if err != nil {
		return "", false
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) == 0 {
		return "", false
	}
	last := segments[len(segments)-1]
	if _, err := uuid.Parse(last); err != nil {
		return "", false
	}
	return last, true
}
