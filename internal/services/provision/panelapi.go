package provision

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/magabrotheeeer/vpn-telegram-bot/internal/errs"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/lib/expiry"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/models"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/panel"
)

// PanelClient — операции панели, нужные стратегии выдачи.
type PanelClient interface {
	Configured() bool
	FindUserByTelegramID(ctx context.Context, telegramID int64) (*models.PanelUser, error)
	CreateUser(ctx context.Context, req panel.CreateUserRequest) (*models.PanelUser, error)
	PatchUser(ctx context.Context, uuid string, patch panel.PatchUserRequest) error
	ResolveSubscriptionLink(ctx context.Context, uuid, displayName string) string
}

// PanelStrategy выдаёт подписку напрямую через админское API панели:
// существующему пользователю продлевает срок, нового создаёт.
type PanelStrategy struct {
	client        PanelClient
	displayPrefix string
	now           func() time.Time
}

// NewPanelStrategy создаёт стратегию прямого обращения к панели.
func NewPanelStrategy(client PanelClient, displayPrefix string) *PanelStrategy {
	return &PanelStrategy{client: client, displayPrefix: displayPrefix, now: time.Now}
}

// Name возвращает имя стратегии.
func (s *PanelStrategy) Name() string { return "panel_api" }

// Enabled — стратегия активна при полностью настроенной панели.
func (s *PanelStrategy) Enabled() bool { return s.client.Configured() }

// Attempt продлевает или создаёт пользователя панели и возвращает ссылку
// подписки.
func (s *PanelStrategy) Attempt(ctx context.Context, req Request) (*Result, error) {
	const op = "provision.PanelStrategy.Attempt"

	displayName := s.displayName(req)
	existing, err := s.client.FindUserByTelegramID(ctx, req.TelegramID)
	switch {
	case err == nil:
		return s.extend(ctx, op, req, existing, displayName)
	case errors.Is(err, errs.ErrNotFound):
		return s.create(ctx, op, req, displayName)
	default:
		return nil, fmt.Errorf("%s: %w", op, err)
	}
}

func (s *PanelStrategy) extend(ctx context.Context, op string, req Request, user *models.PanelUser, displayName string) (*Result, error) {
	var oldStart *time.Time
	if user.StartDate != "" {
		if parsed, err := time.Parse("2006-01-02", user.StartDate); err == nil {
			oldStart = &parsed
		}
	}
	_, newPackageDays, newExpiry := expiry.ComputeExtension(oldStart, user.PackageDays, req.Plan.Days, s.now().UTC())

	// Лимит трафика не уменьшается: берётся больший из текущего и тарифного.
	usage := float64(req.Plan.TrafficGB)
	if user.UsageLimitGB > usage {
		usage = user.UsageLimitGB
	}
	enable, isActive := true, true
	patch := panel.PatchUserRequest{
		Enable:       &enable,
		IsActive:     &isActive,
		Mode:         "no_reset",
		UsageLimitGB: &usage,
		PackageDays:  &newPackageDays,
		Lang:         req.Language,
		Comment:      fmt.Sprintf("%s | devices=%d", req.Plan.Name, req.Plan.Devices),
	}
	if err := s.client.PatchUser(ctx, user.UUID, patch); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Result{
		SubURL:      s.client.ResolveSubscriptionLink(ctx, user.UUID, displayName),
		DisplayName: displayName,
		ExpiresAt:   &newExpiry,
	}, nil
}

func (s *PanelStrategy) create(ctx context.Context, op string, req Request, displayName string) (*Result, error) {
	created, err := s.client.CreateUser(ctx, panel.CreateUserRequest{
		Name:         displayName,
		TelegramID:   req.TelegramID,
		PackageDays:  req.Plan.Days,
		UsageLimitGB: float64(req.Plan.TrafficGB),
		IsActive:     true,
		Enable:       true,
		Mode:         "no_reset",
		Lang:         req.Language,
		Comment:      fmt.Sprintf("%s | devices=%d", req.Plan.Name, req.Plan.Devices),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	expiresAt := s.expiryOf(created, req.Plan)
	return &Result{
		SubURL:      s.client.ResolveSubscriptionLink(ctx, created.UUID, displayName),
		DisplayName: displayName,
		ExpiresAt:   &expiresAt,
	}, nil
}

// expiryOf считает окончание по данным панели, а при их отсутствии — от
// текущего момента и срока тарифа.
func (s *PanelStrategy) expiryOf(user *models.PanelUser, plan models.Plan) time.Time {
	if user.StartDate != "" {
		if start, err := time.Parse("2006-01-02", user.StartDate); err == nil {
			days := user.PackageDays
			if days <= 0 {
				days = plan.Days
			}
			return start.AddDate(0, 0, days)
		}
	}
	return s.now().UTC().AddDate(0, 0, plan.Days)
}

func (s *PanelStrategy) displayName(req Request) string {
	if req.Username != "" {
		return s.displayPrefix + req.Username
	}
	return s.displayPrefix + strconv.FormatInt(req.TelegramID, 10)
}
