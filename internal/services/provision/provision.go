package provision

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/vpn-telegram-bot/internal/config"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/errs"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/lib/sl"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/metrics"
)

// fallbackBase используется для заглушки, когда домен ссылок не настроен.
const fallbackBase = "https://example.invalid"

// AdminNotifier доставляет служебные уведомления администраторам.
type AdminNotifier interface {
	NotifyAdmins(ctx context.Context, text string)
}

// Service прогоняет запрос через цепочку стратегий. Каждая включённая
// стратегия получает до трёх попыток с паузами 0s, 2s и 5s; первый успех
// завершает выдачу. Если все стратегии исчерпаны, возвращается
// ссылка-заглушка и администраторы получают одно уведомление.
type Service struct {
	log           *slog.Logger
	strategies    []Strategy
	notifier      AdminNotifier
	subLinkDomain string
	retryDelays   []time.Duration
	now           func() time.Time
}

// New собирает движок выдачи со стандартной цепочкой стратегий:
// мост, внешняя команда, прямое API панели.
func New(log *slog.Logger, cfg *config.Config, panelClient PanelClient, notifier AdminNotifier) *Service {
	return &Service{
		log: log,
		strategies: []Strategy{
			NewBridgeStrategy(cfg.Provision.BridgeURL, cfg.Provision.BridgeToken),
			NewCLIStrategy(cfg.Provision.CommandTmpl, cfg.Provision.CommandTimeout),
			NewPanelStrategy(panelClient, cfg.Brand.DisplayPrefix),
		},
		notifier:      notifier,
		subLinkDomain: cfg.Provision.SubLinkDomain,
		retryDelays:   []time.Duration{0, 2 * time.Second, 5 * time.Second},
		now:           time.Now,
	}
}

// Provision выдаёт подписку. Вся цепочка прогоняется до трёх раз с
// паузами между прогонами; первый успех любой стратегии завершает выдачу.
// Ошибки наружу не возвращаются: при полном отказе цепочки результатом
// становится заглушка с Fallback=true.
func (s *Service) Provision(ctx context.Context, req Request) Result {
	var failures []error

	for attempt, delay := range s.retryDelays {
		if !sleepCtx(ctx, delay) {
			break
		}
		for _, strategy := range s.strategies {
			if !strategy.Enabled() {
				s.log.Debug("strategy disabled, skipping", slog.String("strategy", strategy.Name()))
				continue
			}
			res, err := strategy.Attempt(ctx, req)
			if err == nil {
				metrics.ProvisionAttempts.WithLabelValues(strategy.Name(), "success").Inc()
				s.log.Info("subscription provisioned",
					slog.String("strategy", strategy.Name()),
					slog.Int64("telegram_id", req.TelegramID),
					slog.Int("attempt", attempt+1))
				return *res
			}
			metrics.ProvisionAttempts.WithLabelValues(strategy.Name(), "error").Inc()
			failures = append(failures, &errs.ProvisionError{Strategy: strategy.Name(), Err: err})
			s.log.Warn("provisioning attempt failed",
				slog.String("strategy", strategy.Name()),
				slog.Int("attempt", attempt+1),
				sl.Err(err))
		}
	}

	return s.fallback(ctx, req, failures)
}

func (s *Service) fallback(ctx context.Context, req Request, failures []error) Result {
	metrics.ProvisionFallbacks.Inc()
	s.log.Error("all provisioning strategies failed, issuing placeholder",
		slog.Int64("telegram_id", req.TelegramID),
		slog.Int("failures", len(failures)))

	if s.notifier != nil {
		s.notifier.NotifyAdmins(ctx, s.adminReport(req, failures))
	}

	now := s.now().UTC()
	expiresAt := now.AddDate(0, 0, req.Plan.Days)
	return Result{
		SubURL:    s.placeholderLink(req, now),
		ExpiresAt: &expiresAt,
		Fallback:  true,
	}
}

// placeholderLink собирает детерминированную ссылку-заглушку, по которой
// поддержка восстанавливает контекст заказа.
func (s *Service) placeholderLink(req Request, now time.Time) string {
	base := fallbackBase
	if s.subLinkDomain != "" {
		base = strings.TrimRight(s.subLinkDomain, "/")
	}
	token := base64.RawURLEncoding.EncodeToString(
		fmt.Appendf(nil, "%d:%s:%s", req.TelegramID, req.Plan.ID(), now.Format(time.RFC3339)))
	return base + "/sub/" + token
}

func (s *Service) adminReport(req Request, failures []error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Provisioning failed for user %d (plan %s), placeholder issued.\n", req.TelegramID, req.Plan.ID())
	for i, err := range failures {
		if i == 3 {
			fmt.Fprintf(&b, "... and %d more errors", len(failures)-3)
			break
		}
		fmt.Fprintf(&b, "- %v\n", err)
	}
	return b.String()
}

// sleepCtx ждёт delay с учётом отмены контекста. Возвращает false, если
// контекст отменён.
func sleepCtx(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
