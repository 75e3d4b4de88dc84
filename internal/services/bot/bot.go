// Package bot содержит диалоговую логику: маршрутизацию команд, колбэков
// и платежных событий Bot API в действия ядра.
package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/magabrotheeeer/vpn-telegram-bot/internal/config"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/lib/sl"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/models"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/services/provision"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/telegram"
)

// TelegramClient — операции Bot API, нужные диалогу.
type TelegramClient interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard *telegram.InlineKeyboardMarkup) error
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, keyboard *telegram.InlineKeyboardMarkup) error
	AnswerCallbackQuery(ctx context.Context, callbackQueryID string) error
	AnswerPreCheckoutQuery(ctx context.Context, preCheckoutQueryID string) error
	SendInvoice(ctx context.Context, chatID int64, title, description, payload, currency, priceLabel string, priceUnits int) error
	SendPhoto(ctx context.Context, chatID int64, caption string, png []byte) error
}

// Repository — операции хранилища, нужные диалогу.
type Repository interface {
	UpsertUser(ctx context.Context, user models.User) error
	OverwriteSubscription(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, telegramID int64) (*models.User, error)
	CreateOrder(ctx context.Context, order models.Order) (int64, error)
	ListOrdersByUser(ctx context.Context, telegramID int64, limit, offset int) ([]*models.Order, error)
}

// Sessions — транзитное состояние диалога.
type Sessions interface {
	SetAwaitingSubLink(ctx context.Context, telegramID int64) error
	AwaitingSubLink(ctx context.Context, telegramID int64) (bool, error)
	ClearAwaitingSubLink(ctx context.Context, telegramID int64) error
}

// Provisioner выдаёт подписку после оплаты.
type Provisioner interface {
	Provision(ctx context.Context, req provision.Request) provision.Result
}

// Service — диспетчер обновлений Bot API.
type Service struct {
	log             *slog.Logger
	tg              TelegramClient
	repo            Repository
	sessions        Sessions
	provisioner     Provisioner
	plans           []models.Plan
	brand           config.Brand
	admins          map[int64]struct{}
	panelConfigured bool
	now             func() time.Time
}

// New создаёт диспетчер. Если в конфиге нет тарифов, используется каталог
// по умолчанию.
func New(log *slog.Logger, tg TelegramClient, repo Repository, sessions Sessions,
	provisioner Provisioner, cfg *config.Config) *Service {
	plans := make([]models.Plan, 0, len(cfg.Plans))
	for _, p := range cfg.Plans {
		plans = append(plans, models.Plan{
			Name: p.Name, Days: p.Days, TrafficGB: p.TrafficGB,
			Devices: p.Devices, Price: p.Price,
		})
	}
	if len(plans) == 0 {
		plans = models.DefaultPlans()
	}
	admins := make(map[int64]struct{}, len(cfg.Telegram.AdminIDs))
	for _, id := range cfg.Telegram.AdminIDs {
		admins[id] = struct{}{}
	}
	return &Service{
		log:             log,
		tg:              tg,
		repo:            repo,
		sessions:        sessions,
		provisioner:     provisioner,
		plans:           plans,
		brand:           cfg.Brand,
		admins:          admins,
		panelConfigured: cfg.PanelConfigured(),
		now:             time.Now,
	}
}

// HandleUpdate обрабатывает одно обновление. Ошибки обработки логируются
// и не возвращаются: вебхук всегда отвечает Telegram успехом, иначе
// обновление будет доставляться повторно.
func (s *Service) HandleUpdate(ctx context.Context, upd telegram.Update) {
	switch {
	case upd.PreCheckoutQuery != nil:
		if err := s.tg.AnswerPreCheckoutQuery(ctx, upd.PreCheckoutQuery.ID); err != nil {
			s.log.Error("failed to answer pre-checkout", sl.Err(err))
		}
	case upd.CallbackQuery != nil:
		s.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil && upd.Message.SuccessfulPayment != nil:
		s.handlePayment(ctx, upd.Message)
	case upd.Message != nil:
		s.handleMessage(ctx, upd.Message)
	}
}

func (s *Service) handleMessage(ctx context.Context, msg *telegram.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch {
	case text == "/start":
		s.handleStart(ctx, msg)
	case strings.HasPrefix(text, "/set_sub"):
		s.handleSetSub(ctx, msg)
	case strings.HasPrefix(text, "/orders"):
		s.handleOrders(ctx, msg)
	default:
		awaiting, err := s.sessions.AwaitingSubLink(ctx, chatID)
		if err != nil {
			s.log.Error("failed to check dialog state", sl.Err(err))
		}
		if awaiting {
			s.handleIncomingSubLink(ctx, msg)
			return
		}
		s.send(ctx, chatID, fallbackMenuText, mainMenuKeyboard())
	}
}

func (s *Service) handleStart(ctx context.Context, msg *telegram.Message) {
	user := models.User{TelegramID: msg.Chat.ID, Language: "ru"}
	if msg.From != nil {
		user.Username = msg.From.Username
	}
	if err := s.repo.UpsertUser(ctx, user); err != nil {
		s.log.Error("failed to upsert user", slog.Int64("telegram_id", msg.Chat.ID), sl.Err(err))
	}
	s.send(ctx, msg.Chat.ID, welcomeText(s.brand), mainMenuKeyboard())
}

// handleSetSub — админская команда ручной привязки подписки:
// /set_sub <telegram_id> <ссылка>.
func (s *Service) handleSetSub(ctx context.Context, msg *telegram.Message) {
	if msg.From == nil {
		return
	}
	if _, ok := s.admins[msg.From.ID]; !ok {
		s.send(ctx, msg.Chat.ID, fallbackMenuText, mainMenuKeyboard())
		return
	}
	fields := strings.Fields(msg.Text)
	if len(fields) != 3 || !isHTTPURL(fields[2]) {
		s.send(ctx, msg.Chat.ID, setSubUsageText, nil)
		return
	}
	targetID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		s.send(ctx, msg.Chat.ID, setSubUsageText, nil)
		return
	}
	if err := s.repo.OverwriteSubscription(ctx, models.User{
		TelegramID: targetID,
		SubURL:     fields[2],
	}); err != nil {
		s.log.Error("failed to set subscription", slog.Int64("target_id", targetID), sl.Err(err))
		s.send(ctx, msg.Chat.ID, internalErrorText, nil)
		return
	}
	s.send(ctx, msg.Chat.ID, setSubDoneText, nil)
}

// handleOrders — админская команда аудита платежей:
// /orders <telegram_id>.
func (s *Service) handleOrders(ctx context.Context, msg *telegram.Message) {
	if msg.From == nil {
		return
	}
	if _, ok := s.admins[msg.From.ID]; !ok {
		s.send(ctx, msg.Chat.ID, fallbackMenuText, mainMenuKeyboard())
		return
	}
	fields := strings.Fields(msg.Text)
	if len(fields) != 2 {
		s.send(ctx, msg.Chat.ID, ordersUsageText, nil)
		return
	}
	targetID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		s.send(ctx, msg.Chat.ID, ordersUsageText, nil)
		return
	}
	orders, err := s.repo.ListOrdersByUser(ctx, targetID, 10, 0)
	if err != nil {
		s.log.Error("failed to list orders", slog.Int64("target_id", targetID), sl.Err(err))
		s.send(ctx, msg.Chat.ID, internalErrorText, nil)
		return
	}
	s.send(ctx, msg.Chat.ID, ordersText(targetID, orders), nil)
}

func (s *Service) handleIncomingSubLink(ctx context.Context, msg *telegram.Message) {
	chatID := msg.Chat.ID
	link, ok := extractSubLink(msg.Text)
	if !ok {
		s.send(ctx, chatID, badLinkText, nil)
		return
	}
	user := models.User{TelegramID: chatID, SubURL: link, Language: "ru"}
	if msg.From != nil {
		user.Username = msg.From.Username
	}
	if err := s.repo.UpsertUser(ctx, user); err != nil {
		s.log.Error("failed to save incoming sub link", slog.Int64("telegram_id", chatID), sl.Err(err))
		s.send(ctx, chatID, internalErrorText, nil)
		return
	}
	if err := s.sessions.ClearAwaitingSubLink(ctx, chatID); err != nil {
		s.log.Warn("failed to clear dialog state", sl.Err(err))
	}
	s.send(ctx, chatID, haveKeySavedText(link), backKeyboard())
}

func (s *Service) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	defer func() {
		if err := s.tg.AnswerCallbackQuery(ctx, cb.ID); err != nil {
			s.log.Warn("failed to answer callback", sl.Err(err))
		}
	}()
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID

	switch {
	case cb.Data == cbHome:
		s.edit(ctx, chatID, messageID, welcomeText(s.brand), mainMenuKeyboard())
	case cb.Data == cbBuy:
		s.edit(ctx, chatID, messageID, plansText(), plansKeyboard(s.plans))
	case cb.Data == cbExtend:
		if s.panelConfigured {
			// Продление идёт тем же путём, что и покупка: движок выдачи сам
			// продлит существующего пользователя панели.
			s.edit(ctx, chatID, messageID, plansText(), plansKeyboard(s.plans))
			return
		}
		s.edit(ctx, chatID, messageID, extendMissingText, backKeyboard())
	case cb.Data == cbProfile:
		user, err := s.repo.GetUser(ctx, chatID)
		if err != nil {
			s.log.Debug("profile lookup failed", slog.Int64("telegram_id", chatID), sl.Err(err))
		}
		s.edit(ctx, chatID, messageID, profileText(user, s.now().UTC()), backKeyboard())
	case cb.Data == cbGuide:
		s.edit(ctx, chatID, messageID, guideText(s.brand), backKeyboard())
	case cb.Data == cbHaveKey:
		if err := s.sessions.SetAwaitingSubLink(ctx, chatID); err != nil {
			s.log.Error("failed to set dialog state", sl.Err(err))
		}
		s.edit(ctx, chatID, messageID, haveKeyPromptText, backKeyboard())
	case strings.HasPrefix(cb.Data, cbPlanShow):
		s.handlePlanShow(ctx, chatID, messageID, strings.TrimPrefix(cb.Data, cbPlanShow))
	case strings.HasPrefix(cb.Data, cbPlanPay):
		s.handlePlanPay(ctx, chatID, strings.TrimPrefix(cb.Data, cbPlanPay))
	default:
		s.log.Debug("unknown callback", slog.String("data", cb.Data))
	}
}

func (s *Service) handlePlanShow(ctx context.Context, chatID, messageID int64, planID string) {
	plan, ok := models.FindPlan(s.plans, planID)
	if !ok {
		s.edit(ctx, chatID, messageID, unknownPlanText, backKeyboard())
		return
	}
	s.edit(ctx, chatID, messageID, planDetailsText(plan), planKeyboard(plan))
}

func (s *Service) handlePlanPay(ctx context.Context, chatID int64, planID string) {
	plan, ok := models.FindPlan(s.plans, planID)
	if !ok {
		s.send(ctx, chatID, unknownPlanText, backKeyboard())
		return
	}

	payload, err := json.Marshal(models.InvoicePayload{
		Type:   "plan",
		PlanID: plan.ID(),
		UserID: chatID,
		TS:     s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		s.log.Error("failed to build invoice payload", sl.Err(err))
		return
	}

	if _, err := s.repo.CreateOrder(ctx, models.Order{
		TelegramID: chatID,
		PlanID:     plan.ID(),
		Payload:    string(payload),
		Amount:     plan.Price,
		Currency:   "XTR",
	}); err != nil {
		// Заказ — аудиторская запись, его отказ не блокирует оплату.
		s.log.Error("failed to record order", slog.Int64("telegram_id", chatID), sl.Err(err))
	}

	title := fmt.Sprintf("%s — %s", s.brand.BusinessName, plan.Name)
	description := fmt.Sprintf("%d дн., %d ГБ, до %d устройств", plan.Days, plan.TrafficGB, plan.Devices)
	if err := s.tg.SendInvoice(ctx, chatID, title, description, string(payload), "XTR", plan.Name, plan.Price); err != nil {
		s.log.Error("failed to send invoice", slog.Int64("telegram_id", chatID), sl.Err(err))
	}
}

func (s *Service) handlePayment(ctx context.Context, msg *telegram.Message) {
	chatID := msg.Chat.ID

	var payload models.InvoicePayload
	if err := json.Unmarshal([]byte(msg.SuccessfulPayment.InvoicePayload), &payload); err != nil {
		s.log.Error("broken invoice payload in payment", slog.Int64("telegram_id", chatID), sl.Err(err))
		return
	}
	plan, ok := models.FindPlan(s.plans, payload.PlanID)
	if !ok {
		s.log.Error("payment for unknown plan",
			slog.Int64("telegram_id", chatID), slog.String("plan_id", payload.PlanID))
		return
	}

	var username string
	if msg.From != nil {
		username = msg.From.Username
	}
	res := s.provisioner.Provision(ctx, provision.Request{
		TelegramID: chatID,
		Username:   username,
		Plan:       plan,
		Language:   "ru",
	})

	if err := s.repo.OverwriteSubscription(ctx, models.User{
		TelegramID:  chatID,
		Username:    username,
		SubURL:      res.SubURL,
		DisplayName: res.DisplayName,
		ExpiresAt:   res.ExpiresAt,
		Language:    "ru",
	}); err != nil {
		s.log.Error("failed to store subscription", slog.Int64("telegram_id", chatID), sl.Err(err))
	}

	s.send(ctx, chatID, paidText(res.SubURL, res.ExpiresAt, res.Fallback), backKeyboard())
	s.sendQR(ctx, chatID, deeplink(res.SubURL, res.DisplayName))
}

// sendQR отправляет QR-код ссылки. Это украшение: сбой генерации или
// отправки не мешает пользователю, ключ уже доставлен текстом.
func (s *Service) sendQR(ctx context.Context, chatID int64, subURL string) {
	png, err := qrcode.Encode(subURL, qrcode.Medium, 512)
	if err != nil {
		s.log.Warn("failed to encode qr", sl.Err(err))
		return
	}
	if err := s.tg.SendPhoto(ctx, chatID, qrCaptionText, png); err != nil {
		s.log.Warn("failed to send qr photo", sl.Err(err))
	}
}

func (s *Service) send(ctx context.Context, chatID int64, text string, keyboard *telegram.InlineKeyboardMarkup) {
	if err := s.tg.SendMessage(ctx, chatID, text, keyboard); err != nil {
		s.log.Error("failed to send message", slog.Int64("chat_id", chatID), sl.Err(err))
	}
}

func (s *Service) edit(ctx context.Context, chatID, messageID int64, text string, keyboard *telegram.InlineKeyboardMarkup) {
	if err := s.tg.EditMessageText(ctx, chatID, messageID, text, keyboard); err != nil {
		s.log.Error("failed to edit message", slog.Int64("chat_id", chatID), sl.Err(err))
	}
}

func isHTTPURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
