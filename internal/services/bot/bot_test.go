package bot

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/vpn-telegram-bot/internal/config"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/models"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/services/provision"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/telegram"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTelegram struct {
	sent           []string
	edited         []string
	invoices       []string
	photos         int
	answeredCB     []string
	answeredPreCO  []string
	lastKeyboard   *telegram.InlineKeyboardMarkup
	invoicePayload string
}

func (f *fakeTelegram) SendMessage(_ context.Context, _ int64, text string, kb *telegram.InlineKeyboardMarkup) error {
	f.sent = append(f.sent, text)
	f.lastKeyboard = kb
	return nil
}

func (f *fakeTelegram) EditMessageText(_ context.Context, _, _ int64, text string, kb *telegram.InlineKeyboardMarkup) error {
	f.edited = append(f.edited, text)
	f.lastKeyboard = kb
	return nil
}

func (f *fakeTelegram) AnswerCallbackQuery(_ context.Context, id string) error {
	f.answeredCB = append(f.answeredCB, id)
	return nil
}

func (f *fakeTelegram) AnswerPreCheckoutQuery(_ context.Context, id string) error {
	f.answeredPreCO = append(f.answeredPreCO, id)
	return nil
}

func (f *fakeTelegram) SendInvoice(_ context.Context, _ int64, title, _, payload, currency, _ string, _ int) error {
	f.invoices = append(f.invoices, title+"/"+currency)
	f.invoicePayload = payload
	return nil
}

func (f *fakeTelegram) SendPhoto(_ context.Context, _ int64, _ string, png []byte) error {
	if len(png) > 0 {
		f.photos++
	}
	return nil
}

type fakeRepo struct {
	upserted    []models.User
	overwritten []models.User
	orders      []models.Order
	user        *models.User
}

func (f *fakeRepo) UpsertUser(_ context.Context, user models.User) error {
	f.upserted = append(f.upserted, user)
	return nil
}

func (f *fakeRepo) OverwriteSubscription(_ context.Context, user models.User) error {
	f.overwritten = append(f.overwritten, user)
	return nil
}

func (f *fakeRepo) GetUser(_ context.Context, _ int64) (*models.User, error) {
	return f.user, nil
}

func (f *fakeRepo) CreateOrder(_ context.Context, order models.Order) (int64, error) {
	f.orders = append(f.orders, order)
	return int64(len(f.orders)), nil
}

func (f *fakeRepo) ListOrdersByUser(_ context.Context, telegramID int64, _, _ int) ([]*models.Order, error) {
	var result []*models.Order
	for i := range f.orders {
		if f.orders[i].TelegramID == telegramID {
			result = append(result, &f.orders[i])
		}
	}
	return result, nil
}

type fakeSessions struct {
	awaiting map[int64]bool
}

func (f *fakeSessions) SetAwaitingSubLink(_ context.Context, id int64) error {
	f.awaiting[id] = true
	return nil
}

func (f *fakeSessions) AwaitingSubLink(_ context.Context, id int64) (bool, error) {
	return f.awaiting[id], nil
}

func (f *fakeSessions) ClearAwaitingSubLink(_ context.Context, id int64) error {
	delete(f.awaiting, id)
	return nil
}

type fakeProvisioner struct {
	requests []provision.Request
	result   provision.Result
}

func (f *fakeProvisioner) Provision(_ context.Context, req provision.Request) provision.Result {
	f.requests = append(f.requests, req)
	return f.result
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Telegram.AdminIDs = []int64{999}
	cfg.Brand = config.Brand{BusinessName: "Test VPN", ServerLocation: "NL", DisplayPrefix: "tg-"}
	return cfg
}

func newTestBot(tg *fakeTelegram, repo *fakeRepo, sessions *fakeSessions, prov *fakeProvisioner) *Service {
	return New(newNoopLogger(), tg, repo, sessions, prov, testConfig())
}

func textMessage(chatID int64, username, text string) *telegram.Message {
	return &telegram.Message{
		Chat: telegram.Chat{ID: chatID},
		From: &telegram.User{ID: chatID, Username: username},
		Text: text,
	}
}

func TestStartUpsertsUserAndShowsMenu(t *testing.T) {
	tg := &fakeTelegram{}
	repo := &fakeRepo{}
	b := newTestBot(tg, repo, &fakeSessions{awaiting: map[int64]bool{}}, &fakeProvisioner{})

	b.HandleUpdate(context.Background(), telegram.Update{Message: textMessage(42, "alice", "/start")})

	require.Len(t, repo.upserted, 1)
	assert.Equal(t, int64(42), repo.upserted[0].TelegramID)
	assert.Equal(t, "alice", repo.upserted[0].Username)

	require.Len(t, tg.sent, 1)
	assert.Contains(t, tg.sent[0], "Test VPN")
	require.NotNil(t, tg.lastKeyboard)
}

func TestPlanPayCreatesOrderAndSendsStarsInvoice(t *testing.T) {
	tg := &fakeTelegram{}
	repo := &fakeRepo{}
	b := newTestBot(tg, repo, &fakeSessions{awaiting: map[int64]bool{}}, &fakeProvisioner{})
	planID := models.DefaultPlans()[0].ID()

	b.HandleUpdate(context.Background(), telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID:      "cb1",
		Message: &telegram.Message{MessageID: 7, Chat: telegram.Chat{ID: 42}},
		Data:    cbPlanPay + planID,
	}})

	require.Len(t, repo.orders, 1)
	assert.Equal(t, planID, repo.orders[0].PlanID)
	assert.Equal(t, "XTR", repo.orders[0].Currency)
	assert.Equal(t, 100, repo.orders[0].Amount)

	require.Len(t, tg.invoices, 1)
	assert.Contains(t, tg.invoices[0], "XTR")

	var payload models.InvoicePayload
	require.NoError(t, json.Unmarshal([]byte(tg.invoicePayload), &payload))
	assert.Equal(t, planID, payload.PlanID)
	assert.Equal(t, int64(42), payload.UserID)

	assert.Equal(t, []string{"cb1"}, tg.answeredCB)
}

func TestPreCheckoutAlwaysConfirmed(t *testing.T) {
	tg := &fakeTelegram{}
	b := newTestBot(tg, &fakeRepo{}, &fakeSessions{awaiting: map[int64]bool{}}, &fakeProvisioner{})

	b.HandleUpdate(context.Background(), telegram.Update{PreCheckoutQuery: &telegram.PreCheckoutQuery{ID: "pc1"}})

	assert.Equal(t, []string{"pc1"}, tg.answeredPreCO)
}

func TestSuccessfulPaymentProvisionsAndStoresSubscription(t *testing.T) {
	tg := &fakeTelegram{}
	repo := &fakeRepo{}
	expiresAt := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	prov := &fakeProvisioner{result: provision.Result{
		SubURL:      "https://vpn.example.com/proxy/u1/#tg-alice",
		DisplayName: "tg-alice",
		ExpiresAt:   &expiresAt,
	}}
	b := newTestBot(tg, repo, &fakeSessions{awaiting: map[int64]bool{}}, prov)

	plan := models.DefaultPlans()[0]
	payload, err := json.Marshal(models.InvoicePayload{Type: "plan", PlanID: plan.ID(), UserID: 42})
	require.NoError(t, err)

	msg := textMessage(42, "alice", "")
	msg.SuccessfulPayment = &telegram.SuccessfulPayment{
		Currency:       "XTR",
		TotalAmount:    plan.Price,
		InvoicePayload: string(payload),
	}
	b.HandleUpdate(context.Background(), telegram.Update{Message: msg})

	require.Len(t, prov.requests, 1)
	assert.Equal(t, int64(42), prov.requests[0].TelegramID)
	assert.Equal(t, plan.ID(), prov.requests[0].Plan.ID())

	require.Len(t, repo.overwritten, 1)
	assert.Equal(t, "https://vpn.example.com/proxy/u1/#tg-alice", repo.overwritten[0].SubURL)
	assert.Equal(t, &expiresAt, repo.overwritten[0].ExpiresAt)

	require.Len(t, tg.sent, 1)
	assert.Contains(t, tg.sent[0], "Оплата получена")
	assert.NotContains(t, tg.sent[0], "будет активирован")
	assert.Equal(t, 1, tg.photos)
}

func TestSuccessfulPaymentWithFallbackWarnsUser(t *testing.T) {
	tg := &fakeTelegram{}
	prov := &fakeProvisioner{result: provision.Result{
		SubURL:   "https://example.invalid/sub/abc",
		Fallback: true,
	}}
	b := newTestBot(tg, &fakeRepo{}, &fakeSessions{awaiting: map[int64]bool{}}, prov)

	plan := models.DefaultPlans()[0]
	payload, _ := json.Marshal(models.InvoicePayload{Type: "plan", PlanID: plan.ID(), UserID: 42})
	msg := textMessage(42, "alice", "")
	msg.SuccessfulPayment = &telegram.SuccessfulPayment{InvoicePayload: string(payload)}

	b.HandleUpdate(context.Background(), telegram.Update{Message: msg})

	require.Len(t, tg.sent, 1)
	assert.Contains(t, tg.sent[0], "будет активирован")
}

func TestHaveKeyFlowStoresIncomingLink(t *testing.T) {
	tg := &fakeTelegram{}
	repo := &fakeRepo{}
	sessions := &fakeSessions{awaiting: map[int64]bool{}}
	b := newTestBot(tg, repo, sessions, &fakeProvisioner{})

	b.HandleUpdate(context.Background(), telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID:      "cb1",
		Message: &telegram.Message{MessageID: 7, Chat: telegram.Chat{ID: 42}},
		Data:    cbHaveKey,
	}})
	assert.True(t, sessions.awaiting[42])

	b.HandleUpdate(context.Background(), telegram.Update{
		Message: textMessage(42, "alice", "https://vpn.example.com/proxy/u1/"),
	})

	require.Len(t, repo.upserted, 1)
	assert.Equal(t, "https://vpn.example.com/proxy/u1/", repo.upserted[0].SubURL)
	assert.False(t, sessions.awaiting[42])
	require.NotEmpty(t, tg.sent)
	assert.Contains(t, tg.sent[len(tg.sent)-1], "сохранена")
}

func TestHaveKeyFlowRejectsNonLink(t *testing.T) {
	tg := &fakeTelegram{}
	repo := &fakeRepo{}
	sessions := &fakeSessions{awaiting: map[int64]bool{42: true}}
	b := newTestBot(tg, repo, sessions, &fakeProvisioner{})

	b.HandleUpdate(context.Background(), telegram.Update{
		Message: textMessage(42, "alice", "просто текст"),
	})

	assert.Empty(t, repo.upserted)
	assert.True(t, sessions.awaiting[42])
	require.Len(t, tg.sent, 1)
	assert.Contains(t, tg.sent[0], "не похоже на ссылку")
}

func TestSetSubRequiresAdmin(t *testing.T) {
	tg := &fakeTelegram{}
	repo := &fakeRepo{}
	b := newTestBot(tg, repo, &fakeSessions{awaiting: map[int64]bool{}}, &fakeProvisioner{})

	b.HandleUpdate(context.Background(), telegram.Update{
		Message: textMessage(42, "mallory", "/set_sub 7 https://evil.example.com/x"),
	})

	assert.Empty(t, repo.overwritten)
}

func TestSetSubByAdminOverwritesSubscription(t *testing.T) {
	tg := &fakeTelegram{}
	repo := &fakeRepo{}
	b := newTestBot(tg, repo, &fakeSessions{awaiting: map[int64]bool{}}, &fakeProvisioner{})

	b.HandleUpdate(context.Background(), telegram.Update{
		Message: textMessage(999, "admin", "/set_sub 7 https://vpn.example.com/proxy/u7/"),
	})

	require.Len(t, repo.overwritten, 1)
	assert.Equal(t, int64(7), repo.overwritten[0].TelegramID)
	assert.Equal(t, "https://vpn.example.com/proxy/u7/", repo.overwritten[0].SubURL)
}

func TestOrdersCommandListsUserOrders(t *testing.T) {
	tg := &fakeTelegram{}
	repo := &fakeRepo{orders: []models.Order{
		{ID: 1, TelegramID: 7, PlanID: "lite-30d-50g-2dvc", Amount: 100, Currency: "XTR", Status: models.OrderStatusPending},
	}}
	b := newTestBot(tg, repo, &fakeSessions{awaiting: map[int64]bool{}}, &fakeProvisioner{})

	b.HandleUpdate(context.Background(), telegram.Update{
		Message: textMessage(999, "admin", "/orders 7"),
	})

	require.Len(t, tg.sent, 1)
	assert.Contains(t, tg.sent[0], "lite-30d-50g-2dvc")
	assert.Contains(t, tg.sent[0], "pending")
}

func TestOrdersCommandRequiresAdmin(t *testing.T) {
	tg := &fakeTelegram{}
	repo := &fakeRepo{orders: []models.Order{{ID: 1, TelegramID: 7}}}
	b := newTestBot(tg, repo, &fakeSessions{awaiting: map[int64]bool{}}, &fakeProvisioner{})

	b.HandleUpdate(context.Background(), telegram.Update{
		Message: textMessage(42, "mallory", "/orders 7"),
	})

	require.Len(t, tg.sent, 1)
	assert.Equal(t, fallbackMenuText, tg.sent[0])
}

func TestProfileCallbackShowsSubscription(t *testing.T) {
	tg := &fakeTelegram{}
	expiresAt := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeRepo{user: &models.User{
		TelegramID: 42,
		SubURL:     "https://vpn.example.com/proxy/u1/",
		ExpiresAt:  &expiresAt,
	}}
	b := newTestBot(tg, repo, &fakeSessions{awaiting: map[int64]bool{}}, &fakeProvisioner{})

	b.HandleUpdate(context.Background(), telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID:      "cb1",
		Message: &telegram.Message{MessageID: 7, Chat: telegram.Chat{ID: 42}},
		Data:    cbProfile,
	}})

	require.Len(t, tg.edited, 1)
	assert.Contains(t, tg.edited[0], "vpn.example.com")
	assert.Contains(t, tg.edited[0], "01.04.2024")
}

func TestExtendWithoutPanelShowsExplanation(t *testing.T) {
	tg := &fakeTelegram{}
	b := newTestBot(tg, &fakeRepo{}, &fakeSessions{awaiting: map[int64]bool{}}, &fakeProvisioner{})

	b.HandleUpdate(context.Background(), telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID:      "cb1",
		Message: &telegram.Message{MessageID: 7, Chat: telegram.Chat{ID: 42}},
		Data:    cbExtend,
	}})

	require.Len(t, tg.edited, 1)
	assert.Contains(t, tg.edited[0], "Продление пока недоступно")
}

func TestUnknownTextFallsBackToMenu(t *testing.T) {
	tg := &fakeTelegram{}
	b := newTestBot(tg, &fakeRepo{}, &fakeSessions{awaiting: map[int64]bool{}}, &fakeProvisioner{})

	b.HandleUpdate(context.Background(), telegram.Update{
		Message: textMessage(42, "alice", "привет"),
	})

	require.Len(t, tg.sent, 1)
	assert.Equal(t, fallbackMenuText, tg.sent[0])
	require.NotNil(t, tg.lastKeyboard)
}

func TestPaymentForUnknownPlanIsIgnored(t *testing.T) {
	tg := &fakeTelegram{}
	prov := &fakeProvisioner{}
	b := newTestBot(tg, &fakeRepo{}, &fakeSessions{awaiting: map[int64]bool{}}, prov)

	payload, _ := json.Marshal(models.InvoicePayload{Type: "plan", PlanID: "gone-30d-1g-1dvc", UserID: 42})
	msg := textMessage(42, "alice", "")
	msg.SuccessfulPayment = &telegram.SuccessfulPayment{InvoicePayload: string(payload)}

	b.HandleUpdate(context.Background(), telegram.Update{Message: msg})

	assert.Empty(t, prov.requests)
	assert.Empty(t, tg.sent)
}
