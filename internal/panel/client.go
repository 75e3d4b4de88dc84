// Package panel реализует клиент админского REST API внешней панели
// подписок. Клиент не делает повторных попыток: ретраи — ответственность
// движка выдачи.
package panel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/magabrotheeeer/vpn-telegram-bot/internal/config"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/errs"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/models"
)

const apiKeyHeader = "Hiddify-API-Key"

// Client ходит в панель с ограниченным пулом соединений и таймаутом на
// запрос. Ключ API не попадает ни в логи, ни в тексты ошибок.
type Client struct {
	adminBase    string
	userBase     string
	apiKey       string
	forceLongSub bool
	configured   bool
	httpClient   *http.Client
}

// NewClient создаёт клиент панели из конфигурации.
func NewClient(cfg *config.Config) *Client {
	timeout := cfg.Panel.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		adminBase:    cfg.AdminBase(),
		userBase:     cfg.UserBase(),
		apiKey:       cfg.Panel.APIKey,
		forceLongSub: cfg.Panel.ForceLongSub,
		configured:   cfg.PanelConfigured(),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        60,
				MaxIdleConnsPerHost: 30,
			},
		},
	}
}

// Configured сообщает, настроена ли панель.
func (c *Client) Configured() bool {
	return c.configured
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// ListUsers возвращает всех пользователей панели.
func (c *Client) ListUsers(ctx context.Context) ([]models.PanelUser, error) {
	const op = "panel.ListUsers"
	if !c.configured {
		return nil, errs.ErrNotConfigured
	}

	req, err := c.newRequest(ctx, http.MethodGet, c.adminBase+"/api/v2/admin/user/", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}
	var users []models.PanelUser
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrMalformedResponse)
	}
	return users, nil
}

// FindUserByTelegramID линейно ищет пользователя панели по telegram id.
// Записи без telegram_id или с нечисловым значением пропускаются.
func (c *Client) FindUserByTelegramID(ctx context.Context, telegramID int64) (*models.PanelUser, error) {
	const op = "panel.FindUserByTelegramID"

	users, err := c.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for i := range users {
		id, ok := users[i].TelegramIDInt64()
		if !ok {
			continue
		}
		if id == telegramID {
			return &users[i], nil
		}
	}
	return nil, errs.ErrNotFound
}

// CreateUser создаёт пользователя панели и возвращает его представление.
func (c *Client) CreateUser(ctx context.Context, reqBody CreateUserRequest) (*models.PanelUser, error) {
	const op = "panel.CreateUser"
	if !c.configured {
		return nil, errs.ErrNotConfigured
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.adminBase+"/api/v2/admin/user/", reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}
	var user models.PanelUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrMalformedResponse)
	}
	if user.UUID == "" {
		return nil, fmt.Errorf("%s: no uuid in response: %w", op, errs.ErrMalformedResponse)
	}
	return &user, nil
}

// PatchUser частично обновляет пользователя панели. Используется и для
// продления (enable=true), и для приостановки (enable=false).
func (c *Client) PatchUser(ctx context.Context, uuid string, patch PatchUserRequest) error {
	const op = "panel.PatchUser"
	if !c.configured {
		return errs.ErrNotConfigured
	}

	req, err := c.newRequest(ctx, http.MethodPatch, c.adminBase+"/api/v2/admin/user/"+uuid+"/", patch)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}
	return nil
}

// ResolveSubscriptionLink собирает ссылку подписки. Длинная форма
// {userBase}/{uuid}/#{имя} строится детерминированно и всегда валидна.
// Короткая форма запрашивается у панели и принимается только если она
// начинается с ожидаемого префикса — защита от подмененной ссылки. Любая
// ошибка короткой формы молча откатывает на длинную.
func (c *Client) ResolveSubscriptionLink(ctx context.Context, uuid, displayName string) string {
	longSub := fmt.Sprintf("%s/%s/#%s", c.userBase, uuid, url.PathEscape(displayName))
	if c.forceLongSub {
		return longSub
	}

	shortURL := fmt.Sprintf("%s/%s/api/v2/user/short/", c.userBase, uuid)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, shortURL, nil)
	if err != nil {
		return longSub
	}
	// Пользовательский эндпоинт аутентифицируется uuid самого пользователя.
	req.Header.Set(apiKeyHeader, uuid)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return longSub
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return longSub
	}
	var short shortLinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&short); err != nil {
		return longSub
	}
	candidate := short.candidate()
	if candidate != "" && strings.HasPrefix(candidate, fmt.Sprintf("%s/%s/", c.userBase, uuid)) {
		return candidate
	}
	return longSub
}
