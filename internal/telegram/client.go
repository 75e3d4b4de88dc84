// Package telegram реализует клиент Bot API: отправка сообщений, инвойсов
// Stars, ответов на колбэки и фотографий с QR-кодом. Токен бота не
// логируется и не включается в тексты ошибок.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/magabrotheeeer/vpn-telegram-bot/internal/lib/sl"
)

const apiBase = "https://api.telegram.org/bot"

// Client ходит в Bot API через общий ограниченный пул соединений.
type Client struct {
	baseURL    string
	adminIDs   []int64
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient создаёт клиент Bot API. adminIDs — получатели служебных
// уведомлений.
func NewClient(botToken string, adminIDs []int64, log *slog.Logger) *Client {
	return &Client{
		baseURL:  apiBase + botToken,
		adminIDs: adminIDs,
		log:      log,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        60,
				MaxIdleConnsPerHost: 30,
			},
		},
	}
}

func (c *Client) call(ctx context.Context, method string, payload any) error {
	const op = "telegram.call"

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, &buf)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !apiResp.OK {
		return fmt.Errorf("%s: %s failed: %s", op, method, apiResp.Description)
	}
	return nil
}

// SendMessage отправляет текст с необязательной инлайн-клавиатурой.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, keyboard *InlineKeyboardMarkup) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	if keyboard != nil {
		payload["reply_markup"] = keyboard
	}
	return c.call(ctx, "sendMessage", payload)
}

// EditMessageText редактирует текст существующего сообщения.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string, keyboard *InlineKeyboardMarkup) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	if keyboard != nil {
		payload["reply_markup"] = keyboard
	}
	return c.call(ctx, "editMessageText", payload)
}

// AnswerCallbackQuery подтверждает получение нажатия кнопки.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackQueryID string) error {
	return c.call(ctx, "answerCallbackQuery", map[string]any{
		"callback_query_id": callbackQueryID,
	})
}

// AnswerPreCheckoutQuery подтверждает pre-checkout. Бизнес-валидация
// не выполняется, ответ всегда ok=true.
func (c *Client) AnswerPreCheckoutQuery(ctx context.Context, preCheckoutQueryID string) error {
	return c.call(ctx, "answerPreCheckoutQuery", map[string]any{
		"pre_checkout_query_id": preCheckoutQueryID,
		"ok":                    true,
	})
}

// SendInvoice выставляет инвойс Telegram Stars. Для XTR provider_token
// должен быть пустым, prices содержит одну позицию.
func (c *Client) SendInvoice(ctx context.Context, chatID int64, title, description, payload, currency string, priceLabel string, priceUnits int) error {
	return c.call(ctx, "sendInvoice", map[string]any{
		"chat_id":        chatID,
		"title":          title,
		"description":    description,
		"payload":        payload,
		"provider_token": "",
		"currency":       currency,
		"prices":         []LabeledPrice{{Label: priceLabel, Amount: priceUnits}},
	})
}

// SendPhoto отправляет PNG через multipart-запрос.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, caption string, png []byte) error {
	const op = "telegram.SendPhoto"

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if caption != "" {
		if err := w.WriteField("caption", caption); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	fw, err := w.CreateFormFile("photo", "qr.png")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := fw.Write(png); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sendPhoto", &buf)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !apiResp.OK {
		return fmt.Errorf("%s: sendPhoto failed: %s", op, apiResp.Description)
	}
	return nil
}

// NotifyAdmins рассылает служебный текст всем настроенным администраторам.
// Отправка по каждому получателю — best effort, ошибки только логируются.
func (c *Client) NotifyAdmins(ctx context.Context, text string) {
	for _, id := range c.adminIDs {
		if err := c.SendMessage(ctx, id, text, nil); err != nil {
			c.log.Warn("failed to notify admin", slog.Int64("admin_id", id), sl.Err(err))
		}
	}
}
