package bot

import (
	"fmt"

	"github.com/magabrotheeeer/vpn-telegram-bot/internal/models"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/telegram"
)

// Значения callback_data инлайн-кнопок.
const (
	cbHome     = "menu:home"
	cbBuy      = "menu:buy"
	cbProfile  = "menu:profile"
	cbGuide    = "menu:guide"
	cbHaveKey  = "menu:havekey"
	cbExtend   = "menu:extend"
	cbPlanShow = "plan:show:"
	cbPlanPay  = "plan:pay:"
)

func mainMenuKeyboard() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		{{Text: "💳 Купить", CallbackData: cbBuy}},
		{{Text: "🔄 Продлить", CallbackData: cbExtend}},
		{{Text: "👤 Профиль", CallbackData: cbProfile}},
		{{Text: "📖 Как подключиться", CallbackData: cbGuide}},
		{{Text: "🔑 У меня уже есть ключ", CallbackData: cbHaveKey}},
	}}
}

func plansKeyboard(plans []models.Plan) *telegram.InlineKeyboardMarkup {
	rows := make([][]telegram.InlineKeyboardButton, 0, len(plans)+1)
	for _, plan := range plans {
		rows = append(rows, []telegram.InlineKeyboardButton{{
			Text:         fmt.Sprintf("%s — %d ⭐️", plan.Name, plan.Price),
			CallbackData: cbPlanShow + plan.ID(),
		}})
	}
	rows = append(rows, backRow())
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func planKeyboard(plan models.Plan) *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{
		{{Text: fmt.Sprintf("Оплатить %d ⭐️", plan.Price), CallbackData: cbPlanPay + plan.ID()}},
		{{Text: "⬅️ К тарифам", CallbackData: cbBuy}},
	}}
}

func backKeyboard() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{backRow()}}
}

func backRow() []telegram.InlineKeyboardButton {
	return []telegram.InlineKeyboardButton{{Text: "⬅️ В меню", CallbackData: cbHome}}
}
