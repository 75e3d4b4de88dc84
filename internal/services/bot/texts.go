package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/magabrotheeeer/vpn-telegram-bot/internal/config"
	"github.com/magabrotheeeer/vpn-telegram-bot/internal/models"
)

func welcomeText(brand config.Brand) string {
	return fmt.Sprintf(
		"👋 Добро пожаловать в *%s*!\n\nБыстрый и стабильный VPN, серверы: %s.\n\nВыберите действие:",
		brand.BusinessName, brand.ServerLocation)
}

func plansText() string {
	return "💳 *Тарифы*\n\nВыберите подходящий тариф:"
}

func planDetailsText(plan models.Plan) string {
	return fmt.Sprintf(
		"📦 *%s*\n\n• Срок: %d дн.\n• Трафик: %d ГБ\n• Устройств: %d\n\nЦена: %d ⭐️",
		plan.Name, plan.Days, plan.TrafficGB, plan.Devices, plan.Price)
}

func profileText(user *models.User, now time.Time) string {
	var b strings.Builder
	b.WriteString("👤 *Профиль*\n\n")
	if user == nil || user.SubURL == "" {
		b.WriteString("Активной подписки нет. Оформите её в разделе «Купить».")
		return b.String()
	}
	fmt.Fprintf(&b, "🔑 Ключ: `%s`\n", user.SubURL)
	fmt.Fprintf(&b, "📲 Импорт в приложение:\n`%s`\n", deeplink(user.SubURL, user.DisplayName))
	if user.ExpiresAt != nil {
		fmt.Fprintf(&b, "📅 Действует до: %s\n", user.ExpiresAt.Format("02.01.2006"))
		if daysLeft := int(user.ExpiresAt.Sub(now).Hours() / 24); daysLeft > 0 {
			fmt.Fprintf(&b, "⏳ Осталось дней: %d\n", daysLeft)
		}
	}
	return b.String()
}

func guideText(brand config.Brand) string {
	var b strings.Builder
	b.WriteString("📖 *Как подключиться*\n\n")
	b.WriteString("1. Установите приложение Hiddify или V2Box.\n")
	b.WriteString("2. Скопируйте ключ подписки из раздела «Профиль».\n")
	b.WriteString("3. Добавьте ключ в приложение и включите VPN.\n")
	if brand.SupportTG != "" {
		fmt.Fprintf(&b, "\nПоддержка: %s", brand.SupportTG)
	}
	if brand.SupportEmail != "" {
		fmt.Fprintf(&b, "\nПочта: %s", brand.SupportEmail)
	}
	return b.String()
}

func paidText(subURL string, expiresAt *time.Time, fallback bool) string {
	var b strings.Builder
	b.WriteString("✅ *Оплата получена!*\n\n")
	fmt.Fprintf(&b, "🔑 Ваш ключ:\n`%s`\n", subURL)
	if expiresAt != nil {
		fmt.Fprintf(&b, "\n📅 Действует до: %s\n", expiresAt.Format("02.01.2006"))
	}
	if fallback {
		b.WriteString("\n⚠️ Ключ будет активирован в течение нескольких минут. Если он не заработает, напишите в поддержку — мы уже получили уведомление.")
	}
	return b.String()
}

func ordersText(telegramID int64, orders []*models.Order) string {
	if len(orders) == 0 {
		return fmt.Sprintf("У пользователя %d заказов нет.", telegramID)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Заказы пользователя %d:\n", telegramID)
	for _, order := range orders {
		fmt.Fprintf(&b, "#%d %s — %d %s, %s, %s\n",
			order.ID, order.PlanID, order.Amount, order.Currency,
			order.Status, order.CreatedAt.Format("02.01.2006 15:04"))
	}
	return b.String()
}

func haveKeySavedText(link string) string {
	return fmt.Sprintf(
		"✅ Ссылка сохранена, она доступна в разделе «Профиль».\n\nИмпорт в приложение:\n`%s`",
		deeplink(link, ""))
}

const (
	haveKeyPromptText = "🔑 Пришлите вашу ссылку подписки одним сообщением, и я сохраню её в профиле."
	badLinkText       = "Это не похоже на ссылку. Пришлите ссылку вида https://..."
	internalErrorText = "Что-то пошло не так. Попробуйте ещё раз или напишите в поддержку."
	extendMissingText = "Продление пока недоступно: панель не подключена. Напишите в поддержку."
	unknownPlanText   = "Этот тариф больше недоступен. Откройте список тарифов заново."
	fallbackMenuText  = "Не понял вас. Воспользуйтесь меню:"
	setSubUsageText   = "Использование: /set_sub <telegram_id> <ссылка>"
	ordersUsageText   = "Использование: /orders <telegram_id>"
	setSubDoneText    = "Готово: подписка пользователя обновлена."
	qrCaptionText     = "QR-код вашей подписки — отсканируйте его в приложении."
)
