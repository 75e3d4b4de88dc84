package models

import "time"

// Статусы заказа. Подтверждение оплаты приходит отдельным событием от
// Telegram, поэтому ядро пишет только pending; запись хранится для аудита.
const (
	OrderStatusPending = "pending"
	OrderStatusPaid    = "paid"
)

// Order представляет платежное намерение: выставленный инвойс на тариф.
type Order struct {
	ID         int64
	TelegramID int64
	PlanID     string
	Payload    string // Исходный payload инвойса
	Amount     int
	Currency   string
	Status     string
	CreatedAt  time.Time
}

// InvoicePayload прикладывается к инвойсу и возвращается в событии
// successful_payment.
type InvoicePayload struct {
	Type   string `json:"type"`
	PlanID string `json:"plan_id"`
	UserID int64  `json:"user_id"`
	TS     string `json:"ts"`
}
