package models

import "time"

// ReminderMessage — полезная нагрузка уведомления об истечении подписки,
// публикуется планировщиком в очередь и доставляется отправителем.
type ReminderMessage struct {
	TelegramID int64     `json:"telegram_id"`
	Language   string    `json:"language"`
	DaysLeft   int       `json:"days_left"`
	ExpiresAt  time.Time `json:"expires_at"`
}
