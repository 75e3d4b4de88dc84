// Package models содержит доменные структуры: пользователь бота, заказ,
// тариф и транзитное представление пользователя на внешней панели.
package models

import "time"

// User представляет пользователя бота. Ровно одна запись на telegram id.
// Поле ExpiresAt равно nil до первой выдачи подписки.
type User struct {
	TelegramID  int64      // Внешний идентификатор, неизменяемый
	Username    string     // Имя пользователя в Telegram
	SubURL      string     // Ссылка подписки (может кодировать uuid панели)
	DisplayName string     // Отображаемое имя на панели
	ExpiresAt   *time.Time // Момент окончания подписки
	Language    string     // Код языка интерфейса
}
