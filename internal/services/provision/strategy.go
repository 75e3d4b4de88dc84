// Package provision реализует движок выдачи подписки: цепочку стратегий
// с ретраями и гарантированным результатом. Движок никогда не возвращает
// ошибку наружу — в худшем случае пользователь получает ссылку-заглушку.
package provision

import (
	"context"
	"time"

	"github.com/magabrotheeeer/vpn-telegram-bot/internal/models"
)

// Request описывает, кому и какой тариф выдать.
type Request struct {
	TelegramID int64
	Username   string
	Plan       models.Plan
	Language   string
}

// Result — итог работы одной стратегии или движка целиком.
type Result struct {
	SubURL      string
	DisplayName string
	ExpiresAt   *time.Time
	// Fallback выставляется движком, когда все стратегии исчерпаны и
	// выдана ссылка-заглушка.
	Fallback bool
}

// Strategy — один способ выдачи подписки. Отключённые стратегии
// пропускаются без попыток.
type Strategy interface {
	Name() string
	Enabled() bool
	Attempt(ctx context.Context, req Request) (*Result, error)
}
