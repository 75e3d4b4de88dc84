// Package cache реализует состояние диалога поверх redis: флаг ожидания
// присланной пользователем ссылки подписки. Хранилище внедряется в
// обработчик явно и безопасно при конкурентном доступе.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/vpn-telegram-bot/internal/config"
)

// Время жизни флага: забытый диалог не должен перехватывать сообщения вечно.
const pendingSubTTL = 15 * time.Minute

// SessionStore хранит транзитное состояние диалога по telegram id.
type SessionStore struct {
	Db *redis.Client
}

// InitServer подключается к redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.RedisConnection) (*SessionStore, error) {
	const op = "cache.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &SessionStore{Db: db}, nil
}

func pendingSubKey(telegramID int64) string {
	return fmt.Sprintf("pending_sub:%d", telegramID)
}

// SetAwaitingSubLink помечает, что следующее сообщение пользователя —
// присылаемая им ссылка подписки.
func (s *SessionStore) SetAwaitingSubLink(ctx context.Context, telegramID int64) error {
	const op = "cache.SetAwaitingSubLink"
	if err := s.Db.Set(ctx, pendingSubKey(telegramID), "1", pendingSubTTL).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// AwaitingSubLink проверяет, ждем ли мы от пользователя ссылку.
func (s *SessionStore) AwaitingSubLink(ctx context.Context, telegramID int64) (bool, error) {
	const op = "cache.AwaitingSubLink"
	err := s.Db.Get(ctx, pendingSubKey(telegramID)).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// ClearAwaitingSubLink снимает флаг ожидания.
func (s *SessionStore) ClearAwaitingSubLink(ctx context.Context, telegramID int64) error {
	const op = "cache.ClearAwaitingSubLink"
	if err := s.Db.Del(ctx, pendingSubKey(telegramID)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
