package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/vpn-telegram-bot/internal/models"
)

// CreateOrder вставляет заказ со статусом pending и возвращает его ID.
func (s *Storage) CreateOrder(ctx context.Context, order models.Order) (int64, error) {
	const op = "storage.CreateOrder"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO orders (telegram_id, plan_id, payload, amount, currency, status, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, now())
			  RETURNING id`
	var newID int64
	err := s.DB.QueryRowContext(ctx, query,
		order.TelegramID, order.PlanID, order.Payload, order.Amount,
		order.Currency, models.OrderStatusPending).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListOrdersByUser возвращает заказы пользователя для аудита, новые первыми.
func (s *Storage) ListOrdersByUser(ctx context.Context, telegramID int64, limit, offset int) ([]*models.Order, error) {
	const op = "storage.ListOrdersByUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, telegram_id, plan_id, payload, amount, currency, status, created_at
			  FROM orders
			  WHERE telegram_id = $1
			  ORDER BY created_at DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, telegramID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Order
	for rows.Next() {
		var item models.Order
		if err := rows.Scan(&item.ID, &item.TelegramID, &item.PlanID, &item.Payload,
			&item.Amount, &item.Currency, &item.Status, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
