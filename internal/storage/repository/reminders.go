package repository

import (
	"context"
	"fmt"
)

// MarkReminderSent фиксирует отправку напоминания с ключом key
// (например "D3"). Повторная вставка той же пары игнорируется.
func (s *Storage) MarkReminderSent(ctx context.Context, telegramID int64, key string) error {
	const op = "storage.MarkReminderSent"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO reminders_sent (telegram_id, key, sent_at)
			  VALUES ($1, $2, now())
			  ON CONFLICT (telegram_id, key) DO NOTHING`
	_, err := s.DB.ExecContext(ctx, query, telegramID, key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ReminderWasSent проверяет, отправлялось ли напоминание с данным ключом.
func (s *Storage) ReminderWasSent(ctx context.Context, telegramID int64, key string) (bool, error) {
	const op = "storage.ReminderWasSent"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (SELECT 1 FROM reminders_sent WHERE telegram_id = $1 AND key = $2)`
	var exists bool
	if err := s.DB.QueryRowContext(ctx, query, telegramID, key).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}
