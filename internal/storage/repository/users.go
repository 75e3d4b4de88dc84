package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/vpn-telegram-bot/internal/models"
)

// UpsertUser вставляет или дополняет запись пользователя. Поля обновляются
// по принципу "заполнить, если пусто": существующие значения не затираются
// пустыми входными.
func (s *Storage) UpsertUser(ctx context.Context, user models.User) error {
	const op = "storage.UpsertUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (telegram_id, username, sub_url, display_name, expires_at, language)
			  VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), $5, NULLIF($6, ''))
			  ON CONFLICT (telegram_id) DO UPDATE SET
			      username = COALESCE(EXCLUDED.username, users.username),
			      sub_url = COALESCE(EXCLUDED.sub_url, users.sub_url),
			      display_name = COALESCE(EXCLUDED.display_name, users.display_name),
			      expires_at = COALESCE(EXCLUDED.expires_at, users.expires_at),
			      language = COALESCE(EXCLUDED.language, users.language)`
	_, err := s.DB.ExecContext(ctx, query,
		user.TelegramID, user.Username, user.SubURL, user.DisplayName, user.ExpiresAt, user.Language)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// OverwriteSubscription перезаписывает ссылку, имя и срок после выдачи.
// В отличие от UpsertUser перезапись здесь явная: повторная выдача всегда
// заменяет сохраненные значения.
func (s *Storage) OverwriteSubscription(ctx context.Context, user models.User) error {
	const op = "storage.OverwriteSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (telegram_id, username, sub_url, display_name, expires_at, language)
			  VALUES ($1, NULLIF($2, ''), $3, $4, $5, NULLIF($6, ''))
			  ON CONFLICT (telegram_id) DO UPDATE SET
			      username = COALESCE(EXCLUDED.username, users.username),
			      sub_url = EXCLUDED.sub_url,
			      display_name = EXCLUDED.display_name,
			      expires_at = EXCLUDED.expires_at,
			      language = COALESCE(EXCLUDED.language, users.language)`
	_, err := s.DB.ExecContext(ctx, query,
		user.TelegramID, user.Username, user.SubURL, user.DisplayName, user.ExpiresAt, user.Language)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetUser возвращает пользователя по telegram id.
func (s *Storage) GetUser(ctx context.Context, telegramID int64) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT telegram_id, COALESCE(username, ''), COALESCE(sub_url, ''),
			      COALESCE(display_name, ''), expires_at, COALESCE(language, '')
			  FROM users WHERE telegram_id = $1`
	row := s.DB.QueryRowContext(ctx, query, telegramID)

	var result models.User
	var expiresAt sql.NullTime
	if err := row.Scan(&result.TelegramID, &result.Username, &result.SubURL,
		&result.DisplayName, &expiresAt, &result.Language); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if expiresAt.Valid {
		result.ExpiresAt = &expiresAt.Time
	}
	return &result, nil
}

// FindUsersExpiringOn возвращает пользователей, чья подписка заканчивается
// в указанный день. Сравнение только по дате, без учета времени.
func (s *Storage) FindUsersExpiringOn(ctx context.Context, day time.Time) ([]*models.User, error) {
	const op = "storage.FindUsersExpiringOn"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT telegram_id, COALESCE(username, ''), COALESCE(sub_url, ''),
			      COALESCE(display_name, ''), expires_at, COALESCE(language, '')
			  FROM users
			  WHERE expires_at IS NOT NULL
			    AND (expires_at AT TIME ZONE 'UTC')::date = $1::date`
	rows, err := s.DB.QueryContext(ctx, query, day.UTC())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result, err := scanUsers(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// FindExpiredUsers возвращает пользователей, чья подписка истекла строго
// раньше переданного момента.
func (s *Storage) FindExpiredUsers(ctx context.Context, now time.Time) ([]*models.User, error) {
	const op = "storage.FindExpiredUsers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT telegram_id, COALESCE(username, ''), COALESCE(sub_url, ''),
			      COALESCE(display_name, ''), expires_at, COALESCE(language, '')
			  FROM users
			  WHERE expires_at IS NOT NULL
			    AND expires_at < $1`
	rows, err := s.DB.QueryContext(ctx, query, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result, err := scanUsers(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func scanUsers(rows *sql.Rows) ([]*models.User, error) {
	var result []*models.User
	for rows.Next() {
		var item models.User
		var expiresAt sql.NullTime
		if err := rows.Scan(&item.TelegramID, &item.Username, &item.SubURL,
			&item.DisplayName, &expiresAt, &item.Language); err != nil {
			return nil, err
		}
		if expiresAt.Valid {
			item.ExpiresAt = &expiresAt.Time
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
