package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// PanelUser — представление пользователя на внешней панели. Используется
// только в пределах одной операции выдачи и никогда не сохраняется целиком.
// telegram_id хранится сырым: панель отдает его то числом, то строкой, то
// null, и одна кривая запись не должна ломать разбор всего листинга.
type PanelUser struct {
	UUID         string          `json:"uuid"`
	TelegramID   json.RawMessage `json:"telegram_id"`
	StartDate    string          `json:"start_date"`
	PackageDays  int             `json:"package_days"`
	UsageLimitGB float64         `json:"usage_limit_GB"`
	Enable       bool            `json:"enable"`
}

// TelegramIDInt64 возвращает telegram id из листинга панели. Поле может
// отсутствовать или иметь неожиданный тип, такие записи пропускаются.
func (u PanelUser) TelegramIDInt64() (int64, bool) {
	raw := strings.TrimSpace(string(u.TelegramID))
	if raw == "" || raw == "null" {
		return 0, false
	}
	raw = strings.Trim(raw, `"`)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
