// Package errs описывает таксономию ошибок внешних взаимодействий.
// Отказ стратегии выдачи — обычное значение, которое передается по цепочке,
// а не паника и не исключение.
package errs

import (
	"errors"
	"fmt"
)

// ErrNotConfigured означает, что внешняя панель не настроена: операция
// недоступна и пользователю показывается информационное сообщение.
var ErrNotConfigured = errors.New("panel is not configured")

// ErrNotFound означает отсутствие записи во внешней системе.
var ErrNotFound = errors.New("not found")

// ErrMalformedResponse означает неожиданную форму ответа внешней системы.
var ErrMalformedResponse = errors.New("malformed response")

// ProvisionError описывает отказ одной стратегии выдачи подписки.
type ProvisionError struct {
	Strategy string
	Err      error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Strategy, e.Err)
}

func (e *ProvisionError) Unwrap() error {
	return e.Err
}
