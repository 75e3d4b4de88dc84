package provision

import (
	"context"
	"errors"
)

// BridgeStrategy — выдача через внешний мост к панели. Транспорт моста в
// эту сборку не включён, поэтому включённая стратегия всегда завершается
// ошибкой и цепочка переходит к следующей.
type BridgeStrategy struct {
	url   string
	token string
}

// NewBridgeStrategy создаёт стратегию моста.
func NewBridgeStrategy(url, token string) *BridgeStrategy {
	return &BridgeStrategy{url: url, token: token}
}

// Name возвращает имя стратегии.
func (s *BridgeStrategy) Name() string { return "bridge" }

// Enabled — стратегия активна только при заданных адресе и токене моста.
func (s *BridgeStrategy) Enabled() bool { return s.url != "" && s.token != "" }

// Attempt всегда завершается ошибкой: транспорт моста не подключён.
func (s *BridgeStrategy) Attempt(_ context.Context, _ Request) (*Result, error) {
	return nil, errors.New("bridge transport is not linked into this build")
}
