package provision

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// CLIStrategy выдаёт подписку внешней командой. Шаблон команды берётся из
// конфигурации, плейсхолдеры {telegram_id}, {username} и {plan_id}
// подставляются перед запуском. Команда обязана напечатать в stdout JSON
// с полем sub_url.
type CLIStrategy struct {
	tmpl    string
	timeout time.Duration
}

type cliOutput struct {
	SubURL      string `json:"sub_url"`
	DisplayName string `json:"display_name"`
	ExpiresAt   string `json:"expires_at"`
}

// NewCLIStrategy создаёт стратегию внешней команды.
func NewCLIStrategy(tmpl string, timeout time.Duration) *CLIStrategy {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &CLIStrategy{tmpl: tmpl, timeout: timeout}
}

// Name возвращает имя стратегии.
func (s *CLIStrategy) Name() string { return "cli" }

// Enabled — стратегия активна при непустом шаблоне команды.
func (s *CLIStrategy) Enabled() bool { return s.tmpl != "" }

// Attempt запускает команду и разбирает её stdout.
func (s *CLIStrategy) Attempt(ctx context.Context, req Request) (*Result, error) {
	const op = "provision.CLIStrategy.Attempt"

	command := strings.NewReplacer(
		"{telegram_id}", strconv.FormatInt(req.TelegramID, 10),
		"{username}", req.Username,
		"{plan_id}", req.Plan.ID(),
	).Replace(s.tmpl)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "sh", "-c", command).Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var parsed cliOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if parsed.SubURL == "" {
		return nil, fmt.Errorf("%s: command output has no sub_url", op)
	}

	res := &Result{SubURL: parsed.SubURL, DisplayName: parsed.DisplayName}
	if parsed.ExpiresAt != "" {
		expiresAt, err := time.Parse(time.RFC3339, parsed.ExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("%s: bad expires_at: %w", op, err)
		}
		res.ExpiresAt = &expiresAt
	}
	return res, nil
}
