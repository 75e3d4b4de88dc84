package provision

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/vpn-telegram-bot/internal/models"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStrategy struct {
	name     string
	enabled  bool
	result   *Result
	err      error
	attempts int
}

func (f *fakeStrategy) Name() string  { return f.name }
func (f *fakeStrategy) Enabled() bool { return f.enabled }
func (f *fakeStrategy) Attempt(_ context.Context, _ Request) (*Result, error) {
	f.attempts++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeNotifier struct {
	calls []string
}

func (f *fakeNotifier) NotifyAdmins(_ context.Context, text string) {
	f.calls = append(f.calls, text)
}

func newTestService(notifier AdminNotifier, domain string, strategies ...Strategy) *Service {
	return &Service{
		log:           newNoopLogger(),
		strategies:    strategies,
		notifier:      notifier,
		subLinkDomain: domain,
		retryDelays:   []time.Duration{0, 0, 0},
		now:           func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func testRequest() Request {
	return Request{
		TelegramID: 42,
		Username:   "alice",
		Plan:       models.Plan{Name: "Lite", Days: 30, TrafficGB: 50, Devices: 2, Price: 100},
		Language:   "ru",
	}
}

func TestProvisionFirstSuccessStopsChain(t *testing.T) {
	expiresAt := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	first := &fakeStrategy{name: "one", enabled: true, result: &Result{
		SubURL:      "https://vpn.example.com/proxy/u1/#tg-alice",
		DisplayName: "tg-alice",
		ExpiresAt:   &expiresAt,
	}}
	second := &fakeStrategy{name: "two", enabled: true, result: &Result{SubURL: "unused"}}
	notifier := &fakeNotifier{}

	res := newTestService(notifier, "", first, second).Provision(context.Background(), testRequest())

	assert.Equal(t, "https://vpn.example.com/proxy/u1/#tg-alice", res.SubURL)
	assert.Equal(t, "tg-alice", res.DisplayName)
	assert.False(t, res.Fallback)
	assert.Equal(t, 1, first.attempts)
	assert.Equal(t, 0, second.attempts)
	assert.Empty(t, notifier.calls)
}

func TestProvisionDisabledStrategySkipped(t *testing.T) {
	disabled := &fakeStrategy{name: "off", enabled: false, err: errors.New("must not run")}
	working := &fakeStrategy{name: "on", enabled: true, result: &Result{SubURL: "https://ok"}}

	res := newTestService(nil, "", disabled, working).Provision(context.Background(), testRequest())

	assert.Equal(t, "https://ok", res.SubURL)
	assert.Equal(t, 0, disabled.attempts)
}

func TestProvisionFallsThroughToNextStrategy(t *testing.T) {
	failing := &fakeStrategy{name: "flaky", enabled: true, err: errors.New("boom")}
	working := &fakeStrategy{name: "stable", enabled: true, result: &Result{SubURL: "https://ok"}}

	res := newTestService(nil, "", failing, working).Provision(context.Background(), testRequest())

	// Первый же прогон цепочки доходит до рабочей стратегии.
	assert.Equal(t, 1, failing.attempts)
	assert.Equal(t, 1, working.attempts)
	assert.Equal(t, "https://ok", res.SubURL)
	assert.False(t, res.Fallback)
}

func TestProvisionRetriesWholeChainThreeTimes(t *testing.T) {
	failing := &fakeStrategy{name: "flaky", enabled: true, err: errors.New("boom")}

	res := newTestService(&fakeNotifier{}, "", failing).Provision(context.Background(), testRequest())

	assert.Equal(t, 3, failing.attempts)
	assert.True(t, res.Fallback)
}

func TestProvisionFallbackAfterTotalFailure(t *testing.T) {
	failing := &fakeStrategy{name: "panel_api", enabled: true, err: errors.New("panel is down")}
	notifier := &fakeNotifier{}

	res := newTestService(notifier, "https://sub.example.com/", failing).Provision(context.Background(), testRequest())

	assert.True(t, res.Fallback)
	assert.True(t, strings.HasPrefix(res.SubURL, "https://sub.example.com/sub/"), res.SubURL)
	require.NotNil(t, res.ExpiresAt)
	assert.Equal(t, time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC), *res.ExpiresAt)

	require.Len(t, notifier.calls, 1)
	assert.Contains(t, notifier.calls[0], "user 42")
	assert.Contains(t, notifier.calls[0], "panel is down")
}

func TestProvisionFallbackWithoutDomainUsesSentinel(t *testing.T) {
	failing := &fakeStrategy{name: "panel_api", enabled: true, err: errors.New("down")}

	res := newTestService(&fakeNotifier{}, "", failing).Provision(context.Background(), testRequest())

	assert.True(t, res.Fallback)
	assert.True(t, strings.HasPrefix(res.SubURL, "https://example.invalid/sub/"), res.SubURL)
}

func TestProvisionFallbackWhenNoStrategyEnabled(t *testing.T) {
	notifier := &fakeNotifier{}

	res := newTestService(notifier, "", &fakeStrategy{name: "off", enabled: false}).
		Provision(context.Background(), testRequest())

	assert.True(t, res.Fallback)
	require.Len(t, notifier.calls, 1)
}

func TestAdminReportTruncatesErrors(t *testing.T) {
	s := newTestService(nil, "")
	failures := []error{
		errors.New("e1"), errors.New("e2"), errors.New("e3"),
		errors.New("e4"), errors.New("e5"),
	}

	report := s.adminReport(testRequest(), failures)

	assert.Contains(t, report, "e1")
	assert.Contains(t, report, "e3")
	assert.NotContains(t, report, "e4")
	assert.Contains(t, report, "2 more errors")
}
