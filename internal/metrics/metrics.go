// Package metrics объявляет счётчики Prometheus для пайплайна выдачи
// подписок и фоновых задач.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProvisionAttempts считает попытки выдачи по стратегиям и исходам.
	ProvisionAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpnbot_provision_attempts_total",
		Help: "Provisioning attempts by strategy and outcome.",
	}, []string{"strategy", "outcome"})

	// ProvisionFallbacks считает выдачи, завершившиеся ссылкой-заглушкой.
	ProvisionFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vpnbot_provision_fallbacks_total",
		Help: "Provisioning runs that ended with a placeholder link.",
	})

	// RemindersPublished считает опубликованные напоминания по ключу
	// маршрутизации.
	RemindersPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpnbot_reminders_published_total",
		Help: "Reminder messages published to the queue by routing key.",
	}, []string{"routing_key"})

	// SuspensionsApplied считает приостановленных в панели пользователей.
	SuspensionsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vpnbot_suspensions_applied_total",
		Help: "Expired panel users disabled by the suspend sweep.",
	})

	// WebhookUpdates считает принятые вебхуком обновления по типу.
	WebhookUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vpnbot_webhook_updates_total",
		Help: "Webhook updates accepted by update type.",
	}, []string{"type"})
)
