// Package expiry содержит чистую арифметику продления подписки.
// Функции не ходят в сеть и тестируются изолированно.
package expiry

import "time"

// ComputeExtension вычисляет новый срок подписки.
//
// Продление отсчитывается от более поздней из двух точек: текущего окончания
// или момента now. Истекшая подписка продлевается от now, действующая — от
// своего окончания, поэтому продление всегда аддитивно и никогда не
// сокращает оставшийся срок.
//
// Возвращает дату старта (исходную или now), новое значение package_days для
// панели (не меньше 1) и новый момент окончания.
func ComputeExtension(oldStart *time.Time, oldPackageDays, extendDays int, now time.Time) (time.Time, int, time.Time) {
	start := now
	if oldStart != nil {
		start = *oldStart
	}
	currentExpiry := start.AddDate(0, 0, oldPackageDays)

	anchor := currentExpiry
	if now.After(anchor) {
		anchor = now
	}
	newExpiry := anchor.AddDate(0, 0, extendDays)

	// package_days панели считается от исходного старта; дробные сутки
	// отбрасываются, как в панельном API.
	newPackageDays := int(newExpiry.Sub(start).Hours() / 24)
	if newPackageDays < 1 {
		newPackageDays = 1
	}
	return start, newPackageDays, newExpiry
}
