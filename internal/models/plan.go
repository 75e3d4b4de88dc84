package models

import (
	"fmt"
	"strings"
)

// Plan представляет тариф из каталога. Каталог неизменяем на время жизни
// процесса, цена в целых единицах валюты (XTR).
type Plan struct {
	Name      string
	Days      int
	TrafficGB int
	Devices   int
	Price     int
}

// ID возвращает детерминированный идентификатор тарифа: слаг из имени и
// атрибутов. Одинаковые атрибуты всегда дают одинаковый идентификатор.
func (p Plan) ID() string {
	base := strings.ReplaceAll(strings.TrimSpace(strings.ToLower(p.Name)), " ", "-")
	return fmt.Sprintf("%s-%dd-%dg-%ddvc", base, p.Days, p.TrafficGB, p.Devices)
}

// DefaultPlans возвращает каталог по умолчанию, когда в конфиге пусто.
func DefaultPlans() []Plan {
	return []Plan{
		{Name: "Lite", Days: 30, TrafficGB: 50, Devices: 2, Price: 100},
		{Name: "Plus", Days: 30, TrafficGB: 200, Devices: 5, Price: 150},
	}
}

// FindPlan ищет тариф по идентификатору.
func FindPlan(plans []Plan, id string) (Plan, bool) {
	for _, p := range plans {
		if p.ID() == id {
			return p, true
		}
	}
	return Plan{}, false
}
