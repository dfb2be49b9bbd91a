package pricing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultDimDivisor - делитель объемного веса, применяемый когда
// в конфигурации доставки он не задан. Соответствует делителю 139,
// принятому у большинства перевозчиков для дюймов и фунтов.
const DefaultDimDivisor = 139.0

// FeeConfig - фиксированные затраты поставщика на единицу товара.
type FeeConfig struct {
	DropshipFee float64 `json:"dropship_fee"`
	HandlingFee float64 `json:"handling_fee"`
	MiscFee     float64 `json:"misc_fee"`

	// MinProfit - минимальная абсолютная прибыль на единицу.
	// Учитывается только на шаге расчета цены, не в базовой стоимости.
	MinProfit float64 `json:"min_profit,omitempty"`
}

// Dims - габариты упаковки в дюймах и вес в фунтах.
type Dims struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Weight float64 `json:"weight"`
}

// RateTier - ступень тарифной таблицы доставки.
type RateTier struct {
	MaxWeight float64 `json:"max_weight"`
	Cost      float64 `json:"cost"`
}

// ShippingConfig - оценка доставки по габаритам: делитель объемного веса
// и тарифная таблица, отсортированная по возрастанию MaxWeight.
// Таблица всегда задается вызывающим, движок ее не придумывает.
type ShippingConfig struct {
	DimDivisor float64    `json:"dim_divisor"`
	RateTable  []RateTier `json:"rate_table"`
}

// ParseCost разбирает стоимость из строки, которая может содержать символ
// валюты и разделители ("$1,234.50"). Все символы вне [0-9.-] отбрасываются.
// Если после очистки не остается конечного числа, возвращается ErrInvalidCost.
func ParseCost(raw string) (float64, error) {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}

	cleaned := b.String()
	if cleaned == "" {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCost, raw)
	}

	cost, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(cost) || math.IsInf(cost, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCost, raw)
	}

	return cost, nil
}

// BillableWeight возвращает оплачиваемый вес: максимум фактического
// и объемного (L*W*H / divisor).
func BillableWeight(dims Dims, divisor float64) float64 {
	if divisor <= 0 {
		divisor = DefaultDimDivisor
	}
	dimWeight := dims.Length * dims.Width * dims.Height / divisor
	return math.Max(dims.Weight, dimWeight)
}

// Estimate возвращает стоимость доставки для заданных габаритов.
// Выбирается первая ступень таблицы, чей MaxWeight покрывает оплачиваемый вес;
// если вес больше всех ступеней, используется последняя. Пустая таблица дает 0.
func (s *ShippingConfig) Estimate(dims Dims) float64 {
	if s == nil || len(s.RateTable) == 0 {
		return 0
	}

	billable := BillableWeight(dims, s.DimDivisor)
	for _, tier := range s.RateTable {
		if tier.MaxWeight >= billable {
			return tier.Cost
		}
	}
	return s.RateTable[len(s.RateTable)-1].Cost
}

// ComputeBaseCost считает полную себестоимость единицы: закупочная цена
// плюс фиксированные сборы поставщика плюс оценка доставки.
// MinProfit сюда не входит: базовая стоимость остается суммой реальных затрат.
func ComputeBaseCost(cost float64, fees FeeConfig, dims *Dims, shipping *ShippingConfig) float64 {
	base := cost + fees.DropshipFee + fees.HandlingFee + fees.MiscFee
	if dims != nil {
		base += shipping.Estimate(*dims)
	}
	return base
}
