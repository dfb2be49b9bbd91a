package pricing

import "math"

// Допустимая полоса валовой маржи. Значения вне полосы отклоняются,
// а не приводятся к границе: молчаливая подмена маржи искажала бы цены.
const (
	MinMarginFraction = 0.01
	MaxMarginFraction = 0.90
)

// MarginConfig - границы валовой маржи поставщика, доли в [0, 0.99].
type MarginConfig struct {
	MinGrossMargin float64 `json:"min_gross_margin"`
	MaxGrossMargin float64 `json:"max_gross_margin"`
}

// Normalize приводит конфигурацию к инварианту min <= max:
// при нарушении максимум подтягивается вверх до минимума.
func (m MarginConfig) Normalize() MarginConfig {
	if m.MaxGrossMargin < m.MinGrossMargin {
		m.MaxGrossMargin = m.MinGrossMargin
	}
	return m
}

// RoundingMode - способ округления итоговой цены.
type RoundingMode string

const (
	// RoundCents - округление до центов, половина вверх
	RoundCents RoundingMode = "cents"
	// RoundEndsIn99 - вниз до целого доллара минус один цент (12.60 -> 11.99)
	RoundEndsIn99 RoundingMode = "endsIn99"
	// RoundNone - без округления
	RoundNone RoundingMode = "none"
)

// SellPriceMode - какая точка ценовой полосы считается целевой ценой.
type SellPriceMode string

const (
	SellModeMin SellPriceMode = "min"
	SellModeMid SellPriceMode = "mid"
	SellModeMax SellPriceMode = "max"
)

// PriceBand - полоса цен для одного маркетплейса. Значения до округления
// удовлетворяют обратной проверке маржи; округление применяется отдельно
// как финальный шаг форматирования.
type PriceBand struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Target float64 `json:"target"`
}

// MarketplaceFeeTable - комиссии маркетплейсов: имя площадки -> категория
// (или "default") -> доля комиссии.
type MarketplaceFeeTable map[string]map[string]float64

// FeeFor возвращает долю комиссии площадки для категории.
// Неизвестная категория откатывается на "default", неизвестная площадка дает 0.
func (t MarketplaceFeeTable) FeeFor(marketplace, category string) float64 {
	categories, ok := t[marketplace]
	if !ok {
		return 0
	}
	if fee, ok := categories[category]; ok {
		return fee
	}
	return categories["default"]
}

// SolvePrice решает уравнение валовой маржи относительно цены:
// margin = (price - cost) / price, откуда price = cost / (1 - margin).
// Комиссия маркетплейса складывается с маржой в знаменателе, чтобы целевая
// маржа сохранялась после удержания комиссии. Если задан minProfit,
// эффективная себестоимость поднимается до baseCost + minProfit.
//
// Маржа вне [MinMarginFraction, MaxMarginFraction] или неположительный
// знаменатель дают ErrMarginOutOfRange: отрицательные и бесконечные цены
// не возвращаются никогда.
func SolvePrice(baseCost, margin, marketplaceFee, minProfit float64) (float64, error) {
	if margin < MinMarginFraction || margin > MaxMarginFraction {
		return 0, &MarginRangeError{Margin: margin, MarketplaceFee: marketplaceFee}
	}

	denom := 1 - margin - marketplaceFee
	if denom <= 0 {
		return 0, &MarginRangeError{Margin: margin, MarketplaceFee: marketplaceFee}
	}

	effectiveCost := baseCost
	if minProfit > 0 {
		effectiveCost = math.Max(baseCost, baseCost+minProfit)
	}

	return effectiveCost / denom, nil
}

// SolveBand считает полосу цен по границам маржи и выбирает целевую цену
// согласно mode. Цены возвращаются неокругленными.
func SolveBand(baseCost float64, margins MarginConfig, marketplaceFee, minProfit float64, mode SellPriceMode) (PriceBand, error) {
	margins = margins.Normalize()

	minPrice, err := SolvePrice(baseCost, margins.MinGrossMargin, marketplaceFee, minProfit)
	if err != nil {
		return PriceBand{}, err
	}

	maxPrice, err := SolvePrice(baseCost, margins.MaxGrossMargin, marketplaceFee, minProfit)
	if err != nil {
		return PriceBand{}, err
	}

	band := PriceBand{Min: minPrice, Max: maxPrice}
	switch mode {
	case SellModeMid:
		band.Target = (minPrice + maxPrice) / 2
	case SellModeMax:
		band.Target = maxPrice
	default:
		band.Target = minPrice
	}

	return band, nil
}

// AchievedMargin - обратная проверка: фактическая валовая маржа цены.
func AchievedMargin(price, baseCost float64) float64 {
	if price == 0 {
		return 0
	}
	return (price - baseCost) / price
}

// ROI - возврат на вложения относительно себестоимости без комиссии площадки.
func ROI(price, cost float64) float64 {
	if cost == 0 {
		return 0
	}
	return (price - cost) / cost
}

// RoundPrice применяет режим округления к цене. Вызывается только после
// всех проверок маржи: округление - шаг форматирования, не расчета.
func RoundPrice(price float64, mode RoundingMode) float64 {
	switch mode {
	case RoundCents:
		return math.Floor(price*100+0.5) / 100
	case RoundEndsIn99:
		// Цене меньше доллара округлять вниз некуда: Floor дал бы -0.01.
		// Такая цена остается неокругленной, отрицательной стать не может.
		if math.Floor(price) < 1 {
			return price
		}
		return math.Floor(price) - 0.01
	default:
		return price
	}
}

// Round применяет режим округления ко всем ценам полосы.
func (b PriceBand) Round(mode RoundingMode) PriceBand {
	return PriceBand{
		Min:    RoundPrice(b.Min, mode),
		Max:    RoundPrice(b.Max, mode),
		Target: RoundPrice(b.Target, mode),
	}
}
