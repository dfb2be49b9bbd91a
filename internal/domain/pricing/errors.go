package pricing

import (
	"errors"
	"fmt"
)

// Ошибки уровня запуска: прерывают весь расчет и возвращаются вызывающему.
// Ошибки уровня строки (ErrInvalidCost, ErrMissingSKU) поглощаются конвейером
// в счетчики пропущенных строк и наружу не выходят.
var (
	// ErrParse - входной текст пуст или не является корректным CSV
	ErrParse = errors.New("pricing: malformed or empty feed")

	// ErrMappingIncomplete - обязательные поля (sku, cost) не сопоставлены с колонками фида
	ErrMappingIncomplete = errors.New("pricing: required column mapping is incomplete")

	// ErrInvalidCost - ячейка стоимости не является конечным числом после очистки
	ErrInvalidCost = errors.New("pricing: cost is not a finite number")

	// ErrMarginOutOfRange - маржа (или маржа + комиссия маркетплейса) делает знаменатель
	// формулы цены неположительным
	ErrMarginOutOfRange = errors.New("pricing: margin out of range")

	// ErrMissingSKU - ячейка SKU пуста
	ErrMissingSKU = errors.New("pricing: sku cell is empty")
)

// MarginRangeError содержит значения, из-за которых расчет цены невозможен.
// Совместима с errors.Is(err, ErrMarginOutOfRange).
type MarginRangeError struct {
	Margin         float64
	MarketplaceFee float64
}

func (e *MarginRangeError) Error() string {
	if e.MarketplaceFee > 0 {
		return fmt.Sprintf("pricing: margin %.4f + marketplace fee %.4f out of range", e.Margin, e.MarketplaceFee)
	}
	return fmt.Sprintf("pricing: margin %.4f out of range [%.2f, %.2f]", e.Margin, MinMarginFraction, MaxMarginFraction)
}

func (e *MarginRangeError) Unwrap() error {
	return ErrMarginOutOfRange
}
