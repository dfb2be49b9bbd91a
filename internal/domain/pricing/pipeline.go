package pricing

import (
	"fmt"
	"strings"
)

// Лимиты предпросмотра: по умолчанию считаются первые 25 валидных строк,
// верхняя граница защищает размер ответа API.
const (
	DefaultPreviewLimit = 25
	MaxPreviewLimit     = 200
)

// DefaultMarketplaces - целевые площадки, если конфигурация не задает свои.
var DefaultMarketplaces = []string{"amazon", "shopify", "walmart"}

// PricingRunConfig - полный набор входов одного детерминированного расчета.
// Конфигурация принадлежит вызывающему (слою конфигурации и хранения),
// движок ее только читает.
type PricingRunConfig struct {
	SupplierCode string              `json:"supplier_code"`
	Mapping      ColumnMapping       `json:"mapping"`
	Fees         FeeConfig           `json:"fees"`
	Margins      MarginConfig        `json:"margins"`
	Shipping     *ShippingConfig     `json:"shipping,omitempty"`
	FeeTable     MarketplaceFeeTable `json:"fee_table,omitempty"`
	Marketplaces []string            `json:"marketplaces,omitempty"`
	Category     string              `json:"category,omitempty"`
	SellMode     SellPriceMode       `json:"sell_mode,omitempty"`
	Rounding     RoundingMode        `json:"rounding,omitempty"`

	// Limit ограничивает число валидных строк в предпросмотре.
	// Ноль и отрицательные значения дают DefaultPreviewLimit,
	// значения выше MaxPreviewLimit усекаются.
	Limit int `json:"limit,omitempty"`
}

// PricedRow - одна расчитанная строка. Создается заново при каждом запуске
// и после создания не изменяется.
type PricedRow struct {
	SupplierCode string               `json:"supplier_code"`
	SKU          string               `json:"sku"`
	Name         string               `json:"name,omitempty"`
	Brand        string               `json:"brand,omitempty"`
	UPC          string               `json:"upc,omitempty"`
	Cost         float64              `json:"cost"`
	Dims         Dims                 `json:"dims"`
	Fees         FeeConfig            `json:"fees"`
	BaseCost     float64              `json:"base_cost"`
	MinMargin    float64              `json:"min_margin"`
	MaxMargin    float64              `json:"max_margin"`
	Prices       map[string]PriceBand `json:"prices"`
}

// PricingResult - итог расчета: принятые строки и счетчики пропусков.
// Пропущенные строки не попадают в результат и не считаются ошибками.
type PricingResult struct {
	Rows               []PricedRow `json:"rows"`
	Accepted           int         `json:"accepted"`
	SkippedMissingSKU  int         `json:"skipped_missing_sku"`
	SkippedInvalidCost int         `json:"skipped_invalid_cost"`
	Marketplaces       []string    `json:"marketplaces"`
}

// PriceRows применяет модель себестоимости и расчет маржи к строкам фида
// в порядке файла, останавливаясь после Limit валидных строк.
//
// Строка пропускается (без ошибки), если SKU пуст или стоимость не число.
// Ошибки маппинга и маржи фатальны для всего запуска. Функция чистая:
// одинаковые входы всегда дают одинаковый результат, состояние не изменяется.
func PriceRows(feed *RawFeed, cfg PricingRunConfig) (*PricingResult, error) {
	return run(feed, cfg, clampLimit(cfg.Limit))
}

// PriceAll считает все строки фида без лимита предпросмотра.
// Используется для полного запуска с выгрузкой в CSV.
func PriceAll(feed *RawFeed, cfg PricingRunConfig) (*PricingResult, error) {
	return run(feed, cfg, 0)
}

func run(feed *RawFeed, cfg PricingRunConfig, limit int) (*PricingResult, error) {
	if feed == nil {
		return nil, fmt.Errorf("%w: nil feed", ErrParse)
	}
	if err := cfg.Mapping.Validate(feed.Headers); err != nil {
		return nil, err
	}

	marketplaces := cfg.Marketplaces
	if len(marketplaces) == 0 {
		marketplaces = DefaultMarketplaces
	}

	category := cfg.Category
	if category == "" {
		category = "default"
	}

	margins := cfg.Margins.Normalize()
	result := &PricingResult{Marketplaces: marketplaces}

	for _, row := range feed.Rows {
		if limit > 0 && result.Accepted >= limit {
			break
		}

		sku := strings.TrimSpace(feed.Cell(row, cfg.Mapping[FieldSKU]))
		if sku == "" {
			result.SkippedMissingSKU++
			continue
		}

		cost, err := ParseCost(feed.Cell(row, cfg.Mapping[FieldCost]))
		if err != nil {
			result.SkippedInvalidCost++
			continue
		}

		dims := readDims(feed, row, cfg.Mapping)
		baseCost := ComputeBaseCost(cost, cfg.Fees, dims, cfg.Shipping)

		priced := PricedRow{
			SupplierCode: cfg.SupplierCode,
			SKU:          sku,
			Name:         strings.TrimSpace(feed.Cell(row, cfg.Mapping[FieldName])),
			Brand:        strings.TrimSpace(feed.Cell(row, cfg.Mapping[FieldBrand])),
			UPC:          strings.TrimSpace(feed.Cell(row, cfg.Mapping[FieldUPC])),
			Cost:         cost,
			Fees:         cfg.Fees,
			BaseCost:     baseCost,
			MinMargin:    margins.MinGrossMargin,
			MaxMargin:    margins.MaxGrossMargin,
			Prices:       make(map[string]PriceBand, len(marketplaces)),
		}
		if dims != nil {
			priced.Dims = *dims
		}

		for _, marketplace := range marketplaces {
			fee := cfg.FeeTable.FeeFor(marketplace, category)
			band, err := SolveBand(baseCost, margins, fee, cfg.Fees.MinProfit, cfg.SellMode)
			if err != nil {
				return nil, fmt.Errorf("marketplace %q: %w", marketplace, err)
			}
			priced.Prices[marketplace] = band.Round(cfg.Rounding)
		}

		result.Rows = append(result.Rows, priced)
		result.Accepted++
	}

	return result, nil
}

// readDims извлекает габариты из сопоставленных колонок.
// Возвращает nil, если ни одна колонка габаритов не сопоставлена
// или ни одно значение не разобралось.
func readDims(feed *RawFeed, row []string, mapping ColumnMapping) *Dims {
	parse := func(field Field) (float64, bool) {
		header := mapping[field]
		if header == "" {
			return 0, false
		}
		v, err := ParseCost(feed.Cell(row, header))
		if err != nil || v < 0 {
			return 0, false
		}
		return v, true
	}

	var dims Dims
	var any bool
	if v, ok := parse(FieldLength); ok {
		dims.Length = v
		any = true
	}
	if v, ok := parse(FieldWidth); ok {
		dims.Width = v
		any = true
	}
	if v, ok := parse(FieldHeight); ok {
		dims.Height = v
		any = true
	}
	if v, ok := parse(FieldWeight); ok {
		dims.Weight = v
		any = true
	}

	if !any {
		return nil
	}
	return &dims
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPreviewLimit
	}
	if limit > MaxPreviewLimit {
		return MaxPreviewLimit
	}
	return limit
}
