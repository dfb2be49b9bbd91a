package pricing

import (
	"encoding/csv"
	"strconv"
	"strings"
)

// Канонический порядок колонок выгрузки. Порядок фиксирован и является
// частью контракта с потребителями файла.
var ExportColumns = []string{
	"supplier_code", "sku", "product_name", "brand", "upc",
	"cost", "length_in", "width_in", "height_in", "weight_lb",
	"dropship_fee", "handling_fee", "misc_fee", "base_cost",
	"min_margin", "max_margin",
	"amazon_min_price", "amazon_max_price",
	"shopify_min_price", "shopify_max_price",
	"walmart_min_price", "walmart_max_price",
}

// Порядок площадок в колонках выгрузки.
var exportMarketplaces = []string{"amazon", "shopify", "walmart"}

// ExportCSV сериализует расчитанные строки в CSV с каноническим порядком
// колонок. Денежные поля выводятся с двумя знаками, маржа - долями.
// Поля с запятыми, кавычками и переводами строк экранируются по RFC 4180.
// Гарантируется обратимость: ParseFeed над результатом восстанавливает
// те же значения ячеек.
func ExportCSV(rows []PricedRow) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write(ExportColumns); err != nil {
		return "", err
	}

	record := make([]string, len(ExportColumns))
	for _, row := range rows {
		record = record[:0]
		record = append(record,
			row.SupplierCode,
			row.SKU,
			row.Name,
			row.Brand,
			row.UPC,
			money(row.Cost),
			number(row.Dims.Length),
			number(row.Dims.Width),
			number(row.Dims.Height),
			number(row.Dims.Weight),
			money(row.Fees.DropshipFee),
			money(row.Fees.HandlingFee),
			money(row.Fees.MiscFee),
			money(row.BaseCost),
			fraction(row.MinMargin),
			fraction(row.MaxMargin),
		)
		for _, marketplace := range exportMarketplaces {
			band := row.Prices[marketplace]
			record = append(record, money(band.Min), money(band.Max))
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}

	w.Flush()
	return sb.String(), w.Error()
}

// money форматирует денежную величину с фиксированными двумя знаками.
func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// fraction форматирует долю маржи без хвостовых нулей ("0.25").
func fraction(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// number форматирует габарит без хвостовых нулей.
func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
