package pricing

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"testing"
)

func testMapping() ColumnMapping {
	return ColumnMapping{FieldSKU: "SKU", FieldCost: "Cost", FieldName: "Name"}
}

func testConfig() PricingRunConfig {
	return PricingRunConfig{
		SupplierCode: "acme",
		Mapping:      testMapping(),
		Margins:      MarginConfig{MinGrossMargin: 0.20, MaxGrossMargin: 0.40},
	}
}

func TestPriceRows(t *testing.T) {
	feed, err := ParseFeed("SKU,Cost,Name\nA-1,4.20,Widget\nA-2,$5.00,Gadget\n")
	if err != nil {
		t.Fatalf("ParseFeed() error = %v", err)
	}

	result, err := PriceRows(feed, testConfig())
	if err != nil {
		t.Fatalf("PriceRows() error = %v", err)
	}

	if result.Accepted != 2 || len(result.Rows) != 2 {
		t.Fatalf("accepted %d rows (%d in slice), want 2", result.Accepted, len(result.Rows))
	}
	if !reflect.DeepEqual(result.Marketplaces, DefaultMarketplaces) {
		t.Errorf("marketplaces = %v, want defaults %v", result.Marketplaces, DefaultMarketplaces)
	}

	row := result.Rows[0]
	if row.SupplierCode != "acme" || row.SKU != "A-1" || row.Name != "Widget" {
		t.Errorf("row identity = %+v", row)
	}
	if row.Cost != 4.20 || row.BaseCost != 4.20 {
		t.Errorf("cost = %v, base cost = %v, want 4.20 both", row.Cost, row.BaseCost)
	}
	for _, marketplace := range DefaultMarketplaces {
		band, ok := row.Prices[marketplace]
		if !ok {
			t.Fatalf("no price band for %q", marketplace)
		}
		if math.Abs(band.Min-5.25) > 1e-9 || math.Abs(band.Max-7) > 1e-9 {
			t.Errorf("%s band = %+v, want min 5.25 max 7", marketplace, band)
		}
	}
}

func TestPriceRowsSkipCounters(t *testing.T) {
	feed, err := ParseFeed("SKU,Cost\nA-1,4.20\n,5.00\n   ,5.00\nA-2,n/a\nA-3,\nA-4,6.00\n")
	if err != nil {
		t.Fatalf("ParseFeed() error = %v", err)
	}

	result, err := PriceRows(feed, testConfig())
	if err != nil {
		t.Fatalf("PriceRows() error = %v", err)
	}

	if result.Accepted != 2 {
		t.Errorf("accepted = %d, want 2", result.Accepted)
	}
	if result.SkippedMissingSKU != 2 {
		t.Errorf("skipped missing sku = %d, want 2", result.SkippedMissingSKU)
	}
	if result.SkippedInvalidCost != 2 {
		t.Errorf("skipped invalid cost = %d, want 2", result.SkippedInvalidCost)
	}
	if got := []string{result.Rows[0].SKU, result.Rows[1].SKU}; got[0] != "A-1" || got[1] != "A-4" {
		t.Errorf("surviving rows = %v, want [A-1 A-4]", got)
	}
}

func TestPriceRowsLimit(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("SKU,Cost\n")
	for i := 0; i < 300; i++ {
		fmt.Fprintf(&sb, "A-%d,4.20\n", i)
	}
	feed, err := ParseFeed(sb.String())
	if err != nil {
		t.Fatalf("ParseFeed() error = %v", err)
	}

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{name: "zero means default", limit: 0, want: DefaultPreviewLimit},
		{name: "negative means default", limit: -5, want: DefaultPreviewLimit},
		{name: "explicit limit", limit: 10, want: 10},
		{name: "clamped to maximum", limit: 500, want: MaxPreviewLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Limit = tt.limit
			result, err := PriceRows(feed, cfg)
			if err != nil {
				t.Fatalf("PriceRows() error = %v", err)
			}
			if result.Accepted != tt.want {
				t.Errorf("accepted = %d, want %d", result.Accepted, tt.want)
			}
		})
	}
}

func TestPriceRowsLimitCountsValidRowsOnly(t *testing.T) {
	// Пропущенные строки не расходуют лимит.
	feed, err := ParseFeed("SKU,Cost\n,bad\nA-1,4.20\n,bad\nA-2,5.00\nA-3,6.00\n")
	if err != nil {
		t.Fatalf("ParseFeed() error = %v", err)
	}

	cfg := testConfig()
	cfg.Limit = 2
	result, err := PriceRows(feed, cfg)
	if err != nil {
		t.Fatalf("PriceRows() error = %v", err)
	}
	if result.Accepted != 2 || result.Rows[1].SKU != "A-2" {
		t.Errorf("accepted = %d, rows = %v", result.Accepted, result.Rows)
	}
	if result.SkippedMissingSKU != 2 {
		t.Errorf("skipped missing sku = %d, want 2", result.SkippedMissingSKU)
	}
}

func TestPriceAll(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("SKU,Cost\n")
	for i := 0; i < 300; i++ {
		fmt.Fprintf(&sb, "A-%d,4.20\n", i)
	}
	feed, err := ParseFeed(sb.String())
	if err != nil {
		t.Fatalf("ParseFeed() error = %v", err)
	}

	result, err := PriceAll(feed, testConfig())
	if err != nil {
		t.Fatalf("PriceAll() error = %v", err)
	}
	if result.Accepted != 300 {
		t.Errorf("accepted = %d, want all 300", result.Accepted)
	}
}

func TestPriceRowsDeterminism(t *testing.T) {
	feed, err := ParseFeed("SKU,Cost,Name\nA-1,4.20,Widget\nA-2,5.00,Gadget\nA-3,6.10,Sprocket\n")
	if err != nil {
		t.Fatalf("ParseFeed() error = %v", err)
	}

	cfg := testConfig()
	first, err := PriceRows(feed, cfg)
	if err != nil {
		t.Fatalf("PriceRows() error = %v", err)
	}
	second, err := PriceRows(feed, cfg)
	if err != nil {
		t.Fatalf("PriceRows() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("two runs over the same inputs differ")
	}
}

func TestPriceRowsMappingIncomplete(t *testing.T) {
	feed, err := ParseFeed("SKU,Cost\nA-1,4.20\n")
	if err != nil {
		t.Fatalf("ParseFeed() error = %v", err)
	}

	cfg := testConfig()
	cfg.Mapping = ColumnMapping{FieldSKU: "SKU"}
	if _, err := PriceRows(feed, cfg); !errors.Is(err, ErrMappingIncomplete) {
		t.Fatalf("PriceRows() error = %v, want ErrMappingIncomplete", err)
	}
}

func TestPriceRowsMarginAborts(t *testing.T) {
	feed, err := ParseFeed("SKU,Cost\nA-1,4.20\n")
	if err != nil {
		t.Fatalf("ParseFeed() error = %v", err)
	}

	cfg := testConfig()
	cfg.Margins = MarginConfig{MinGrossMargin: 0.95, MaxGrossMargin: 0.95}
	if _, err := PriceRows(feed, cfg); !errors.Is(err, ErrMarginOutOfRange) {
		t.Fatalf("PriceRows() error = %v, want ErrMarginOutOfRange", err)
	}

	// Комиссия площадки, съедающая знаменатель, тоже прерывает запуск.
	cfg = testConfig()
	cfg.Margins = MarginConfig{MinGrossMargin: 0.50, MaxGrossMargin: 0.50}
	cfg.FeeTable = MarketplaceFeeTable{"amazon": {"default": 0.50}}
	if _, err := PriceRows(feed, cfg); !errors.Is(err, ErrMarginOutOfRange) {
		t.Fatalf("PriceRows() error = %v, want ErrMarginOutOfRange", err)
	}
}

func TestPriceRowsMarketplaceFees(t *testing.T) {
	feed, err := ParseFeed("SKU,Cost\nA-1,7.50\n")
	if err != nil {
		t.Fatalf("ParseFeed() error = %v", err)
	}

	cfg := testConfig()
	cfg.Margins = MarginConfig{MinGrossMargin: 0.25, MaxGrossMargin: 0.25}
	cfg.Marketplaces = []string{"amazon", "shopify"}
	cfg.FeeTable = MarketplaceFeeTable{"amazon": {"default": 0.15}}

	result, err := PriceRows(feed, cfg)
	if err != nil {
		t.Fatalf("PriceRows() error = %v", err)
	}

	row := result.Rows[0]
	if got := row.Prices["amazon"].Min; math.Abs(got-12.50) > 1e-9 {
		t.Errorf("amazon price = %v, want 12.50", got)
	}
	if got := row.Prices["shopify"].Min; math.Abs(got-10) > 1e-9 {
		t.Errorf("shopify price without fee = %v, want 10", got)
	}
}

func TestPriceRowsDims(t *testing.T) {
	feed, err := ParseFeed("SKU,Cost,Length,Width,Height,Weight\nA-1,4.20,10,5,2,1.5\nA-2,5.00,,,,\n")
	if err != nil {
		t.Fatalf("ParseFeed() error = %v", err)
	}

	cfg := testConfig()
	cfg.Mapping = ColumnMapping{
		FieldSKU: "SKU", FieldCost: "Cost",
		FieldLength: "Length", FieldWidth: "Width", FieldHeight: "Height", FieldWeight: "Weight",
	}
	cfg.Shipping = &ShippingConfig{RateTable: []RateTier{{MaxWeight: 2, Cost: 3}, {MaxWeight: 10, Cost: 6}}}

	result, err := PriceRows(feed, cfg)
	if err != nil {
		t.Fatalf("PriceRows() error = %v", err)
	}

	withDims := result.Rows[0]
	want := Dims{Length: 10, Width: 5, Height: 2, Weight: 1.5}
	if withDims.Dims != want {
		t.Errorf("dims = %+v, want %+v", withDims.Dims, want)
	}
	if math.Abs(withDims.BaseCost-7.20) > 1e-9 {
		t.Errorf("base cost with shipping = %v, want 7.20", withDims.BaseCost)
	}

	noDims := result.Rows[1]
	if noDims.Dims != (Dims{}) || noDims.BaseCost != 5.00 {
		t.Errorf("row without dims = %+v, want zero dims and bare cost", noDims)
	}
}

func TestPriceRowsNilFeed(t *testing.T) {
	if _, err := PriceRows(nil, testConfig()); !errors.Is(err, ErrParse) {
		t.Fatalf("PriceRows(nil) error = %v, want ErrParse", err)
	}
}
