package pricing

import (
	"reflect"
	"strings"
	"testing"
)

func exportTestRow() PricedRow {
	return PricedRow{
		SupplierCode: "acme",
		SKU:          "A-1",
		Name:         "Widget",
		Brand:        "Acme",
		UPC:          "012345678905",
		Cost:         4.20,
		Dims:         Dims{Length: 10, Width: 5, Height: 2, Weight: 1.5},
		Fees:         FeeConfig{DropshipFee: 1.50, HandlingFee: 0.50, MiscFee: 0.25},
		BaseCost:     6.45,
		MinMargin:    0.20,
		MaxMargin:    0.40,
		Prices: map[string]PriceBand{
			"amazon":  {Min: 8.06, Max: 10.75},
			"shopify": {Min: 8.06, Max: 10.75},
			"walmart": {Min: 8.06, Max: 10.75},
		},
	}
}

func TestExportCSV(t *testing.T) {
	out, err := ExportCSV([]PricedRow{exportTestRow()})
	if err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}

	feed, err := ParseFeed(out)
	if err != nil {
		t.Fatalf("ParseFeed(export) error = %v", err)
	}

	if !reflect.DeepEqual(feed.Headers, ExportColumns) {
		t.Errorf("header row = %v, want %v", feed.Headers, ExportColumns)
	}
	if len(feed.Rows) != 1 {
		t.Fatalf("exported %d rows, want 1", len(feed.Rows))
	}

	row := feed.Rows[0]
	want := map[string]string{
		"supplier_code":    "acme",
		"sku":              "A-1",
		"product_name":     "Widget",
		"brand":            "Acme",
		"upc":              "012345678905",
		"cost":             "4.20",
		"length_in":        "10",
		"width_in":         "5",
		"height_in":        "2",
		"weight_lb":        "1.5",
		"dropship_fee":     "1.50",
		"handling_fee":     "0.50",
		"misc_fee":         "0.25",
		"base_cost":        "6.45",
		"min_margin":       "0.2",
		"max_margin":       "0.4",
		"amazon_min_price": "8.06",
		"amazon_max_price": "10.75",
		"walmart_min_price": "8.06",
	}
	for column, value := range want {
		if got := feed.Cell(row, column); got != value {
			t.Errorf("column %q = %q, want %q", column, got, value)
		}
	}
}

func TestExportCSVEscaping(t *testing.T) {
	row := exportTestRow()
	row.Name = `Widget, "large"` + "\nsecond line"

	out, err := ExportCSV([]PricedRow{row})
	if err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}

	feed, err := ParseFeed(out)
	if err != nil {
		t.Fatalf("ParseFeed(export) error = %v", err)
	}
	if got := feed.Cell(feed.Rows[0], "product_name"); got != row.Name {
		t.Errorf("round-tripped name = %q, want %q", got, row.Name)
	}
}

func TestExportCSVEmpty(t *testing.T) {
	out, err := ExportCSV(nil)
	if err != nil {
		t.Fatalf("ExportCSV(nil) error = %v", err)
	}
	if got := strings.TrimRight(out, "\n"); got != strings.Join(ExportColumns, ",") {
		t.Errorf("empty export = %q, want header row only", got)
	}
}

func TestExportCSVMissingMarketplace(t *testing.T) {
	row := exportTestRow()
	delete(row.Prices, "walmart")

	out, err := ExportCSV([]PricedRow{row})
	if err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}

	feed, err := ParseFeed(out)
	if err != nil {
		t.Fatalf("ParseFeed(export) error = %v", err)
	}
	if got := feed.Cell(feed.Rows[0], "walmart_min_price"); got != "0.00" {
		t.Errorf("missing marketplace min = %q, want 0.00", got)
	}
	if len(feed.Rows[0]) != len(ExportColumns) {
		t.Errorf("row has %d columns, want %d", len(feed.Rows[0]), len(ExportColumns))
	}
}
