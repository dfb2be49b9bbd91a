package pricing

import (
	"errors"
	"reflect"
	"testing"
)

func TestGuessHeader(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		field   Field
		want    string
	}{
		{
			name:    "exact match beats synonym order",
			headers: []string{"Wholesale Price", "Cost"},
			field:   FieldCost,
			want:    "Cost",
		},
		{
			name:    "case insensitive exact",
			headers: []string{"SKU"},
			field:   FieldSKU,
			want:    "SKU",
		},
		{
			name:    "item sku preferred over bare substring",
			headers: []string{"SKU Description", "Item SKU"},
			field:   FieldSKU,
			want:    "Item SKU",
		},
		{
			name:    "wholesale synonym for cost",
			headers: []string{"Wholesale Price", "MSRP"},
			field:   FieldCost,
			want:    "Wholesale Price",
		},
		{
			name:    "barcode synonym for upc",
			headers: []string{"Barcode"},
			field:   FieldUPC,
			want:    "Barcode",
		},
		{
			name:    "list price maps to msrp",
			headers: []string{"List Price"},
			field:   FieldMSRP,
			want:    "List Price",
		},
		{
			name:    "no candidate",
			headers: []string{"Color", "Size"},
			field:   FieldCost,
			want:    "",
		},
		{
			name:    "earlier header wins within a rule",
			headers: []string{"Shipping Weight", "Item Weight"},
			field:   FieldWeight,
			want:    "Shipping Weight",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GuessHeader(tt.headers, tt.field); got != tt.want {
				t.Errorf("GuessHeader(%v, %q) = %q, want %q", tt.headers, tt.field, got, tt.want)
			}
		})
	}
}

func TestGuessMapping(t *testing.T) {
	headers := []string{"Item SKU", "Dealer Cost", "Product Name", "Brand", "UPC", "Weight (lbs)", "MSRP"}

	want := ColumnMapping{
		FieldSKU:    "Item SKU",
		FieldCost:   "Dealer Cost",
		FieldName:   "Product Name",
		FieldBrand:  "Brand",
		FieldUPC:    "UPC",
		FieldWeight: "Weight (lbs)",
		FieldMSRP:   "MSRP",
	}

	got := GuessMapping(headers)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GuessMapping() = %v, want %v", got, want)
	}
	if _, ok := got[FieldLength]; ok {
		t.Error("GuessMapping() mapped length with no candidate header")
	}
}

func TestColumnMappingValidate(t *testing.T) {
	headers := []string{"SKU", "Cost", "Name"}

	tests := []struct {
		name    string
		mapping ColumnMapping
		wantErr bool
	}{
		{
			name:    "required fields mapped",
			mapping: ColumnMapping{FieldSKU: "SKU", FieldCost: "Cost"},
		},
		{
			name:    "optional fields may stay unmapped",
			mapping: ColumnMapping{FieldSKU: "SKU", FieldCost: "Cost", FieldName: "Name"},
		},
		{
			name:    "missing cost",
			mapping: ColumnMapping{FieldSKU: "SKU"},
			wantErr: true,
		},
		{
			name:    "empty value counts as unmapped",
			mapping: ColumnMapping{FieldSKU: "SKU", FieldCost: ""},
			wantErr: true,
		},
		{
			name:    "mapped column absent from feed",
			mapping: ColumnMapping{FieldSKU: "SKU", FieldCost: "Price"},
			wantErr: true,
		},
		{
			name:    "nil mapping",
			mapping: nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mapping.Validate(headers)
			if tt.wantErr {
				if !errors.Is(err, ErrMappingIncomplete) {
					t.Fatalf("Validate() error = %v, want ErrMappingIncomplete", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
		})
	}
}
