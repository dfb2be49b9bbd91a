package pricing

import (
	"errors"
	"math"
	"testing"
)

func TestParseCost(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    float64
		wantErr bool
	}{
		{name: "plain number", raw: "4.20", want: 4.20},
		{name: "currency symbol", raw: "$4.20", want: 4.20},
		{name: "thousand separators", raw: "$1,234.50", want: 1234.50},
		{name: "surrounding text", raw: "USD 12.34 ea", want: 12.34},
		{name: "negative", raw: "-5.00", want: -5},
		{name: "empty", raw: "", wantErr: true},
		{name: "whitespace", raw: "   ", wantErr: true},
		{name: "letters only", raw: "call for price", wantErr: true},
		{name: "two decimal points", raw: "12.34.56", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCost(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseCost(%q) = %v, want error", tt.raw, got)
				}
				if !errors.Is(err, ErrInvalidCost) {
					t.Fatalf("ParseCost(%q) error = %v, want ErrInvalidCost", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCost(%q) error = %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("ParseCost(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestBillableWeight(t *testing.T) {
	tests := []struct {
		name    string
		dims    Dims
		divisor float64
		want    float64
	}{
		{
			name: "actual weight dominates",
			dims: Dims{Length: 5, Width: 5, Height: 5, Weight: 10},
			want: 10,
		},
		{
			name: "dimensional weight dominates",
			dims: Dims{Length: 20, Width: 20, Height: 20, Weight: 2},
			want: 8000.0 / DefaultDimDivisor,
		},
		{
			name:    "custom divisor",
			dims:    Dims{Length: 10, Width: 10, Height: 10, Weight: 1},
			divisor: 100,
			want:    10,
		},
		{
			name:    "non-positive divisor falls back to default",
			dims:    Dims{Length: 20, Width: 20, Height: 20, Weight: 2},
			divisor: -1,
			want:    8000.0 / DefaultDimDivisor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BillableWeight(tt.dims, tt.divisor); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("BillableWeight() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShippingEstimate(t *testing.T) {
	shipping := &ShippingConfig{
		DimDivisor: 139,
		RateTable: []RateTier{
			{MaxWeight: 1, Cost: 5},
			{MaxWeight: 5, Cost: 8},
			{MaxWeight: 10, Cost: 12},
		},
	}

	tests := []struct {
		name string
		cfg  *ShippingConfig
		dims Dims
		want float64
	}{
		{name: "first tier", cfg: shipping, dims: Dims{Weight: 0.5}, want: 5},
		{name: "tier boundary is inclusive", cfg: shipping, dims: Dims{Weight: 5}, want: 8},
		{name: "middle tier", cfg: shipping, dims: Dims{Weight: 7}, want: 12},
		{name: "heavier than every tier uses the last", cfg: shipping, dims: Dims{Weight: 50}, want: 12},
		{name: "dim weight picks the tier", cfg: shipping, dims: Dims{Length: 10, Width: 10, Height: 10, Weight: 1}, want: 12},
		{name: "nil config", cfg: nil, dims: Dims{Weight: 3}, want: 0},
		{name: "empty table", cfg: &ShippingConfig{DimDivisor: 139}, dims: Dims{Weight: 3}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Estimate(tt.dims); got != tt.want {
				t.Errorf("Estimate(%+v) = %v, want %v", tt.dims, got, tt.want)
			}
		})
	}
}

func TestComputeBaseCost(t *testing.T) {
	fees := FeeConfig{DropshipFee: 1.50, HandlingFee: 0.50, MiscFee: 0.25}
	shipping := &ShippingConfig{RateTable: []RateTier{{MaxWeight: 10, Cost: 4}}}

	tests := []struct {
		name     string
		cost     float64
		fees     FeeConfig
		dims     *Dims
		shipping *ShippingConfig
		want     float64
	}{
		{name: "cost plus fees", cost: 4.20, fees: fees, want: 6.45},
		{name: "no fees", cost: 4.20, want: 4.20},
		{name: "with shipping estimate", cost: 4.20, fees: fees, dims: &Dims{Weight: 2}, shipping: shipping, want: 10.45},
		{name: "dims without rate table add nothing", cost: 4.20, dims: &Dims{Weight: 2}, want: 4.20},
		{name: "min profit is ignored here", cost: 4.20, fees: FeeConfig{MinProfit: 3}, want: 4.20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeBaseCost(tt.cost, tt.fees, tt.dims, tt.shipping); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ComputeBaseCost() = %v, want %v", got, tt.want)
			}
		})
	}
}
