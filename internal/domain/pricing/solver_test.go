package pricing

import (
	"errors"
	"math"
	"testing"
)

func TestSolvePrice(t *testing.T) {
	tests := []struct {
		name           string
		baseCost       float64
		margin         float64
		marketplaceFee float64
		minProfit      float64
		want           float64
		wantErr        bool
	}{
		{name: "quarter margin", baseCost: 4.20, margin: 0.25, want: 5.60},
		{name: "with handling in base", baseCost: 4.70, margin: 0.25, want: 6.266666666666667},
		{name: "marketplace fee folds into denominator", baseCost: 7.50, margin: 0.25, marketplaceFee: 0.15, want: 12.50},
		{name: "min profit raises effective cost", baseCost: 10, margin: 0.50, minProfit: 2, want: 24},
		{name: "min profit zero is a no-op", baseCost: 10, margin: 0.50, want: 20},
		{name: "margin of one rejected", baseCost: 10, margin: 1.0, wantErr: true},
		{name: "margin above band rejected", baseCost: 10, margin: 0.95, wantErr: true},
		{name: "margin below band rejected", baseCost: 10, margin: 0.005, wantErr: true},
		{name: "zero margin rejected", baseCost: 10, margin: 0, wantErr: true},
		{name: "margin plus fee reaches one", baseCost: 10, margin: 0.50, marketplaceFee: 0.50, wantErr: true},
		{name: "margin plus fee exceeds one", baseCost: 10, margin: 0.90, marketplaceFee: 0.20, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SolvePrice(tt.baseCost, tt.margin, tt.marketplaceFee, tt.minProfit)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("SolvePrice() = %v, want error", got)
				}
				if !errors.Is(err, ErrMarginOutOfRange) {
					t.Fatalf("SolvePrice() error = %v, want ErrMarginOutOfRange", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SolvePrice() error = %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("SolvePrice() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSolvePriceMarginInvariant(t *testing.T) {
	// Обратная проверка: достигнутая маржа равна запрошенной до округления.
	costs := []float64{0.01, 1, 4.20, 99.99, 12345.67}
	for margin := 0.01; margin < 0.90; margin += 0.05 {
		for _, cost := range costs {
			price, err := SolvePrice(cost, margin, 0, 0)
			if err != nil {
				t.Fatalf("SolvePrice(%v, %v) error = %v", cost, margin, err)
			}
			achieved := AchievedMargin(price, cost)
			if rel := math.Abs(achieved-margin) / margin; rel > 1e-6 {
				t.Errorf("cost %v margin %v: achieved %v, relative error %v", cost, margin, achieved, rel)
			}
		}
	}
}

func TestSolvePriceMonotonicity(t *testing.T) {
	const baseCost = 17.35
	prev := 0.0
	for margin := 0.01; margin <= 0.89; margin += 0.01 {
		price, err := SolvePrice(baseCost, margin, 0, 0)
		if err != nil {
			t.Fatalf("SolvePrice(%v) error = %v", margin, err)
		}
		if price <= prev {
			t.Fatalf("price %v at margin %v is not greater than %v", price, margin, prev)
		}
		prev = price
	}
}

func TestSolveBand(t *testing.T) {
	margins := MarginConfig{MinGrossMargin: 0.20, MaxGrossMargin: 0.40}

	tests := []struct {
		name       string
		mode       SellPriceMode
		wantTarget float64
	}{
		{name: "default target is min", mode: "", wantTarget: 7.5},
		{name: "min mode", mode: SellModeMin, wantTarget: 7.5},
		{name: "mid mode", mode: SellModeMid, wantTarget: 8.75},
		{name: "max mode", mode: SellModeMax, wantTarget: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			band, err := SolveBand(6, margins, 0, 0, tt.mode)
			if err != nil {
				t.Fatalf("SolveBand() error = %v", err)
			}
			if math.Abs(band.Min-7.5) > 1e-9 || math.Abs(band.Max-10) > 1e-9 {
				t.Errorf("band = %+v, want min 7.5 max 10", band)
			}
			if math.Abs(band.Target-tt.wantTarget) > 1e-9 {
				t.Errorf("target = %v, want %v", band.Target, tt.wantTarget)
			}
		})
	}
}

func TestMarginConfigNormalize(t *testing.T) {
	// Максимум ниже минимума подтягивается вверх, не наоборот.
	m := MarginConfig{MinGrossMargin: 0.45, MaxGrossMargin: 0.22}.Normalize()
	if m.MinGrossMargin != 0.45 || m.MaxGrossMargin != 0.45 {
		t.Errorf("Normalize() = %+v, want both 0.45", m)
	}
}

func TestMarketplaceFeeTable(t *testing.T) {
	table := MarketplaceFeeTable{
		"amazon": {"default": 0.15, "electronics": 0.08},
	}

	tests := []struct {
		marketplace string
		category    string
		want        float64
	}{
		{"amazon", "electronics", 0.08},
		{"amazon", "toys", 0.15},
		{"amazon", "default", 0.15},
		{"etsy", "default", 0},
	}

	for _, tt := range tests {
		if got := table.FeeFor(tt.marketplace, tt.category); got != tt.want {
			t.Errorf("FeeFor(%q, %q) = %v, want %v", tt.marketplace, tt.category, got, tt.want)
		}
	}
}

func TestRoundPrice(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		mode  RoundingMode
		want  float64
	}{
		{name: "cents exact", price: 5.60, mode: RoundCents, want: 5.60},
		{name: "cents half up", price: 6.266666666666667, mode: RoundCents, want: 6.27},
		{name: "cents half boundary", price: 2.125, mode: RoundCents, want: 2.13},
		{name: "ends in 99", price: 6.266666666666667, mode: RoundEndsIn99, want: 5.99},
		{name: "ends in 99 on whole dollar", price: 12.00, mode: RoundEndsIn99, want: 11.99},
		{name: "ends in 99 under a dollar stays positive", price: 0.60, mode: RoundEndsIn99, want: 0.60},
		{name: "ends in 99 just above a dollar", price: 1.10, mode: RoundEndsIn99, want: 0.99},
		{name: "none passes through", price: 6.266666666666667, mode: RoundNone, want: 6.266666666666667},
		{name: "unknown mode passes through", price: 1.234, mode: "", want: 1.234},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RoundPrice(tt.price, tt.mode); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("RoundPrice(%v, %q) = %v, want %v", tt.price, tt.mode, got, tt.want)
			}
		})
	}
}

func TestROI(t *testing.T) {
	if got := ROI(15, 10); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("ROI(15, 10) = %v, want 0.5", got)
	}
	if got := ROI(15, 0); got != 0 {
		t.Errorf("ROI with zero cost = %v, want 0", got)
	}
}
