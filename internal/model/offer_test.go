package model

import "testing"

func TestOfferApply_TwoForOne(t *testing.T) {
	offer := &Offer{Code: 1, Kind: OfferTwoForOne}

	tests := []struct {
		name      string
		unitPrice float64
		qty       int
		want      float64
	}{
		{name: "single unit", unitPrice: 10, qty: 1, want: 10},
		{name: "pair", unitPrice: 10, qty: 2, want: 10},
		{name: "odd quantity", unitPrice: 10, qty: 5, want: 30},
		{name: "even quantity", unitPrice: 7, qty: 6, want: 21},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := offer.Apply(tt.unitPrice, tt.qty)
			if got != tt.want {
				t.Fatalf("Apply(%v, %d) = %v, want %v", tt.unitPrice, tt.qty, got, tt.want)
			}
		})
	}
}

func TestOfferApply_ThreeForTwo(t *testing.T) {
	offer := &Offer{Code: 2, Kind: OfferThreeForTwo}

	tests := []struct {
		name      string
		unitPrice float64
		qty       int
		want      float64
	}{
		{name: "below group", unitPrice: 9, qty: 2, want: 18},
		{name: "exact group", unitPrice: 9, qty: 3, want: 18},
		{name: "two groups plus loose", unitPrice: 9, qty: 7, want: 45},
		{name: "single unit", unitPrice: 9, qty: 1, want: 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := offer.Apply(tt.unitPrice, tt.qty)
			if got != tt.want {
				t.Fatalf("Apply(%v, %d) = %v, want %v", tt.unitPrice, tt.qty, got, tt.want)
			}
		})
	}
}

func TestOfferApply_Percentage(t *testing.T) {
	offer := &Offer{Code: 3, Kind: OfferPercentage, Percent: 20, MaxUnits: 3}

	tests := []struct {
		name      string
		unitPrice float64
		qty       int
		want      float64
	}{
		{name: "above max discounted units", unitPrice: 100, qty: 5, want: 440},
		{name: "within max discounted units", unitPrice: 100, qty: 2, want: 160},
		{name: "exactly max discounted units", unitPrice: 100, qty: 3, want: 240},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := offer.Apply(tt.unitPrice, tt.qty)
			if got != tt.want {
				t.Fatalf("Apply(%v, %d) = %v, want %v", tt.unitPrice, tt.qty, got, tt.want)
			}
		})
	}
}

func TestOfferApply_Pure(t *testing.T) {
	offer := &Offer{Code: 3, Kind: OfferPercentage, Percent: 20, MaxUnits: 3}

	first := offer.Apply(100, 5)
	second := offer.Apply(100, 5)

	if first != second {
		t.Fatalf("Apply is not pure: %v then %v", first, second)
	}
}
