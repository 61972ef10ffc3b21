package payments_test

import (
	"testing"

	"github.com/alovak/cardpay/payments"
	"github.com/stretchr/testify/require"
)

func TestTotalAmount(t *testing.T) {
	tests := []struct {
		name         string
		amount       float64
		merchantType string
		cardType     string
		want         float64
	}{
		{"supermarket visa", 100, "Supermarket", "Visa", 104},
		{"restaurant mastercard", 100, "Restaurant", "MasterCard", 107},
		{"leisure amex", 100, "Leisure", "AMEX", 108},
		{"unknown merchant", 100, "Pharmacy", "Visa", 103},
		{"unknown network", 100, "Supermarket", "Discover", 101},
		{"both unknown", 100, "Pharmacy", "Discover", 100},
		{"zero amount", 0, "Restaurant", "AMEX", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := payments.TotalAmount(tt.amount, tt.merchantType, tt.cardType)
			require.InDelta(t, tt.want, got, 1e-9)
		})
	}
}
