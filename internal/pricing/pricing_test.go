package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariants_Preorder(t *testing.T) {
	tests := []struct {
		base    string
		deposit string
		prepay  string
	}{
		{"100.00", "30", "95"},
		{"49.90", "14.97", "47.41"}, // 47.405 rounds up
		{"0.05", "0.02", "0.05"},    // 0.015 rounds up, 0.0475 rounds up
		{"19.99", "6", "18.99"},     // 5.997, 18.9905
		{"1234.57", "370.37", "1172.84"},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			got, err := Variants(decimal.RequireFromString(tt.base), true)
			require.NoError(t, err)
			require.Len(t, got, 2)

			assert.Equal(t, LabelDeposit, got[0].Label)
			assert.True(t, decimal.RequireFromString(tt.deposit).Equal(got[0].Price), "deposit = %s", got[0].Price)
			assert.Equal(t, LabelPrepay, got[1].Label)
			assert.True(t, decimal.RequireFromString(tt.prepay).Equal(got[1].Price), "prepay = %s", got[1].Price)
		})
	}
}

func TestVariants_NotPreorder(t *testing.T) {
	got, err := Variants(decimal.NewFromInt(100), false)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestVariants_NonPositivePrice(t *testing.T) {
	for _, base := range []string{"0", "-10.50"} {
		t.Run(base, func(t *testing.T) {
			got, err := Variants(decimal.RequireFromString(base), true)
			assert.Nil(t, got)

			var priceErr *InvalidPriceError
			require.ErrorAs(t, err, &priceErr)
			assert.True(t, decimal.RequireFromString(base).Equal(priceErr.Price))
		})
	}
}

func TestVariants_Deterministic(t *testing.T) {
	base := decimal.RequireFromString("77.77")
	first, err := Variants(base, true)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Variants(base, true)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestVariantSKU(t *testing.T) {
	assert.Equal(t, "LX-1-DEP", VariantSKU("LX-1", LabelDeposit))
	assert.Equal(t, "LX-1-PREPAY", VariantSKU("LX-1", LabelPrepay))
	assert.Equal(t, "LX-1", VariantSKU("LX-1", "other"))
}

func TestParseBase(t *testing.T) {
	got, err := ParseBase("1.234,50")
	require.NoError(t, err)
	assert.Equal(t, "1234.5", got.String())

	for _, raw := range []string{"", "abc", "0,00", "-3"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseBase(raw)
			var priceErr *InvalidPriceError
			require.ErrorAs(t, err, &priceErr)
			assert.Equal(t, raw, priceErr.Raw)
		})
	}
}
