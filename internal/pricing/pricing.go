// Package pricing derives the fixed preorder payment variants from a base price.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"preorderimport/internal/model"
	"preorderimport/internal/normalizer"
)

const (
	OptionName = "PREORDER PAYMENTS OPTIONS*"

	LabelDeposit = "ANTICIPO/SALDO"
	LabelPrepay  = "PAGAMENTO ANTICIPATO"

	DepositSKUSuffix = "-DEP"
	PrepaySKUSuffix  = "-PREPAY"
)

var (
	depositRate = decimal.RequireFromString("0.30")
	prepayRate  = decimal.RequireFromString("0.95")
)

type InvalidPriceError struct {
	Raw   string
	Price decimal.Decimal
	Err   error // parse failure of Raw
}

func (e *InvalidPriceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid base price %q: %v", e.Raw, e.Err)
	}
	return fmt.Sprintf("invalid base price %s: must be positive", e.Price.String())
}

func (e *InvalidPriceError) Unwrap() error { return e.Err }

// ParseBase parses a CSV base price. Blank or malformed values are an
// *InvalidPriceError like non-positive ones.
func ParseBase(raw string) (decimal.Decimal, error) {
	d, err := normalizer.ParseDecimal(raw)
	if err != nil {
		return decimal.Zero, &InvalidPriceError{Raw: raw, Err: err}
	}
	if !d.IsPositive() {
		return decimal.Zero, &InvalidPriceError{Raw: raw, Price: d}
	}
	return d, nil
}

// Variants returns the preorder variants for base. Non-preorder products get an
// empty slice. base must be positive.
func Variants(base decimal.Decimal, preorder bool) ([]model.Variant, error) {
	if !base.IsPositive() {
		return nil, &InvalidPriceError{Price: base}
	}
	if !preorder {
		return []model.Variant{}, nil
	}
	return []model.Variant{
		{Label: LabelDeposit, Price: Round(base.Mul(depositRate))},
		{Label: LabelPrepay, Price: Round(base.Mul(prepayRate))},
	}, nil
}

// Round rounds half-up to two decimals. decimal.Round rounds half away from
// zero, which is half-up for the positive amounts handled here.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// VariantSKU returns the SKU of the variant with the given label.
func VariantSKU(baseSKU, label string) string {
	switch label {
	case LabelDeposit:
		return baseSKU + DepositSKUSuffix
	case LabelPrepay:
		return baseSKU + PrepaySKUSuffix
	}
	return baseSKU
}
