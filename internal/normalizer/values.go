package normalizer

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrEmptyValue = errors.New("empty value")

// ParseDecimal parses a currency-less number written with either '.' or ','
// as decimal separator, e.g. "100.00", "100,00", "1.234,56", "€ 12".
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.NewReplacer("€", "", "EUR", "", "eur", "", "\u00a0", "", " ", "").Replace(strings.TrimSpace(s))
	if s == "" {
		return decimal.Zero, ErrEmptyValue
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastDot >= 0 && strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	return decimal.NewFromString(s)
}

// ParseWeightKg parses a weight in kilograms. A trailing "kg" is accepted and
// a trailing "g" converts grams to kilograms.
func ParseWeightKg(s string) (decimal.Decimal, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	grams := false
	switch {
	case strings.HasSuffix(v, "kg"):
		v = strings.TrimSuffix(v, "kg")
	case strings.HasSuffix(v, "gr"):
		v, grams = strings.TrimSuffix(v, "gr"), true
	case strings.HasSuffix(v, "g"):
		v, grams = strings.TrimSuffix(v, "g"), true
	}
	d, err := ParseDecimal(v)
	if err != nil {
		return decimal.Zero, err
	}
	if grams {
		d = d.Div(decimal.NewFromInt(1000))
	}
	return d, nil
}

// ParseBool reads the preorder flag. Italian and English affirmatives are true,
// anything else (including blank) is false.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "si", "sì", "s", "yes", "y", "true", "1", "x", "on", "preorder", "preordine":
		return true
	}
	return false
}
