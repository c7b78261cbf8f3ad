package model

import "github.com/shopspring/decimal"

// RoundPoints rounds a point amount half away from zero to the given number
// of decimal places. Float formatting alone rounds 0.30000000000000004 the
// same way but drifts on values like 2.675, which decimal does not.
func RoundPoints(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// FormatPoints renders a point amount with at most places decimals and no
// trailing zeros.
func FormatPoints(v float64, places int32) string {
	return decimal.NewFromFloat(v).Round(places).String()
}
