package model

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ApplyPercentOff returns cents reduced by percent, rounded half away from zero
// to the nearest cent.
func ApplyPercentOff(cents int64, percent int) int64 {
	if percent <= 0 {
		return cents
	}
	amount := decimal.NewFromInt(cents)
	off := amount.Mul(decimal.NewFromInt(int64(percent))).Div(hundred)
	return amount.Sub(off).Round(0).IntPart()
}
