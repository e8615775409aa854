package render

import (
	"math"
	"strconv"

	"github.com/goliatone/go-orderwizard/pkg/model"
)

// Fixed order charges added to every total.
const (
	ProcessingFee = 5.95
	ShippingFee   = 12.95
)

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatAmount renders v with two decimals.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(Round2(v), 'f', 2, 64)
}

// FormatMoney places the currency symbol according to layout: "$ 250.00" for
// MoneyLeading and "250.00$" otherwise.
func FormatMoney(v float64, currency string, layout model.MoneyLayout) string {
	amount := FormatAmount(v)
	if layout == model.MoneyLeading {
		return currency + " " + amount
	}
	return amount + currency
}
