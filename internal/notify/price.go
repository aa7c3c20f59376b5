package notify

import (
	"strings"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)
var hundred = decimal.NewFromInt(100)

// applyMargin marks a price up by margin percent.
func applyMargin(price, margin decimal.Decimal) decimal.Decimal {
	return price.Mul(one.Add(margin.Div(hundred)))
}

// ClientPrice renders the client-visible price: USD converted through the
// exchange rate when one is known, with the margin markup applied on top.
// Without a rate (or for non-USD listings) the raw currency value is kept,
// still margin-adjusted when a margin is set.
func ClientPrice(price float64, currency string, rate *decimal.Decimal, margin decimal.Decimal) string {
	p := decimal.NewFromFloat(price)
	currency = strings.ToUpper(currency)

	if currency == "USD" && rate != nil {
		local := p.Mul(*rate)
		if margin.IsPositive() {
			local = applyMargin(local, margin)
		}
		return "R$ " + local.Round(2).StringFixed(2)
	}

	if margin.IsPositive() {
		return applyMargin(p, margin).Round(2).StringFixed(2) + " " + currency
	}
	return p.String() + " " + currency
}

// VendorPrice renders the unadjusted price, converted when possible.
func VendorPrice(price float64, currency string, rate *decimal.Decimal) string {
	p := decimal.NewFromFloat(price)
	currency = strings.ToUpper(currency)

	if currency == "USD" && rate != nil {
		return "R$ " + p.Mul(*rate).Round(2).StringFixed(2)
	}
	return p.String() + " " + currency
}
