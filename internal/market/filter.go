package market

import (
	"net/url"

	"github.com/shopspring/decimal"
)

var intlPriceCeilingBRL = decimal.NewFromInt(230)

// fallbackCeilingUSD approximates the ceiling before the first exchange-rate
// refresh lands.
var fallbackCeilingUSD = decimal.NewFromInt(30)

func baseFilter() url.Values {
	v := url.Values{}
	v.Set("daybreak", "7")
	v.Set("nsb", "1")
	v.Set("knife", "1")
	v.Set("order_by", "published_date")
	v.Set("order_direction", "desc")
	return v
}

// DomesticQuery builds the listing filter for the domestic feed.
func DomesticQuery(region string) string {
	v := baseFilter()
	v.Set("pmax", "50")
	v.Add("valorant_region[]", region)
	return v.Encode()
}

// InternationalQuery builds the listing filter for the international feed.
// The price ceiling is a fixed local-currency amount converted through the
// current USD rate; until a rate is known an approximate USD default applies.
func InternationalQuery(usdRate *decimal.Decimal) string {
	ceiling := fallbackCeilingUSD
	if usdRate != nil && usdRate.IsPositive() {
		ceiling = intlPriceCeilingBRL.Div(*usdRate)
	}

	v := baseFilter()
	v.Set("pmax", ceiling.StringFixed(2))
	v.Set("inv_min", "15000")
	for _, region := range []string{"EU", "AP", "NA", "LA"} {
		v.Add("valorant_region[]", region)
	}
	return v.Encode()
}
