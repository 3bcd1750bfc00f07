package payments

import (
	"math"
	"strings"

	"github.com/atelier-mirabelle/api/internal/domain"
)

// Region distinguishes the processor's rate tiers for card payments.
type Region string

const (
	// RegionEU covers cards issued inside the European Economic Area.
	RegionEU Region = "eu"
	// RegionUK covers cards issued in the United Kingdom.
	RegionUK Region = "uk"
	// RegionOther covers every remaining card origin.
	RegionOther Region = "other"
)

// euCountries lists ISO 3166-1 alpha-2 codes billed at the EEA card rate.
var euCountries = map[string]struct{}{
	"AT": {}, "BE": {}, "BG": {}, "HR": {}, "CY": {}, "CZ": {}, "DK": {},
	"EE": {}, "FI": {}, "FR": {}, "DE": {}, "GR": {}, "HU": {}, "IE": {},
	"IT": {}, "LV": {}, "LT": {}, "LU": {}, "MT": {}, "NL": {}, "PL": {},
	"PT": {}, "RO": {}, "SK": {}, "SI": {}, "ES": {}, "SE": {},
	"IS": {}, "LI": {}, "NO": {},
}

// RegionForCountry maps an ISO country code to the processor rate tier.
// Unknown or empty codes fall back to the EU tier, which matches the shop's
// customer base.
func RegionForCountry(code string) Region {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return RegionEU
	}
	if code == "GB" {
		return RegionUK
	}
	if _, ok := euCountries[code]; ok {
		return RegionEU
	}
	return RegionOther
}

// EstimateFee computes the processor fee for a charge of the given amount:
// 1.5% + 25 cents for EU cards, 2.5% + 25 cents otherwise, rounded to the
// nearest cent. Used for estimation only, never for the charged amount.
func EstimateFee(amount domain.Money, region Region) domain.Money {
	rate := 0.025
	if region == RegionEU {
		rate = 0.015
	}
	variable := int64(math.Round(float64(amount.Cents()) * rate))
	return domain.MoneyFromCents(variable + 25)
}
