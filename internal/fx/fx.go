// Package fx converts listing currencies to and from USD against a rate-set
// snapshot. The rate set is fetched by a collaborator once per run; the
// conversions here are pure lookups with no staleness handling of their own.
package fx

import (
	"fmt"
	"math"
	"strings"

	"github.com/rig-profit/internal/types"
)

// ToUSD converts an amount in the given currency to USD using a rate set of
// units-per-USD multipliers.
func ToUSD(amount float64, currency string, rates types.FxRateSet) (float64, error) {
	rate, err := lookup(currency, rates)
	if err != nil {
		return 0, err
	}
	return amount / rate, nil
}

// FromUSD converts a USD amount into the given currency.
func FromUSD(amount float64, currency string, rates types.FxRateSet) (float64, error) {
	rate, err := lookup(currency, rates)
	if err != nil {
		return 0, err
	}
	return amount * rate, nil
}

// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

// lookup resolves the units-per-USD multiplier for a currency. USD always
// resolves to 1 even when absent from the set.
func lookup(currency string, rates types.FxRateSet) (float64, error) {
	code := NormalizeCurrency(currency)
	if code == "" {
		return 0, fmt.Errorf("empty currency code")
	}
	if code == "USD" {
		return 1, nil
	}

	rate, ok := rates[code]
	if !ok {
		return 0, fmt.Errorf("unknown currency %q", code)
	}
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0, fmt.Errorf("unusable rate %g for currency %q", rate, code)
	}

	return rate, nil
}
