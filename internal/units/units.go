// Package units converts catalog hashrate and efficiency figures into
// canonical bases. Conversions are pure and total: anything unparsable is
// reported through the boolean return, never as a zero value, so callers can
// tell "cannot compute for this device" apart from an actual zero.
package units

import (
	"math"
	"strconv"
	"strings"
)

// BaseHashrateUnit is the canonical unit all hashrates are normalized to.
const BaseHashrateUnit = "H/s"

// terahash is the scale used for the canonical efficiency base (J/TH).
const terahash = 1e12

// unitScale maps a unit-family substring to its power-of-1000 scale factor.
// Order matters: prefixed families must be checked before the bare base.
var unitScales = []struct {
	substr string
	scale  float64
}{
	{"ph", 1e15},
	{"th", 1e12},
	{"gh", 1e9},
	{"mh", 1e6},
	{"kh", 1e3},
	{"h", 1},
}

// BaseRate is a hashrate normalized to H/s.
type BaseRate struct {
	Value float64
	Unit  string // always BaseHashrateUnit
}

// ScaleFor resolves a unit string to its H/s scale factor via case-insensitive
// substring matching. The second return value is false for unrecognized units.
func ScaleFor(unit string) (float64, bool) {
	u := strings.ToLower(strings.TrimSpace(unit))
	if u == "" {
		return 0, false
	}
	for _, entry := range unitScales {
		if strings.Contains(u, entry.substr) {
			return entry.scale, true
		}
	}
	return 0, false
}

// ToBaseRate converts a magnitude string and unit string to a canonical H/s
// rate. It returns false for unparsable magnitudes, negative or non-finite
// values, and unrecognized units. A zero magnitude is valid and flows through
// as a zero rate.
func ToBaseRate(magnitude, unit string) (BaseRate, bool) {
	m := strings.ReplaceAll(strings.TrimSpace(magnitude), ",", "")
	if m == "" {
		return BaseRate{}, false
	}

	value, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return BaseRate{}, false
	}

	return ToBaseRateValue(value, unit)
}

// ToBaseRateValue converts an already-numeric magnitude and a unit string to a
// canonical H/s rate, with the same validity rules as ToBaseRate.
func ToBaseRateValue(magnitude float64, unit string) (BaseRate, bool) {
	if math.IsNaN(magnitude) || math.IsInf(magnitude, 0) || magnitude < 0 {
		return BaseRate{}, false
	}

	scale, ok := ScaleFor(unit)
	if !ok {
		return BaseRate{}, false
	}

	return BaseRate{Value: magnitude * scale, Unit: BaseHashrateUnit}, true
}

// EfficiencyJoulesPerTH normalizes an explicit efficiency figure, stated in
// joules per the given hashrate unit, to the canonical joules-per-terahash
// base.
func EfficiencyJoulesPerTH(value float64, unit string) (float64, bool) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return 0, false
	}

	scale, ok := ScaleFor(unit)
	if !ok {
		return 0, false
	}

	return value * terahash / scale, true
}

// EfficiencyFromPower derives joules-per-terahash from power draw and a base
// rate when no explicit efficiency is supplied. A non-positive base rate has
// no defined efficiency.
func EfficiencyFromPower(powerWatts, baseRateHs float64) (float64, bool) {
	if baseRateHs <= 0 || powerWatts < 0 ||
		math.IsNaN(powerWatts) || math.IsInf(powerWatts, 0) ||
		math.IsNaN(baseRateHs) || math.IsInf(baseRateHs, 0) {
		return 0, false
	}

	return powerWatts / (baseRateHs / terahash), true
}
