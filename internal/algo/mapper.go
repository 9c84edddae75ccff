// Package algo translates catalog algorithm keys into the payout provider's
// naming. The two taxonomies are independent and disagree on a handful of
// entries.
package algo

import "strings"

// providerOverrides maps normalized catalog keys to provider keys where the
// two taxonomies diverge. Keys absent from this table pass through unchanged,
// so a rate-table lookup miss stays the single place "unknown algorithm" is
// detected.
var providerOverrides = map[string]string{
	"sha-256":        "sha256",
	"sha256d":        "sha256",
	"scrypt-n":       "scrypt",
	"equihash-zcash": "equihash",
	"equihash144":    "equihash144_5",
	"cryptonight-r":  "cryptonight_r",
	"blake2b-sia":    "blake2b",
	"eaglesong":      "eaglesong",
	"ethash-etc":     "etchash",
	"kheavyhash":     "heavyhash",
}

// MapToProviderKey converts a catalog algorithm key to the payout provider's
// key. Pure, deterministic and total: unknown keys are returned normalized
// but otherwise unchanged.
func MapToProviderKey(catalogKey string) string {
	normalized := Normalize(catalogKey)
	if provider, ok := providerOverrides[normalized]; ok {
		return provider
	}
	return normalized
}

// Normalize lower-cases a key and trims surrounding whitespace. It never
// rejects input.
func Normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
