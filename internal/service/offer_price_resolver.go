package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rig-profit/internal/fx"
	"github.com/rig-profit/internal/logging"
	"github.com/rig-profit/internal/models"
	"github.com/rig-profit/internal/types"
)

// OfferPriceResolver finds the lowest in-stock vendor offer for a device,
// converted to USD. A device with no usable offer gets a nil price rather
// than a zero, since zero would read as "free hardware" downstream.
type OfferPriceResolver struct {
	logger *logging.Logger
}

// NewOfferPriceResolver creates a new offer price resolver
func NewOfferPriceResolver(logger *logging.Logger) *OfferPriceResolver {
	return &OfferPriceResolver{logger: logger}
}

// OfferResult carries the resolved lowest price plus counts for the
// snapshot breakdown.
type OfferResult struct {
	LowestUsd  *float64
	Considered int
	Converted  int
}

// Resolve scans the device's listings and returns the cheapest in-stock
// offer in USD. Listings with unparsable prices or unknown currencies are
// skipped individually; they never fail the device.
func (r *OfferPriceResolver) Resolve(listings []*models.VendorListing, rates types.FxRateSet) OfferResult {
	result := OfferResult{}

	var lowest float64
	found := false

	for _, listing := range listings {
		if !listing.InStock {
			continue
		}
		result.Considered++

		amount, err := parseListingPrice(listing.Price)
		if err != nil {
			r.logger.WithFields(map[string]interface{}{
				"listing_id": listing.ID,
				"vendor":     listing.Vendor,
				"price":      listing.Price,
			}).Debug("skipping listing with unparsable price")
			continue
		}

		usd, err := fx.ToUSD(amount, listing.Currency, rates)
		if err != nil {
			r.logger.WithFields(map[string]interface{}{
				"listing_id": listing.ID,
				"vendor":     listing.Vendor,
				"currency":   listing.Currency,
			}).WithError(err).Debug("skipping listing with unconvertible currency")
			continue
		}

		result.Converted++
		if !found || usd < lowest {
			lowest = usd
			found = true
		}
	}

	if found {
		result.LowestUsd = &lowest
	}
	return result
}

// parseListingPrice accepts prices as scraped, with thousands separators
// and surrounding whitespace. Non-positive prices are vendor data errors:
// nobody sells hardware for free, and a zero would read as instant payback
// downstream.
func parseListingPrice(raw string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, err
	}
	if value <= 0 {
		return 0, fmt.Errorf("non-positive price %q", raw)
	}
	return value, nil
}
