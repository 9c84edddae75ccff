package models

import "time"

// AlgorithmRef is the catalog's stable algorithm key plus a display name.
// Every device carries exactly one.
type AlgorithmRef struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Device represents one piece of mining hardware in the catalog. Devices are
// created and edited by admin flows; the engine consumes them read-only.
type Device struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Hashrate     string       `json:"hashrate"`     // magnitude as entered, e.g. "100"
	HashrateUnit string       `json:"hashrateUnit"` // e.g. "TH/s", "Gh/s"
	PowerWatts   float64      `json:"powerWatts"`
	Efficiency   *float64     `json:"efficiency,omitempty"` // optional vendor-stated J per unit
	Algorithm    AlgorithmRef `json:"algorithm"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// VendorListing is one vendor's price for a device. Only in-stock listings
// participate in acquisition-price resolution.
type VendorListing struct {
	ID       string `json:"id"`
	DeviceID string `json:"deviceId"`
	Vendor   string `json:"vendor"`
	Price    string `json:"price"` // as entered by the vendor feed, parsed at use
	Currency string `json:"currency"`
	InStock  bool   `json:"inStock"`
}

// Coin is a mineable coin associated with a catalog algorithm.
type Coin struct {
	ID           string `json:"id"`
	Symbol       string `json:"symbol"`
	Name         string `json:"name"`
	AlgorithmKey string `json:"algorithmKey"`
}
