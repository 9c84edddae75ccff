package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rig-profit/internal/models"
)

// DeviceRepository reads the hardware catalog. The engine consumes devices,
// listings and coins read-only; admin flows own the writes.
type DeviceRepository struct {
	pool *pgxpool.Pool
}

// NewDeviceRepository creates a new device repository
func NewDeviceRepository(pool *pgxpool.Pool) *DeviceRepository {
	return &DeviceRepository{pool: pool}
}

// FindDevices returns every device in the catalog.
func (r *DeviceRepository) FindDevices(ctx context.Context) ([]*models.Device, error) {
	query := `
		SELECT
			id,
			name,
			hashrate,
			hashrate_unit,
			power_watts,
			efficiency,
			algorithm_key,
			algorithm_name,
			created_at,
			updated_at
		FROM devices
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	var devices []*models.Device
	for rows.Next() {
		var device models.Device
		err := rows.Scan(
			&device.ID,
			&device.Name,
			&device.Hashrate,
			&device.HashrateUnit,
			&device.PowerWatts,
			&device.Efficiency,
			&device.Algorithm.Key,
			&device.Algorithm.Name,
			&device.CreatedAt,
			&device.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, &device)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate devices: %w", err)
	}

	return devices, nil
}

// FindListings returns the vendor listings for one device, in-stock or not.
// Stock filtering happens at computation time.
func (r *DeviceRepository) FindListings(ctx context.Context, deviceID string) ([]*models.VendorListing, error) {
	query := `
		SELECT
			id,
			device_id,
			vendor,
			price,
			currency,
			in_stock
		FROM vendor_listings
		WHERE device_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	var listings []*models.VendorListing
	for rows.Next() {
		var listing models.VendorListing
		err := rows.Scan(
			&listing.ID,
			&listing.DeviceID,
			&listing.Vendor,
			&listing.Price,
			&listing.Currency,
			&listing.InStock,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, &listing)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate listings: %w", err)
	}

	return listings, nil
}

// FindCoinsByAlgorithm returns the mineable coins for a catalog algorithm
// key, ordered by id for determinism.
func (r *DeviceRepository) FindCoinsByAlgorithm(ctx context.Context, algorithmKey string) ([]*models.Coin, error) {
	query := `
		SELECT
			id,
			symbol,
			name,
			algorithm_key
		FROM coins
		WHERE algorithm_key = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, algorithmKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query coins: %w", err)
	}
	defer rows.Close()

	var coins []*models.Coin
	for rows.Next() {
		var coin models.Coin
		if err := rows.Scan(&coin.ID, &coin.Symbol, &coin.Name, &coin.AlgorithmKey); err != nil {
			return nil, fmt.Errorf("failed to scan coin: %w", err)
		}
		coins = append(coins, &coin)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate coins: %w", err)
	}

	return coins, nil
}
