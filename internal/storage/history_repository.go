package storage

import (
	"context"
	"fmt"

	"github.com/rig-profit/internal/models"
)

// HistoryRepository mirrors finalized snapshot batches into ClickHouse for
// chart queries. Postgres stays authoritative; a sink failure here is logged
// by the caller and never fails the run.
type HistoryRepository struct {
	db *ClickHouseDB
}

// NewHistoryRepository creates a new snapshot history repository
func NewHistoryRepository(db *ClickHouseDB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// historyRoiDays converts the optional ROI day count to the Nullable(Int32)
// column type. Nil stays nil so charts can tell "no usable listing" apart
// from instant payback.
func historyRoiDays(roiDays *int) *int32 {
	if roiDays == nil {
		return nil
	}
	value := int32(*roiDays)
	return &value
}

// InsertBatch appends one run's snapshots to the history table.
func (r *HistoryRepository) InsertBatch(ctx context.Context, snapshots []*models.ProfitabilitySnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	batch, err := r.db.Conn().PrepareBatch(ctx, `
		INSERT INTO snapshot_history (
			device_id,
			computed_at,
			revenue_usd_per_day,
			electricity_usd_per_day,
			profit_usd_per_day,
			lowest_price_usd,
			roi_days
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare history batch: %w", err)
	}

	for _, snapshot := range snapshots {
		err := batch.Append(
			snapshot.DeviceID,
			snapshot.ComputedAt,
			snapshot.RevenueUsdPerDay,
			snapshot.ElectricityUsdPerDay,
			snapshot.ProfitUsdPerDay,
			snapshot.LowestPriceUsd,
			historyRoiDays(snapshot.RoiDays),
		)
		if err != nil {
			return fmt.Errorf("failed to append history row: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send history batch: %w", err)
	}

	return nil
}
