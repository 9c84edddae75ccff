package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rig-profit/internal/models"
)

// SnapshotRepository persists profitability snapshots. Records are append-only:
// this repository exposes no update or delete path, and the batch insert runs
// in one transaction so no reader ever observes a partial cohort for a given
// computed_at.
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// WriteSnapshots inserts one run's snapshots in a single transaction.
func (r *SnapshotRepository) WriteSnapshots(ctx context.Context, snapshots []*models.ProfitabilitySnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck // no-op after commit

	query := `
		INSERT INTO profitability_snapshots (
			id,
			device_id,
			computed_at,
			electricity_usd_per_kwh,
			revenue_usd_per_day,
			electricity_usd_per_day,
			profit_usd_per_day,
			lowest_price_usd,
			roi_days,
			best_coin_id,
			best_coin_confidence,
			best_coin_reason,
			breakdown
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	batch := &pgx.Batch{}
	for _, snapshot := range snapshots {
		breakdownJSON, err := json.Marshal(snapshot.Breakdown)
		if err != nil {
			return fmt.Errorf("failed to marshal breakdown for device %s: %w", snapshot.DeviceID, err)
		}

		batch.Queue(
			query,
			snapshot.ID,
			snapshot.DeviceID,
			snapshot.ComputedAt,
			snapshot.ElectricityUsdPerKwh,
			snapshot.RevenueUsdPerDay,
			snapshot.ElectricityUsdPerDay,
			snapshot.ProfitUsdPerDay,
			snapshot.LowestPriceUsd,
			snapshot.RoiDays,
			snapshot.BestCoinID,
			snapshot.BestCoinConfidence,
			snapshot.BestCoinReason,
			breakdownJSON,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range snapshots {
		if _, err := results.Exec(); err != nil {
			results.Close() // nolint:errcheck
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit snapshot batch: %w", err)
	}

	return nil
}
