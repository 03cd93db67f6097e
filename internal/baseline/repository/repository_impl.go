package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/netlift/netlift/internal/baseline/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByClient(ctx context.Context, db *gorm.DB, clientID snowflake.ID) (*domain.BaselineSnapshot, error) {
	var snapshot domain.BaselineSnapshot
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM baseline_snapshots WHERE client_id = ?`,
		clientID,
	).Scan(&snapshot).Error
	if err != nil {
		return nil, err
	}
	if snapshot.ClientID == 0 {
		return nil, nil
	}
	return &snapshot, nil
}

func (r *repo) ApplyDelta(ctx context.Context, db *gorm.DB, clientID snowflake.ID, version int64, delta domain.Delta) error {
	result := db.WithContext(ctx).Exec(
		`UPDATE baseline_snapshots SET
			current_revenue = current_revenue + ?,
			current_ad_spend = current_ad_spend + ?,
			current_order_count = current_order_count + ?,
			cum_incremental_revenue = cum_incremental_revenue + ?,
			cum_incremental_ad_spend = cum_incremental_ad_spend + ?,
			cum_net_profit_uplift = cum_net_profit_uplift + ?,
			cum_fees = cum_fees + ?,
			version = version + 1,
			updated_at = CURRENT_TIMESTAMP
		 WHERE client_id = ? AND version = ?`,
		delta.Revenue,
		delta.AdSpend,
		delta.OrderCount,
		delta.IncrementalRevenue,
		delta.IncrementalAdSpend,
		delta.NetProfitUplift,
		delta.Fees,
		clientID,
		version,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrVersionConflict
	}
	return nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, snapshot *domain.BaselineSnapshot) error {
	result := db.WithContext(ctx).Exec(
		`UPDATE baseline_snapshots SET
			baseline_revenue = ?,
			baseline_order_count = ?,
			baseline_avg_order_value = ?,
			baseline_ad_spend = ?,
			baseline_profit = ?,
			current_revenue = 0,
			current_ad_spend = 0,
			current_order_count = 0,
			data_quality = ?,
			last_synced_at = ?,
			version = version + 1,
			updated_at = CURRENT_TIMESTAMP
		 WHERE client_id = ?`,
		snapshot.BaselineRevenue,
		snapshot.BaselineOrderCount,
		snapshot.BaselineAvgOrderValue,
		snapshot.BaselineAdSpend,
		snapshot.BaselineProfit,
		snapshot.DataQuality,
		snapshot.LastSyncedAt,
		snapshot.ClientID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	return db.WithContext(ctx).Create(snapshot).Error
}
