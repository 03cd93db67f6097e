// Package domain contains the per-client baseline snapshot used to measure
// incremental revenue.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// DataQualityTier grades how trustworthy a client's baseline is.
type DataQualityTier string

const (
	DataQualityHigh   DataQualityTier = "high"
	DataQualityMedium DataQualityTier = "medium"
	DataQualityLow    DataQualityTier = "low"
)

// BaselineSnapshot is one row per client. Historical fields are owned by
// the external baseline-recalculation job; the engine only adds to the
// current-period and cumulative counters. All amounts are minor units.
//
// Version implements optimistic concurrency: concurrent order events for
// the same client race on the CAS update and retry, so counters never lose
// increments.
type BaselineSnapshot struct {
	ClientID snowflake.ID `gorm:"primaryKey" json:"client_id"`

	BaselineRevenue       int64 `gorm:"not null;default:0" json:"baseline_revenue"`
	BaselineOrderCount    int64 `gorm:"not null;default:0" json:"baseline_order_count"`
	BaselineAvgOrderValue int64 `gorm:"not null;default:0" json:"baseline_avg_order_value"`
	BaselineAdSpend       int64 `gorm:"not null;default:0" json:"baseline_ad_spend"`
	BaselineProfit        int64 `gorm:"not null;default:0" json:"baseline_profit"`

	CurrentRevenue    int64 `gorm:"not null;default:0" json:"current_revenue"`
	CurrentOrderCount int64 `gorm:"not null;default:0" json:"current_order_count"`
	CurrentAdSpend    int64 `gorm:"not null;default:0" json:"current_ad_spend"`

	CumIncrementalRevenue int64 `gorm:"not null;default:0" json:"cum_incremental_revenue"`
	CumIncrementalAdSpend int64 `gorm:"not null;default:0" json:"cum_incremental_ad_spend"`
	CumNetProfitUplift    int64 `gorm:"not null;default:0" json:"cum_net_profit_uplift"`
	CumFees               int64 `gorm:"not null;default:0" json:"cum_fees"`

	DataQuality  DataQualityTier `gorm:"type:text;not null;default:'low'" json:"data_quality"`
	LastSyncedAt time.Time       `gorm:"not null" json:"last_synced_at"`

	Version   int64     `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (BaselineSnapshot) TableName() string { return "baseline_snapshots" }
