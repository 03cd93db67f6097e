// Package domain contains the append-only revenue ledger models. Entries
// are never updated after insert except for the one-time invoice stamp and
// the GDPR anonymize pass, and each entry extends a per-client hash chain.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// LedgerEntry is one order's attribution outcome. All amounts are minor
// units. The (client_id, external_order_id) pair is unique so replays of
// the same order event collapse onto the first insert.
type LedgerEntry struct {
	ID snowflake.ID `gorm:"primaryKey" json:"id"`

	EntryHash string `gorm:"type:text;not null" json:"entry_hash"`
	PrevHash  string `gorm:"type:text;not null" json:"prev_hash"`

	ClientID        snowflake.ID `gorm:"not null;uniqueIndex:ux_ledger_client_order,priority:1" json:"client_id"`
	Platform        string       `gorm:"type:text;not null" json:"platform"`
	ExternalOrderID string       `gorm:"type:text;not null;uniqueIndex:ux_ledger_client_order,priority:2" json:"external_order_id"`

	Amount     int64   `gorm:"not null" json:"amount"`
	Attributed bool    `gorm:"not null;default:false" json:"attributed"`
	Confidence float64 `gorm:"not null;default:0" json:"confidence"`

	BaselineRevenueUsed int64   `gorm:"not null;default:0" json:"baseline_revenue_used"`
	IncrementalRevenue  int64   `gorm:"not null;default:0" json:"incremental_revenue"`
	UpliftPct           float64 `gorm:"not null;default:0" json:"uplift_pct"`

	AdSpendForOrder    int64 `gorm:"not null;default:0" json:"ad_spend_for_order"`
	BaselineAdSpend    int64 `gorm:"not null;default:0" json:"baseline_ad_spend"`
	IncrementalAdSpend int64 `gorm:"not null;default:0" json:"incremental_ad_spend"`

	NetProfitUplift int64 `gorm:"not null;default:0" json:"net_profit_uplift"`
	FeeAmount       int64 `gorm:"not null;default:0" json:"fee_amount"`
	FeeApplicable   bool  `gorm:"not null;default:false" json:"fee_applicable"`

	ContributingAgents pq.StringArray `gorm:"type:text[]" json:"contributing_agents"`
	Explanation        string         `gorm:"type:text;not null" json:"explanation"`

	CampaignRef   *string `gorm:"type:text" json:"campaign_ref,omitempty"`
	CreativeRef   *string `gorm:"type:text" json:"creative_ref,omitempty"`
	TouchpointRef *string `gorm:"type:text" json:"touchpoint_ref,omitempty"`

	InvoiceID *snowflake.ID `gorm:"index" json:"invoice_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (LedgerEntry) TableName() string { return "ledger_entries" }

// AttributionLog preserves the raw decision inputs alongside each entry so
// a decision can be replayed during an audit.
type AttributionLog struct {
	ID      snowflake.ID `gorm:"primaryKey" json:"id"`
	EntryID snowflake.ID `gorm:"not null;uniqueIndex" json:"entry_id"`

	AdTouchpointScore      float64 `gorm:"not null;default:0" json:"ad_touchpoint_score"`
	AcquisitionScore       float64 `gorm:"not null;default:0" json:"acquisition_score"`
	ProductPromotionScore  float64 `gorm:"not null;default:0" json:"product_promotion_score"`
	NurtureEngagementScore float64 `gorm:"not null;default:0" json:"nurture_engagement_score"`

	ThresholdApplied float64 `gorm:"not null;default:0" json:"threshold_applied"`

	AgentShares            datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"agent_shares"`
	CounterfactualBaseline int64             `gorm:"not null;default:0" json:"counterfactual_baseline"`
	Explanation            string            `gorm:"type:text;not null" json:"explanation"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (AttributionLog) TableName() string { return "attribution_logs" }
