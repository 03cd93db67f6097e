// Package domain contains the monthly settlement invoice models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// SettlementStatus represents invoice lifecycle states.
type SettlementStatus string

const (
	StatusDraft    SettlementStatus = "draft"
	StatusSent     SettlementStatus = "sent"
	StatusPaid     SettlementStatus = "paid"
	StatusDisputed SettlementStatus = "disputed"
)

// SettlementInvoice is the monthly roll-up of a client's attributed
// entries. One row per (client, year, month); the unique index arbitrates
// concurrent generation. All amounts are minor units.
type SettlementInvoice struct {
	ID snowflake.ID `gorm:"primaryKey" json:"id"`

	ClientID    snowflake.ID `gorm:"not null;uniqueIndex:ux_settlement_client_period,priority:1" json:"client_id"`
	PeriodYear  int          `gorm:"not null;uniqueIndex:ux_settlement_client_period,priority:2" json:"period_year"`
	PeriodMonth int          `gorm:"not null;uniqueIndex:ux_settlement_client_period,priority:3" json:"period_month"`

	BaselineRevenue int64 `gorm:"not null;default:0" json:"baseline_revenue"`
	ActualRevenue   int64 `gorm:"not null;default:0" json:"actual_revenue"`
	BaselineAdSpend int64 `gorm:"not null;default:0" json:"baseline_ad_spend"`
	ActualAdSpend   int64 `gorm:"not null;default:0" json:"actual_ad_spend"`

	IncrementalRevenue int64 `gorm:"not null;default:0" json:"incremental_revenue"`
	IncrementalAdSpend int64 `gorm:"not null;default:0" json:"incremental_ad_spend"`
	NetProfitUplift    int64 `gorm:"not null;default:0" json:"net_profit_uplift"`

	FeePct        string  `gorm:"type:text;not null" json:"fee_pct"`
	FeeAmount     int64   `gorm:"not null;default:0" json:"fee_amount"`
	ClientNetGain int64   `gorm:"not null;default:0" json:"client_net_gain"`
	ClientROI     float64 `gorm:"not null;default:0" json:"client_roi"`

	AttributedOrderCount int64 `gorm:"not null;default:0" json:"attributed_order_count"`

	Status      SettlementStatus `gorm:"type:text;not null;default:'draft'" json:"status"`
	DueAt       *time.Time       `json:"due_at,omitempty"`
	SentAt      *time.Time       `json:"sent_at,omitempty"`
	PaidAt      *time.Time       `json:"paid_at,omitempty"`
	Explanation string           `gorm:"type:text;not null" json:"explanation"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (SettlementInvoice) TableName() string { return "settlement_invoices" }

// CanTransition reports whether the status may advance to next.
// draft moves to sent, sent moves to paid or disputed.
func (s SettlementStatus) CanTransition(next SettlementStatus) bool {
	switch s {
	case StatusDraft:
		return next == StatusSent
	case StatusSent:
		return next == StatusPaid || next == StatusDisputed
	default:
		return false
	}
}
