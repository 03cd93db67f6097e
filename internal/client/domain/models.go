// Package domain contains persistence models for the client registry.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Client is a billed merchant whose orders flow through the attribution
// engine. FeePct is the per-client performance-fee percentage applied to
// net profit uplift; it is configuration, never a constant in the engine.
type Client struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name      string            `gorm:"not null" json:"name"`
	Platform  string            `gorm:"type:text;not null" json:"platform"`
	Currency  string            `gorm:"type:text;not null;default:'USD'" json:"currency"`
	FeePct    string            `gorm:"type:text;not null;default:'0.20'" json:"fee_pct"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Client) TableName() string { return "clients" }
