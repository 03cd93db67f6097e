package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Insert returns false when the (client, year, month) invoice already
	// exists.
	Insert(ctx context.Context, db *gorm.DB, invoice *SettlementInvoice) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*SettlementInvoice, error)
	FindByPeriod(ctx context.Context, db *gorm.DB, clientID snowflake.ID, year, month int) (*SettlementInvoice, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, invoice *SettlementInvoice) error
}
