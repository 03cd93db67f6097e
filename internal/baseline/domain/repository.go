package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByClient(ctx context.Context, db *gorm.DB, clientID snowflake.ID) (*BaselineSnapshot, error)
	// ApplyDelta adds the delta to the row guarded by the version it was
	// read at. Returns ErrVersionConflict when another writer won the race.
	ApplyDelta(ctx context.Context, db *gorm.DB, clientID snowflake.ID, version int64, delta Delta) error
	Upsert(ctx context.Context, db *gorm.DB, snapshot *BaselineSnapshot) error
}
