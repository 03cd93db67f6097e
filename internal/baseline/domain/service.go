package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Delta is one additive update against a client's snapshot. Current-period
// fields must be non-negative; counters only ever increase within a period.
type Delta struct {
	Revenue    int64
	AdSpend    int64
	OrderCount int64

	IncrementalRevenue int64
	IncrementalAdSpend int64
	NetProfitUplift    int64
	Fees               int64
}

// SyncRequest carries the historical fields written by the external
// baseline-recalculation job. Applying it resets current-period counters.
type SyncRequest struct {
	Revenue       int64
	OrderCount    int64
	AvgOrderValue int64
	AdSpend       int64

	SampleSize      int
	PeriodDays      int
	RevenueVariance float64
}

type Service interface {
	GetBaseline(ctx context.Context, clientID snowflake.ID) (BaselineSnapshot, error)
	ApplyCurrentPeriodDelta(ctx context.Context, clientID snowflake.ID, delta Delta) error
	Sync(ctx context.Context, clientID snowflake.ID, req SyncRequest) (BaselineSnapshot, error)
}

var (
	ErrNotFound        = errors.New("baseline_not_found")
	ErrNegativeDelta   = errors.New("negative_current_period_delta")
	ErrVersionConflict = errors.New("baseline_version_conflict")
	ErrInvalidSync     = errors.New("invalid_baseline_sync")
)
