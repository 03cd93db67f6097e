package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	attributiondomain "github.com/netlift/netlift/internal/attribution/domain"
	"github.com/netlift/netlift/pkg/db/pagination"
)

// RecordOrderInput is one order event from a client platform. Amount is
// minor units; AdSpend is nil when the platform sent no per-order spend.
type RecordOrderInput struct {
	ClientID        snowflake.ID
	ExternalOrderID string
	Amount          int64
	AdSpend         *int64

	Confidence float64
	Signals    attributiondomain.SignalScores

	CampaignRef   *string
	CreativeRef   *string
	TouchpointRef *string
}

// RecordOrderResult carries the persisted entry. Duplicate is true when
// the external order id was already recorded; the entry is then the
// original, untouched by the replay.
type RecordOrderResult struct {
	Entry     LedgerEntry
	Duplicate bool
}

// PeriodTotals aggregates attributed entries over a settlement window.
type PeriodTotals struct {
	AttributedCount    int64
	AttributedRevenue  int64
	IncrementalRevenue int64
	IncrementalAdSpend int64
	NetProfitUplift    int64
	FeeAmount          int64
}

type Service interface {
	RecordOrder(ctx context.Context, in RecordOrderInput) (RecordOrderResult, error)
	Query(ctx context.Context, clientID snowflake.ID, from, to time.Time, cursor string, limit int) ([]LedgerEntry, *pagination.PageInfo, error)
	RecentAttributed(ctx context.Context, clientID snowflake.ID, limit int) ([]LedgerEntry, error)
	Anonymize(ctx context.Context, clientID snowflake.ID) (int64, error)
}

var (
	ErrInvalidOrderID  = errors.New("invalid_external_order_id")
	ErrInvalidAmount   = errors.New("invalid_order_amount")
	ErrInvoiceAssigned = errors.New("invoice_already_assigned")
	ErrEntryNotFound   = errors.New("ledger_entry_not_found")
)
