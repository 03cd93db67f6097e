package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// AdSpendProvider reports a client's actual ad spend for a settlement
// period, in minor units. Supplied by an external collaborator; the zero
// provider reports no spend.
type AdSpendProvider interface {
	PeriodAdSpend(ctx context.Context, clientID snowflake.ID, year, month int) (int64, error)
}

// ZeroAdSpendProvider is the default when no spend source is wired.
type ZeroAdSpendProvider struct{}

func (ZeroAdSpendProvider) PeriodAdSpend(context.Context, snowflake.ID, int, int) (int64, error) {
	return 0, nil
}

type Service interface {
	// GenerateOrReturn creates the invoice for the period or returns the
	// existing one untouched. Safe to call concurrently and repeatedly.
	GenerateOrReturn(ctx context.Context, clientID snowflake.ID, year, month int) (SettlementInvoice, error)
	Get(ctx context.Context, id snowflake.ID) (SettlementInvoice, error)
	MarkSent(ctx context.Context, id snowflake.ID) (SettlementInvoice, error)
	MarkPaid(ctx context.Context, id snowflake.ID) (SettlementInvoice, error)
	MarkDisputed(ctx context.Context, id snowflake.ID) (SettlementInvoice, error)
}

var (
	ErrNotFound          = errors.New("settlement_not_found")
	ErrInvalidPeriod     = errors.New("invalid_settlement_period")
	ErrInvalidTransition = errors.New("invalid_status_transition")
)
