// Package auditexport produces flat-file exports of a client's ledger for
// external audit. It only reads; verification recomputes the hash chain
// from the exported records themselves.
package auditexport

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/netlift/netlift/internal/ledger/domain"
	"github.com/netlift/netlift/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Record is one exported ledger row, in creation order.
type Record struct {
	EntryID         snowflake.ID `json:"entry_id"`
	EntryHash       string       `json:"entry_hash"`
	PrevHash        string       `json:"prev_hash"`
	ClientID        snowflake.ID `json:"client_id"`
	ExternalOrderID string       `json:"external_order_id"`
	Amount          int64        `json:"amount"`
	Attributed      bool         `json:"attributed"`
	Confidence      float64      `json:"confidence"`
	IncrementalRev  int64        `json:"incremental_revenue"`
	NetProfitUplift int64        `json:"net_profit_uplift"`
	FeeAmount       int64        `json:"fee_amount"`
	CreatedAt       time.Time    `json:"created_at"`
}

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo ledgerdomain.Repository
}

type Exporter struct {
	db   *gorm.DB
	log  *zap.Logger
	repo ledgerdomain.Repository
}

func New(p Params) *Exporter {
	return &Exporter{
		db:   p.DB,
		log:  p.Log.Named("auditexport"),
		repo: p.Repo,
	}
}

// Export returns the client's entries between from and to (half-open,
// zero times meaning unbounded) in creation order.
func (e *Exporter) Export(ctx context.Context, clientID snowflake.ID, from, to time.Time) ([]Record, error) {
	entries, err := e.repo.Query(ctx, e.db, clientID, from, to, 0, 0)
	if err != nil {
		return nil, err
	}

	records := make([]Record, len(entries))
	for i, entry := range entries {
		records[i] = Record{
			EntryID:         entry.ID,
			EntryHash:       entry.EntryHash,
			PrevHash:        entry.PrevHash,
			ClientID:        entry.ClientID,
			ExternalOrderID: entry.ExternalOrderID,
			Amount:          entry.Amount,
			Attributed:      entry.Attributed,
			Confidence:      entry.Confidence,
			IncrementalRev:  entry.IncrementalRevenue,
			NetProfitUplift: entry.NetProfitUplift,
			FeeAmount:       entry.FeeAmount,
			CreatedAt:       entry.CreatedAt,
		}
	}
	return records, nil
}

var csvHeader = []string{
	"entry_id", "entry_hash", "prev_hash", "client_id", "external_order_id",
	"amount", "attributed", "confidence", "incremental_revenue",
	"net_profit_uplift", "fee_amount", "created_at",
}

// WriteCSV streams records as CSV with amounts rendered as decimal strings.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.EntryID.String(),
			r.EntryHash,
			r.PrevHash,
			r.ClientID.String(),
			r.ExternalOrderID,
			money.Format(r.Amount),
			strconv.FormatBool(r.Attributed),
			strconv.FormatFloat(r.Confidence, 'f', 2, 64),
			money.Format(r.IncrementalRev),
			money.Format(r.NetProfitUplift),
			money.Format(r.FeeAmount),
			r.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// VerifyChain recomputes every hash in order and reports the first break.
// Records must be a client's full chain from its first entry.
func VerifyChain(records []Record) error {
	prev := ""
	for i, r := range records {
		if r.PrevHash != prev {
			return fmt.Errorf("chain break at record %d: prev hash mismatch", i)
		}
		entry := ledgerdomain.LedgerEntry{
			ID:                 r.EntryID,
			ClientID:           r.ClientID,
			Amount:             r.Amount,
			Attributed:         r.Attributed,
			IncrementalRevenue: r.IncrementalRev,
			NetProfitUplift:    r.NetProfitUplift,
			FeeAmount:          r.FeeAmount,
			CreatedAt:          r.CreatedAt,
		}
		if got := ledgerdomain.ComputeEntryHash(prev, &entry); got != r.EntryHash {
			return fmt.Errorf("chain break at record %d: entry hash mismatch", i)
		}
		prev = r.EntryHash
	}
	return nil
}

var Module = fx.Module("auditexport",
	fx.Provide(New),
)
