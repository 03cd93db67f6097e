package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is the persistence port for ledger rows. Methods take the db
// handle so callers control transaction scope; the settlement aggregator
// stamps invoice ids inside its own transaction through this interface.
type Repository interface {
	// Insert appends an entry. Returns false when the
	// (client_id, external_order_id) pair already exists; the row is
	// then left untouched.
	Insert(ctx context.Context, db *gorm.DB, entry *LedgerEntry) (bool, error)
	InsertLog(ctx context.Context, db *gorm.DB, log *AttributionLog) error

	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*LedgerEntry, error)
	FindByExternalOrderID(ctx context.Context, db *gorm.DB, clientID snowflake.ID, externalOrderID string) (*LedgerEntry, error)

	// LastEntryHash returns the newest entry hash for the client, or ""
	// when the chain is empty.
	LastEntryHash(ctx context.Context, db *gorm.DB, clientID snowflake.ID) (string, error)

	Query(ctx context.Context, db *gorm.DB, clientID snowflake.ID, from, to time.Time, afterID snowflake.ID, limit int) ([]LedgerEntry, error)
	RecentAttributed(ctx context.Context, db *gorm.DB, clientID snowflake.ID, limit int) ([]LedgerEntry, error)
	PeriodTotals(ctx context.Context, db *gorm.DB, clientID snowflake.ID, from, to time.Time) (PeriodTotals, error)
	CountByClient(ctx context.Context, db *gorm.DB, clientID snowflake.ID) (total, attributed int64, err error)
	AgentCounts(ctx context.Context, db *gorm.DB, clientID snowflake.ID) (map[string]int64, error)

	// AssignInvoice stamps a single entry exactly once.
	AssignInvoice(ctx context.Context, db *gorm.DB, entryID, invoiceID snowflake.ID) error
	// StampInvoicePeriod stamps every unstamped attributed entry in the
	// window and reports how many rows took the stamp.
	StampInvoicePeriod(ctx context.Context, db *gorm.DB, clientID snowflake.ID, from, to time.Time, invoiceID snowflake.ID) (int64, error)

	Anonymize(ctx context.Context, db *gorm.DB, clientID snowflake.ID) (int64, error)
}
