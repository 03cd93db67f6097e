package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/netlift/netlift/internal/ledger/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.LedgerEntry) (bool, error) {
	result := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "client_id"}, {Name: "external_order_id"}},
		DoNothing: true,
	}).Create(entry)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) InsertLog(ctx context.Context, db *gorm.DB, log *domain.AttributionLog) error {
	return db.WithContext(ctx).Create(log).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.LedgerEntry, error) {
	var entry domain.LedgerEntry
	err := db.WithContext(ctx).Where("id = ?", id).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repo) FindByExternalOrderID(ctx context.Context, db *gorm.DB, clientID snowflake.ID, externalOrderID string) (*domain.LedgerEntry, error) {
	var entry domain.LedgerEntry
	err := db.WithContext(ctx).
		Where("client_id = ? AND external_order_id = ?", clientID, externalOrderID).
		Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repo) LastEntryHash(ctx context.Context, db *gorm.DB, clientID snowflake.ID) (string, error) {
	var hash string
	err := db.WithContext(ctx).Raw(
		`SELECT entry_hash FROM ledger_entries WHERE client_id = ? ORDER BY id DESC LIMIT 1`,
		clientID,
	).Scan(&hash).Error
	if err != nil {
		return "", err
	}
	return hash, nil
}

func (r *repo) Query(ctx context.Context, db *gorm.DB, clientID snowflake.ID, from, to time.Time, afterID snowflake.ID, limit int) ([]domain.LedgerEntry, error) {
	q := db.WithContext(ctx).Where("client_id = ?", clientID)
	if !from.IsZero() {
		q = q.Where("created_at >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("created_at < ?", to)
	}
	if afterID != 0 {
		q = q.Where("id > ?", afterID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var entries []domain.LedgerEntry
	if err := q.Order("id ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) RecentAttributed(ctx context.Context, db *gorm.DB, clientID snowflake.ID, limit int) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	err := db.WithContext(ctx).
		Where("client_id = ? AND attributed = ?", clientID, true).
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) PeriodTotals(ctx context.Context, db *gorm.DB, clientID snowflake.ID, from, to time.Time) (domain.PeriodTotals, error) {
	var totals domain.PeriodTotals
	err := db.WithContext(ctx).Raw(
		`SELECT
			COUNT(*) AS attributed_count,
			COALESCE(SUM(amount), 0) AS attributed_revenue,
			COALESCE(SUM(incremental_revenue), 0) AS incremental_revenue,
			COALESCE(SUM(incremental_ad_spend), 0) AS incremental_ad_spend,
			COALESCE(SUM(net_profit_uplift), 0) AS net_profit_uplift,
			COALESCE(SUM(fee_amount), 0) AS fee_amount
		FROM ledger_entries
		WHERE client_id = ? AND attributed = ? AND created_at >= ? AND created_at < ?`,
		clientID, true, from, to,
	).Scan(&totals).Error
	return totals, err
}

func (r *repo) CountByClient(ctx context.Context, db *gorm.DB, clientID snowflake.ID) (int64, int64, error) {
	var counts struct {
		Total      int64
		Attributed int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN attributed THEN 1 ELSE 0 END), 0) AS attributed
		FROM ledger_entries WHERE client_id = ?`,
		clientID,
	).Scan(&counts).Error
	return counts.Total, counts.Attributed, err
}

// AgentCounts tallies contributing agents in Go; text[] aggregation is not
// portable across the supported dialects.
func (r *repo) AgentCounts(ctx context.Context, db *gorm.DB, clientID snowflake.ID) (map[string]int64, error) {
	var entries []domain.LedgerEntry
	err := db.WithContext(ctx).
		Select("contributing_agents").
		Where("client_id = ? AND attributed = ?", clientID, true).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64)
	for _, e := range entries {
		for _, agent := range e.ContributingAgents {
			counts[agent]++
		}
	}
	return counts, nil
}

func (r *repo) AssignInvoice(ctx context.Context, db *gorm.DB, entryID, invoiceID snowflake.ID) error {
	result := db.WithContext(ctx).Exec(
		`UPDATE ledger_entries SET invoice_id = ? WHERE id = ? AND invoice_id IS NULL`,
		invoiceID, entryID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		entry, err := r.FindByID(ctx, db, entryID)
		if err != nil {
			return err
		}
		if entry == nil {
			return domain.ErrEntryNotFound
		}
		return domain.ErrInvoiceAssigned
	}
	return nil
}

func (r *repo) StampInvoicePeriod(ctx context.Context, db *gorm.DB, clientID snowflake.ID, from, to time.Time, invoiceID snowflake.ID) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE ledger_entries SET invoice_id = ?
		WHERE client_id = ? AND attributed = ? AND invoice_id IS NULL
			AND created_at >= ? AND created_at < ?`,
		invoiceID, clientID, true, from, to,
	)
	return result.RowsAffected, result.Error
}

// Anonymize rewrites identifying fields row by row; the replacement order
// id is derived from the original so uniqueness survives the scrub.
// Amounts, flags and the hash chain are untouched.
func (r *repo) Anonymize(ctx context.Context, db *gorm.DB, clientID snowflake.ID) (int64, error) {
	var rows []struct {
		ID              snowflake.ID
		ExternalOrderID string
	}
	err := db.WithContext(ctx).
		Table("ledger_entries").
		Select("id", "external_order_id").
		Where("client_id = ? AND external_order_id NOT LIKE 'anon-%'", clientID).
		Find(&rows).Error
	if err != nil {
		return 0, err
	}

	for _, row := range rows {
		err := db.WithContext(ctx).Exec(
			`UPDATE ledger_entries SET
				external_order_id = ?,
				explanation = 'redacted',
				campaign_ref = NULL,
				creative_ref = NULL,
				touchpoint_ref = NULL
			WHERE id = ?`,
			domain.AnonymizedOrderID(row.ExternalOrderID),
			row.ID,
		).Error
		if err != nil {
			return 0, err
		}
		if err := db.WithContext(ctx).Exec(
			`UPDATE attribution_logs SET explanation = 'redacted' WHERE entry_id = ?`,
			row.ID,
		).Error; err != nil {
			return 0, err
		}
	}
	return int64(len(rows)), nil
}
