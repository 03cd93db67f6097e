package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	attributiondomain "github.com/netlift/netlift/internal/attribution/domain"
	baselinedomain "github.com/netlift/netlift/internal/baseline/domain"
	baselinerepo "github.com/netlift/netlift/internal/baseline/repository"
	baselineservice "github.com/netlift/netlift/internal/baseline/service"
	clientdomain "github.com/netlift/netlift/internal/client/domain"
	clientrepo "github.com/netlift/netlift/internal/client/repository"
	clientservice "github.com/netlift/netlift/internal/client/service"
	"github.com/netlift/netlift/internal/clock"
	"github.com/netlift/netlift/internal/config"
	ledgerdomain "github.com/netlift/netlift/internal/ledger/domain"
	ledgerrepo "github.com/netlift/netlift/internal/ledger/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	svc      ledgerdomain.Service
	repo     ledgerdomain.Repository
	clientID snowflake.ID
	clk      *clock.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&clientdomain.Client{},
		&baselinedomain.BaselineSnapshot{},
		&ledgerdomain.LedgerEntry{},
		&ledgerdomain.AttributionLog{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()

	clientSvc := clientservice.New(clientservice.Params{
		DB: db, Log: log, GenID: node, Repo: clientrepo.Provide(),
	})
	baselineSvc := baselineservice.New(baselineservice.Params{
		DB: db, Log: log, Repo: baselinerepo.Provide(),
	})

	client, err := clientSvc.Create(context.Background(), clientdomain.CreateClientRequest{
		Name:     "Acme Outdoor",
		Platform: "shopify",
		FeePct:   "0.20",
	})
	require.NoError(t, err)

	_, err = baselineSvc.Sync(context.Background(), client.ID, baselinedomain.SyncRequest{
		Revenue:    1_400_00,
		OrderCount: 20,
		AdSpend:    0,
		SampleSize: 20,
		PeriodDays: 60,
	})
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	repo := ledgerrepo.Provide()
	svc := New(Params{
		DB:          db,
		Log:         log,
		GenID:       node,
		Clock:       clk,
		Repo:        repo,
		ClientSvc:   clientSvc,
		BaselineSvc: baselineSvc,
		Policy:      config.NewStaticPolicyHolder(config.DefaultAttributionPolicy()),
	})

	return &fixture{db: db, svc: svc, repo: repo, clientID: client.ID, clk: clk}
}

func orderInput(clientID snowflake.ID, orderID string) ledgerdomain.RecordOrderInput {
	return ledgerdomain.RecordOrderInput{
		ClientID:        clientID,
		ExternalOrderID: orderID,
		Amount:          99_99,
		Confidence:      0.85,
		Signals: attributiondomain.SignalScores{
			AdTouchpoint: 0.6,
			Acquisition:  0.5,
		},
	}
}

func TestRecordOrder_WorkedExample(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.RecordOrder(context.Background(), orderInput(f.clientID, "ord-1001"))
	require.NoError(t, err)
	assert.False(t, res.Duplicate)

	e := res.Entry
	assert.True(t, e.Attributed)
	assert.Equal(t, int64(70_00), e.BaselineRevenueUsed)
	assert.Equal(t, int64(29_99), e.IncrementalRevenue)
	assert.InDelta(t, 42.84, e.UpliftPct, 0.01)
	assert.Equal(t, int64(29_99), e.NetProfitUplift)
	assert.Equal(t, int64(6_00), e.FeeAmount)
	assert.NotEmpty(t, e.EntryHash)
	assert.Empty(t, e.PrevHash)

	var logCount int64
	require.NoError(t, f.db.Model(&ledgerdomain.AttributionLog{}).Count(&logCount).Error)
	assert.Equal(t, int64(1), logCount)
}

func TestRecordOrder_Idempotent(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.RecordOrder(context.Background(), orderInput(f.clientID, "ord-1001"))
	require.NoError(t, err)

	// replaying the same order must return the original row unchanged
	replay := orderInput(f.clientID, "ord-1001")
	replay.Amount = 123_45
	second, err := f.svc.RecordOrder(context.Background(), replay)
	require.NoError(t, err)

	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Entry.ID, second.Entry.ID)
	assert.Equal(t, first.Entry.Amount, second.Entry.Amount)
	assert.Equal(t, first.Entry.FeeAmount, second.Entry.FeeAmount)

	var count int64
	require.NoError(t, f.db.Model(&ledgerdomain.LedgerEntry{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRecordOrder_Validation(t *testing.T) {
	f := newFixture(t)

	in := orderInput(f.clientID, "  ")
	_, err := f.svc.RecordOrder(context.Background(), in)
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidOrderID)

	in = orderInput(f.clientID, "ord-1")
	in.Amount = 0
	_, err = f.svc.RecordOrder(context.Background(), in)
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidAmount)

	in = orderInput(snowflake.ID(42), "ord-1")
	_, err = f.svc.RecordOrder(context.Background(), in)
	assert.ErrorIs(t, err, clientdomain.ErrNotFound)
}

func TestRecordOrder_HashChain(t *testing.T) {
	f := newFixture(t)

	var prev string
	for i, orderID := range []string{"ord-1", "ord-2", "ord-3"} {
		f.clk.Advance(time.Minute)
		res, err := f.svc.RecordOrder(context.Background(), orderInput(f.clientID, orderID))
		require.NoError(t, err)

		assert.Equal(t, prev, res.Entry.PrevHash, "entry %d", i)
		assert.Equal(t,
			ledgerdomain.ComputeEntryHash(prev, &res.Entry),
			res.Entry.EntryHash,
		)
		prev = res.Entry.EntryHash
	}
}

func TestAssignInvoice_ExactlyOnce(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.RecordOrder(context.Background(), orderInput(f.clientID, "ord-1"))
	require.NoError(t, err)

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	invoiceID := node.Generate()

	require.NoError(t, f.repo.AssignInvoice(context.Background(), f.db, res.Entry.ID, invoiceID))
	err = f.repo.AssignInvoice(context.Background(), f.db, res.Entry.ID, node.Generate())
	assert.ErrorIs(t, err, ledgerdomain.ErrInvoiceAssigned)
}

func TestAnonymize_PreservesTotalsAndChain(t *testing.T) {
	f := newFixture(t)

	for _, orderID := range []string{"ord-1", "ord-2"} {
		_, err := f.svc.RecordOrder(context.Background(), orderInput(f.clientID, orderID))
		require.NoError(t, err)
	}

	var feesBefore int64
	require.NoError(t, f.db.Model(&ledgerdomain.LedgerEntry{}).
		Select("COALESCE(SUM(fee_amount), 0)").Scan(&feesBefore).Error)

	scrubbed, err := f.svc.Anonymize(context.Background(), f.clientID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), scrubbed)

	entries, _, err := f.svc.Query(context.Background(), f.clientID, time.Time{}, time.Time{}, "", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var feesAfter int64
	require.NoError(t, f.db.Model(&ledgerdomain.LedgerEntry{}).
		Select("COALESCE(SUM(fee_amount), 0)").Scan(&feesAfter).Error)
	assert.Equal(t, feesBefore, feesAfter)

	prev := ""
	for _, e := range entries {
		assert.Contains(t, e.ExternalOrderID, "anon-")
		assert.Equal(t, "redacted", e.Explanation)
		assert.Nil(t, e.CampaignRef)
		// the hash chain survives the scrub
		assert.Equal(t, ledgerdomain.ComputeEntryHash(prev, &e), e.EntryHash)
		prev = e.EntryHash
	}

	// idempotent: a second pass finds nothing left to scrub
	scrubbed, err = f.svc.Anonymize(context.Background(), f.clientID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), scrubbed)
}

func TestQuery_CursorRestart(t *testing.T) {
	f := newFixture(t)

	for _, orderID := range []string{"ord-1", "ord-2", "ord-3", "ord-4", "ord-5"} {
		_, err := f.svc.RecordOrder(context.Background(), orderInput(f.clientID, orderID))
		require.NoError(t, err)
	}

	page1, info, err := f.svc.Query(context.Background(), f.clientID, time.Time{}, time.Time{}, "", 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	require.True(t, info.HasMore)

	page2, info, err := f.svc.Query(context.Background(), f.clientID, time.Time{}, time.Time{}, info.NextPageToken, 2)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	require.True(t, info.HasMore)
	assert.Greater(t, int64(page2[0].ID), int64(page1[1].ID))

	page3, info, err := f.svc.Query(context.Background(), f.clientID, time.Time{}, time.Time{}, info.NextPageToken, 2)
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.False(t, info.HasMore)
}
