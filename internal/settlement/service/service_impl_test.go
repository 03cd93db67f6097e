package service

import (
	"context"
	"sync"
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
	ledgerservice "github.com/netlift/netlift/internal/ledger/service"
	"github.com/netlift/netlift/internal/settlement/domain"
	"github.com/netlift/netlift/internal/settlement/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	svc       domain.Service
	ledgerSvc ledgerdomain.Service
	clientID  snowflake.ID
	clk       *clock.FakeClock
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
		&domain.SettlementInvoice{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()
	clk := clock.NewFakeClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	policy := config.NewStaticPolicyHolder(config.DefaultAttributionPolicy())

	clientSvc := clientservice.New(clientservice.Params{
		DB: db, Log: log, GenID: node, Repo: clientrepo.Provide(),
	})
	baselineSvc := baselineservice.New(baselineservice.Params{
		DB: db, Log: log, Repo: baselinerepo.Provide(),
	})
	ledgerRepo := ledgerrepo.Provide()
	ledgerSvc := ledgerservice.New(ledgerservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk,
		Repo: ledgerRepo, ClientSvc: clientSvc, BaselineSvc: baselineSvc, Policy: policy,
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
		SampleSize: 20,
		PeriodDays: 60,
	})
	require.NoError(t, err)

	svc := New(Params{
		DB: db, Log: log, GenID: node, Clock: clk,
		Repo: repository.Provide(), LedgerRepo: ledgerRepo,
		ClientSvc: clientSvc, BaselineSvc: baselineSvc, Policy: policy,
	})

	return &fixture{db: db, svc: svc, ledgerSvc: ledgerSvc, clientID: client.ID, clk: clk}
}

func (f *fixture) recordOrder(t *testing.T, orderID string, amount int64) {
	t.Helper()
	_, err := f.ledgerSvc.RecordOrder(context.Background(), ledgerdomain.RecordOrderInput{
		ClientID:        f.clientID,
		ExternalOrderID: orderID,
		Amount:          amount,
		Confidence:      0.85,
		Signals:         attributiondomain.SignalScores{AdTouchpoint: 0.6},
	})
	require.NoError(t, err)
}

func TestGenerateOrReturn_SumsPeriod(t *testing.T) {
	f := newFixture(t)
	f.recordOrder(t, "ord-1", 99_99)
	f.recordOrder(t, "ord-2", 99_99)
	f.recordOrder(t, "ord-3", 50_00) // below baseline, not attributed

	invoice, err := f.svc.GenerateOrReturn(context.Background(), f.clientID, 2026, 3)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusDraft, invoice.Status)
	assert.Equal(t, int64(2), invoice.AttributedOrderCount)
	assert.Equal(t, int64(2*29_99), invoice.IncrementalRevenue)
	assert.Equal(t, int64(2*29_99), invoice.NetProfitUplift)
	// 5998 * 0.20 = 1199.6 -> 1200
	assert.Equal(t, int64(12_00), invoice.FeeAmount)
	assert.Equal(t, invoice.NetProfitUplift-invoice.FeeAmount, invoice.ClientNetGain)
	assert.NotEmpty(t, invoice.Explanation)

	// every attributed entry took the invoice stamp, the rest did not
	var stamped int64
	require.NoError(t, f.db.Model(&ledgerdomain.LedgerEntry{}).
		Where("invoice_id = ?", invoice.ID).Count(&stamped).Error)
	assert.Equal(t, int64(2), stamped)
}

func TestGenerateOrReturn_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.recordOrder(t, "ord-1", 99_99)

	first, err := f.svc.GenerateOrReturn(context.Background(), f.clientID, 2026, 3)
	require.NoError(t, err)

	f.recordOrder(t, "ord-late", 99_99)
	second, err := f.svc.GenerateOrReturn(context.Background(), f.clientID, 2026, 3)
	require.NoError(t, err)

	// the late order never changes an already generated invoice
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.FeeAmount, second.FeeAmount)
	assert.Equal(t, first.AttributedOrderCount, second.AttributedOrderCount)
}

func TestGenerateOrReturn_Concurrent(t *testing.T) {
	f := newFixture(t)
	f.recordOrder(t, "ord-1", 99_99)

	const callers = 8
	invoices := make([]domain.SettlementInvoice, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			invoices[i], errs[i] = f.svc.GenerateOrReturn(context.Background(), f.clientID, 2026, 3)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
	}
	for i := 1; i < callers; i++ {
		assert.Equal(t, invoices[0].ID, invoices[i].ID)
	}

	var count int64
	require.NoError(t, f.db.Model(&domain.SettlementInvoice{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGenerateOrReturn_ZeroOrders(t *testing.T) {
	f := newFixture(t)

	invoice, err := f.svc.GenerateOrReturn(context.Background(), f.clientID, 2026, 1)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusDraft, invoice.Status)
	assert.Equal(t, int64(0), invoice.AttributedOrderCount)
	assert.Equal(t, int64(0), invoice.FeeAmount)
	assert.Contains(t, invoice.Explanation, "no attributed orders")
}

func TestGenerateOrReturn_InvalidPeriod(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GenerateOrReturn(context.Background(), f.clientID, 2026, 13)
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)
	_, err = f.svc.GenerateOrReturn(context.Background(), f.clientID, 1999, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)
}

func TestStatusTransitions(t *testing.T) {
	f := newFixture(t)
	f.recordOrder(t, "ord-1", 99_99)

	invoice, err := f.svc.GenerateOrReturn(context.Background(), f.clientID, 2026, 3)
	require.NoError(t, err)

	// draft cannot be paid or disputed
	_, err = f.svc.MarkPaid(context.Background(), invoice.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = f.svc.MarkDisputed(context.Background(), invoice.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	sent, err := f.svc.MarkSent(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, sent.Status)
	require.NotNil(t, sent.SentAt)

	paid, err := f.svc.MarkPaid(context.Background(), invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	// paid is terminal
	_, err = f.svc.MarkDisputed(context.Background(), invoice.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = f.svc.MarkSent(context.Background(), invoice.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}
