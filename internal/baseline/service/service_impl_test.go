package service

import (
	"context"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/netlift/netlift/internal/baseline/domain"
	"github.com/netlift/netlift/internal/baseline/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.BaselineSnapshot{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:   db,
		Log:  zap.NewNop(),
		Repo: repository.Provide(),
	})
	return svc, db, node
}

func TestGetBaseline_NotFound(t *testing.T) {
	svc, _, node := newTestService(t)

	_, err := svc.GetBaseline(context.Background(), node.Generate())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSync_CreatesAndResets(t *testing.T) {
	svc, _, node := newTestService(t)
	clientID := node.Generate()

	snapshot, err := svc.Sync(context.Background(), clientID, domain.SyncRequest{
		Revenue:         1_000_00,
		OrderCount:      20,
		AdSpend:         200_00,
		SampleSize:      20,
		PeriodDays:      60,
		RevenueVariance: 0.2,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1_000_00), snapshot.BaselineRevenue)
	assert.Equal(t, int64(800_00), snapshot.BaselineProfit)
	assert.Equal(t, int64(50_00), snapshot.BaselineAvgOrderValue)
	assert.Equal(t, domain.DataQualityMedium, snapshot.DataQuality)

	// counters accumulate, then a re-sync resets them
	require.NoError(t, svc.ApplyCurrentPeriodDelta(context.Background(), clientID, domain.Delta{
		Revenue:    99_99,
		OrderCount: 1,
	}))

	snapshot, err = svc.Sync(context.Background(), clientID, domain.SyncRequest{
		Revenue:    2_000_00,
		OrderCount: 40,
		AdSpend:    300_00,
		SampleSize: 40,
		PeriodDays: 120,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), snapshot.CurrentRevenue)
	assert.Equal(t, int64(0), snapshot.CurrentOrderCount)
	assert.Equal(t, domain.DataQualityHigh, snapshot.DataQuality)
}

func TestApplyCurrentPeriodDelta_RejectsNegative(t *testing.T) {
	svc, _, node := newTestService(t)

	err := svc.ApplyCurrentPeriodDelta(context.Background(), node.Generate(), domain.Delta{Revenue: -1})
	assert.ErrorIs(t, err, domain.ErrNegativeDelta)
}

func TestApplyCurrentPeriodDelta_ConcurrentWritersLoseNothing(t *testing.T) {
	svc, _, node := newTestService(t)
	clientID := node.Generate()

	_, err := svc.Sync(context.Background(), clientID, domain.SyncRequest{
		Revenue:    100_00,
		OrderCount: 10,
		SampleSize: 10,
		PeriodDays: 30,
	})
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.ApplyCurrentPeriodDelta(context.Background(), clientID, domain.Delta{
				Revenue:    10_00,
				OrderCount: 1,
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "writer %d", i)
	}

	snapshot, err := svc.GetBaseline(context.Background(), clientID)
	require.NoError(t, err)
	// the CAS loop retries on version conflicts, so every writer's
	// increment must land
	assert.Equal(t, int64(writers), snapshot.CurrentOrderCount)
	assert.Equal(t, int64(writers)*10_00, snapshot.CurrentRevenue)
}

func TestDataQualityTiers(t *testing.T) {
	assert.Equal(t, domain.DataQualityLow, domain.DataQuality(5, 90, 0.1))
	assert.Equal(t, domain.DataQualityLow, domain.DataQuality(50, 10, 0.1))
	assert.Equal(t, domain.DataQualityMedium, domain.DataQuality(20, 90, 0.1))
	assert.Equal(t, domain.DataQualityMedium, domain.DataQuality(50, 60, 0.1))
	assert.Equal(t, domain.DataQualityMedium, domain.DataQuality(50, 120, 0.6))
	assert.Equal(t, domain.DataQualityHigh, domain.DataQuality(50, 120, 0.3))
}
