package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/netlift/netlift/internal/baseline/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxDeltaRetries bounds the optimistic-concurrency retry loop. Each
// conflict round has exactly one winner, so the bound must exceed the
// number of writers that can plausibly race on one client.
const maxDeltaRetries = 16

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("baseline.service"),
		repo: p.Repo,
	}
}

func (s *Service) GetBaseline(ctx context.Context, clientID snowflake.ID) (domain.BaselineSnapshot, error) {
	snapshot, err := s.repo.FindByClient(ctx, s.db, clientID)
	if err != nil {
		return domain.BaselineSnapshot{}, err
	}
	if snapshot == nil {
		return domain.BaselineSnapshot{}, domain.ErrNotFound
	}
	return *snapshot, nil
}

// ApplyCurrentPeriodDelta adds the delta under per-client optimistic
// concurrency. Current-period fields must be non-negative: within a period
// these counters only increase; resets belong to the baseline job.
func (s *Service) ApplyCurrentPeriodDelta(ctx context.Context, clientID snowflake.ID, delta domain.Delta) error {
	if delta.Revenue < 0 || delta.AdSpend < 0 || delta.OrderCount < 0 {
		return domain.ErrNegativeDelta
	}

	var lastErr error
	for attempt := 0; attempt < maxDeltaRetries; attempt++ {
		snapshot, err := s.repo.FindByClient(ctx, s.db, clientID)
		if err != nil {
			return err
		}
		if snapshot == nil {
			return domain.ErrNotFound
		}

		err = s.repo.ApplyDelta(ctx, s.db, clientID, snapshot.Version, delta)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
		lastErr = err
	}

	s.log.Warn("baseline delta exhausted retries",
		zap.String("client_id", clientID.String()),
		zap.Int("attempts", maxDeltaRetries),
	)
	return lastErr
}

// Sync overwrites the historical fields and resets current-period counters.
// Called by the external baseline-recalculation job only.
func (s *Service) Sync(ctx context.Context, clientID snowflake.ID, req domain.SyncRequest) (domain.BaselineSnapshot, error) {
	if req.Revenue < 0 || req.OrderCount < 0 || req.AdSpend < 0 {
		return domain.BaselineSnapshot{}, domain.ErrInvalidSync
	}

	avgOrderValue := req.AvgOrderValue
	if avgOrderValue == 0 && req.OrderCount > 0 {
		avgOrderValue = req.Revenue / req.OrderCount
	}

	now := time.Now().UTC()
	snapshot := domain.BaselineSnapshot{
		ClientID:              clientID,
		BaselineRevenue:       req.Revenue,
		BaselineOrderCount:    req.OrderCount,
		BaselineAvgOrderValue: avgOrderValue,
		BaselineAdSpend:       req.AdSpend,
		BaselineProfit:        req.Revenue - req.AdSpend,
		DataQuality:           domain.DataQuality(req.SampleSize, req.PeriodDays, req.RevenueVariance),
		LastSyncedAt:          now,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := s.repo.Upsert(ctx, s.db, &snapshot); err != nil {
		return domain.BaselineSnapshot{}, err
	}

	s.log.Info("baseline synced",
		zap.String("client_id", clientID.String()),
		zap.String("data_quality", string(snapshot.DataQuality)),
	)

	return s.GetBaseline(ctx, clientID)
}
