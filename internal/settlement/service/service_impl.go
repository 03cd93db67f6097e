package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	baselinedomain "github.com/netlift/netlift/internal/baseline/domain"
	clientdomain "github.com/netlift/netlift/internal/client/domain"
	"github.com/netlift/netlift/internal/clock"
	"github.com/netlift/netlift/internal/config"
	ledgerdomain "github.com/netlift/netlift/internal/ledger/domain"
	obsmetrics "github.com/netlift/netlift/internal/observability/metrics"
	"github.com/netlift/netlift/internal/ratelimit"
	"github.com/netlift/netlift/internal/settlement/domain"
	"github.com/netlift/netlift/internal/uplift"
	"github.com/netlift/netlift/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// dueAfter is the payment window stamped on a freshly generated invoice.
const dueAfter = 30 * 24 * time.Hour

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	LedgerRepo  ledgerdomain.Repository
	ClientSvc   clientdomain.Service
	BaselineSvc baselinedomain.Service
	Policy      *config.PolicyHolder
	AdSpend     domain.AdSpendProvider `optional:"true"`
	Locker      *ratelimit.Locker      `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics    `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	ledgerRepo  ledgerdomain.Repository
	clientSvc   clientdomain.Service
	baselineSvc baselinedomain.Service
	policy      *config.PolicyHolder
	adSpend     domain.AdSpendProvider
	locker      *ratelimit.Locker
	obsMetrics  *obsmetrics.Metrics

	genMu sync.Map // period key -> *sync.Mutex
}

func New(p Params) domain.Service {
	adSpend := p.AdSpend
	if adSpend == nil {
		adSpend = domain.ZeroAdSpendProvider{}
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("settlement.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		ledgerRepo:  p.LedgerRepo,
		clientSvc:   p.ClientSvc,
		baselineSvc: p.BaselineSvc,
		policy:      p.Policy,
		adSpend:     adSpend,
		locker:      p.Locker,
		obsMetrics:  p.ObsMetrics,
	}
}

func (s *Service) GenerateOrReturn(ctx context.Context, clientID snowflake.ID, year, month int) (domain.SettlementInvoice, error) {
	if year < 2000 || year > 2200 || month < 1 || month > 12 {
		return domain.SettlementInvoice{}, domain.ErrInvalidPeriod
	}

	existing, err := s.repo.FindByPeriod(ctx, s.db, clientID, year, month)
	if err != nil {
		return domain.SettlementInvoice{}, err
	}
	if existing != nil {
		if s.obsMetrics != nil {
			s.obsMetrics.RecordSettlementGenerated(ctx, true)
		}
		return *existing, nil
	}

	periodKey := fmt.Sprintf("settlement:%s:%04d-%02d", clientID, year, month)
	mu := s.periodMu(periodKey)
	mu.Lock()
	defer mu.Unlock()

	// best-effort cross-process lock; the unique period index decides the
	// winner if two processes generate anyway
	if s.locker != nil {
		token, ok, err := s.locker.TryLock(ctx, periodKey, ratelimit.LockTTL)
		if err != nil {
			s.log.Warn("settlement lock unavailable", zap.String("key", periodKey), zap.Error(err))
		} else if ok {
			defer func() {
				if err := s.locker.Release(ctx, periodKey, token); err != nil {
					s.log.Warn("settlement lock release failed", zap.String("key", periodKey), zap.Error(err))
				}
			}()
		}
	}

	// re-check under the lock
	existing, err = s.repo.FindByPeriod(ctx, s.db, clientID, year, month)
	if err != nil {
		return domain.SettlementInvoice{}, err
	}
	if existing != nil {
		if s.obsMetrics != nil {
			s.obsMetrics.RecordSettlementGenerated(ctx, true)
		}
		return *existing, nil
	}

	invoice, err := s.generate(ctx, clientID, year, month)
	if err != nil {
		return domain.SettlementInvoice{}, err
	}
	if s.obsMetrics != nil {
		s.obsMetrics.RecordSettlementGenerated(ctx, false)
	}
	return invoice, nil
}

func (s *Service) generate(ctx context.Context, clientID snowflake.ID, year, month int) (domain.SettlementInvoice, error) {
	client, err := s.clientSvc.GetByID(ctx, clientID)
	if err != nil {
		return domain.SettlementInvoice{}, err
	}
	baseline, err := s.baselineSvc.GetBaseline(ctx, clientID)
	if err != nil {
		return domain.SettlementInvoice{}, err
	}

	feePctStr := client.FeePct
	if strings.TrimSpace(feePctStr) == "" {
		feePctStr = s.policy.Get().DefaultFeePct
	}
	feePct, err := money.ParseRate(feePctStr)
	if err != nil {
		return domain.SettlementInvoice{}, err
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	totals, err := s.ledgerRepo.PeriodTotals(ctx, s.db, clientID, from, to)
	if err != nil {
		return domain.SettlementInvoice{}, err
	}

	actualAdSpend, err := s.adSpend.PeriodAdSpend(ctx, clientID, year, month)
	if err != nil {
		return domain.SettlementInvoice{}, err
	}

	// with a spend source the period rule compares whole-period spend
	// against the baseline; otherwise the per-order sums stand in
	incAdSpend := totals.IncrementalAdSpend
	if actualAdSpend > 0 {
		incAdSpend = actualAdSpend - baseline.BaselineAdSpend
	}

	res := uplift.Compute(totals.IncrementalRevenue, incAdSpend, feePct)
	netGain := res.NetProfitUplift - res.FeeAmount
	now := s.clock.Now()
	due := now.Add(dueAfter)

	invoice := domain.SettlementInvoice{
		ID:                   s.genID.Generate(),
		ClientID:             clientID,
		PeriodYear:           year,
		PeriodMonth:          month,
		BaselineRevenue:      baseline.BaselineRevenue,
		ActualRevenue:        totals.AttributedRevenue,
		BaselineAdSpend:      baseline.BaselineAdSpend,
		ActualAdSpend:        actualAdSpend,
		IncrementalRevenue:   totals.IncrementalRevenue,
		IncrementalAdSpend:   incAdSpend,
		NetProfitUplift:      res.NetProfitUplift,
		FeePct:               feePctStr,
		FeeAmount:            res.FeeAmount,
		ClientNetGain:        netGain,
		ClientROI:            uplift.ROI(netGain, res.FeeAmount),
		AttributedOrderCount: totals.AttributedCount,
		Status:               domain.StatusDraft,
		DueAt:                &due,
		Explanation:          buildExplanation(year, month, totals, res),
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := s.repo.Insert(ctx, tx, &invoice)
		if err != nil {
			return err
		}
		if !created {
			winner, err := s.repo.FindByPeriod(ctx, tx, clientID, year, month)
			if err != nil {
				return err
			}
			if winner == nil {
				return domain.ErrNotFound
			}
			invoice = *winner
			return nil
		}

		stamped, err := s.ledgerRepo.StampInvoicePeriod(ctx, tx, clientID, from, to, invoice.ID)
		if err != nil {
			return err
		}
		s.log.Info("settlement generated",
			zap.String("client_id", clientID.String()),
			zap.Int("year", year),
			zap.Int("month", month),
			zap.Int64("entries_stamped", stamped),
			zap.Int64("fee_amount", invoice.FeeAmount),
		)
		return nil
	})
	if err != nil {
		return domain.SettlementInvoice{}, err
	}
	return invoice, nil
}

func buildExplanation(year, month int, totals ledgerdomain.PeriodTotals, res uplift.Result) string {
	if totals.AttributedCount == 0 {
		return fmt.Sprintf("settlement %04d-%02d: no attributed orders, fee 0.00", year, month)
	}
	return fmt.Sprintf(
		"settlement %04d-%02d: %d attributed orders, incremental revenue %s, incremental ad spend %s, net profit uplift %s, fee %s",
		year, month,
		totals.AttributedCount,
		money.Format(totals.IncrementalRevenue),
		money.Format(totals.IncrementalAdSpend),
		money.Format(res.NetProfitUplift),
		money.Format(res.FeeAmount),
	)
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.SettlementInvoice, error) {
	invoice, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.SettlementInvoice{}, err
	}
	if invoice == nil {
		return domain.SettlementInvoice{}, domain.ErrNotFound
	}
	return *invoice, nil
}

func (s *Service) MarkSent(ctx context.Context, id snowflake.ID) (domain.SettlementInvoice, error) {
	return s.transition(ctx, id, domain.StatusSent)
}

func (s *Service) MarkPaid(ctx context.Context, id snowflake.ID) (domain.SettlementInvoice, error) {
	return s.transition(ctx, id, domain.StatusPaid)
}

func (s *Service) MarkDisputed(ctx context.Context, id snowflake.ID) (domain.SettlementInvoice, error) {
	return s.transition(ctx, id, domain.StatusDisputed)
}

func (s *Service) transition(ctx context.Context, id snowflake.ID, next domain.SettlementStatus) (domain.SettlementInvoice, error) {
	invoice, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.SettlementInvoice{}, err
	}
	if invoice == nil {
		return domain.SettlementInvoice{}, domain.ErrNotFound
	}
	if !invoice.Status.CanTransition(next) {
		return domain.SettlementInvoice{}, domain.ErrInvalidTransition
	}

	now := s.clock.Now()
	invoice.Status = next
	invoice.UpdatedAt = now
	switch next {
	case domain.StatusSent:
		invoice.SentAt = &now
	case domain.StatusPaid:
		invoice.PaidAt = &now
	}

	if err := s.repo.UpdateStatus(ctx, s.db, invoice); err != nil {
		return domain.SettlementInvoice{}, err
	}
	s.log.Info("settlement status changed",
		zap.String("settlement_id", id.String()),
		zap.String("status", string(next)),
	)
	return *invoice, nil
}

func (s *Service) periodMu(key string) *sync.Mutex {
	mu, _ := s.genMu.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
