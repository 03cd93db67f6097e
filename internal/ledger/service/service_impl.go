package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	attributiondomain "github.com/netlift/netlift/internal/attribution/domain"
	"github.com/netlift/netlift/internal/attribution/engine"
	baselinedomain "github.com/netlift/netlift/internal/baseline/domain"
	clientdomain "github.com/netlift/netlift/internal/client/domain"
	"github.com/netlift/netlift/internal/clock"
	"github.com/netlift/netlift/internal/config"
	ledgerdomain "github.com/netlift/netlift/internal/ledger/domain"
	obsmetrics "github.com/netlift/netlift/internal/observability/metrics"
	"github.com/netlift/netlift/pkg/db/pagination"
	"github.com/netlift/netlift/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        ledgerdomain.Repository
	ClientSvc   clientdomain.Service
	BaselineSvc baselinedomain.Service
	Policy      *config.PolicyHolder
	ObsMetrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        ledgerdomain.Repository
	clientSvc   clientdomain.Service
	baselineSvc baselinedomain.Service
	policy      *config.PolicyHolder
	obsMetrics  *obsmetrics.Metrics

	// chainMu serializes appends per client so each new entry hashes over
	// the true predecessor. The unique order index still backstops
	// cross-process races.
	chainMu sync.Map // snowflake.ID -> *sync.Mutex
}

func New(p Params) ledgerdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("ledger.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		clientSvc:   p.ClientSvc,
		baselineSvc: p.BaselineSvc,
		policy:      p.Policy,
		obsMetrics:  p.ObsMetrics,
	}
}

func (s *Service) RecordOrder(ctx context.Context, in ledgerdomain.RecordOrderInput) (ledgerdomain.RecordOrderResult, error) {
	in.ExternalOrderID = strings.TrimSpace(in.ExternalOrderID)
	if in.ExternalOrderID == "" {
		return ledgerdomain.RecordOrderResult{}, ledgerdomain.ErrInvalidOrderID
	}
	if in.Amount <= 0 {
		return ledgerdomain.RecordOrderResult{}, ledgerdomain.ErrInvalidAmount
	}

	client, err := s.clientSvc.GetByID(ctx, in.ClientID)
	if err != nil {
		return ledgerdomain.RecordOrderResult{}, err
	}

	// baseline is a precondition: without one no order can be judged
	baseline, err := s.baselineSvc.GetBaseline(ctx, in.ClientID)
	if err != nil {
		return ledgerdomain.RecordOrderResult{}, err
	}

	policy := s.policy.Get()
	feePctStr := client.FeePct
	if strings.TrimSpace(feePctStr) == "" {
		feePctStr = policy.DefaultFeePct
	}
	feePct, err := money.ParseRate(feePctStr)
	if err != nil {
		return ledgerdomain.RecordOrderResult{}, err
	}

	decision, err := engine.Decide(attributiondomain.DecisionInput{
		OrderAmount:           in.Amount,
		AdSpend:               in.AdSpend,
		BaselineAvgOrderValue: baseline.BaselineAvgOrderValue,
		BaselineAdSpend:       baseline.BaselineAdSpend,
		BaselineOrderCount:    baseline.BaselineOrderCount,
		Confidence:            in.Confidence,
		Signals:               in.Signals,
		ConfidenceThreshold:   policy.ConfidenceThreshold,
		Cutoffs: attributiondomain.Cutoffs{
			AdTouchpoint:      policy.SignalCutoffs.AdTouchpoint,
			Acquisition:       policy.SignalCutoffs.Acquisition,
			ProductPromotion:  policy.SignalCutoffs.ProductPromotion,
			NurtureEngagement: policy.SignalCutoffs.NurtureEngagement,
		},
	}, feePct)
	if err != nil {
		return ledgerdomain.RecordOrderResult{}, err
	}

	entry, created, err := s.append(ctx, client, baseline, in, decision)
	if err != nil {
		return ledgerdomain.RecordOrderResult{}, err
	}
	if !created {
		if s.obsMetrics != nil {
			s.obsMetrics.RecordOrder(ctx, entry.Attributed, true)
		}
		s.log.Info("duplicate order replay",
			zap.String("client_id", in.ClientID.String()),
			zap.String("external_order_id", in.ExternalOrderID),
		)
		return ledgerdomain.RecordOrderResult{Entry: *entry, Duplicate: true}, nil
	}

	delta := baselinedomain.Delta{
		Revenue:    in.Amount,
		OrderCount: 1,
	}
	if in.AdSpend != nil {
		delta.AdSpend = *in.AdSpend
	}
	if decision.Attributed {
		delta.IncrementalRevenue = decision.IncrementalRevenue
		delta.IncrementalAdSpend = decision.IncrementalAdSpend
		delta.NetProfitUplift = decision.NetProfitUplift
		delta.Fees = decision.FeeAmount
	}
	if err := s.baselineSvc.ApplyCurrentPeriodDelta(ctx, in.ClientID, delta); err != nil {
		// the entry is already durable; counters lag until the next delta
		s.log.Error("baseline delta failed after ledger append",
			zap.String("client_id", in.ClientID.String()),
			zap.String("entry_id", entry.ID.String()),
			zap.Error(err),
		)
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordOrder(ctx, decision.Attributed, false)
		s.obsMetrics.RecordLedgerEntry(ctx)
	}
	s.log.Info("order recorded",
		zap.String("client_id", in.ClientID.String()),
		zap.String("external_order_id", in.ExternalOrderID),
		zap.Bool("attributed", decision.Attributed),
		zap.Int64("fee_amount", decision.FeeAmount),
	)
	return ledgerdomain.RecordOrderResult{Entry: *entry}, nil
}

// append inserts the entry and its attribution log in one transaction,
// chained onto the client's newest hash.
func (s *Service) append(
	ctx context.Context,
	client clientdomain.Client,
	baseline baselinedomain.BaselineSnapshot,
	in ledgerdomain.RecordOrderInput,
	decision attributiondomain.Decision,
) (*ledgerdomain.LedgerEntry, bool, error) {
	mu := s.clientChainMu(in.ClientID)
	mu.Lock()
	defer mu.Unlock()

	agents := make([]string, len(decision.Agents))
	for i, a := range decision.Agents {
		agents[i] = string(a)
	}
	shares := make(map[string]any, len(decision.AgentShares))
	for k, v := range decision.AgentShares {
		shares[k] = v
	}

	var entry *ledgerdomain.LedgerEntry
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prevHash, err := s.repo.LastEntryHash(ctx, tx, in.ClientID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		entry = &ledgerdomain.LedgerEntry{
			ID:                  s.genID.Generate(),
			PrevHash:            prevHash,
			ClientID:            in.ClientID,
			Platform:            client.Platform,
			ExternalOrderID:     in.ExternalOrderID,
			Amount:              in.Amount,
			Attributed:          decision.Attributed,
			Confidence:          decision.Confidence,
			BaselineRevenueUsed: baseline.BaselineAvgOrderValue,
			IncrementalRevenue:  decision.IncrementalRevenue,
			UpliftPct:           decision.UpliftPct,
			AdSpendForOrder:     decision.AdSpendForOrder,
			BaselineAdSpend:     decision.BaselineAdSpend,
			IncrementalAdSpend:  decision.IncrementalAdSpend,
			NetProfitUplift:     decision.NetProfitUplift,
			FeeAmount:           decision.FeeAmount,
			FeeApplicable:       decision.FeeApplicable,
			ContributingAgents:  agents,
			Explanation:         decision.Explanation,
			CampaignRef:         in.CampaignRef,
			CreativeRef:         in.CreativeRef,
			TouchpointRef:       in.TouchpointRef,
			CreatedAt:           now,
		}
		entry.EntryHash = ledgerdomain.ComputeEntryHash(prevHash, entry)

		inserted, err := s.repo.Insert(ctx, tx, entry)
		if err != nil {
			return err
		}
		if !inserted {
			existing, err := s.repo.FindByExternalOrderID(ctx, tx, in.ClientID, in.ExternalOrderID)
			if err != nil {
				return err
			}
			if existing == nil {
				return ledgerdomain.ErrEntryNotFound
			}
			entry = existing
			return nil
		}
		created = true

		return s.repo.InsertLog(ctx, tx, &ledgerdomain.AttributionLog{
			ID:                     s.genID.Generate(),
			EntryID:                entry.ID,
			AdTouchpointScore:      in.Signals.AdTouchpoint,
			AcquisitionScore:       in.Signals.Acquisition,
			ProductPromotionScore:  in.Signals.ProductPromotion,
			NurtureEngagementScore: in.Signals.NurtureEngagement,
			ThresholdApplied:       decision.ThresholdApplied,
			AgentShares:            shares,
			CounterfactualBaseline: baseline.BaselineAvgOrderValue,
			Explanation:            decision.Explanation,
			CreatedAt:              now,
		})
	})
	if err != nil {
		return nil, false, err
	}
	return entry, created, nil
}

func (s *Service) clientChainMu(clientID snowflake.ID) *sync.Mutex {
	mu, _ := s.chainMu.LoadOrStore(clientID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (s *Service) Query(ctx context.Context, clientID snowflake.ID, from, to time.Time, cursor string, limit int) ([]ledgerdomain.LedgerEntry, *pagination.PageInfo, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var afterID snowflake.ID
	if cursor != "" {
		decoded, err := pagination.DecodeCursor(cursor)
		if err != nil {
			return nil, nil, err
		}
		id, err := snowflake.ParseString(decoded.ID)
		if err != nil {
			return nil, nil, err
		}
		afterID = id
	}

	entries, err := s.repo.Query(ctx, s.db, clientID, from, to, afterID, limit+1)
	if err != nil {
		return nil, nil, err
	}

	refs := make([]*ledgerdomain.LedgerEntry, len(entries))
	for i := range entries {
		refs[i] = &entries[i]
	}
	pageInfo := pagination.BuildCursorPageInfo(refs, limit, func(e *ledgerdomain.LedgerEntry) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: e.ID.String()})
		return token
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, pageInfo, nil
}

func (s *Service) RecentAttributed(ctx context.Context, clientID snowflake.ID, limit int) ([]ledgerdomain.LedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.RecentAttributed(ctx, s.db, clientID, limit)
}

func (s *Service) Anonymize(ctx context.Context, clientID snowflake.ID) (int64, error) {
	if _, err := s.clientSvc.GetByID(ctx, clientID); err != nil {
		return 0, err
	}

	var scrubbed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := s.repo.Anonymize(ctx, tx, clientID)
		if err != nil {
			return err
		}
		scrubbed = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("client ledger anonymized",
		zap.String("client_id", clientID.String()),
		zap.Int64("entries", scrubbed),
	)
	return scrubbed, nil
}
