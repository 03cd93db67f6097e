// Package insights aggregates read-only performance summaries per client.
package insights

import (
	"context"
	"sort"

	"github.com/bwmarrin/snowflake"
	baselinedomain "github.com/netlift/netlift/internal/baseline/domain"
	ledgerdomain "github.com/netlift/netlift/internal/ledger/domain"
	"github.com/netlift/netlift/internal/uplift"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AgentCount pairs a contributing agent with how many attributed orders it
// appeared on.
type AgentCount struct {
	Agent string `json:"agent"`
	Count int64  `json:"count"`
}

// ClientSummary is the full performance picture for one client. Amounts
// are minor units; the HTTP layer renders them as decimal strings.
type ClientSummary struct {
	ClientID snowflake.ID `json:"client_id"`

	BaselineRevenue       int64                          `json:"baseline_revenue"`
	BaselineOrderCount    int64                          `json:"baseline_order_count"`
	BaselineAvgOrderValue int64                          `json:"baseline_avg_order_value"`
	BaselineAdSpend       int64                          `json:"baseline_ad_spend"`
	DataQuality           baselinedomain.DataQualityTier `json:"data_quality"`

	CurrentRevenue    int64 `json:"current_revenue"`
	CurrentOrderCount int64 `json:"current_order_count"`
	CurrentAdSpend    int64 `json:"current_ad_spend"`

	CumIncrementalRevenue int64 `json:"cum_incremental_revenue"`
	CumIncrementalAdSpend int64 `json:"cum_incremental_ad_spend"`
	CumNetProfitUplift    int64 `json:"cum_net_profit_uplift"`
	CumFees               int64 `json:"cum_fees"`

	TotalOrders      int64   `json:"total_orders"`
	AttributedOrders int64   `json:"attributed_orders"`
	AttributionRate  float64 `json:"attribution_rate"`
	ROI              float64 `json:"roi"`

	TopAgents []AgentCount `json:"top_agents"`
}

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	LedgerRepo  ledgerdomain.Repository
	BaselineSvc baselinedomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	ledgerRepo  ledgerdomain.Repository
	baselineSvc baselinedomain.Service
}

func New(p Params) *Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("insights"),
		ledgerRepo:  p.LedgerRepo,
		baselineSvc: p.BaselineSvc,
	}
}

func (s *Service) Summary(ctx context.Context, clientID snowflake.ID) (ClientSummary, error) {
	baseline, err := s.baselineSvc.GetBaseline(ctx, clientID)
	if err != nil {
		return ClientSummary{}, err
	}

	total, attributed, err := s.ledgerRepo.CountByClient(ctx, s.db, clientID)
	if err != nil {
		return ClientSummary{}, err
	}

	agentCounts, err := s.ledgerRepo.AgentCounts(ctx, s.db, clientID)
	if err != nil {
		return ClientSummary{}, err
	}

	summary := ClientSummary{
		ClientID:              clientID,
		BaselineRevenue:       baseline.BaselineRevenue,
		BaselineOrderCount:    baseline.BaselineOrderCount,
		BaselineAvgOrderValue: baseline.BaselineAvgOrderValue,
		BaselineAdSpend:       baseline.BaselineAdSpend,
		DataQuality:           baseline.DataQuality,
		CurrentRevenue:        baseline.CurrentRevenue,
		CurrentOrderCount:     baseline.CurrentOrderCount,
		CurrentAdSpend:        baseline.CurrentAdSpend,
		CumIncrementalRevenue: baseline.CumIncrementalRevenue,
		CumIncrementalAdSpend: baseline.CumIncrementalAdSpend,
		CumNetProfitUplift:    baseline.CumNetProfitUplift,
		CumFees:               baseline.CumFees,
		TotalOrders:           total,
		AttributedOrders:      attributed,
		ROI:                   uplift.ROI(baseline.CumNetProfitUplift-baseline.CumFees, baseline.CumFees),
		TopAgents:             topAgents(agentCounts, 5),
	}
	if total > 0 {
		summary.AttributionRate = float64(attributed) / float64(total)
	}
	return summary, nil
}

// topAgents orders by count descending, agent name ascending on ties, so
// the ranking is stable.
func topAgents(counts map[string]int64, limit int) []AgentCount {
	ranked := make([]AgentCount, 0, len(counts))
	for agent, count := range counts {
		ranked = append(ranked, AgentCount{Agent: agent, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Agent < ranked[j].Agent
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

var Module = fx.Module("insights",
	fx.Provide(New),
)
