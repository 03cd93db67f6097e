package server

import (
	"time"

	"github.com/netlift/netlift/internal/insights"
	ledgerdomain "github.com/netlift/netlift/internal/ledger/domain"
	settlementdomain "github.com/netlift/netlift/internal/settlement/domain"
	"github.com/netlift/netlift/pkg/money"
)

// Wire DTOs render every amount as a 2-decimal string; minor units never
// cross the API boundary.

type ledgerEntryResponse struct {
	ID                 string    `json:"id"`
	EntryHash          string    `json:"entry_hash"`
	PrevHash           string    `json:"prev_hash"`
	ClientID           string    `json:"client_id"`
	Platform           string    `json:"platform"`
	ExternalOrderID    string    `json:"external_order_id"`
	Amount             string    `json:"amount"`
	Attributed         bool      `json:"attributed"`
	Confidence         float64   `json:"confidence"`
	BaselineAvgUsed    string    `json:"baseline_avg_order_value"`
	IncrementalRevenue string    `json:"incremental_revenue"`
	UpliftPct          float64   `json:"uplift_pct"`
	AdSpendForOrder    string    `json:"ad_spend_for_order"`
	IncrementalAdSpend string    `json:"incremental_ad_spend"`
	NetProfitUplift    string    `json:"net_profit_uplift"`
	FeeAmount          string    `json:"fee_amount"`
	FeeApplicable      bool      `json:"fee_applicable"`
	ContributingAgents []string  `json:"contributing_agents"`
	Explanation        string    `json:"explanation"`
	InvoiceID          *string   `json:"invoice_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

func renderLedgerEntry(e ledgerdomain.LedgerEntry) ledgerEntryResponse {
	resp := ledgerEntryResponse{
		ID:                 e.ID.String(),
		EntryHash:          e.EntryHash,
		PrevHash:           e.PrevHash,
		ClientID:           e.ClientID.String(),
		Platform:           e.Platform,
		ExternalOrderID:    e.ExternalOrderID,
		Amount:             money.Format(e.Amount),
		Attributed:         e.Attributed,
		Confidence:         e.Confidence,
		BaselineAvgUsed:    money.Format(e.BaselineRevenueUsed),
		IncrementalRevenue: money.Format(e.IncrementalRevenue),
		UpliftPct:          e.UpliftPct,
		AdSpendForOrder:    money.Format(e.AdSpendForOrder),
		IncrementalAdSpend: money.Format(e.IncrementalAdSpend),
		NetProfitUplift:    money.Format(e.NetProfitUplift),
		FeeAmount:          money.Format(e.FeeAmount),
		FeeApplicable:      e.FeeApplicable,
		ContributingAgents: e.ContributingAgents,
		Explanation:        e.Explanation,
		CreatedAt:          e.CreatedAt,
	}
	if e.InvoiceID != nil {
		id := e.InvoiceID.String()
		resp.InvoiceID = &id
	}
	return resp
}

type settlementResponse struct {
	ID                   string     `json:"id"`
	ClientID             string     `json:"client_id"`
	PeriodYear           int        `json:"period_year"`
	PeriodMonth          int        `json:"period_month"`
	BaselineRevenue      string     `json:"baseline_revenue"`
	ActualRevenue        string     `json:"actual_revenue"`
	BaselineAdSpend      string     `json:"baseline_ad_spend"`
	ActualAdSpend        string     `json:"actual_ad_spend"`
	IncrementalRevenue   string     `json:"incremental_revenue"`
	IncrementalAdSpend   string     `json:"incremental_ad_spend"`
	NetProfitUplift      string     `json:"net_profit_uplift"`
	FeePct               string     `json:"fee_pct"`
	FeeAmount            string     `json:"fee_amount"`
	ClientNetGain        string     `json:"client_net_gain"`
	ClientROI            float64    `json:"client_roi"`
	AttributedOrderCount int64      `json:"attributed_order_count"`
	Status               string     `json:"status"`
	DueAt                *time.Time `json:"due_at,omitempty"`
	SentAt               *time.Time `json:"sent_at,omitempty"`
	PaidAt               *time.Time `json:"paid_at,omitempty"`
	Explanation          string     `json:"explanation"`
	CreatedAt            time.Time  `json:"created_at"`
}

func renderSettlement(inv settlementdomain.SettlementInvoice) settlementResponse {
	return settlementResponse{
		ID:                   inv.ID.String(),
		ClientID:             inv.ClientID.String(),
		PeriodYear:           inv.PeriodYear,
		PeriodMonth:          inv.PeriodMonth,
		BaselineRevenue:      money.Format(inv.BaselineRevenue),
		ActualRevenue:        money.Format(inv.ActualRevenue),
		BaselineAdSpend:      money.Format(inv.BaselineAdSpend),
		ActualAdSpend:        money.Format(inv.ActualAdSpend),
		IncrementalRevenue:   money.Format(inv.IncrementalRevenue),
		IncrementalAdSpend:   money.Format(inv.IncrementalAdSpend),
		NetProfitUplift:      money.Format(inv.NetProfitUplift),
		FeePct:               inv.FeePct,
		FeeAmount:            money.Format(inv.FeeAmount),
		ClientNetGain:        money.Format(inv.ClientNetGain),
		ClientROI:            inv.ClientROI,
		AttributedOrderCount: inv.AttributedOrderCount,
		Status:               string(inv.Status),
		DueAt:                inv.DueAt,
		SentAt:               inv.SentAt,
		PaidAt:               inv.PaidAt,
		Explanation:          inv.Explanation,
		CreatedAt:            inv.CreatedAt,
	}
}

type summaryResponse struct {
	ClientID string `json:"client_id"`

	BaselineRevenue       string `json:"baseline_revenue"`
	BaselineOrderCount    int64  `json:"baseline_order_count"`
	BaselineAvgOrderValue string `json:"baseline_avg_order_value"`
	BaselineAdSpend       string `json:"baseline_ad_spend"`
	DataQuality           string `json:"data_quality"`

	CurrentRevenue    string `json:"current_revenue"`
	CurrentOrderCount int64  `json:"current_order_count"`
	CurrentAdSpend    string `json:"current_ad_spend"`

	CumIncrementalRevenue string `json:"cum_incremental_revenue"`
	CumIncrementalAdSpend string `json:"cum_incremental_ad_spend"`
	CumNetProfitUplift    string `json:"cum_net_profit_uplift"`
	CumFees               string `json:"cum_fees"`

	TotalOrders      int64   `json:"total_orders"`
	AttributedOrders int64   `json:"attributed_orders"`
	AttributionRate  float64 `json:"attribution_rate"`
	ROI              float64 `json:"roi"`

	TopAgents []insights.AgentCount `json:"top_agents"`
}

func renderSummary(s insights.ClientSummary) summaryResponse {
	return summaryResponse{
		ClientID:              s.ClientID.String(),
		BaselineRevenue:       money.Format(s.BaselineRevenue),
		BaselineOrderCount:    s.BaselineOrderCount,
		BaselineAvgOrderValue: money.Format(s.BaselineAvgOrderValue),
		BaselineAdSpend:       money.Format(s.BaselineAdSpend),
		DataQuality:           string(s.DataQuality),
		CurrentRevenue:        money.Format(s.CurrentRevenue),
		CurrentOrderCount:     s.CurrentOrderCount,
		CurrentAdSpend:        money.Format(s.CurrentAdSpend),
		CumIncrementalRevenue: money.Format(s.CumIncrementalRevenue),
		CumIncrementalAdSpend: money.Format(s.CumIncrementalAdSpend),
		CumNetProfitUplift:    money.Format(s.CumNetProfitUplift),
		CumFees:               money.Format(s.CumFees),
		TotalOrders:           s.TotalOrders,
		AttributedOrders:      s.AttributedOrders,
		AttributionRate:       s.AttributionRate,
		ROI:                   s.ROI,
		TopAgents:             s.TopAgents,
	}
}
