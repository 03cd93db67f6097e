// Package engine decides whether an order is attributable to the platform
// and what fee the resulting uplift carries. Decide is pure and
// deterministic so decisions can be replayed and audited byte for byte.
package engine

import (
	"fmt"
	"strings"

	"github.com/netlift/netlift/internal/attribution/domain"
	"github.com/netlift/netlift/internal/uplift"
	"github.com/netlift/netlift/pkg/money"
	"github.com/shopspring/decimal"
)

// Decide applies the three-stage decision rule: confidence gate, baseline
// comparison, then agent derivation and fee computation. Both early exits
// are terminal with a fee of zero.
func Decide(in domain.DecisionInput, feePct decimal.Decimal) (domain.Decision, error) {
	if err := in.Validate(); err != nil {
		return domain.Decision{}, err
	}

	d := domain.Decision{
		Confidence:       in.Confidence,
		ThresholdApplied: in.ConfidenceThreshold,
	}

	if in.Confidence < in.ConfidenceThreshold {
		d.Explanation = fmt.Sprintf(
			"not attributed: confidence %s below threshold %s",
			formatScore(in.Confidence), formatScore(in.ConfidenceThreshold),
		)
		return d, nil
	}

	incremental := in.OrderAmount - in.BaselineAvgOrderValue
	if incremental <= 0 {
		d.Explanation = fmt.Sprintf(
			"not attributed: order value %s does not exceed baseline average %s",
			money.Format(in.OrderAmount), money.Format(in.BaselineAvgOrderValue),
		)
		return d, nil
	}

	d.Attributed = true
	d.IncrementalRevenue = incremental
	if in.BaselineAvgOrderValue > 0 {
		d.UpliftPct = float64(incremental) / float64(in.BaselineAvgOrderValue) * 100
	}

	if in.AdSpend != nil {
		d.AdSpendForOrder = *in.AdSpend
		if in.BaselineOrderCount > 0 {
			d.BaselineAdSpend = in.BaselineAdSpend / in.BaselineOrderCount
		}
		d.IncrementalAdSpend = d.AdSpendForOrder - d.BaselineAdSpend
	}

	res := uplift.Compute(d.IncrementalRevenue, d.IncrementalAdSpend, feePct)
	d.NetProfitUplift = res.NetProfitUplift
	d.FeeAmount = res.FeeAmount
	d.FeeApplicable = res.FeeApplicable

	d.Agents, d.AgentShares = deriveAgents(in.Signals, in.Cutoffs)
	d.Explanation = buildExplanation(d)
	return d, nil
}

// deriveAgents credits every signal at or above its cutoff, in fixed enum
// order. Shares are each qualifying score's fraction of the qualifying
// total. No qualifying signal credits the generic platform agent.
func deriveAgents(scores domain.SignalScores, cutoffs domain.Cutoffs) ([]domain.AgentKind, map[string]float64) {
	type candidate struct {
		agent  domain.AgentKind
		score  float64
		cutoff float64
	}
	candidates := []candidate{
		{domain.AgentAdCampaign, scores.AdTouchpoint, cutoffs.AdTouchpoint},
		{domain.AgentAcquisition, scores.Acquisition, cutoffs.Acquisition},
		{domain.AgentProductPromotion, scores.ProductPromotion, cutoffs.ProductPromotion},
		{domain.AgentNurtureEngagement, scores.NurtureEngagement, cutoffs.NurtureEngagement},
	}

	var agents []domain.AgentKind
	var total float64
	for _, c := range candidates {
		if c.score >= c.cutoff {
			agents = append(agents, c.agent)
			total += c.score
		}
	}
	if len(agents) == 0 {
		return []domain.AgentKind{domain.AgentPlatform}, map[string]float64{
			string(domain.AgentPlatform): 1,
		}
	}

	shares := make(map[string]float64, len(agents))
	for _, c := range candidates {
		if c.score >= c.cutoff {
			if total > 0 {
				shares[string(c.agent)] = c.score / total
			} else {
				shares[string(c.agent)] = 1 / float64(len(agents))
			}
		}
	}
	return agents, shares
}

func buildExplanation(d domain.Decision) string {
	names := make([]string, len(d.Agents))
	for i, a := range d.Agents {
		names[i] = string(a)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "attributed to %s: incremental revenue %s (+%s%% over baseline)",
		strings.Join(names, ", "),
		money.Format(d.IncrementalRevenue),
		formatScore(d.UpliftPct),
	)
	if d.AdSpendForOrder != 0 || d.IncrementalAdSpend != 0 {
		fmt.Fprintf(&b, ", incremental ad spend %s", money.Format(d.IncrementalAdSpend))
	}
	fmt.Fprintf(&b, ", net profit uplift %s, fee %s",
		money.Format(d.NetProfitUplift),
		money.Format(d.FeeAmount),
	)
	return b.String()
}

// formatScore renders a float with two decimals and no exponent so the
// explanation text is reproducible across platforms.
func formatScore(v float64) string {
	return decimal.NewFromFloat(v).Round(2).StringFixed(2)
}
