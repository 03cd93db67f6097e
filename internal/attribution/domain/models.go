package domain

import "errors"

// SignalKind identifies one of the marketing signals scored for an order.
// The set is closed; unknown signal names are rejected at the boundary.
type SignalKind string

const (
	SignalAdTouchpoint      SignalKind = "ad_touchpoint"
	SignalAcquisition       SignalKind = "acquisition"
	SignalProductPromotion  SignalKind = "product_promotion"
	SignalNurtureEngagement SignalKind = "nurture_engagement"
)

// AgentKind identifies a contributing agent credited on an attributed
// order. Agents derive from signals; SignalKinds map one-to-one except for
// the platform fallback when no signal qualifies.
type AgentKind string

const (
	AgentAdCampaign        AgentKind = "ad_campaign"
	AgentAcquisition       AgentKind = "acquisition"
	AgentProductPromotion  AgentKind = "product_promotion"
	AgentNurtureEngagement AgentKind = "nurture_engagement"
	AgentPlatform          AgentKind = "platform"
)

// SignalScores carries the [0,1] score per signal kind.
type SignalScores struct {
	AdTouchpoint      float64
	Acquisition       float64
	ProductPromotion  float64
	NurtureEngagement float64
}

// Cutoffs are the minimum scores a signal must reach to credit its agent.
type Cutoffs struct {
	AdTouchpoint      float64
	Acquisition       float64
	ProductPromotion  float64
	NurtureEngagement float64
}

// DecisionInput is everything the engine needs to decide one order.
// Amounts are minor units. AdSpend is nil when the order event carried no
// per-order ad spend; all ad-spend terms are then zero.
type DecisionInput struct {
	OrderAmount int64
	AdSpend     *int64

	BaselineAvgOrderValue int64
	BaselineAdSpend       int64
	BaselineOrderCount    int64

	Confidence float64
	Signals    SignalScores

	ConfidenceThreshold float64
	Cutoffs             Cutoffs
}

// Decision is the engine's verdict for one order. For identical input the
// decision, including the explanation text, is byte-identical.
type Decision struct {
	Attributed       bool
	Confidence       float64
	ThresholdApplied float64

	IncrementalRevenue int64
	UpliftPct          float64

	AdSpendForOrder    int64
	BaselineAdSpend    int64
	IncrementalAdSpend int64

	NetProfitUplift int64
	FeeAmount       int64
	FeeApplicable   bool

	Agents      []AgentKind
	AgentShares map[string]float64
	Explanation string
}

var (
	ErrInvalidConfidence  = errors.New("confidence_out_of_range")
	ErrInvalidSignalScore = errors.New("signal_score_out_of_range")
)

// Validate checks that confidence and every signal score are within [0,1].
func (in DecisionInput) Validate() error {
	if in.Confidence < 0 || in.Confidence > 1 {
		return ErrInvalidConfidence
	}
	for _, score := range []float64{
		in.Signals.AdTouchpoint,
		in.Signals.Acquisition,
		in.Signals.ProductPromotion,
		in.Signals.NurtureEngagement,
	} {
		if score < 0 || score > 1 {
			return ErrInvalidSignalScore
		}
	}
	return nil
}
