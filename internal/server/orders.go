package server

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	attributiondomain "github.com/netlift/netlift/internal/attribution/domain"
	ledgerdomain "github.com/netlift/netlift/internal/ledger/domain"
	"github.com/netlift/netlift/pkg/money"
)

type recordOrderRequest struct {
	ClientID        string  `json:"client_id"`
	ExternalOrderID string  `json:"external_order_id"`
	Amount          string  `json:"amount"`
	AdSpend         *string `json:"ad_spend,omitempty"`

	Confidence float64            `json:"confidence"`
	Signals    signalScoresRequest `json:"signals"`

	CampaignRef   *string `json:"campaign_ref,omitempty"`
	CreativeRef   *string `json:"creative_ref,omitempty"`
	TouchpointRef *string `json:"touchpoint_ref,omitempty"`
}

type signalScoresRequest struct {
	AdTouchpoint      float64 `json:"ad_touchpoint"`
	Acquisition       float64 `json:"acquisition"`
	ProductPromotion  float64 `json:"product_promotion"`
	NurtureEngagement float64 `json:"nurture_engagement"`
}

type recordOrderResponse struct {
	Entry     ledgerEntryResponse `json:"entry"`
	Duplicate bool                `json:"duplicate"`
}

func (s *Server) RecordOrder(c *gin.Context) {
	var req recordOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	clientID, err := parseSnowflakeParam(req.ClientID)
	if err != nil {
		AbortWithError(c, newValidationError("client_id", "invalid_id", "invalid client id"))
		return
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		AbortWithError(c, newValidationError("amount", "invalid_amount", "amount must be a 2-decimal string"))
		return
	}

	var adSpend *int64
	if req.AdSpend != nil && strings.TrimSpace(*req.AdSpend) != "" {
		parsed, err := money.Parse(*req.AdSpend)
		if err != nil || parsed < 0 {
			AbortWithError(c, newValidationError("ad_spend", "invalid_amount", "ad_spend must be a non-negative 2-decimal string"))
			return
		}
		adSpend = &parsed
	}

	if s.orderLimiter != nil {
		result, err := s.orderLimiter.Allow(c.Request.Context(), clientID)
		if err == nil && result != nil && !result.Allowed {
			if s.obsMetrics != nil {
				s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), "/v1/orders", "order_ingest")
			}
			retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"type":    "rate_limited",
					"message": "order ingest rate limit exceeded",
				},
			})
			return
		}
		// A redis failure never blocks ingest; the unique index still
		// guarantees at-most-once recording.
	}

	result, err := s.ledgerSvc.RecordOrder(c.Request.Context(), ledgerdomain.RecordOrderInput{
		ClientID:        clientID,
		ExternalOrderID: req.ExternalOrderID,
		Amount:          amount,
		AdSpend:         adSpend,
		Confidence:      req.Confidence,
		Signals: attributiondomain.SignalScores{
			AdTouchpoint:      req.Signals.AdTouchpoint,
			Acquisition:       req.Signals.Acquisition,
			ProductPromotion:  req.Signals.ProductPromotion,
			NurtureEngagement: req.Signals.NurtureEngagement,
		},
		CampaignRef:   req.CampaignRef,
		CreativeRef:   req.CreativeRef,
		TouchpointRef: req.TouchpointRef,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"data": recordOrderResponse{
		Entry:     renderLedgerEntry(result.Entry),
		Duplicate: result.Duplicate,
	}})
}
