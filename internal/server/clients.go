package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	baselinedomain "github.com/netlift/netlift/internal/baseline/domain"
	clientdomain "github.com/netlift/netlift/internal/client/domain"
	"github.com/netlift/netlift/pkg/money"
)

type createClientRequest struct {
	Name     string `json:"name"`
	Platform string `json:"platform"`
	Currency string `json:"currency"`
	FeePct   string `json:"fee_pct"`
}

func (s *Server) CreateClient(c *gin.Context) {
	var req createClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	created, err := s.clientSvc.Create(c.Request.Context(), clientdomain.CreateClientRequest{
		Name:     req.Name,
		Platform: req.Platform,
		Currency: req.Currency,
		FeePct:   req.FeePct,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": created})
}

func (s *Server) ListClients(c *gin.Context) {
	limit, err := parseOptionalLimit(c.Query("limit"), 50)
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be a positive integer"))
		return
	}

	clients, err := s.clientSvc.List(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": clients})
}

func (s *Server) GetClient(c *gin.Context) {
	id, err := parseSnowflakeParam(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	item, err := s.clientSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

type syncBaselineRequest struct {
	Revenue    string `json:"revenue"`
	OrderCount int64  `json:"order_count"`
	AdSpend    string `json:"ad_spend"`

	SampleSize      int     `json:"sample_size"`
	PeriodDays      int     `json:"period_days"`
	RevenueVariance float64 `json:"revenue_variance"`
}

func (s *Server) SyncBaseline(c *gin.Context) {
	id, err := parseSnowflakeParam(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	var req syncBaselineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	revenue, err := money.Parse(req.Revenue)
	if err != nil {
		AbortWithError(c, newValidationError("revenue", "invalid_amount", "revenue must be a 2-decimal string"))
		return
	}
	adSpend := int64(0)
	if req.AdSpend != "" {
		adSpend, err = money.Parse(req.AdSpend)
		if err != nil {
			AbortWithError(c, newValidationError("ad_spend", "invalid_amount", "ad_spend must be a 2-decimal string"))
			return
		}
	}

	snapshot, err := s.baselineSvc.Sync(c.Request.Context(), id, baselinedomain.SyncRequest{
		Revenue:         revenue,
		OrderCount:      req.OrderCount,
		AdSpend:         adSpend,
		SampleSize:      req.SampleSize,
		PeriodDays:      req.PeriodDays,
		RevenueVariance: req.RevenueVariance,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": snapshot})
}

type anonymizeResponse struct {
	ClientID   string `json:"client_id"`
	Anonymized int64  `json:"anonymized"`
}

// AnonymizeClient scrubs order identity from every ledger entry the client
// owns. Amounts, attribution outcomes and the hash chain are untouched.
func (s *Server) AnonymizeClient(c *gin.Context) {
	id, err := parseSnowflakeParam(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	count, err := s.ledgerSvc.Anonymize(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": anonymizeResponse{
		ClientID:   id.String(),
		Anonymized: count,
	}})
}
