package server

import (
	"context"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	settlementdomain "github.com/netlift/netlift/internal/settlement/domain"
)

// GetOrGenerateSettlement returns the invoice for the period, generating it
// on first request. Replays return the stored invoice unchanged.
func (s *Server) GetOrGenerateSettlement(c *gin.Context) {
	id, err := parseSnowflakeParam(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	year, err := parseIntParam(c.Param("year"))
	if err != nil {
		AbortWithError(c, newValidationError("year", "invalid_number", "year must be an integer"))
		return
	}
	month, err := parseIntParam(c.Param("month"))
	if err != nil {
		AbortWithError(c, newValidationError("month", "invalid_number", "month must be an integer"))
		return
	}

	invoice, err := s.settlementSvc.GenerateOrReturn(c.Request.Context(), id, year, month)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": renderSettlement(invoice)})
}

func (s *Server) SendSettlement(c *gin.Context) {
	s.transitionSettlement(c, s.settlementSvc.MarkSent)
}

func (s *Server) PaySettlement(c *gin.Context) {
	s.transitionSettlement(c, s.settlementSvc.MarkPaid)
}

func (s *Server) DisputeSettlement(c *gin.Context) {
	s.transitionSettlement(c, s.settlementSvc.MarkDisputed)
}

func (s *Server) transitionSettlement(c *gin.Context, apply func(context.Context, snowflake.ID) (settlementdomain.SettlementInvoice, error)) {
	id, err := parseSnowflakeParam(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	invoice, err := apply(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": renderSettlement(invoice)})
}
