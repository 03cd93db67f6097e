package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/netlift/netlift/internal/ledger/domain"
)

func (s *Server) GetClientSummary(c *gin.Context) {
	id, err := parseSnowflakeParam(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	summary, err := s.insightsSvc.Summary(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": renderSummary(summary)})
}

// ListAttributions returns the most recent attributed entries, newest first.
func (s *Server) ListAttributions(c *gin.Context) {
	id, err := parseSnowflakeParam(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	limit, err := parseOptionalLimit(c.Query("limit"), 20)
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be a positive integer"))
		return
	}

	entries, err := s.ledgerSvc.RecentAttributed(c.Request.Context(), id, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": renderEntries(entries)})
}

// QueryLedger pages through a client's ledger with an opaque cursor. The
// optional from/to bounds are half-open on the upper end.
func (s *Server) QueryLedger(c *gin.Context) {
	id, err := parseSnowflakeParam(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	from, to, err := parseTimeRange(c.Query("from"), c.Query("to"))
	if err != nil {
		AbortWithError(c, newValidationError("range", "invalid_time_range", "from/to must be RFC3339 or YYYY-MM-DD"))
		return
	}

	limit, err := parseOptionalLimit(c.Query("limit"), 50)
	if err != nil {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be a positive integer"))
		return
	}

	entries, pageInfo, err := s.ledgerSvc.Query(c.Request.Context(), id, from, to, c.Query("cursor"), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      renderEntries(entries),
		"page_info": pageInfo,
	})
}

func renderEntries(entries []ledgerdomain.LedgerEntry) []ledgerEntryResponse {
	out := make([]ledgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, renderLedgerEntry(e))
	}
	return out
}
