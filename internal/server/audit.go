package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/netlift/netlift/internal/auditexport"
)

// ExportAudit streams the client's full ledger in chain order for offline
// verification. format=csv returns a download; anything else is JSON.
func (s *Server) ExportAudit(c *gin.Context) {
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

	records, err := s.exporter.Export(c.Request.Context(), id, from, to)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	format := strings.ToLower(strings.TrimSpace(c.Query("format")))
	switch format {
	case "", "json":
		c.JSON(http.StatusOK, gin.H{"data": records})
	case "csv":
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", `attachment; filename="ledger-audit.csv"`)
		c.Status(http.StatusOK)
		if err := auditexport.WriteCSV(c.Writer, records); err != nil {
			// Headers are already out; all we can do is log via gin.
			_ = c.Error(err)
		}
	default:
		AbortWithError(c, newValidationError("format", "invalid_format", "format must be json or csv"))
	}
}
