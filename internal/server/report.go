package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) DailyReport(c *gin.Context) {
	date := strings.TrimSpace(c.Query("date"))
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	report, err := s.reportSvc.Daily(c.Request.Context(), date)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (s *Server) PeriodReport(c *gin.Context) {
	start, end, ok := dateRange(c)
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	report, err := s.reportSvc.Period(c.Request.Context(), start, end)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (s *Server) TopProducts(c *gin.Context) {
	start, end, ok := dateRange(c)
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		limit = parsed
	}

	top, err := s.reportSvc.TopProducts(c.Request.Context(), start, end, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": top})
}

func (s *Server) ExportReportCSV(c *gin.Context) {
	start, end, ok := dateRange(c)
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	out, err := s.reportSvc.ExportCSV(c.Request.Context(), start, end)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="invoices_`+start+`_`+end+`.csv"`)
	c.Data(http.StatusOK, "text/csv", out)
}

func dateRange(c *gin.Context) (string, string, bool) {
	start := strings.TrimSpace(c.Query("start_date"))
	end := strings.TrimSpace(c.Query("end_date"))
	if start == "" || end == "" || start > end {
		return "", "", false
	}
	if _, err := time.Parse("2006-01-02", start); err != nil {
		return "", "", false
	}
	if _, err := time.Parse("2006-01-02", end); err != nil {
		return "", "", false
	}
	return start, end, true
}
