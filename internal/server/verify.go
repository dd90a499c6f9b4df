package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	obsmetrics "github.com/openinvoice/openinvoice/internal/observability/metrics"
)

type verifyQRRequest struct {
	QRData string `json:"qr_data"`
}

// VerifyQR checks a scanned receipt token against the ledger. Invalid
// receipts are a 200 with valid=false; only infrastructure failures error.
func (s *Server) VerifyQR(c *gin.Context) {
	var req verifyQRRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.QRData) == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.validator.Validate(c.Request.Context(), req.QRData)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.metrics.RecordVerification(obsmetrics.VerifyModeQR, result.Valid)

	c.JSON(http.StatusOK, result)
}

// VerifyInvoiceByNumber is the counter-side spot check without a scanner.
func (s *Server) VerifyInvoiceByNumber(c *gin.Context) {
	result, err := s.validator.ValidateByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.metrics.RecordVerification(obsmetrics.VerifyModeManual, result.Valid)

	c.JSON(http.StatusOK, result)
}

// VerifyChain replays the full ledger.
func (s *Server) VerifyChain(c *gin.Context) {
	result, err := s.invoiceSvc.VerifyChain(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
