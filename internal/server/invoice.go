package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/openinvoice/openinvoice/internal/invoice/domain"
	"github.com/openinvoice/openinvoice/internal/providers/pdf"
	"github.com/openinvoice/openinvoice/internal/token"
)

func (s *Server) CreateInvoice(c *gin.Context) {
	var req invoicedomain.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	invoice, err := s.invoiceSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, invoice)
}

func (s *Server) ListInvoices(c *gin.Context) {
	var req invoicedomain.ListInvoiceRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	invoices, err := s.invoiceSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invoices})
}

func (s *Server) GetInvoiceByNumber(c *gin.Context) {
	invoice, err := s.invoiceSvc.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

type processReturnRequest struct {
	ItemIDs []int64 `json:"item_ids"`
}

func (s *Server) ProcessReturn(c *gin.Context) {
	var req processReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.ItemIDs) == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	invoice, err := s.invoiceSvc.ProcessReturn(c.Request.Context(), c.Param("number"), req.ItemIDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

type emailReceiptRequest struct {
	To string `json:"to"`
}

// EmailReceipt re-sends the receipt, optionally to a different address than
// the one captured at sale time.
func (s *Server) EmailReceipt(c *gin.Context) {
	var req emailReceiptRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
	}

	if err := s.invoiceSvc.EmailReceipt(c.Request.Context(), c.Param("number"), req.To); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

// RenderReceiptPDF regenerates the printable receipt for a stored invoice.
func (s *Server) RenderReceiptPDF(c *gin.Context) {
	invoice, err := s.invoiceSvc.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	profile, err := s.settingsSvc.Profile(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	items := make([]pdf.ReceiptItem, 0, len(invoice.Items))
	for _, item := range invoice.Items {
		items = append(items, pdf.ReceiptItem{
			Name:      item.ProductName,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		})
	}

	doc, err := s.pdfProvider.GenerateReceipt(c.Request.Context(), pdf.ReceiptData{
		StoreName:     invoice.StoreName,
		SellerID:      invoice.SellerID,
		InvoiceNumber: invoice.InvoiceNumber,
		CreatedAt:     invoice.CreatedAt,
		Items:         items,
		Subtotal:      invoice.Subtotal,
		VATAmount:     invoice.VATAmount,
		Total:         invoice.Total,
		PaymentMethod: invoice.PaymentMethod,
		QRData:        invoice.QRData,
		Footer:        profile.ReceiptFooter,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.metrics.RecordReceiptPDF()

	c.Header("Content-Disposition", `attachment; filename="`+invoice.InvoiceNumber+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", doc)
}

// RenderReceiptQR serves the invoice's verification token as a QR PNG.
func (s *Server) RenderReceiptQR(c *gin.Context) {
	invoice, err := s.invoiceSvc.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	size := 0
	if raw := c.Query("size"); raw != "" {
		size, err = strconv.Atoi(raw)
		if err != nil || size < 0 || size > 2048 {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
	}

	img, err := token.RenderQRPNG(invoice.QRData, size)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Data(http.StatusOK, "image/png", img)
}
