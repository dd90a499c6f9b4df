package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	auditdomain "github.com/openinvoice/openinvoice/internal/audit/domain"
	"github.com/openinvoice/openinvoice/internal/hashchain"
	"github.com/openinvoice/openinvoice/internal/invoice/domain"
	"github.com/openinvoice/openinvoice/internal/observability/metrics"
	productdomain "github.com/openinvoice/openinvoice/internal/product/domain"
	"github.com/openinvoice/openinvoice/internal/providers/email"
	"github.com/openinvoice/openinvoice/internal/providers/pdf"
	settingsdomain "github.com/openinvoice/openinvoice/internal/settings/domain"
	"github.com/openinvoice/openinvoice/internal/token"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Repo        domain.Repository
	ProductRepo productdomain.Repository
	Settings    settingsdomain.Service
	Audit       auditdomain.Service
	Metrics     *metrics.Metrics
	PDF         pdf.Provider
	Email       email.Provider
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	repo        domain.Repository
	productRepo productdomain.Repository
	settings    settingsdomain.Service
	audit       auditdomain.Service
	metrics     *metrics.Metrics
	pdf         pdf.Provider
	email       email.Provider

	// appendMu serializes ledger appends. previous_hash must point at the
	// newest record when the new row commits; two concurrent creates reading
	// the same tip would fork the chain.
	appendMu sync.Mutex
}

func NewService(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("invoice.service"),
		repo:        p.Repo,
		productRepo: p.ProductRepo,
		settings:    p.Settings,
		audit:       p.Audit,
		metrics:     p.Metrics,
		pdf:         p.PDF,
		email:       p.Email,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateInvoiceRequest) (*domain.Invoice, error) {
	if len(req.Items) == 0 {
		return nil, domain.ErrEmptyItems
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, domain.ErrInvalidQuantity
		}
	}

	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	profile, err := s.settings.Profile(ctx)
	if err != nil {
		return nil, err
	}

	var invoice *domain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lines := make([]domain.InvoiceItem, 0, len(req.Items))
		subtotal := decimal.Zero
		vatAmount := decimal.Zero

		for _, item := range req.Items {
			product, err := s.productRepo.FindByID(ctx, tx, item.ProductID)
			if err != nil {
				return err
			}
			if product == nil || product.Status != productdomain.ProductStatusActive {
				return domain.ErrUnknownProduct
			}
			if product.Stock < item.Quantity {
				return domain.ErrInsufficientStock
			}
			if err := s.productRepo.AdjustStock(ctx, tx, product.ID, -item.Quantity); err != nil {
				return domain.ErrInsufficientStock
			}

			unitPrice := decimal.NewFromFloat(product.Price)
			lineTotal := unitPrice.Mul(decimal.NewFromInt(item.Quantity)).Round(2)
			lineVAT := lineTotal.Mul(decimal.NewFromFloat(product.VATRate)).Div(decimal.NewFromInt(100)).Round(2)

			subtotal = subtotal.Add(lineTotal)
			vatAmount = vatAmount.Add(lineVAT)

			lines = append(lines, domain.InvoiceItem{
				ProductID:    product.ID,
				ProductName:  product.Name,
				Quantity:     item.Quantity,
				UnitPrice:    product.Price,
				VATRate:      product.VATRate,
				LineTotal:    lineTotal.InexactFloat64(),
				ReturnStatus: domain.ItemReturnNone,
			})
		}

		total := subtotal.Add(vatAmount)

		number, err := s.repo.NextInvoiceNumber(ctx, tx, time.Now().UTC().Year())
		if err != nil {
			return err
		}
		previousHash, err := s.repo.LatestHash(ctx, tx)
		if err != nil {
			return err
		}

		createdAt := time.Now().UTC().Format(time.RFC3339)

		hashItems := make([]hashchain.Item, 0, len(lines))
		for _, line := range lines {
			hashItems = append(hashItems, hashchain.Item{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
				LineTotal: line.LineTotal,
			})
		}

		currentHash := hashchain.ComputeHash(hashchain.HashInput{
			InvoiceNumber: number,
			SellerID:      profile.SellerID,
			Total:         total.InexactFloat64(),
			Items:         hashItems,
			CreatedAt:     createdAt,
			PreviousHash:  previousHash,
		})

		qrData, err := token.Encode(number, total.InexactFloat64(), currentHash, createdAt)
		if err != nil {
			return err
		}

		invoice = &domain.Invoice{
			InvoiceNumber: number,
			SellerID:      profile.SellerID,
			StoreName:     profile.StoreName,
			Subtotal:      subtotal.InexactFloat64(),
			VATAmount:     vatAmount.InexactFloat64(),
			Total:         total.InexactFloat64(),
			PaymentMethod: strings.TrimSpace(req.PaymentMethod),
			CustomerEmail: strings.TrimSpace(req.CustomerEmail),
			PreviousHash:  previousHash,
			CurrentHash:   currentHash,
			QRData:        qrData,
			Status:        domain.InvoiceStatusCompleted,
			CreatedAt:     createdAt,
			Items:         lines,
		}
		return s.repo.Create(ctx, tx, invoice)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice created",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.Int64("sequence_id", invoice.ID),
		zap.Float64("total", invoice.Total),
	)
	s.metrics.RecordInvoiceCreated(invoice.PaymentMethod, invoice.Total)
	_ = s.audit.Record(ctx, auditdomain.ActionInvoiceCreated, "invoice", &invoice.InvoiceNumber, map[string]any{
		"sequence_id": invoice.ID,
		"total":       invoice.Total,
	})

	if invoice.CustomerEmail != "" {
		s.emailReceipt(ctx, invoice, profile)
	}
	return invoice, nil
}

func (s *Service) GetByNumber(ctx context.Context, invoiceNumber string) (*domain.Invoice, error) {
	invoice, err := s.repo.GetByNumber(ctx, s.db, strings.TrimSpace(invoiceNumber))
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, domain.ErrNotFound
	}
	return invoice, nil
}

func (s *Service) List(ctx context.Context, req domain.ListInvoiceRequest) ([]domain.Invoice, error) {
	start := strings.TrimSpace(req.StartDate)
	end := strings.TrimSpace(req.EndDate)

	if start != "" || end != "" {
		if start == "" || end == "" || start > end {
			return nil, domain.ErrInvalidDateRange
		}
		return s.repo.ListByDateRange(ctx, s.db, start, end)
	}

	invoices, err := s.repo.ListOrdered(ctx, s.db)
	if err != nil {
		return nil, err
	}
	// Newest first for display; the ascending order only matters to the
	// chain verifier.
	for i, j := 0, len(invoices)-1; i < j; i, j = i+1, j-1 {
		invoices[i], invoices[j] = invoices[j], invoices[i]
	}
	return invoices, nil
}

// ProcessReturn flags items as returned and restocks them. The original
// ledger row is never rewritten; only the status columns outside the hashed
// fields change.
func (s *Service) ProcessReturn(ctx context.Context, invoiceNumber string, itemIDs []int64) (*domain.Invoice, error) {
	invoice, err := s.GetByNumber(ctx, invoiceNumber)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*domain.InvoiceItem, len(invoice.Items))
	for i := range invoice.Items {
		byID[invoice.Items[i].ID] = &invoice.Items[i]
	}

	targets := make([]*domain.InvoiceItem, 0, len(itemIDs))
	for _, id := range itemIDs {
		item, ok := byID[id]
		if !ok {
			return nil, domain.ErrItemNotOnInvoice
		}
		if item.ReturnStatus == domain.ItemReturnReturned {
			return nil, domain.ErrItemAlreadyReturned
		}
		targets = append(targets, item)
	}
	if len(targets) == 0 {
		return nil, domain.ErrItemNotOnInvoice
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range targets {
			if err := s.repo.MarkItemReturned(ctx, tx, item.ID); err != nil {
				return err
			}
			if err := s.productRepo.AdjustStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
				// Deleted products cannot be restocked; the return still
				// goes through.
				if !errors.Is(err, productdomain.ErrNotFound) {
					return err
				}
			}
			item.ReturnStatus = domain.ItemReturnReturned
		}

		status := domain.InvoiceStatusReturned
		for _, item := range invoice.Items {
			if item.ReturnStatus != domain.ItemReturnReturned {
				status = domain.InvoiceStatusPartialReturn
				break
			}
		}
		invoice.Status = status
		return s.repo.UpdateStatus(ctx, tx, invoice.ID, status)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("return processed",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.Int("items", len(targets)),
		zap.String("status", string(invoice.Status)),
	)
	_ = s.audit.Record(ctx, auditdomain.ActionInvoiceReturned, "invoice", &invoice.InvoiceNumber, map[string]any{
		"item_ids": itemIDs,
		"status":   string(invoice.Status),
	})
	return invoice, nil
}

// VerifyChain replays the whole ledger oldest-first.
func (s *Service) VerifyChain(ctx context.Context) (hashchain.ChainResult, error) {
	started := time.Now()

	invoices, err := s.repo.ListOrdered(ctx, s.db)
	if err != nil {
		return hashchain.ChainResult{}, err
	}

	records := make([]hashchain.ChainRecord, 0, len(invoices))
	for _, invoice := range invoices {
		items := make([]hashchain.Item, 0, len(invoice.Items))
		for _, item := range invoice.Items {
			items = append(items, hashchain.Item{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
				LineTotal: item.LineTotal,
			})
		}
		records = append(records, hashchain.ChainRecord{
			SequenceID:    invoice.ID,
			InvoiceNumber: invoice.InvoiceNumber,
			SellerID:      invoice.SellerID,
			Total:         invoice.Total,
			Items:         items,
			CreatedAt:     invoice.CreatedAt,
			PreviousHash:  invoice.PreviousHash,
			CurrentHash:   invoice.CurrentHash,
		})
	}

	result := hashchain.VerifyChain(records)

	elapsed := time.Since(started)
	s.metrics.ObserveChainScan(elapsed)
	s.metrics.RecordVerification(metrics.VerifyModeChain, result.Valid)

	if !result.Valid {
		s.log.Warn("chain verification failed",
			zap.String("error_kind", string(result.ErrorKind)),
			zap.Int64("failed_sequence_id", result.FailedSequenceID),
			zap.Int("checked", result.CheckedCount),
		)
	} else {
		s.log.Info("chain verified", zap.Int("checked", result.CheckedCount), zap.Duration("elapsed", elapsed))
	}

	_ = s.audit.Record(ctx, auditdomain.ActionChainVerified, "ledger", nil, map[string]any{
		"valid":   result.Valid,
		"checked": result.CheckedCount,
	})
	return result, nil
}

// EmailReceipt re-sends the receipt for an existing invoice. An explicit
// recipient overrides the address captured at sale time.
func (s *Service) EmailReceipt(ctx context.Context, invoiceNumber, to string) error {
	invoice, err := s.GetByNumber(ctx, invoiceNumber)
	if err != nil {
		return err
	}

	to = strings.TrimSpace(to)
	if to != "" {
		invoice.CustomerEmail = to
	}
	if invoice.CustomerEmail == "" {
		return domain.ErrMissingRecipient
	}

	profile, err := s.settings.Profile(ctx)
	if err != nil {
		return err
	}
	s.emailReceipt(ctx, invoice, profile)
	return nil
}

// emailReceipt renders and sends the PDF receipt. Delivery failures never
// fail the sale.
func (s *Service) emailReceipt(ctx context.Context, invoice *domain.Invoice, profile settingsdomain.StoreProfile) {
	items := make([]pdf.ReceiptItem, 0, len(invoice.Items))
	for _, item := range invoice.Items {
		items = append(items, pdf.ReceiptItem{
			Name:      item.ProductName,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		})
	}

	doc, err := s.pdf.GenerateReceipt(ctx, pdf.ReceiptData{
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
		s.log.Warn("receipt pdf failed", zap.String("invoice_number", invoice.InvoiceNumber), zap.Error(err))
		return
	}
	s.metrics.RecordReceiptPDF()

	var attachments []email.Attachment
	if len(doc) > 0 {
		attachments = append(attachments, email.Attachment{
			Filename:    invoice.InvoiceNumber + ".pdf",
			ContentType: "application/pdf",
			Data:        doc,
		})
	}

	subject := "Your receipt " + invoice.InvoiceNumber
	body := "<p>Thank you for your purchase at " + invoice.StoreName + ".</p>" +
		"<p>Your receipt is attached. Scan the QR code on it to verify authenticity.</p>"

	if err := s.email.Send(ctx, []string{invoice.CustomerEmail}, subject, body, attachments...); err != nil {
		s.log.Warn("receipt email failed", zap.String("invoice_number", invoice.InvoiceNumber), zap.Error(err))
		return
	}
	s.metrics.RecordReceiptEmailed()
	_ = s.audit.Record(ctx, auditdomain.ActionReceiptEmailed, "invoice", &invoice.InvoiceNumber, map[string]any{
		"to": invoice.CustomerEmail,
	})
}
