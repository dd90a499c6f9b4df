package service

import (
	"context"
	"strings"

	"github.com/gosimple/slug"
	auditdomain "github.com/openinvoice/openinvoice/internal/audit/domain"
	"github.com/openinvoice/openinvoice/internal/product/domain"
	"github.com/openinvoice/openinvoice/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Repo  domain.Repository
	Audit auditdomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	audit auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("product.service"),
		repo:  p.Repo,
		audit: p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateProductRequest) (*domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrMissingName
	}
	if req.Price < 0 {
		return nil, domain.ErrInvalidPrice
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = slug.Make(name)
	}

	if existing, err := s.repo.FindByID(ctx, s.db, id); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, domain.ErrDuplicateID
	}

	product := &domain.Product{
		ID:          id,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		VATRate:     req.VATRate,
		Barcode:     normalizeBarcode(req.Barcode),
		Stock:       req.Stock,
		Status:      domain.ProductStatusActive,
	}

	if err := s.repo.Create(ctx, s.db, product); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateBarcode
		}
		return nil, err
	}

	s.log.Info("product created", zap.String("product_id", product.ID))
	_ = s.audit.Record(ctx, auditdomain.ActionProductCreated, "product", &product.ID, map[string]any{
		"name":  product.Name,
		"price": product.Price,
	})
	return product, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateProductRequest) (*domain.Product, error) {
	product, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}

	changed := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrMissingName
		}
		product.Name = name
		changed["name"] = name
	}
	if req.Description != nil {
		product.Description = strings.TrimSpace(*req.Description)
		changed["description"] = product.Description
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, domain.ErrInvalidPrice
		}
		product.Price = *req.Price
		changed["price"] = *req.Price
	}
	if req.VATRate != nil {
		product.VATRate = *req.VATRate
		changed["vat_rate"] = *req.VATRate
	}
	if req.Barcode != nil {
		product.Barcode = normalizeBarcode(req.Barcode)
		changed["barcode"] = strings.TrimSpace(*req.Barcode)
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
		changed["stock"] = *req.Stock
	}
	if req.Status != nil {
		switch domain.ProductStatus(*req.Status) {
		case domain.ProductStatusActive, domain.ProductStatusInactive:
			product.Status = domain.ProductStatus(*req.Status)
			changed["status"] = *req.Status
		}
	}

	if err := s.repo.Update(ctx, s.db, product); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateBarcode
		}
		return nil, err
	}

	_ = s.audit.Record(ctx, auditdomain.ActionProductUpdated, "product", &product.ID, changed)
	return product, nil
}

// Delete removes products that never sold and deactivates the rest, so
// historical invoice lines keep resolving to a catalog entry.
func (s *Service) Delete(ctx context.Context, id string) error {
	product, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if product == nil {
		return domain.ErrNotFound
	}

	sales, err := s.repo.CountSales(ctx, s.db, id)
	if err != nil {
		return err
	}

	if sales > 0 {
		product.Status = domain.ProductStatusInactive
		if err := s.repo.Update(ctx, s.db, product); err != nil {
			return err
		}
		s.log.Info("product deactivated", zap.String("product_id", id), zap.Int64("sales", sales))
	} else {
		if err := s.repo.Delete(ctx, s.db, id); err != nil {
			return err
		}
		s.log.Info("product deleted", zap.String("product_id", id))
	}

	_ = s.audit.Record(ctx, auditdomain.ActionProductDeleted, "product", &id, map[string]any{
		"deactivated": sales > 0,
	})
	return nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	return product, nil
}

func (s *Service) GetByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	product, err := s.repo.FindByBarcode(ctx, s.db, strings.TrimSpace(barcode))
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	return product, nil
}

func (s *Service) List(ctx context.Context, req domain.ListProductRequest) ([]domain.Product, error) {
	req.Query = strings.TrimSpace(req.Query)
	return s.repo.List(ctx, s.db, req)
}

func normalizeBarcode(barcode *string) *string {
	if barcode == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*barcode)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
