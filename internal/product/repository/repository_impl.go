package repository

import (
	"context"
	"errors"

	"github.com/openinvoice/openinvoice/internal/product/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Create(product).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Save(product).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Exec(`DELETE FROM products WHERE id = ?`, id).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.Product, error) {
	return r.findOne(ctx, db, "id = ?", id)
}

func (r *repo) FindByBarcode(ctx context.Context, db *gorm.DB, barcode string) (*domain.Product, error) {
	return r.findOne(ctx, db, "barcode = ?", barcode)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, arg any) (*domain.Product, error) {
	var product domain.Product
	err := db.WithContext(ctx).Where(query, arg).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, req domain.ListProductRequest) ([]domain.Product, error) {
	tx := db.WithContext(ctx).Model(&domain.Product{})
	if !req.IncludeInactive {
		tx = tx.Where("status = ?", domain.ProductStatusActive)
	}
	if req.Query != "" {
		like := "%" + req.Query + "%"
		tx = tx.Where("name LIKE ? OR id LIKE ? OR barcode LIKE ?", like, like, like)
	}

	var products []domain.Product
	if err := tx.Order("name ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// AdjustStock applies a relative delta so concurrent sales cannot clobber
// each other's reads. The guard keeps stock from going negative.
func (r *repo) AdjustStock(ctx context.Context, db *gorm.DB, id string, delta int64) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE products SET stock = stock + ? WHERE id = ? AND stock + ? >= 0`,
		delta, id, delta,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) CountSales(ctx context.Context, db *gorm.DB, id string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM invoice_items WHERE product_id = ?`, id,
	).Scan(&count).Error
	return count, err
}
