package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kbenslimane/storefront/internal/models"
	"github.com/kbenslimane/storefront/internal/search"
	"github.com/kbenslimane/storefront/internal/storage"
)

var (
	ErrValidation = errors.New("validation")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

const productImagesPrefix = "product_images"

type Service struct {
	DB      *gorm.DB
	Store   storage.Store
	Indexer *search.Indexer
	Log     *slog.Logger
}

// ---- categories ----

func (s *Service) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}
	cat := models.Category{Name: name}
	if err := s.DB.WithContext(ctx).Create(&cat).Error; err != nil {
		return nil, err
	}
	return &cat, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	if err := s.DB.WithContext(ctx).Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id uint, name string) (*models.Category, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}
	var cat models.Category
	if err := s.DB.WithContext(ctx).First(&cat, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: category %d", ErrNotFound, id)
		}
		return nil, err
	}
	cat.Name = name
	if err := s.DB.WithContext(ctx).Save(&cat).Error; err != nil {
		return nil, err
	}
	return &cat, nil
}

// DeleteCategory detaches its products (category becomes null) before
// removing the row.
func (s *Service) DeleteCategory(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Product{}).
			Where("category_id = ?", id).
			Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Category{}, id).Error
	})
}

// ---- payment methods ----

func (s *Service) CreatePaymentMethod(ctx context.Context, name string) (*models.PaymentMethod, error) {
	if name == "" || len(name) > 25 {
		return nil, fmt.Errorf("%w: name required, at most 25 characters", ErrValidation)
	}
	var existing int64
	if err := s.DB.WithContext(ctx).Model(&models.PaymentMethod{}).
		Where("name = ?", name).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: payment method %q already exists", ErrConflict, name)
	}
	method := models.PaymentMethod{Name: name}
	if err := s.DB.WithContext(ctx).Create(&method).Error; err != nil {
		return nil, err
	}
	return &method, nil
}

func (s *Service) ListPaymentMethods(ctx context.Context) ([]models.PaymentMethod, error) {
	var out []models.PaymentMethod
	if err := s.DB.WithContext(ctx).Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// DeletePaymentMethod removes the method and every price entry under it.
// Existing orders are untouched: they carry the method name as a string.
func (s *Service) DeletePaymentMethod(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("payment_method_id = ?", id).Delete(&models.PriceEntry{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.PaymentMethod{}, id).Error
	})
}

// ---- products ----

type ProductInput struct {
	Label       string `json:"label"        validate:"required"`
	Description string `json:"description"`
	QtyPerUnit  string `json:"qty_per_unit" validate:"required"`
	Unit        string `json:"unit"         validate:"required"`
	Currency    string `json:"currency"     validate:"required,len=3"`
	CategoryID  *uint  `json:"category_id"`
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	prod := models.Product{
		Label:       in.Label,
		Description: in.Description,
		QtyPerUnit:  in.QtyPerUnit,
		Unit:        in.Unit,
		Currency:    in.Currency,
		CategoryID:  in.CategoryID,
	}
	if err := s.DB.WithContext(ctx).Create(&prod).Error; err != nil {
		return nil, err
	}
	s.reindex(ctx, &prod)
	return &prod, nil
}

func (s *Service) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var prod models.Product
	err := s.DB.WithContext(ctx).Preload("Category").First(&prod, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: product %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &prod, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	prod, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	prod.Label = in.Label
	prod.Description = in.Description
	prod.QtyPerUnit = in.QtyPerUnit
	prod.Unit = in.Unit
	prod.Currency = in.Currency
	prod.CategoryID = in.CategoryID
	if err := s.DB.WithContext(ctx).Save(prod).Error; err != nil {
		return nil, err
	}
	s.reindex(ctx, prod)
	return prod, nil
}

// SetProductImage stores a newly uploaded image and removes the previous
// one. Order lines keep their own copies, so old orders are unaffected.
func (s *Service) SetProductImage(ctx context.Context, id uint, filename string, r io.Reader) (*models.Product, error) {
	prod, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	dst := path.Join(productImagesPrefix,
		fmt.Sprintf("product_%d_%s%s", id, uuid.New().String(), path.Ext(filename)))
	if err := s.Store.Save(dst, r); err != nil {
		return nil, err
	}

	old := prod.Image
	prod.Image = dst
	if err := s.DB.WithContext(ctx).Model(prod).Update("image", dst).Error; err != nil {
		return nil, err
	}
	if old != "" {
		if err := s.Store.Delete(old); err != nil {
			s.Log.Warn("old product image delete failed", "path", old, "error", err)
		}
	}
	s.reindex(ctx, prod)
	return prod, nil
}

// DeleteProduct removes the product, its price entries and its image file.
func (s *Service) DeleteProduct(ctx context.Context, id uint) error {
	prod, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.PriceEntry{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Product{}, id).Error
	})
	if err != nil {
		return err
	}

	if prod.Image != "" {
		if err := s.Store.Delete(prod.Image); err != nil {
			s.Log.Warn("product image delete failed", "path", prod.Image, "error", err)
		}
	}
	if s.Indexer != nil {
		if err := s.Indexer.DeleteProduct(ctx, id); err != nil {
			s.Log.Warn("search index delete failed", "product_id", id, "error", err)
		}
	}
	return nil
}

// ---- prices ----

// UpsertPrice keeps one price entry per (product, payment method) pair.
// The pair has no database uniqueness constraint; this update-else-create
// is what enforces it.
func (s *Service) UpsertPrice(ctx context.Context, productID, methodID uint, price decimal.Decimal) (*models.PriceEntry, error) {
	if price.IsNegative() {
		return nil, fmt.Errorf("%w: price must be >= 0", ErrValidation)
	}
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	var method models.PaymentMethod
	if err := s.DB.WithContext(ctx).First(&method, methodID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: payment method %d", ErrNotFound, methodID)
		}
		return nil, err
	}

	var entry models.PriceEntry
	err := s.DB.WithContext(ctx).
		Where("product_id = ? AND payment_method_id = ?", productID, methodID).
		First(&entry).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		entry = models.PriceEntry{ProductID: productID, PaymentMethodID: methodID, Price: price}
		if err := s.DB.WithContext(ctx).Create(&entry).Error; err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		entry.Price = price
		if err := s.DB.WithContext(ctx).Save(&entry).Error; err != nil {
			return nil, err
		}
	}
	return &entry, nil
}

func (s *Service) DeletePrice(ctx context.Context, productID, methodID uint) error {
	return s.DB.WithContext(ctx).
		Where("product_id = ? AND payment_method_id = ?", productID, methodID).
		Delete(&models.PriceEntry{}).Error
}

// ---- storefront listing ----

type PricedProduct struct {
	models.Product
	Price decimal.Decimal `json:"price"`
}

// ListPriced returns the products that carry a price under the given
// payment method. The method is a required, explicit parameter: the client
// journey always selects one before browsing.
func (s *Service) ListPriced(ctx context.Context, methodID uint, offset, limit int) ([]PricedProduct, int64, error) {
	if methodID == 0 {
		return nil, 0, fmt.Errorf("%w: payment method required", ErrValidation)
	}

	base := func() *gorm.DB {
		return s.DB.WithContext(ctx).
			Model(&models.Product{}).
			Joins("JOIN price_entries ON price_entries.product_id = products.id").
			Where("price_entries.payment_method_id = ?", methodID)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []PricedProduct
	err := base().
		Select("products.*, price_entries.price AS price").
		Order("products.id ASC").
		Offset(offset).Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Service) reindex(ctx context.Context, p *models.Product) {
	if s.Indexer == nil {
		return
	}
	if err := s.Indexer.IndexProduct(ctx, p); err != nil {
		s.Log.Warn("search index update failed", "product_id", p.ID, "error", err)
	}
}
