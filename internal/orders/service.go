package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kbenslimane/storefront/internal/models"
	"github.com/kbenslimane/storefront/internal/storage"
)

var (
	ErrValidation  = errors.New("validation")          // 400
	ErrNotFound    = errors.New("not found")           // 404
	ErrUnavailable = errors.New("product unavailable") // 404
	ErrConflict    = errors.New("conflict")            // 409
)

type Service struct {
	DB    *gorm.DB
	Store storage.Store
	Log   *slog.Logger
}

type CartItem struct {
	ProductID uint `json:"product_id" validate:"required"`
	Quantity  uint `json:"quantity"   validate:"required,gt=0"`
}

type CreateRequest struct {
	UserID           uint
	PaymentMethodID  uint
	ContactMessenger string
	ContactSocial    string
	Notes            string
	Items            []CartItem
}

// Create turns a cart into a persisted order. The order row and every line
// are written in one transaction; a cart item without a price entry for the
// chosen payment method fails the whole thing. Image duplication runs per
// line and is never allowed to fail the order.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", ErrValidation)
	}
	for _, it := range req.Items {
		if it.ProductID == 0 {
			return nil, fmt.Errorf("%w: product_id required", ErrValidation)
		}
		if it.Quantity == 0 {
			return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
		}
	}
	// Staff must be able to reach the client somehow.
	if req.ContactMessenger == "" && req.ContactSocial == "" && req.Notes == "" {
		return nil, fmt.Errorf("%w: a contact handle or notes is required", ErrValidation)
	}

	var out *models.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var method models.PaymentMethod
		if err := tx.First(&method, req.PaymentMethodID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: payment method %d", ErrNotFound, req.PaymentMethodID)
			}
			return err
		}

		type pricedItem struct {
			product models.Product
			price   decimal.Decimal
			qty     uint
		}

		total := decimal.Zero
		priced := make([]pricedItem, 0, len(req.Items))
		for _, it := range req.Items {
			var product models.Product
			if err := tx.First(&product, it.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: product %d", ErrNotFound, it.ProductID)
				}
				return err
			}

			var entry models.PriceEntry
			err := tx.Where("product_id = ? AND payment_method_id = ?", it.ProductID, method.ID).
				First(&entry).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: product %d has no price for %s", ErrUnavailable, it.ProductID, method.Name)
			}
			if err != nil {
				return err
			}

			total = total.Add(entry.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
			priced = append(priced, pricedItem{product: product, price: entry.Price, qty: it.Quantity})
		}

		order := models.Order{
			UserID:           req.UserID,
			ContactMessenger: req.ContactMessenger,
			ContactSocial:    req.ContactSocial,
			Total:            total,
			PaymentMethod:    method.Name,
			ClientNotes:      req.Notes,
			Status:           models.OrderStatusPending,
			PlacedAt:         time.Now(),
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		lines := make([]models.OrderLine, 0, len(priced))
		for _, pi := range priced {
			image := pi.product.Image
			if copied := storage.DuplicateProductImage(s.Store, s.Log, pi.product.Image, order.ID, pi.product.ID); copied != "" {
				image = copied
			}
			lines = append(lines, models.OrderLine{
				OrderID:     order.ID,
				Label:       pi.product.Label,
				Description: pi.product.Description,
				Image:       image,
				QtyPerUnit:  pi.product.QtyPerUnit,
				Unit:        pi.product.Unit,
				Currency:    pi.product.Currency,
				UnitPrice:   pi.price,
				Quantity:    pi.qty,
				Subtotal:    pi.price.Mul(decimal.NewFromInt(int64(pi.qty))),
			})
		}
		if err := tx.Create(&lines).Error; err != nil {
			return err
		}

		order.Lines = lines
		out = &order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := s.DB.WithContext(ctx).Preload("Lines").First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: order %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) List(ctx context.Context, status string, offset, limit int) ([]models.Order, int64, error) {
	q := func() *gorm.DB {
		base := s.DB.WithContext(ctx).Model(&models.Order{})
		if status != "" {
			base = base.Where("status = ?", status)
		}
		return base
	}

	var total int64
	if err := q().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []models.Order
	if err := q().Order("placed_at DESC").Offset(offset).Limit(limit).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Service) ListForUser(ctx context.Context, userID uint, offset, limit int) ([]models.Order, error) {
	var out []models.Order
	err := s.DB.WithContext(ctx).
		Preload("Lines").
		Where("user_id = ?", userID).
		Order("placed_at DESC").Offset(offset).Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SweepOrderImages deletes files in the order-images namespace no order line
// references, e.g. copies left behind by rolled-back checkouts. Returns how
// many files were removed.
func (s *Service) SweepOrderImages(ctx context.Context) (int, error) {
	files, err := s.Store.List(storage.OrderImagesPrefix)
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, nil
	}

	var referenced []string
	err = s.DB.WithContext(ctx).
		Model(&models.OrderLine{}).
		Distinct().
		Where("image LIKE ?", storage.OrderImagesPrefix+"/%").
		Pluck("image", &referenced).Error
	if err != nil {
		return 0, err
	}

	keep := make(map[string]struct{}, len(referenced))
	for _, p := range referenced {
		keep[p] = struct{}{}
	}

	removed := 0
	for _, f := range files {
		if _, ok := keep[f]; ok {
			continue
		}
		if err := s.Store.Delete(f); err != nil {
			s.Log.Warn("orphan image delete failed", "path", f, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

type DashboardStats struct {
	Pending   int64           `json:"pending"`
	Confirmed int64           `json:"confirmed"`
	Cancelled int64           `json:"cancelled"`
	Revenue   decimal.Decimal `json:"revenue"`
}

func (s *Service) Dashboard(ctx context.Context) (*DashboardStats, error) {
	db := s.DB.WithContext(ctx)
	stats := DashboardStats{Revenue: decimal.Zero}

	counts := map[string]*int64{
		models.OrderStatusPending:   &stats.Pending,
		models.OrderStatusConfirmed: &stats.Confirmed,
		models.OrderStatusCancelled: &stats.Cancelled,
	}
	for status, dst := range counts {
		if err := db.Model(&models.Order{}).Where("status = ?", status).Count(dst).Error; err != nil {
			return nil, err
		}
	}

	var confirmed []models.Order
	if err := db.Select("total").Where("status = ?", models.OrderStatusConfirmed).Find(&confirmed).Error; err != nil {
		return nil, err
	}
	for _, o := range confirmed {
		stats.Revenue = stats.Revenue.Add(o.Total)
	}
	return &stats, nil
}
