package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kbenslimane/storefront/internal/models"
)

// Allowed transitions: pending→confirmed, pending→cancelled,
// confirmed→cancelled. Nothing leaves cancelled.

func (s *Service) Confirm(ctx context.Context, id uint, staffNotes string) (*models.Order, error) {
	var out *models.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := loadOrder(tx, id)
		if err != nil {
			return err
		}
		if order.Status != models.OrderStatusPending {
			return fmt.Errorf("%w: order is %s, only pending orders can be confirmed", ErrConflict, order.Status)
		}

		now := time.Now()
		order.Status = models.OrderStatusConfirmed
		order.ConfirmedAt = &now
		if staffNotes != "" {
			order.StaffNotes = staffNotes
		}
		if err := tx.Save(order).Error; err != nil {
			return err
		}
		out = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) Cancel(ctx context.Context, id uint) (*models.Order, error) {
	var out *models.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := loadOrder(tx, id)
		if err != nil {
			return err
		}
		if order.Status == models.OrderStatusCancelled {
			return fmt.Errorf("%w: order is already cancelled", ErrConflict)
		}

		// The confirmation timestamp is history, cancellation keeps it.
		order.Status = models.OrderStatusCancelled
		if err := tx.Save(order).Error; err != nil {
			return err
		}
		out = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) UpdateStaffNotes(ctx context.Context, id uint, notes string) (*models.Order, error) {
	order, err := loadOrder(s.DB.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	order.StaffNotes = notes
	if err := s.DB.WithContext(ctx).Model(order).Update("staff_notes", notes).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func loadOrder(db *gorm.DB, id uint) (*models.Order, error) {
	var order models.Order
	err := db.First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: order %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}
