package accounts

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/kbenslimane/storefront/internal/hash"
	"github.com/kbenslimane/storefront/internal/models"
)

func (s *Service) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) ListUsers(ctx context.Context, role, query string, offset, limit int) ([]models.User, int64, error) {
	q := func() *gorm.DB {
		base := s.DB.WithContext(ctx).Model(&models.User{})
		if role != "" {
			base = base.Where("role = ?", role)
		}
		if query != "" {
			like := "%" + query + "%"
			base = base.Where("email LIKE ? OR name LIKE ?", like, like)
		}
		return base
	}

	var total int64
	if err := q().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []models.User
	if err := q().Order("id ASC").Offset(offset).Limit(limit).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// CreateUser is the admin path for staff accounts; no email confirmation.
func (s *Service) CreateUser(ctx context.Context, email, name, password, role string) (*models.User, error) {
	switch role {
	case models.RoleAdmin, models.RoleManager, models.RoleCustomer:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}

	passwordHash, err := hash.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := models.User{Email: email, Name: name, PasswordHash: passwordHash, Role: role}
	if err := s.DB.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser changes name and role. A user can never demote themselves;
// that would lock the last admin out.
func (s *Service) UpdateUser(ctx context.Context, actorID, targetID uint, name, role string) (*models.User, error) {
	switch role {
	case models.RoleAdmin, models.RoleManager, models.RoleCustomer:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}

	user, err := s.GetUser(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if actorID == targetID && user.Role != role {
		return nil, fmt.Errorf("%w: cannot change your own role", ErrConflict)
	}

	user.Name = name
	user.Role = role
	if err := s.DB.WithContext(ctx).Model(user).
		Updates(map[string]any{"name": name, "role": role}).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// SetBlocked blocks or unblocks an account. A user can never block
// themselves.
func (s *Service) SetBlocked(ctx context.Context, actorID, targetID uint, blocked bool) (*models.User, error) {
	if actorID == targetID {
		return nil, fmt.Errorf("%w: cannot block your own account", ErrConflict)
	}
	user, err := s.GetUser(ctx, targetID)
	if err != nil {
		return nil, err
	}
	user.Blocked = blocked
	if err := s.DB.WithContext(ctx).Model(user).Update("blocked", blocked).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser refuses self-deletion and deletion of users that own orders:
// order history must keep a valid owner.
func (s *Service) DeleteUser(ctx context.Context, actorID, targetID uint) error {
	if actorID == targetID {
		return fmt.Errorf("%w: cannot delete your own account", ErrConflict)
	}
	if _, err := s.GetUser(ctx, targetID); err != nil {
		return err
	}

	var orderCount int64
	if err := s.DB.WithContext(ctx).Model(&models.Order{}).
		Where("user_id = ?", targetID).Count(&orderCount).Error; err != nil {
		return err
	}
	if orderCount > 0 {
		return fmt.Errorf("%w: user has %d orders", ErrConflict, orderCount)
	}

	return s.DB.WithContext(ctx).Delete(&models.User{}, targetID).Error
}

func (s *Service) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !hash.CheckPassword(user.PasswordHash, current) {
		return fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}
	passwordHash, err := hash.HashPassword(next)
	if err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Model(user).Update("password_hash", passwordHash).Error
}
