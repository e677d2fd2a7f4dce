package verification

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"gorm.io/gorm"

	"github.com/kbenslimane/storefront/internal/models"
)

// ErrInvalidCode covers every way a code can fail to verify: wrong code,
// wrong purpose, expired, already used. Callers must not distinguish them.
var ErrInvalidCode = errors.New("invalid or expired code")

const CodeTTL = 15 * time.Minute

type Service struct {
	DB *gorm.DB
}

// Issue creates a fresh code for (email, purpose). Any expired rows and any
// still-unverified rows for the pair are removed first, so at most one live
// code exists per pair and a resend invalidates the previous code.
func (s *Service) Issue(ctx context.Context, email, purpose, payload string) (*models.VerificationCode, error) {
	db := s.DB.WithContext(ctx)
	now := time.Now()

	if err := db.Where("email = ? AND purpose = ? AND expires_at <= ?", email, purpose, now).
		Delete(&models.VerificationCode{}).Error; err != nil {
		return nil, err
	}
	if err := db.Where("email = ? AND purpose = ? AND verified = ?", email, purpose, false).
		Delete(&models.VerificationCode{}).Error; err != nil {
		return nil, err
	}

	code, err := randomCode()
	if err != nil {
		return nil, err
	}

	record := models.VerificationCode{
		Email:     email,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: now.Add(CodeTTL),
		Verified:  false,
		Payload:   payload,
	}
	if err := db.Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// Verify matches an unverified, unexpired code exactly. Every failure mode
// is reported as ErrInvalidCode so the caller leaks nothing about which
// condition was wrong.
func (s *Service) Verify(ctx context.Context, email, code, purpose string) (*models.VerificationCode, error) {
	var record models.VerificationCode
	err := s.DB.WithContext(ctx).
		Where("email = ? AND code = ? AND purpose = ? AND verified = ? AND expires_at > ?",
			email, code, purpose, false, time.Now()).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCode
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// MarkVerified flips the verified flag in place. The row is kept so the
// password-reset token can still reference it.
func (s *Service) MarkVerified(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).
		Model(&models.VerificationCode{}).
		Where("id = ?", id).
		Update("verified", true).Error
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Delete(&models.VerificationCode{}, id).Error
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
