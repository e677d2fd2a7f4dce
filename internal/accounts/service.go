package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/kbenslimane/storefront/internal/hash"
	"github.com/kbenslimane/storefront/internal/mail"
	"github.com/kbenslimane/storefront/internal/models"
	"github.com/kbenslimane/storefront/internal/verification"
)

var (
	ErrValidation   = errors.New("validation")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

type Service struct {
	DB    *gorm.DB
	Codes *verification.Service
	Mail  mail.Sender
	Log   *slog.Logger
}

// pendingUser is the signup payload carried inside a verification code. The
// account only materializes once the email is confirmed.
type pendingUser struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	PasswordHash string `json:"password_hash"`
}

// StartSignup issues a signup code holding the fully-formed pending account
// and emails it. A failed send deletes the code again: a code the user can
// never receive must not stay live.
func (s *Service) StartSignup(ctx context.Context, email, name, password string) error {
	var existing models.User
	err := s.DB.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return fmt.Errorf("%w: email already registered", ErrConflict)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	passwordHash, err := hash.HashPassword(password)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(pendingUser{Email: email, Name: name, PasswordHash: passwordHash})
	if err != nil {
		return err
	}

	code, err := s.Codes.Issue(ctx, email, models.PurposeSignup, string(payload))
	if err != nil {
		return err
	}

	if err := s.Mail.Send(email, mail.SignupSubject(), mail.SignupBody(code.Code)); err != nil {
		if derr := s.Codes.Delete(ctx, code.ID); derr != nil {
			s.Log.Error("orphaned signup code cleanup failed", "code_id", code.ID, "error", derr)
		}
		return fmt.Errorf("send signup mail: %w", err)
	}
	return nil
}

// ConfirmSignup verifies the emailed code and materializes the pending
// account it carries.
func (s *Service) ConfirmSignup(ctx context.Context, email, code string) (*models.User, error) {
	record, err := s.Codes.Verify(ctx, email, code, models.PurposeSignup)
	if err != nil {
		return nil, err
	}
	if err := s.Codes.MarkVerified(ctx, record.ID); err != nil {
		return nil, err
	}

	var pending pendingUser
	if err := json.Unmarshal([]byte(record.Payload), &pending); err != nil {
		return nil, fmt.Errorf("decode signup payload: %w", err)
	}

	user := models.User{
		Email:        pending.Email,
		Name:         pending.Name,
		PasswordHash: pending.PasswordHash,
		Role:         models.RoleCustomer,
	}
	if err := s.DB.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) StartPasswordReset(ctx context.Context, email string) error {
	var user models.User
	err := s.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: no account for this email", ErrNotFound)
	}
	if err != nil {
		return err
	}

	code, err := s.Codes.Issue(ctx, email, models.PurposeResetPassword, "")
	if err != nil {
		return err
	}

	if err := s.Mail.Send(email, mail.ResetSubject(), mail.ResetBody(code.Code)); err != nil {
		if derr := s.Codes.Delete(ctx, code.ID); derr != nil {
			s.Log.Error("orphaned reset code cleanup failed", "code_id", code.ID, "error", derr)
		}
		return fmt.Errorf("send reset mail: %w", err)
	}
	return nil
}

// VerifyReset confirms the emailed reset code and hands back the opaque
// token the client presents with the new password in the next request.
func (s *Service) VerifyReset(ctx context.Context, email, code string) (string, error) {
	record, err := s.Codes.Verify(ctx, email, code, models.PurposeResetPassword)
	if err != nil {
		return "", err
	}
	if err := s.Codes.MarkVerified(ctx, record.ID); err != nil {
		return "", err
	}
	return verification.BuildResetToken(email, record.ID, time.Now()), nil
}

// CompleteReset validates the token, updates the password and consumes the
// underlying code record. The token is single use.
func (s *Service) CompleteReset(ctx context.Context, email, token, newPassword string) error {
	record, err := s.Codes.ValidateResetToken(ctx, email, token)
	if err != nil {
		return err
	}

	var user models.User
	err = s.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return verification.ErrInvalidToken
	}
	if err != nil {
		return err
	}

	passwordHash, err := hash.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Model(&user).Update("password_hash", passwordHash).Error; err != nil {
		return err
	}
	return s.Codes.Delete(ctx, record.ID)
}

// Authenticate checks credentials and the block flag. Wrong email and wrong
// password are indistinguishable.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}
	if user.Blocked {
		return nil, fmt.Errorf("%w: account blocked", ErrUnauthorized)
	}
	return &user, nil
}
