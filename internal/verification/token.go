package verification

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/kbenslimane/storefront/internal/models"
)

// ErrInvalidToken covers decode failures, malformed tokens, expiry, email
// mismatch and missing records alike. One message, no oracle.
var ErrInvalidToken = errors.New("invalid or expired token")

const ResetTokenTTL = 30 * time.Minute

const tokenSeparator = "|"

// BuildResetToken packs "email|codeID|issuedUnix" into base64. It is an
// opaque carrier linking the verified code to the later password-change
// request, deliberately unsigned: possession implies the holder already
// received the code at the verified address.
func BuildResetToken(email string, codeID uint, issuedAt time.Time) string {
	raw := strings.Join([]string{
		email,
		strconv.FormatUint(uint64(codeID), 10),
		strconv.FormatInt(issuedAt.Unix(), 10),
	}, tokenSeparator)
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// ValidateResetToken checks the token against the email it was supplied
// with and returns the still-verified reset code record it references.
func (s *Service) ValidateResetToken(ctx context.Context, email, token string) (*models.VerificationCode, error) {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	parts := strings.Split(string(raw), tokenSeparator)
	if len(parts) != 3 {
		return nil, ErrInvalidToken
	}
	if parts[0] != email {
		return nil, ErrInvalidToken
	}

	codeID, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}
	issued, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if time.Since(time.Unix(issued, 0)) > ResetTokenTTL {
		return nil, ErrInvalidToken
	}

	var record models.VerificationCode
	err = s.DB.WithContext(ctx).
		Where("id = ? AND email = ? AND purpose = ? AND verified = ?",
			codeID, email, models.PurposeResetPassword, true).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("load reset code: %w", err)
	}
	return &record, nil
}
