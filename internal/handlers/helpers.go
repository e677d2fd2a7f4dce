package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kbenslimane/storefront/internal/accounts"
	"github.com/kbenslimane/storefront/internal/catalog"
	"github.com/kbenslimane/storefront/internal/events"
	"github.com/kbenslimane/storefront/internal/logging"
	"github.com/kbenslimane/storefront/internal/orders"
	"github.com/kbenslimane/storefront/internal/verification"
)

func CreateCookie(name, value, path string, expTime time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expTime,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func paramID(c echo.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return uint(v), nil
}

// serviceError maps the services' sentinel errors onto HTTP statuses. The
// error text of verification failures is already the single generic
// message, so it can pass through unchanged.
func serviceError(err error) error {
	switch {
	case errors.Is(err, orders.ErrValidation),
		errors.Is(err, catalog.ErrValidation),
		errors.Is(err, accounts.ErrValidation),
		errors.Is(err, verification.ErrInvalidCode),
		errors.Is(err, verification.ErrInvalidToken):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, accounts.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, orders.ErrNotFound),
		errors.Is(err, orders.ErrUnavailable),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, accounts.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, orders.ErrConflict),
		errors.Is(err, catalog.ErrConflict),
		errors.Is(err, accounts.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

// publish sends a domain event and only logs on failure; no request ever
// fails because the broker is down.
func publish(c echo.Context, producer *events.Producer, topic, key string, event map[string]interface{}) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := producer.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Warn("event publish failed", "topic", topic, "error", err)
	}
}

func pageMeta(page, limit, offset int, total int64) map[string]any {
	return map[string]any{
		"page":        page,
		"size":        limit,
		"total":       total,
		"total_pages": (total + int64(limit) - 1) / int64(limit),
		"has_prev":    page > 1,
		"has_next":    int64(offset+limit) < total,
	}
}
