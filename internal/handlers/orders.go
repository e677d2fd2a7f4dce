package handlers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kbenslimane/storefront/internal/events"
	auth "github.com/kbenslimane/storefront/internal/middleware/auth"
	"github.com/kbenslimane/storefront/internal/orders"
	"github.com/kbenslimane/storefront/internal/util"
)

type OrderHandler struct {
	Orders   *orders.Service
	Producer *events.Producer
}

type createOrderRequest struct {
	PaymentMethodID  uint              `json:"payment_method_id" validate:"required"`
	ContactMessenger string            `json:"contact_messenger"`
	ContactSocial    string            `json:"contact_social"`
	Notes            string            `json:"notes"`
	Items            []orders.CartItem `json:"items" validate:"required,min=1,dive"`
}

func (h *OrderHandler) Create(c echo.Context) error {
	userID, ok := auth.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing credentials")
	}

	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	order, err := h.Orders.Create(c.Request().Context(), orders.CreateRequest{
		UserID:           userID,
		PaymentMethodID:  req.PaymentMethodID,
		ContactMessenger: req.ContactMessenger,
		ContactSocial:    req.ContactSocial,
		Notes:            req.Notes,
		Items:            req.Items,
	})
	if err != nil {
		return serviceError(err)
	}

	publish(c, h.Producer, events.TopicOrderEvents, fmt.Sprint(order.ID), map[string]interface{}{
		"type":     "order_created",
		"order_id": order.ID,
		"user_id":  order.UserID,
		"total":    order.Total,
	})
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) ListMine(c echo.Context) error {
	userID, ok := auth.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing credentials")
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	list, err := h.Orders.ListForUser(c.Request().Context(), userID, offset, limit)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, list)
}
