package handlers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kbenslimane/storefront/internal/events"
	"github.com/kbenslimane/storefront/internal/orders"
	"github.com/kbenslimane/storefront/internal/util"
)

// StaffOrderHandler is the back-office order surface, shared by admins and
// order managers.
type StaffOrderHandler struct {
	Orders   *orders.Service
	Producer *events.Producer
}

func (h *StaffOrderHandler) List(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	list, total, err := h.Orders.List(c.Request().Context(), c.QueryParam("status"), offset, limit)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data": list,
		"meta": pageMeta(page, limit, offset, total),
	})
}

func (h *StaffOrderHandler) Get(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	order, err := h.Orders.Get(c.Request().Context(), id)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, order)
}

type confirmOrderRequest struct {
	StaffNotes string `json:"staff_notes"`
}

func (h *StaffOrderHandler) Confirm(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req confirmOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Orders.Confirm(c.Request().Context(), id, req.StaffNotes)
	if err != nil {
		return serviceError(err)
	}

	publish(c, h.Producer, events.TopicOrderEvents, fmt.Sprint(order.ID), map[string]interface{}{
		"type":     "order_confirmed",
		"order_id": order.ID,
	})
	return c.JSON(http.StatusOK, order)
}

func (h *StaffOrderHandler) Cancel(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	order, err := h.Orders.Cancel(c.Request().Context(), id)
	if err != nil {
		return serviceError(err)
	}

	publish(c, h.Producer, events.TopicOrderEvents, fmt.Sprint(order.ID), map[string]interface{}{
		"type":     "order_cancelled",
		"order_id": order.ID,
	})
	return c.JSON(http.StatusOK, order)
}

type staffNotesRequest struct {
	StaffNotes string `json:"staff_notes"`
}

func (h *StaffOrderHandler) UpdateNotes(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req staffNotesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Orders.UpdateStaffNotes(c.Request().Context(), id, req.StaffNotes)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *StaffOrderHandler) Dashboard(c echo.Context) error {
	stats, err := h.Orders.Dashboard(c.Request().Context())
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *StaffOrderHandler) SweepImages(c echo.Context) error {
	removed, err := h.Orders.SweepOrderImages(c.Request().Context())
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"removed": removed})
}
