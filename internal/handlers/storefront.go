package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kbenslimane/storefront/internal/catalog"
	"github.com/kbenslimane/storefront/internal/util"
)

// StorefrontHandler serves the client-facing catalog. Listing always takes
// an explicit payment_method parameter; prices only exist relative to one.
type StorefrontHandler struct {
	Catalog *catalog.Service
}

func (h *StorefrontHandler) ListProducts(c echo.Context) error {
	methodID := uint(parseIntDefault(c.QueryParam("payment_method"), 0))

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	items, total, err := h.Catalog.ListPriced(c.Request().Context(), methodID, offset, limit)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": pageMeta(page, limit, offset, total),
	})
}

func (h *StorefrontHandler) GetProduct(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	prod, err := h.Catalog.GetProduct(c.Request().Context(), id)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, prod)
}

func (h *StorefrontHandler) ListPaymentMethods(c echo.Context) error {
	methods, err := h.Catalog.ListPaymentMethods(c.Request().Context())
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, methods)
}
