package handlers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/kbenslimane/storefront/internal/catalog"
	"github.com/kbenslimane/storefront/internal/events"
)

type AdminCatalogHandler struct {
	Catalog  *catalog.Service
	Producer *events.Producer
}

// ---- categories ----

type categoryRequest struct {
	Name string `json:"name" validate:"required"`
}

func (h *AdminCatalogHandler) CreateCategory(c echo.Context) error {
	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	cat, err := h.Catalog.CreateCategory(c.Request().Context(), req.Name)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusCreated, cat)
}

func (h *AdminCatalogHandler) ListCategories(c echo.Context) error {
	cats, err := h.Catalog.ListCategories(c.Request().Context())
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, cats)
}

func (h *AdminCatalogHandler) UpdateCategory(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	cat, err := h.Catalog.UpdateCategory(c.Request().Context(), id, req.Name)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *AdminCatalogHandler) DeleteCategory(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Catalog.DeleteCategory(c.Request().Context(), id); err != nil {
		return serviceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ---- payment methods ----

type paymentMethodRequest struct {
	Name string `json:"name" validate:"required,max=25"`
}

func (h *AdminCatalogHandler) CreatePaymentMethod(c echo.Context) error {
	var req paymentMethodRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	method, err := h.Catalog.CreatePaymentMethod(c.Request().Context(), req.Name)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusCreated, method)
}

func (h *AdminCatalogHandler) DeletePaymentMethod(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Catalog.DeletePaymentMethod(c.Request().Context(), id); err != nil {
		return serviceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ---- products ----

func (h *AdminCatalogHandler) CreateProduct(c echo.Context) error {
	var req catalog.ProductInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	prod, err := h.Catalog.CreateProduct(c.Request().Context(), req)
	if err != nil {
		return serviceError(err)
	}

	publish(c, h.Producer, events.TopicProductEvents, fmt.Sprint(prod.ID), map[string]interface{}{
		"type":       "product_created",
		"product_id": prod.ID,
		"label":      prod.Label,
	})
	return c.JSON(http.StatusCreated, prod)
}

func (h *AdminCatalogHandler) UpdateProduct(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req catalog.ProductInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	prod, err := h.Catalog.UpdateProduct(c.Request().Context(), id, req)
	if err != nil {
		return serviceError(err)
	}

	publish(c, h.Producer, events.TopicProductEvents, fmt.Sprint(prod.ID), map[string]interface{}{
		"type":       "product_updated",
		"product_id": prod.ID,
		"label":      prod.Label,
	})
	return c.JSON(http.StatusOK, prod)
}

func (h *AdminCatalogHandler) UploadProductImage(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	file, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "image file required")
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "image file required")
	}
	defer src.Close()

	prod, err := h.Catalog.SetProductImage(c.Request().Context(), id, file.Filename, src)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, prod)
}

func (h *AdminCatalogHandler) DeleteProduct(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Catalog.DeleteProduct(c.Request().Context(), id); err != nil {
		return serviceError(err)
	}

	publish(c, h.Producer, events.TopicProductEvents, fmt.Sprint(id), map[string]interface{}{
		"type":       "product_deleted",
		"product_id": id,
	})
	return c.NoContent(http.StatusNoContent)
}

// ---- prices ----

type priceRequest struct {
	PaymentMethodID uint            `json:"payment_method_id" validate:"required"`
	Price           decimal.Decimal `json:"price"             validate:"required"`
}

func (h *AdminCatalogHandler) UpsertPrice(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req priceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	entry, err := h.Catalog.UpsertPrice(c.Request().Context(), id, req.PaymentMethodID, req.Price)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *AdminCatalogHandler) DeletePrice(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	methodID, err := paramID(c, "method_id")
	if err != nil {
		return err
	}
	if err := h.Catalog.DeletePrice(c.Request().Context(), id, methodID); err != nil {
		return serviceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
