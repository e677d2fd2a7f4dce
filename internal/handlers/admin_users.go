package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kbenslimane/storefront/internal/accounts"
	auth "github.com/kbenslimane/storefront/internal/middleware/auth"
	"github.com/kbenslimane/storefront/internal/util"
)

type AdminUserHandler struct {
	Accounts *accounts.Service
}

func (h *AdminUserHandler) List(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	users, total, err := h.Accounts.ListUsers(c.Request().Context(),
		c.QueryParam("role"), c.QueryParam("q"), offset, limit)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data": users,
		"meta": pageMeta(page, limit, offset, total),
	})
}

type createUserRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Name     string `json:"name"     validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role"     validate:"required,oneof=admin manager customer"`
}

func (h *AdminUserHandler) Create(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.Accounts.CreateUser(c.Request().Context(), req.Email, req.Name, req.Password, req.Role)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusCreated, user)
}

type updateUserRequest struct {
	Name string `json:"name" validate:"required"`
	Role string `json:"role" validate:"required,oneof=admin manager customer"`
}

func (h *AdminUserHandler) Update(c echo.Context) error {
	actorID, ok := auth.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing credentials")
	}
	targetID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.Accounts.UpdateUser(c.Request().Context(), actorID, targetID, req.Name, req.Role)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AdminUserHandler) setBlocked(c echo.Context, blocked bool) error {
	actorID, ok := auth.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing credentials")
	}
	targetID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	user, err := h.Accounts.SetBlocked(c.Request().Context(), actorID, targetID, blocked)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AdminUserHandler) Block(c echo.Context) error   { return h.setBlocked(c, true) }
func (h *AdminUserHandler) Unblock(c echo.Context) error { return h.setBlocked(c, false) }

func (h *AdminUserHandler) Delete(c echo.Context) error {
	actorID, ok := auth.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing credentials")
	}
	targetID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.Accounts.DeleteUser(c.Request().Context(), actorID, targetID); err != nil {
		return serviceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
