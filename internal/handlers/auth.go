package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kbenslimane/storefront/internal/accounts"
	"github.com/kbenslimane/storefront/internal/events"
	auth "github.com/kbenslimane/storefront/internal/middleware/auth"
)

type AuthHandler struct {
	Accounts *accounts.Service
	Tokens   *auth.TokenService
	Producer *events.Producer
}

type signupRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Name     string `json:"name"     validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.Accounts.StartSignup(c.Request().Context(), req.Email, req.Name, req.Password); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"message": "confirmation code sent"})
}

type confirmRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code"  validate:"required,len=6"`
}

func (h *AuthHandler) ConfirmSignup(c echo.Context) error {
	var req confirmRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.Accounts.ConfirmSignup(c.Request().Context(), req.Email, req.Code)
	if err != nil {
		return serviceError(err)
	}

	publish(c, h.Producer, events.TopicUserEvents, fmt.Sprint(user.ID), map[string]interface{}{
		"type":    "user_registered",
		"user_id": user.ID,
		"email":   user.Email,
	})
	return c.JSON(http.StatusCreated, user)
}

// ResendSignupCode re-runs issuance for a pending signup; the previous code
// stops verifying the moment the new one is created.
func (h *AuthHandler) ResendSignupCode(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.Accounts.StartSignup(c.Request().Context(), req.Email, req.Name, req.Password); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"message": "confirmation code sent"})
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.Accounts.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return serviceError(err)
	}

	access, refresh, err := h.Tokens.IssuePair(user.ID, user.Role)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create tokens")
	}

	c.SetCookie(CreateCookie("accessToken", access, "/", time.Now().Add(auth.AccessTTL)))
	c.SetCookie(CreateCookie("refreshToken", refresh, "/", time.Now().Add(auth.RefreshTTL)))

	publish(c, h.Producer, events.TopicUserEvents, fmt.Sprint(user.ID), map[string]interface{}{
		"type":    "user_logged_in",
		"user_id": user.ID,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  access,
		"refresh_token": refresh,
		"role":          user.Role,
	})
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	cookie, err := c.Cookie("refreshToken")
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing refresh token")
	}

	access, refresh, err := h.Tokens.Rotate(cookie.Value)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
	}

	c.SetCookie(CreateCookie("accessToken", access, "/", time.Now().Add(auth.AccessTTL)))
	c.SetCookie(CreateCookie("refreshToken", refresh, "/", time.Now().Add(auth.RefreshTTL)))
	return c.JSON(http.StatusOK, echo.Map{"access_token": access, "refresh_token": refresh})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	cookie, err := c.Cookie("refreshToken")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing refresh token")
	}
	if err := h.Tokens.Revoke(cookie.Value); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	expired := time.Now().Add(-1 * time.Hour)
	c.SetCookie(CreateCookie("accessToken", "", "/", expired))
	c.SetCookie(CreateCookie("refreshToken", "", "/", expired))
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

type resetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *AuthHandler) RequestReset(c echo.Context) error {
	var req resetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.Accounts.StartPasswordReset(c.Request().Context(), req.Email); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"message": "reset code sent"})
}

func (h *AuthHandler) VerifyReset(c echo.Context) error {
	var req confirmRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	token, err := h.Accounts.VerifyReset(c.Request().Context(), req.Email, req.Code)
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reset_token": token})
}

type completeResetRequest struct {
	Email    string `json:"email"       validate:"required,email"`
	Token    string `json:"reset_token" validate:"required"`
	Password string `json:"password"    validate:"required,min=8"`
}

func (h *AuthHandler) CompleteReset(c echo.Context) error {
	var req completeResetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.Accounts.CompleteReset(c.Request().Context(), req.Email, req.Token, req.Password); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

type changePasswordRequest struct {
	Current string `json:"current_password" validate:"required"`
	Next    string `json:"new_password"     validate:"required,min=8"`
}

func (h *AuthHandler) ChangePassword(c echo.Context) error {
	userID, ok := auth.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing credentials")
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.Accounts.ChangePassword(c.Request().Context(), userID, req.Current, req.Next); err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}
