package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Authenticate parses the access token from the Authorization header or the
// accessToken cookie and puts userID and role on the echo context.
func (t *TokenService) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := bearerToken(c)
		if raw == "" {
			if cookie, err := c.Cookie("accessToken"); err == nil {
				raw = cookie.Value
			}
		}
		if raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing credentials")
		}

		claims, err := t.ParseAccess(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		sub, ok := claims["sub"].(float64)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		role, ok := claims["role"].(string)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}

		c.Set("userID", uint(sub))
		c.Set("role", role)
		return next(c)
	}
}

// RequireRole gates a route group to the given roles. Admin-only groups
// pass just RoleAdmin; order management passes RoleAdmin and RoleManager.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			for _, allowed := range roles {
				if role == allowed {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "not enough rights")
		}
	}
}

func UserID(c echo.Context) (uint, bool) {
	id, ok := c.Get("userID").(uint)
	return id, ok
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
