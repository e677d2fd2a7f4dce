package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/kbenslimane/storefront/internal/handlers"
	auth "github.com/kbenslimane/storefront/internal/middleware/auth"
	"github.com/kbenslimane/storefront/internal/models"
)

type Deps struct {
	Tokens       *auth.TokenService
	AuthHandler  *handlers.AuthHandler
	Storefront   *handlers.StorefrontHandler
	Orders       *handlers.OrderHandler
	StaffOrders  *handlers.StaffOrderHandler
	AdminCatalog *handlers.AdminCatalogHandler
	AdminUsers   *handlers.AdminUserHandler
	Search       *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/auth/signup", d.AuthHandler.Signup)
	v1.POST("/auth/signup/confirm", d.AuthHandler.ConfirmSignup)
	v1.POST("/auth/signup/resend", d.AuthHandler.ResendSignupCode)
	v1.POST("/auth/login", d.AuthHandler.Login)
	v1.POST("/auth/refresh", d.AuthHandler.Refresh)
	v1.POST("/auth/logout", d.AuthHandler.Logout)
	v1.POST("/auth/reset/request", d.AuthHandler.RequestReset)
	v1.POST("/auth/reset/verify", d.AuthHandler.VerifyReset)
	v1.POST("/auth/reset/confirm", d.AuthHandler.CompleteReset)

	v1.GET("/payment-methods", d.Storefront.ListPaymentMethods)
	v1.GET("/products", d.Storefront.ListProducts)
	v1.GET("/products/:id", d.Storefront.GetProduct)
	if d.Search != nil {
		v1.GET("/search", d.Search.Search)
	}

	me := v1.Group("", d.Tokens.Authenticate)
	me.POST("/auth/password", d.AuthHandler.ChangePassword)
	me.POST("/orders", d.Orders.Create)
	me.GET("/orders", d.Orders.ListMine)

	staff := v1.Group("/staff", d.Tokens.Authenticate,
		auth.RequireRole(models.RoleAdmin, models.RoleManager))
	staff.GET("/orders", d.StaffOrders.List)
	staff.GET("/orders/:id", d.StaffOrders.Get)
	staff.POST("/orders/:id/confirm", d.StaffOrders.Confirm)
	staff.POST("/orders/:id/cancel", d.StaffOrders.Cancel)
	staff.PATCH("/orders/:id/notes", d.StaffOrders.UpdateNotes)
	staff.GET("/dashboard", d.StaffOrders.Dashboard)

	admin := v1.Group("/admin", d.Tokens.Authenticate, auth.RequireRole(models.RoleAdmin))
	admin.GET("/categories", d.AdminCatalog.ListCategories)
	admin.POST("/categories", d.AdminCatalog.CreateCategory)
	admin.PATCH("/categories/:id", d.AdminCatalog.UpdateCategory)
	admin.DELETE("/categories/:id", d.AdminCatalog.DeleteCategory)

	admin.POST("/payment-methods", d.AdminCatalog.CreatePaymentMethod)
	admin.DELETE("/payment-methods/:id", d.AdminCatalog.DeletePaymentMethod)

	admin.POST("/products", d.AdminCatalog.CreateProduct)
	admin.PATCH("/products/:id", d.AdminCatalog.UpdateProduct)
	admin.POST("/products/:id/image", d.AdminCatalog.UploadProductImage)
	admin.DELETE("/products/:id", d.AdminCatalog.DeleteProduct)
	admin.PUT("/products/:id/prices", d.AdminCatalog.UpsertPrice)
	admin.DELETE("/products/:id/prices/:method_id", d.AdminCatalog.DeletePrice)

	admin.GET("/users", d.AdminUsers.List)
	admin.POST("/users", d.AdminUsers.Create)
	admin.PATCH("/users/:id", d.AdminUsers.Update)
	admin.POST("/users/:id/block", d.AdminUsers.Block)
	admin.POST("/users/:id/unblock", d.AdminUsers.Unblock)
	admin.DELETE("/users/:id", d.AdminUsers.Delete)

	admin.POST("/maintenance/image-sweep", d.StaffOrders.SweepImages)
}
