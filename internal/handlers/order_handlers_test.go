package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kbenslimane/storefront/internal/events"
	"github.com/kbenslimane/storefront/internal/logging"
	"github.com/kbenslimane/storefront/internal/models"
	"github.com/kbenslimane/storefront/internal/orders"
	"github.com/kbenslimane/storefront/internal/storage"
	"github.com/kbenslimane/storefront/internal/validation"
)

func newOrderHandler(t *testing.T) (*OrderHandler, *gorm.DB, *echo.Echo) {
	db := initTestDB(t)
	err := db.AutoMigrate(
		&models.Category{}, &models.Product{},
		&models.PaymentMethod{}, &models.PriceEntry{},
	)
	if err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	handler := &OrderHandler{
		Orders: &orders.Service{
			DB:    db,
			Store: &storage.DiskStore{Root: t.TempDir()},
			Log:   logging.New("error"),
		},
		Producer: &events.Producer{},
	}

	e := echo.New()
	e.Validator = validation.New()
	return handler, db, e
}

func seedOrderFixtures(t *testing.T, db *gorm.DB) (methodID, productID uint) {
	user := models.User{Email: "buyer@example.com", Name: "Buyer", PasswordHash: "x", Role: models.RoleCustomer}
	require.NoError(t, db.Create(&user).Error)

	method := models.PaymentMethod{Name: "d17"}
	require.NoError(t, db.Create(&method).Error)

	product := models.Product{Label: "Olive oil", Unit: "l", QtyPerUnit: "1", Currency: "TND"}
	require.NoError(t, db.Create(&product).Error)

	price := models.PriceEntry{
		ProductID:       product.ID,
		PaymentMethodID: method.ID,
		Price:           decimal.RequireFromString("12.500"),
	}
	require.NoError(t, db.Create(&price).Error)
	return method.ID, product.ID
}

func TestCreateOrderHandler(t *testing.T) {
	handler, db, e := newOrderHandler(t)
	methodID, productID := seedOrderFixtures(t, db)

	c, rec := doJSON(e, http.MethodPost, "/orders", map[string]interface{}{
		"payment_method_id": methodID,
		"contact_messenger": "+216 12 345 678",
		"items": []map[string]interface{}{
			{"product_id": productID, "quantity": 2},
		},
	})
	c.Set("userID", uint(1))
	c.Set("role", models.RoleCustomer)

	require.NoError(t, handler.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var order models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	require.Equal(t, models.OrderStatusPending, order.Status)
	require.Equal(t, "d17", order.PaymentMethod)
	require.True(t, order.Total.Equal(decimal.RequireFromString("25.000")),
		"want total 25.000, got %s", order.Total)
	require.Len(t, order.Lines, 1)
	require.Equal(t, "Olive oil", order.Lines[0].Label)
}

func TestCreateOrderHandlerRequiresAuth(t *testing.T) {
	handler, _, e := newOrderHandler(t)

	c, _ := doJSON(e, http.MethodPost, "/orders", map[string]interface{}{
		"payment_method_id": 1,
		"items":             []map[string]interface{}{{"product_id": 1, "quantity": 1}},
	})

	err := handler.Create(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestCreateOrderHandlerEmptyCart(t *testing.T) {
	handler, db, e := newOrderHandler(t)
	methodID, _ := seedOrderFixtures(t, db)

	c, _ := doJSON(e, http.MethodPost, "/orders", map[string]interface{}{
		"payment_method_id": methodID,
		"items":             []map[string]interface{}{},
	})
	c.Set("userID", uint(1))

	err := handler.Create(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusBadRequest, he.Code)
}

func TestCreateOrderHandlerUnpricedProduct(t *testing.T) {
	handler, db, e := newOrderHandler(t)
	methodID, _ := seedOrderFixtures(t, db)

	unpriced := models.Product{Label: "Dates", Unit: "kg", QtyPerUnit: "1", Currency: "TND"}
	require.NoError(t, db.Create(&unpriced).Error)

	c, _ := doJSON(e, http.MethodPost, "/orders", map[string]interface{}{
		"payment_method_id": methodID,
		"contact_social":    "@buyer",
		"items": []map[string]interface{}{
			{"product_id": unpriced.ID, "quantity": 1},
		},
	})
	c.Set("userID", uint(1))

	err := handler.Create(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusNotFound, he.Code)

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	require.Zero(t, count, "failed checkout must not leave an order behind")
}

func TestListMine(t *testing.T) {
	handler, db, e := newOrderHandler(t)
	methodID, productID := seedOrderFixtures(t, db)

	_, err := handler.Orders.Create(context.Background(), orders.CreateRequest{
		UserID:          1,
		PaymentMethodID: methodID,
		Notes:           "first",
		Items:           []orders.CartItem{{ProductID: productID, Quantity: 1}},
	})
	require.NoError(t, err)

	other := models.User{Email: "other@example.com", Name: "Other", PasswordHash: "x", Role: models.RoleCustomer}
	require.NoError(t, db.Create(&other).Error)
	_, err = handler.Orders.Create(context.Background(), orders.CreateRequest{
		UserID:          other.ID,
		PaymentMethodID: methodID,
		Notes:           "someone else's",
		Items:           []orders.CartItem{{ProductID: productID, Quantity: 3}},
	})
	require.NoError(t, err)

	c, rec := doJSON(e, http.MethodGet, "/orders", nil)
	c.Set("userID", uint(1))

	require.NoError(t, handler.ListMine(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var list []models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	require.Equal(t, uint(1), list[0].UserID)
}
