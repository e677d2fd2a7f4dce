package orders

import (
	"context"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kbenslimane/storefront/internal/logging"
	"github.com/kbenslimane/storefront/internal/models"
	"github.com/kbenslimane/storefront/internal/storage"
)

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{}, &models.Category{}, &models.Product{},
		&models.PaymentMethod{}, &models.PriceEntry{},
		&models.Order{}, &models.OrderLine{},
	)
	if err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

func newTestService(t *testing.T) *Service {
	store, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)
	return &Service{DB: initTestDB(t), Store: store, Log: logging.New("error")}
}

// seedCatalog creates a payment method "d17" with product A priced at
// 12.500 and product B at 5.000.
func seedCatalog(t *testing.T, db *gorm.DB) (a, b models.Product, method models.PaymentMethod) {
	method = models.PaymentMethod{Name: "d17"}
	require.NoError(t, db.Create(&method).Error)

	a = models.Product{Label: "Product A", QtyPerUnit: "500", Unit: "g", Currency: "TND"}
	b = models.Product{Label: "Product B", QtyPerUnit: "1", Unit: "l", Currency: "TND"}
	require.NoError(t, db.Create(&a).Error)
	require.NoError(t, db.Create(&b).Error)

	require.NoError(t, db.Create(&models.PriceEntry{
		ProductID: a.ID, PaymentMethodID: method.ID, Price: decimal.RequireFromString("12.500"),
	}).Error)
	require.NoError(t, db.Create(&models.PriceEntry{
		ProductID: b.ID, PaymentMethodID: method.ID, Price: decimal.RequireFromString("5.000"),
	}).Error)
	return a, b, method
}

func TestCreateOrderTotals(t *testing.T) {
	svc := newTestService(t)
	a, b, method := seedCatalog(t, svc.DB)

	order, err := svc.Create(context.Background(), CreateRequest{
		UserID:          1,
		PaymentMethodID: method.ID,
		ContactSocial:   "@client",
		Items: []CartItem{
			{ProductID: a.ID, Quantity: 2},
			{ProductID: b.ID, Quantity: 3},
		},
	})
	require.NoError(t, err)

	require.Equal(t, models.OrderStatusPending, order.Status)
	require.Equal(t, "d17", order.PaymentMethod)
	require.Nil(t, order.ConfirmedAt)
	require.True(t, decimal.RequireFromString("40.000").Equal(order.Total), "total = %s", order.Total)

	require.Len(t, order.Lines, 2)
	require.True(t, decimal.RequireFromString("25.000").Equal(order.Lines[0].Subtotal))
	require.True(t, decimal.RequireFromString("15.000").Equal(order.Lines[1].Subtotal))

	// Total always equals the sum of line subtotals, each subtotal equals
	// unit price times quantity.
	sum := decimal.Zero
	for _, line := range order.Lines {
		require.True(t, line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))).Equal(line.Subtotal))
		sum = sum.Add(line.Subtotal)
	}
	require.True(t, sum.Equal(order.Total))

	// The snapshot carries the product fields, not references.
	require.Equal(t, "Product A", order.Lines[0].Label)
	require.Equal(t, "500", order.Lines[0].QtyPerUnit)
	require.Equal(t, "TND", order.Lines[0].Currency)
}

func TestCreateOrderAtomicOnMissingPrice(t *testing.T) {
	svc := newTestService(t)
	a, _, method := seedCatalog(t, svc.DB)

	// An extra product that has no price entry for the chosen method.
	unpriced := models.Product{Label: "Unpriced", QtyPerUnit: "1", Unit: "pc", Currency: "TND"}
	require.NoError(t, svc.DB.Create(&unpriced).Error)

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID:          1,
		PaymentMethodID: method.ID,
		Notes:           "call me",
		Items: []CartItem{
			{ProductID: a.ID, Quantity: 2},
			{ProductID: unpriced.ID, Quantity: 1},
		},
	})
	require.ErrorIs(t, err, ErrUnavailable)

	var orderCount, lineCount int64
	require.NoError(t, svc.DB.Model(&models.Order{}).Count(&orderCount).Error)
	require.NoError(t, svc.DB.Model(&models.OrderLine{}).Count(&lineCount).Error)
	require.Zero(t, orderCount)
	require.Zero(t, lineCount)
}

func TestCreateOrderValidation(t *testing.T) {
	svc := newTestService(t)
	a, _, method := seedCatalog(t, svc.DB)

	cases := map[string]CreateRequest{
		"empty cart": {
			UserID: 1, PaymentMethodID: method.ID, Notes: "x",
		},
		"zero quantity": {
			UserID: 1, PaymentMethodID: method.ID, Notes: "x",
			Items: []CartItem{{ProductID: a.ID, Quantity: 0}},
		},
		"no contact channel": {
			UserID: 1, PaymentMethodID: method.ID,
			Items: []CartItem{{ProductID: a.ID, Quantity: 1}},
		},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), req)
			require.ErrorIs(t, err, ErrValidation)
		})
	}

	t.Run("unknown payment method", func(t *testing.T) {
		_, err := svc.Create(context.Background(), CreateRequest{
			UserID: 1, PaymentMethodID: method.ID + 99, Notes: "x",
			Items: []CartItem{{ProductID: a.ID, Quantity: 1}},
		})
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := svc.Create(context.Background(), CreateRequest{
			UserID: 1, PaymentMethodID: method.ID, Notes: "x",
			Items: []CartItem{{ProductID: 9999, Quantity: 1}},
		})
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCreateOrderCopiesImages(t *testing.T) {
	svc := newTestService(t)
	a, _, method := seedCatalog(t, svc.DB)

	require.NoError(t, svc.Store.Save("product_images/a.png", strings.NewReader("png-bytes")))
	require.NoError(t, svc.DB.Model(&models.Product{}).
		Where("id = ?", a.ID).
		Update("image", "product_images/a.png").Error)

	order, err := svc.Create(context.Background(), CreateRequest{
		UserID: 1, PaymentMethodID: method.ID, Notes: "x",
		Items: []CartItem{{ProductID: a.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	line := order.Lines[0]
	require.True(t, strings.HasPrefix(line.Image, storage.OrderImagesPrefix+"/"), "image = %s", line.Image)
	require.Contains(t, line.Image, "order_")
	require.True(t, strings.HasSuffix(line.Image, ".png"))
	require.True(t, svc.Store.Exists(line.Image))

	// The copy survives product deletion; the original is gone.
	require.NoError(t, svc.Store.Delete("product_images/a.png"))
	require.True(t, svc.Store.Exists(line.Image))
}

func TestCreateOrderMissingImageIsNonFatal(t *testing.T) {
	svc := newTestService(t)
	a, _, method := seedCatalog(t, svc.DB)

	// Image path recorded on the product, but no such file in storage.
	require.NoError(t, svc.DB.Model(&models.Product{}).
		Where("id = ?", a.ID).
		Update("image", "product_images/ghost.png").Error)

	order, err := svc.Create(context.Background(), CreateRequest{
		UserID: 1, PaymentMethodID: method.ID, Notes: "x",
		Items: []CartItem{{ProductID: a.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, "product_images/ghost.png", order.Lines[0].Image)
}

func TestSweepOrderImages(t *testing.T) {
	svc := newTestService(t)
	a, _, method := seedCatalog(t, svc.DB)

	require.NoError(t, svc.Store.Save("product_images/a.png", strings.NewReader("png-bytes")))
	require.NoError(t, svc.DB.Model(&models.Product{}).
		Where("id = ?", a.ID).
		Update("image", "product_images/a.png").Error)

	order, err := svc.Create(context.Background(), CreateRequest{
		UserID: 1, PaymentMethodID: method.ID, Notes: "x",
		Items: []CartItem{{ProductID: a.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	referenced := order.Lines[0].Image

	// An orphan left behind by a rolled-back checkout.
	orphan := storage.OrderImagesPrefix + "/order_999_product_1_dead.png"
	require.NoError(t, svc.Store.Save(orphan, strings.NewReader("junk")))

	removed, err := svc.SweepOrderImages(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	require.False(t, svc.Store.Exists(orphan))
	require.True(t, svc.Store.Exists(referenced))
}

func TestDashboard(t *testing.T) {
	svc := newTestService(t)
	a, _, method := seedCatalog(t, svc.DB)

	for i := 0; i < 3; i++ {
		_, err := svc.Create(context.Background(), CreateRequest{
			UserID: 1, PaymentMethodID: method.ID, Notes: "x",
			Items: []CartItem{{ProductID: a.ID, Quantity: 1}},
		})
		require.NoError(t, err)
	}

	_, err := svc.Confirm(context.Background(), 1, "")
	require.NoError(t, err)
	_, err = svc.Cancel(context.Background(), 2)
	require.NoError(t, err)

	stats, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, stats.Pending)
	require.EqualValues(t, 1, stats.Confirmed)
	require.EqualValues(t, 1, stats.Cancelled)
	require.True(t, decimal.RequireFromString("12.500").Equal(stats.Revenue), "revenue = %s", stats.Revenue)
}
