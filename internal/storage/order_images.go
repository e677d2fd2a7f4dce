package storage

import (
	"fmt"
	"log/slog"
	"path"

	"github.com/google/uuid"
)

// OrderImagesPrefix is the namespace order-scoped image copies live under.
const OrderImagesPrefix = "order_images"

// DuplicateProductImage copies a product image into the order-images
// namespace so the order line keeps displaying even if the product or its
// image is later changed or removed. It is strictly best-effort: every
// failure is logged and reported as "no copy made" (empty path), never as
// an error, because order creation must not depend on it.
func DuplicateProductImage(store Store, log *slog.Logger, sourcePath string, orderID, productID uint) string {
	if sourcePath == "" {
		return ""
	}
	if !store.Exists(sourcePath) {
		log.Warn("product image missing, order line keeps original path",
			"source", sourcePath, "order_id", orderID, "product_id", productID)
		return ""
	}

	suffix := uuid.New().String()
	dst := path.Join(OrderImagesPrefix,
		fmt.Sprintf("order_%d_product_%d_%s%s", orderID, productID, suffix, path.Ext(sourcePath)))

	if err := store.Copy(sourcePath, dst); err != nil {
		log.Warn("product image copy failed, order line keeps original path",
			"source", sourcePath, "order_id", orderID, "product_id", productID, "error", err)
		return ""
	}
	return dst
}
