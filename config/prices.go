package config

import (
	"os"
	"strings"

	"github.com/influence-engine/funnel-go/models"
)

// Price-reference configuration maps a logical purchase type to the payment
// provider's external price identifier. Each mapping comes from the
// environment; a missing mapping falls back to the configured default.

var priceEnvKeys = map[models.ProductKey]string{
	models.ProductBook:     "STRIPE_PRICE_BOOK",
	models.ProductToolkit:  "STRIPE_PRICE_TOOLKIT",
	models.ProductIEAnnual: "STRIPE_PRICE_ANNUAL_MEMBERSHIP",
	models.ProductBundle:   "STRIPE_PRICE_BUNDLE",
}

// PriceReference resolves the provider price id for a product key, falling
// back to STRIPE_PRICE_DEFAULT when no specific mapping is configured.
func PriceReference(key models.ProductKey) string {
	if envKey, ok := priceEnvKeys[key]; ok {
		if ref := os.Getenv(envKey); ref != "" {
			return ref
		}
	}
	return os.Getenv("STRIPE_PRICE_DEFAULT")
}

// PurchaseTypeToProduct maps the wire-level purchase type strings used by
// the checkout request body to catalog product keys.
func PurchaseTypeToProduct(purchaseType string) (models.ProductKey, bool) {
	switch strings.ToLower(strings.TrimSpace(purchaseType)) {
	case "book":
		return models.ProductBook, true
	case "toolkit":
		return models.ProductToolkit, true
	case "annual-membership", "ie-annual":
		return models.ProductIEAnnual, true
	case "bundle":
		return models.ProductBundle, true
	default:
		return "", false
	}
}
