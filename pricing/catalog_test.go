package pricing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/influence-engine/funnel-go/models"
)

func setPriceEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STRIPE_PRICE_BOOK", "price_book_123")
	t.Setenv("STRIPE_PRICE_TOOLKIT", "price_toolkit_123")
	t.Setenv("STRIPE_PRICE_ANNUAL_MEMBERSHIP", "price_annual_123")
	t.Setenv("STRIPE_PRICE_BUNDLE", "price_bundle_123")
	t.Setenv("STRIPE_PRICE_DEFAULT", "price_default_123")
}

func TestGetResolvesPriceReference(t *testing.T) {
	setPriceEnv(t)

	product, err := Get(models.ProductBook)
	require.NoError(t, err)
	assert.Equal(t, "price_book_123", product.PriceReference)
	assert.Equal(t, 29.0, product.Price)
}

func TestGetFallsBackToDefaultReference(t *testing.T) {
	t.Setenv("STRIPE_PRICE_BOOK", "")
	t.Setenv("STRIPE_PRICE_DEFAULT", "price_default_123")

	product, err := Get(models.ProductBook)
	require.NoError(t, err)
	assert.Equal(t, "price_default_123", product.PriceReference)
}

func TestGetUnknownProduct(t *testing.T) {
	setPriceEnv(t)

	_, err := Get(models.ProductKey("Gadget"))
	var unknown *models.UnknownProductError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, models.ProductKey("Gadget"), unknown.Key)
}

func TestGetFailsWithoutAnyReference(t *testing.T) {
	t.Setenv("STRIPE_PRICE_BOOK", "")
	t.Setenv("STRIPE_PRICE_DEFAULT", "")

	_, err := Get(models.ProductBook)
	var unknown *models.UnknownProductError
	assert.True(t, errors.As(err, &unknown))
}

func TestAssembleLineItems(t *testing.T) {
	setPriceEnv(t)

	items, err := AssembleLineItems([]models.ProductKey{models.ProductBook, models.ProductToolkit})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, models.LineItem{PriceReference: "price_book_123", Quantity: 1}, items[0])
	assert.Equal(t, models.LineItem{PriceReference: "price_toolkit_123", Quantity: 1}, items[1])
}

func TestAssembleLineItemsUnknownKey(t *testing.T) {
	setPriceEnv(t)

	_, err := AssembleLineItems([]models.ProductKey{models.ProductBook, "Gadget"})
	var unknown *models.UnknownProductError
	assert.True(t, errors.As(err, &unknown))
}

func TestTotalDerivesFromCatalog(t *testing.T) {
	total, err := Total([]models.ProductKey{models.ProductBook, models.ProductToolkit, models.ProductIEAnnual})
	require.NoError(t, err)
	assert.Equal(t, 377.0, total)
}

func TestTotalEmptyCart(t *testing.T) {
	total, err := Total(nil)
	require.NoError(t, err)
	assert.Zero(t, total)
}
