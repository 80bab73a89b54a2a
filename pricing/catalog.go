// Package pricing holds the static product catalog and assembles priced
// line items for checkout. The catalog is the only source of charge
// amounts; caller-supplied prices are never trusted.
package pricing

import (
	"github.com/influence-engine/funnel-go/config"
	"github.com/influence-engine/funnel-go/models"
)

var catalog = map[models.ProductKey]models.Product{
	models.ProductBook: {
		Key:   models.ProductBook,
		Name:  "The Influence Book",
		Price: 29,
		Features: []string{
			"Hardcover + digital edition",
			"Influence style deep-dives",
			"Worked negotiation scripts",
		},
	},
	models.ProductToolkit: {
		Key:   models.ProductToolkit,
		Name:  "Influence Toolkit",
		Price: 49,
		Features: []string{
			"Style-matched conversation templates",
			"Printable preparation worksheets",
			"Objection-handling cheat sheets",
		},
	},
	models.ProductIEAnnual: {
		Key:   models.ProductIEAnnual,
		Name:  "Influence Engine Annual Membership",
		Price: 299,
		Features: []string{
			"Monthly live practice sessions",
			"Full scenario library",
			"Member community access",
		},
	},
	models.ProductBundle: {
		Key:   models.ProductBundle,
		Name:  "Complete Influence Bundle",
		Price: 337,
		Features: []string{
			"Everything in the book, toolkit and annual membership",
		},
	},
}

// Get looks up a catalog entry by key, resolving its external price
// reference from configuration. Fails with UnknownProductError when the
// key has no entry or no price reference is configured.
func Get(key models.ProductKey) (models.Product, error) {
	product, ok := catalog[key]
	if !ok {
		return models.Product{}, &models.UnknownProductError{Key: key}
	}
	product.PriceReference = config.PriceReference(key)
	if product.PriceReference == "" {
		return models.Product{}, &models.UnknownProductError{Key: key}
	}
	return product, nil
}

// Price returns the catalog price for a key without resolving the external
// price reference.
func Price(key models.ProductKey) (float64, error) {
	product, ok := catalog[key]
	if !ok {
		return 0, &models.UnknownProductError{Key: key}
	}
	return product.Price, nil
}

// AssembleLineItems turns selected product keys into an ordered sequence of
// provider line items, one per key with quantity 1.
func AssembleLineItems(keys []models.ProductKey) ([]models.LineItem, error) {
	items := make([]models.LineItem, 0, len(keys))
	for _, key := range keys {
		product, err := Get(key)
		if err != nil {
			return nil, err
		}
		items = append(items, models.LineItem{
			PriceReference: product.PriceReference,
			Quantity:       1,
		})
	}
	return items, nil
}

// AssembleFromState builds line items straight from a funnel state's cart.
func AssembleFromState(state models.FunnelState) ([]models.LineItem, error) {
	return AssembleLineItems(state.Cart)
}

// Total sums the catalog prices for the given keys. This is the
// authoritative order total; it is always derived server-side.
func Total(keys []models.ProductKey) (float64, error) {
	var total float64
	for _, key := range keys {
		price, err := Price(key)
		if err != nil {
			return 0, err
		}
		total += price
	}
	return total, nil
}
