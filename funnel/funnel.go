// Package funnel implements the offer-funnel state machine. All functions
// are pure: they take a state value and return a derived value or a new
// state, never touching I/O. Each visitor's state is private to their
// session and carries no server-side identity until checkout.
package funnel

import (
	"github.com/influence-engine/funnel-go/models"
)

// BundleCart is the fixed cart contents selecting the bundle resolves to.
// Selecting the bundle always replaces the cart with exactly these three
// products; it is never a union with prior contents.
var BundleCart = []models.ProductKey{
	models.ProductBook,
	models.ProductToolkit,
	models.ProductIEAnnual,
}

// NewState returns the default state for a visitor entering the funnel.
func NewState() models.FunnelState {
	return models.FunnelState{
		Version: models.FunnelStateVersion,
		Step:    models.StepEntry,
		Cart:    []models.ProductKey{},
	}
}

// NextStep is the transition function. It is deterministic in the state
// alone; an unknown step maps back to entry.
func NextStep(state models.FunnelState) models.Step {
	switch state.Step {
	case models.StepEntry:
		return models.StepQuiz
	case models.StepQuiz:
		return models.StepResults
	case models.StepResults:
		return models.StepToolkitOffer
	case models.StepToolkitOffer:
		// Whether the toolkit was wanted or declined makes no difference
		// here; only book-offer eligibility decides.
		if ShouldShowBookOffer(state) {
			return models.StepBookOffer
		}
		return models.StepIEOffer
	case models.StepBookOffer:
		return models.StepIEOffer
	case models.StepIEOffer:
		if state.WantsIE {
			return models.StepCheckout
		}
		if ShouldShowBundleOffer(state) {
			return models.StepBundleOffer
		}
		return models.StepCheckout
	case models.StepBundleOffer:
		return models.StepCheckout
	case models.StepCheckout:
		return models.StepSuccess
	default:
		return models.StepEntry
	}
}

// ShouldShowBookOffer reports whether the book offer step applies: skipped
// for visitors who came in through the book itself, already want it, or
// already declined it.
func ShouldShowBookOffer(state models.FunnelState) bool {
	return !state.SourceTracking.SrcBook && !state.WantsBook && !state.DeclinedBook
}

// ShouldShowBundleOffer reports whether the bundle rescue offer applies:
// at least two of the three individual offers declined, and neither the
// membership nor the bundle already wanted.
func ShouldShowBundleOffer(state models.FunnelState) bool {
	return state.DeclineCount() >= 2 && !state.WantsIE && !state.WantsBundle
}

// SelectProduct marks a product as wanted and clears its decline flag.
// Selecting the bundle atomically replaces the cart with BundleCart and
// forces all three individual wants true.
func SelectProduct(state models.FunnelState, key models.ProductKey) models.FunnelState {
	switch key {
	case models.ProductToolkit:
		state.WantsToolkit = true
		state.DeclinedToolkit = false
	case models.ProductBook:
		state.WantsBook = true
		state.DeclinedBook = false
	case models.ProductIEAnnual:
		state.WantsIE = true
		state.DeclinedIE = false
	case models.ProductBundle:
		state.WantsBundle = true
		state.WantsToolkit = true
		state.WantsBook = true
		state.WantsIE = true
		state.DeclinedToolkit = false
		state.DeclinedBook = false
		state.DeclinedIE = false
		state.Cart = append([]models.ProductKey{}, BundleCart...)
	}
	return state
}

// DeclineProduct marks an individual offer as declined. The bundle has no
// decline operation; passing it is a no-op.
func DeclineProduct(state models.FunnelState, key models.ProductKey) models.FunnelState {
	switch key {
	case models.ProductToolkit:
		state.DeclinedToolkit = true
		state.WantsToolkit = false
	case models.ProductBook:
		state.DeclinedBook = true
		state.WantsBook = false
	case models.ProductIEAnnual:
		state.DeclinedIE = true
		state.WantsIE = false
	}
	return state
}

// AddToCart appends a product key, skipping keys already present so the
// cart never holds duplicates.
func AddToCart(state models.FunnelState, key models.ProductKey) models.FunnelState {
	if state.InCart(key) {
		return state
	}
	state.Cart = append(append([]models.ProductKey{}, state.Cart...), key)
	return state
}

// RemoveFromCart removes the first occurrence of a product key.
func RemoveFromCart(state models.FunnelState, key models.ProductKey) models.FunnelState {
	cart := make([]models.ProductKey, 0, len(state.Cart))
	removed := false
	for _, k := range state.Cart {
		if !removed && k == key {
			removed = true
			continue
		}
		cart = append(cart, k)
	}
	state.Cart = cart
	return state
}

// ClearCart empties the cart.
func ClearCart(state models.FunnelState) models.FunnelState {
	state.Cart = []models.ProductKey{}
	return state
}

// Advance moves the state to its next step via the transition function.
// This is the only supported way to change the step.
func Advance(state models.FunnelState) models.FunnelState {
	state.Step = NextStep(state)
	return state
}
