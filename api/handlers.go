// Package api provides HTTP handlers for the funnel engine's API.
package api

import (
	"errors"
	"net/http"

	"github.com/influence-engine/funnel-go/billing"
	"github.com/influence-engine/funnel-go/events"
	"github.com/influence-engine/funnel-go/models"
	"github.com/influence-engine/funnel-go/stores"
)

// Handlers bundles the injected collaborators for all API handlers.
type Handlers struct {
	Gateway    billing.Gateway
	Reconciler *events.Reconciler
	Purchases  stores.PurchaseRepository
	Profiles   stores.ProfileRepository
	Sink       events.Sink
}

// NewHandlers wires the handler set.
func NewHandlers(
	gateway billing.Gateway,
	reconciler *events.Reconciler,
	purchases stores.PurchaseRepository,
	profiles stores.ProfileRepository,
	sink events.Sink,
) *Handlers {
	if sink == nil {
		sink = events.LogSink{}
	}
	return &Handlers{
		Gateway:    gateway,
		Reconciler: reconciler,
		Purchases:  purchases,
		Profiles:   profiles,
		Sink:       sink,
	}
}

// statusForError maps the error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	var validationErr *models.ValidationError
	var unknownProduct *models.UnknownProductError
	var signatureErr *models.SignatureVerificationError

	switch {
	case errors.As(err, &validationErr), errors.As(err, &unknownProduct), errors.As(err, &signatureErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
