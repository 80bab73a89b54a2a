package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/influence-engine/funnel-go/billing"
	"github.com/influence-engine/funnel-go/config"
	"github.com/influence-engine/funnel-go/models"
	"github.com/influence-engine/funnel-go/pricing"
)

// CheckoutCartItem is one cart entry in the session-creation request. The
// client-declared priceReference is advisory only; the charge always comes
// from the server-side catalog lookup for the item's type.
type CheckoutCartItem struct {
	PriceReference string            `json:"priceReference"`
	Type           string            `json:"type"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

type CheckoutSessionRequest struct {
	UserEmail      string                 `json:"userEmail"`
	UserName       string                 `json:"userName"`
	Cart           []CheckoutCartItem     `json:"cart"`
	SourceTracking *models.SourceTracking `json:"sourceTracking,omitempty"`
	NdaSigned      bool                   `json:"ndaSigned"`
	UserID         string                 `json:"userId,omitempty"`
}

type CheckoutSessionResponse struct {
	SessionURL string `json:"sessionUrl,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CreateCheckoutSessionHandler creates a provider-hosted checkout session.
// Validation failures return 400 before any provider call; the pending
// purchase record is persisted before the redirect URL goes back to the
// caller, so the order exists for reconciliation even if the browser never
// returns.
func (h *Handlers) CreateCheckoutSessionHandler(c *gin.Context) {
	var req CheckoutSessionRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, CheckoutSessionResponse{Error: "Invalid request format"})
		return
	}

	if req.UserEmail == "" {
		c.JSON(http.StatusBadRequest, CheckoutSessionResponse{Error: "Email is required"})
		return
	}
	if len(req.Cart) == 0 {
		c.JSON(http.StatusBadRequest, CheckoutSessionResponse{Error: "Cart is empty"})
		return
	}

	keys := make([]models.ProductKey, 0, len(req.Cart))
	for _, item := range req.Cart {
		key, ok := config.PurchaseTypeToProduct(item.Type)
		if !ok {
			c.JSON(http.StatusBadRequest, CheckoutSessionResponse{Error: "Unknown purchase type: " + item.Type})
			return
		}
		keys = append(keys, key)
	}

	lineItems, err := pricing.AssembleLineItems(keys)
	if err != nil {
		c.JSON(statusForError(err), CheckoutSessionResponse{Error: err.Error()})
		return
	}

	// The client's declared price references are not trusted; mismatches are
	// worth knowing about since they indicate a stale or tampered client.
	for i, item := range req.Cart {
		if item.PriceReference != "" && item.PriceReference != lineItems[i].PriceReference {
			log.Printf("Client price reference %s for %s ignored in favor of catalog %s",
				item.PriceReference, req.Cart[i].Type, lineItems[i].PriceReference)
		}
	}

	total, err := pricing.Total(keys)
	if err != nil {
		c.JSON(statusForError(err), CheckoutSessionResponse{Error: err.Error()})
		return
	}

	source := models.SourceTracking{}
	if req.SourceTracking != nil {
		source = *req.SourceTracking
	}

	session, err := h.Gateway.CreateSession(c.Request.Context(),
		billing.Identity{UserID: req.UserID, Email: req.UserEmail, Name: req.UserName},
		lineItems,
		billing.SessionMetadata{
			UserID:    req.UserID,
			Email:     req.UserEmail,
			Cart:      keys,
			Source:    source.Source,
			Campaign:  source.Campaign,
			NdaSigned: req.NdaSigned,
		})
	if err != nil {
		log.Printf("Checkout session creation failed for %s: %v", req.UserEmail, err)
		c.JSON(http.StatusInternalServerError, CheckoutSessionResponse{Error: "Failed to create checkout session"})
		return
	}

	// Pending record first, redirect second. A write failure is tolerated so
	// the visitor can still pay; reconciliation rebuilds the record from the
	// session metadata when the completion event arrives.
	err = h.Purchases.CreatePending(c.Request.Context(), &models.PurchaseRecord{
		UserID:    req.UserID,
		SessionID: session.ID,
		Products:  keys,
		Total:     total,
	})
	if err != nil {
		log.Printf("Failed to persist pending order for session %s: %v", session.ID, err)
	}

	h.Sink.RecordEvent("checkout_started", map[string]string{
		"sessionId": session.ID,
		"email":     req.UserEmail,
	})

	c.JSON(http.StatusOK, CheckoutSessionResponse{SessionURL: session.RedirectURL})
}

// GetOrderHandler returns the purchase record for a session id.
func (h *Handlers) GetOrderHandler(c *gin.Context) {
	sessionID := c.Param("sessionId")
	record, err := h.Purchases.Get(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load order"})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	c.JSON(http.StatusOK, record)
}
