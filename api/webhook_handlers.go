package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/influence-engine/funnel-go/models"
)

// StripeWebhookHandler ingests the provider's event stream. The raw body is
// verified against the signing secret before any parsing as event data; an
// unverifiable payload gets 400 so the provider never treats it as handled.
// Verified events answer {"received": true} even when the specific type is
// unhandled.
func (h *Handlers) StripeWebhookHandler(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	signature := c.GetHeader("Stripe-Signature")

	if err := h.Reconciler.Process(c.Request.Context(), payload, signature); err != nil {
		var signatureErr *models.SignatureVerificationError
		if errors.As(err, &signatureErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
			return
		}
		// Processing failed after verification. Non-success makes the
		// provider redeliver, which is how a lost completion gets retried.
		log.Printf("Webhook processing failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Event processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
