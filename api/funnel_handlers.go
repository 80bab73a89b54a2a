package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/influence-engine/funnel-go/funnel"
	"github.com/influence-engine/funnel-go/models"
)

// The funnel endpoints are stateless: the client posts its held state and
// gets back the transformed value. The server never stores funnel state.

type FunnelActionRequest struct {
	State   json.RawMessage   `json:"state"`
	Product models.ProductKey `json:"product,omitempty"`
}

type FunnelStateResponse struct {
	State models.FunnelState `json:"state"`
	Step  models.Step        `json:"step"`
	Error string             `json:"error,omitempty"`
}

func (h *Handlers) loadFunnelState(c *gin.Context) (models.FunnelState, models.ProductKey, bool) {
	var req FunnelActionRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, FunnelStateResponse{Error: "Invalid request format"})
		return models.FunnelState{}, "", false
	}
	if len(req.State) == 0 {
		c.JSON(http.StatusBadRequest, FunnelStateResponse{Error: "State is required"})
		return models.FunnelState{}, "", false
	}

	state, err := funnel.LoadState(req.State)
	if err != nil {
		c.JSON(http.StatusBadRequest, FunnelStateResponse{Error: err.Error()})
		return models.FunnelState{}, "", false
	}
	return state, req.Product, true
}

// AdvanceFunnelHandler moves the posted state to its next step.
func (h *Handlers) AdvanceFunnelHandler(c *gin.Context) {
	state, _, ok := h.loadFunnelState(c)
	if !ok {
		return
	}

	next := funnel.Advance(state)
	c.JSON(http.StatusOK, FunnelStateResponse{State: next, Step: next.Step})
}

// SelectProductHandler applies a product selection to the posted state.
func (h *Handlers) SelectProductHandler(c *gin.Context) {
	state, product, ok := h.loadFunnelState(c)
	if !ok {
		return
	}
	if product == "" {
		c.JSON(http.StatusBadRequest, FunnelStateResponse{Error: "Product is required"})
		return
	}

	next := funnel.SelectProduct(state, product)
	h.Sink.RecordEvent("product_selected", map[string]string{"product": string(product)})
	c.JSON(http.StatusOK, FunnelStateResponse{State: next, Step: next.Step})
}

// DeclineProductHandler applies a product decline to the posted state.
func (h *Handlers) DeclineProductHandler(c *gin.Context) {
	state, product, ok := h.loadFunnelState(c)
	if !ok {
		return
	}
	if product == "" {
		c.JSON(http.StatusBadRequest, FunnelStateResponse{Error: "Product is required"})
		return
	}

	next := funnel.DeclineProduct(state, product)
	h.Sink.RecordEvent("product_declined", map[string]string{"product": string(product)})
	c.JSON(http.StatusOK, FunnelStateResponse{State: next, Step: next.Step})
}
