package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/influence-engine/funnel-go/events"
	"github.com/influence-engine/funnel-go/models"
	"github.com/influence-engine/funnel-go/stores"
)

func newFunnelRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	handlers := NewHandlers(&fakeGateway{}, nil, stores.NewMemoryPurchaseRepository(),
		stores.NewMemoryProfileRepository(), events.LogSink{})

	r := gin.New()
	r.POST("/api/v1/funnel/advance", handlers.AdvanceFunnelHandler)
	r.POST("/api/v1/funnel/select", handlers.SelectProductHandler)
	r.POST("/api/v1/funnel/decline", handlers.DeclineProductHandler)
	return r
}

func TestAdvanceFromIEOfferToBundleRescue(t *testing.T) {
	r := newFunnelRouter(t)

	rr := postJSON(t, r, "/api/v1/funnel/advance", map[string]any{
		"state": map[string]any{
			"version":         1,
			"step":            "ie-offer",
			"declinedToolkit": true,
			"declinedBook":    true,
			"wantsIE":         false,
			"wantsBundle":     false,
		},
	})

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp FunnelStateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, models.StepBundleOffer, resp.Step)
}

func TestAdvanceSkipsBookOfferForBookBuyers(t *testing.T) {
	r := newFunnelRouter(t)

	rr := postJSON(t, r, "/api/v1/funnel/advance", map[string]any{
		"state": map[string]any{
			"version":        1,
			"step":           "toolkit-offer",
			"sourceTracking": map[string]any{"srcBook": true},
		},
	})

	require.Equal(t, http.StatusOK, rr.Code)
	var resp FunnelStateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, models.StepIEOffer, resp.Step)
}

func TestSelectBundleOverHTTP(t *testing.T) {
	r := newFunnelRouter(t)

	rr := postJSON(t, r, "/api/v1/funnel/select", map[string]any{
		"state":   map[string]any{"version": 1, "step": "bundle-offer", "cart": []string{"Book"}},
		"product": "Bundle",
	})

	require.Equal(t, http.StatusOK, rr.Code)
	var resp FunnelStateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, []models.ProductKey{models.ProductBook, models.ProductToolkit, models.ProductIEAnnual}, resp.State.Cart)
	assert.True(t, resp.State.WantsBundle)
}

func TestDeclineRequiresProduct(t *testing.T) {
	r := newFunnelRouter(t)

	rr := postJSON(t, r, "/api/v1/funnel/decline", map[string]any{
		"state": map[string]any{"version": 1, "step": "toolkit-offer"},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAdvanceRejectsFutureStateVersion(t *testing.T) {
	r := newFunnelRouter(t)

	rr := postJSON(t, r, "/api/v1/funnel/advance", map[string]any{
		"state": map[string]any{"version": 99, "step": "entry"},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
