package funnel

import (
	"encoding/json"
	"fmt"

	"github.com/influence-engine/funnel-go/models"
)

// LoadState parses a client-held state blob and migrates it to the current
// schema version. Version 0 blobs (the legacy unversioned shape) are
// migrated forward; blobs from a future version are rejected rather than
// silently losing fields.
func LoadState(data []byte) (models.FunnelState, error) {
	var state models.FunnelState
	if err := json.Unmarshal(data, &state); err != nil {
		return models.FunnelState{}, fmt.Errorf("failed to parse funnel state: %w", err)
	}

	switch state.Version {
	case 0:
		state = migrateV0(state)
	case models.FunnelStateVersion:
		// current
	default:
		return models.FunnelState{}, fmt.Errorf("unsupported funnel state version %d", state.Version)
	}

	if state.Step == "" {
		state.Step = models.StepEntry
	}
	if state.Cart == nil {
		state.Cart = []models.ProductKey{}
	}
	return state, nil
}

// migrateV0 upgrades legacy unversioned blobs. The legacy shape matches the
// current one minus the version field, but carts written by old clients may
// hold duplicate keys; rebuilding through AddToCart drops them.
func migrateV0(state models.FunnelState) models.FunnelState {
	cart := state.Cart
	state.Cart = []models.ProductKey{}
	for _, key := range cart {
		state = AddToCart(state, key)
	}
	state.Version = models.FunnelStateVersion
	return state
}

// SaveState serializes a state for client-durable storage.
func SaveState(state models.FunnelState) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize funnel state: %w", err)
	}
	return data, nil
}
