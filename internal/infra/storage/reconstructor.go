// Package storage - reconstructor.go
// Rebuilds inventories from the event log: state = f(events).
package storage

import (
	"context"
	"fmt"
)

const inventoryChangedType = "INVENTORY_CHANGED"

// Reconstructor rebuilds player inventories from the event log.
// This is used when snapshots are missing or suspected stale.
type Reconstructor struct {
	eventRepo EventRepository
}

// NewReconstructor creates a new state reconstructor.
func NewReconstructor(eventRepo EventRepository) *Reconstructor {
	return &Reconstructor{eventRepo: eventRepo}
}

// RebuildInventories returns player ID -> template -> count as of the last
// inventory event recorded for the mission.
func (r *Reconstructor) RebuildInventories(ctx context.Context, gameID string) (map[string]map[string]int, error) {
	events, err := r.eventRepo.GetByEventType(ctx, gameID, inventoryChangedType)
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory events: %w", err)
	}

	out := make(map[string]map[string]int)
	for _, e := range events {
		playerID, _ := e.Payload["player_id"].(string)
		template, _ := e.Payload["template"].(string)
		total, ok := e.Payload["total"].(float64)
		if playerID == "" || template == "" || !ok {
			continue
		}
		if out[playerID] == nil {
			out[playerID] = make(map[string]int)
		}
		if total <= 0 {
			delete(out[playerID], template)
			continue
		}
		out[playerID][template] = int(total)
	}
	return out, nil
}
