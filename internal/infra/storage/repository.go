// Package storage provides the persistence layer for the item server.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"time"
)

// GameEvent mirrors the domain event structure for persistence.
// The domain package should NOT import this; use interfaces instead.
type GameEvent struct {
	ID        string                 `json:"id" db:"id"`
	GameID    string                 `json:"game_id" db:"game_id"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	SimTimeMs int64                  `json:"sim_time_ms" db:"sim_time_ms"`
	EventType string                 `json:"event_type" db:"event_type"`
	ActorID   string                 `json:"actor_id" db:"actor_id"`
	TargetID  string                 `json:"target_id" db:"target_id"`
	Payload   map[string]interface{} `json:"payload" db:"payload"`
}

// EventRepository defines the interface for event persistence.
// The domain uses this interface; the implementation is in infra.
type EventRepository interface {
	// Append adds a new event to the immutable ledger.
	Append(ctx context.Context, event GameEvent) error

	// GetByGameID retrieves all events for a specific mission (for replay).
	GetByGameID(ctx context.Context, gameID string) ([]GameEvent, error)

	// GetByActorID retrieves all events performed by an actor.
	GetByActorID(ctx context.Context, gameID, actorID string) ([]GameEvent, error)

	// GetByEventType retrieves all events of a specific type.
	GetByEventType(ctx context.Context, gameID string, eventType string) ([]GameEvent, error)
}

// PlayerSnapshot represents the persisted identity of a player.
type PlayerSnapshot struct {
	PlayerID    string    `json:"player_id" db:"player_id"`
	GameID      string    `json:"game_id" db:"game_id"`
	Name        string    `json:"name" db:"name"`
	LastUpdated time.Time `json:"last_updated" db:"last_updated"`
}

// InventoryRow is one stack in a player's inventory.
type InventoryRow struct {
	PlayerID string `json:"player_id" db:"player_id"`
	Item     string `json:"item" db:"item"`
	Count    int    `json:"count" db:"count"`
}

// PlayerRepository defines the interface for player and inventory snapshots.
type PlayerRepository interface {
	// Upsert updates or inserts a player and replaces their inventory.
	Upsert(ctx context.Context, snapshot PlayerSnapshot, inventory []InventoryRow) error

	// GetByGameID retrieves all players of a mission.
	GetByGameID(ctx context.Context, gameID string) ([]PlayerSnapshot, error)

	// GetInventory retrieves a player's inventory.
	GetInventory(ctx context.Context, playerID string) ([]InventoryRow, error)
}
