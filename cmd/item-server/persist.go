package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MRamiBalles/pickup-server/internal/domain/player"
	"github.com/MRamiBalles/pickup-server/internal/engine"
	"github.com/MRamiBalles/pickup-server/internal/events"
	"github.com/MRamiBalles/pickup-server/internal/infra/storage"
	"github.com/MRamiBalles/pickup-server/internal/platform/config"
	"github.com/MRamiBalles/pickup-server/internal/platform/logger"
	"github.com/MRamiBalles/pickup-server/internal/platform/metrics"
)

// SQLitePersisterAdapter translates domain events to storage events.
type SQLitePersisterAdapter struct {
	repo   storage.EventRepository
	gameID string
}

func (a *SQLitePersisterAdapter) Append(event events.GameEvent) error {
	start := time.Now()

	var payloadMap map[string]interface{}
	if event.Payload != nil {
		payloadBytes, err := json.Marshal(event.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		if err := json.Unmarshal(payloadBytes, &payloadMap); err != nil {
			return fmt.Errorf("payload of %s is not an object: %w", event.Type, err)
		}
	}

	storageEvent := storage.GameEvent{
		ID:        event.ID,
		GameID:    a.gameID,
		Timestamp: event.Timestamp,
		SimTimeMs: event.SimTime.Milliseconds(),
		EventType: string(event.Type),
		ActorID:   event.ActorID,
		TargetID:  event.TargetID,
		Payload:   payloadMap,
	}
	err := a.repo.Append(context.Background(), storageEvent)
	metrics.Get().RecordEventWrite(time.Since(start), err)
	return err
}

// bootstrapPlayers restores players from SQLite, falling back to the event
// log for inventories, and seeds the configured players on an empty database.
func bootstrapPlayers(ctx context.Context, cfg config.Config, repo storage.PlayerRepository, recon *storage.Reconstructor, eng *engine.Engine, appLogger *logger.Logger) error {
	appLogger.Info("Checking DB for existing players...")
	snaps, err := repo.GetByGameID(ctx, cfg.GameID)
	if err != nil {
		return fmt.Errorf("query players: %w", err)
	}

	if len(snaps) == 0 {
		appLogger.Info(fmt.Sprintf("Database empty. Seeding %d players...", len(cfg.Players)))
		for _, seed := range cfg.Players {
			p := player.NewPlayer(seed.ID, seed.Name)
			for name, count := range seed.Items {
				if _, err := eng.Registry().Get(name); err != nil {
					return fmt.Errorf("seed player %s: %w", seed.ID, err)
				}
				p.SetInventory(name, count)
			}
			snap, rows := snapshotOf(cfg.GameID, *p)
			if err := repo.Upsert(ctx, snap, rows); err != nil {
				return fmt.Errorf("seed player %s: %w", seed.ID, err)
			}
			if err := eng.RegisterPlayer(ctx, p); err != nil {
				return err
			}
		}
		return nil
	}

	appLogger.Info("Reconstructing players from SQLite state...")
	var rebuilt map[string]map[string]int
	for _, snap := range snaps {
		p := player.NewPlayer(snap.PlayerID, snap.Name)
		rows, err := repo.GetInventory(ctx, snap.PlayerID)
		if err != nil {
			return fmt.Errorf("load inventory %s: %w", snap.PlayerID, err)
		}
		if len(rows) == 0 {
			if rebuilt == nil {
				if rebuilt, err = recon.RebuildInventories(ctx, cfg.GameID); err != nil {
					return err
				}
			}
			for name, count := range rebuilt[snap.PlayerID] {
				p.SetInventory(name, count)
			}
		}
		for _, row := range rows {
			p.SetInventory(row.Item, row.Count)
		}
		if err := eng.RegisterPlayer(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// snapshotPlayers persists every player's inventory.
func snapshotPlayers(ctx context.Context, gameID string, repo storage.PlayerRepository, eng *engine.Engine) error {
	players, err := eng.Players(ctx)
	if err != nil {
		return err
	}
	for _, p := range players {
		snap, rows := snapshotOf(gameID, p)
		if err := repo.Upsert(ctx, snap, rows); err != nil {
			return err
		}
	}
	return nil
}

func snapshotOf(gameID string, p player.Player) (storage.PlayerSnapshot, []storage.InventoryRow) {
	snap := storage.PlayerSnapshot{
		PlayerID: p.ID,
		GameID:   gameID,
		Name:     p.Name,
	}
	rows := make([]storage.InventoryRow, 0, len(p.Items))
	for _, name := range p.ItemNames() {
		rows = append(rows, storage.InventoryRow{PlayerID: p.ID, Item: name, Count: p.Items[name]})
	}
	return snap, rows
}
