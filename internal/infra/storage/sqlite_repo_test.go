package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitSQLite(":memory:")
	if err != nil {
		t.Fatalf("init sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestEventRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteEventRepository(openTestDB(t))

	in := []GameEvent{
		{ID: "e1", GameID: "M1", Timestamp: time.Now(), SimTimeMs: 0, EventType: "ITEM_THROWN", ActorID: "P1", TargetID: "i1",
			Payload: map[string]interface{}{"template": "Ammo", "count": 3}},
		{ID: "e2", GameID: "M1", Timestamp: time.Now(), SimTimeMs: 10000, EventType: "ITEM_DELETED", ActorID: "SYSTEM", TargetID: "i1"},
		{ID: "e3", GameID: "M2", Timestamp: time.Now(), EventType: "ITEM_THROWN", ActorID: "P1", TargetID: "i9"},
	}
	for _, e := range in {
		if err := repo.Append(ctx, e); err != nil {
			t.Fatalf("append %s: %v", e.ID, err)
		}
	}

	got, err := repo.GetByGameID(ctx, "M1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 || got[0].ID != "e1" || got[1].ID != "e2" {
		t.Fatalf("Expected e1,e2 in append order, got %+v", got)
	}
	if got[0].Payload["template"] != "Ammo" || got[0].Payload["count"] != float64(3) {
		t.Errorf("Unexpected payload %v", got[0].Payload)
	}
	if got[1].SimTimeMs != 10000 {
		t.Errorf("Expected sim time 10000, got %d", got[1].SimTimeMs)
	}

	byActor, _ := repo.GetByActorID(ctx, "M1", "P1")
	if len(byActor) != 1 {
		t.Errorf("Expected 1 event by P1 in M1, got %d", len(byActor))
	}
	byType, _ := repo.GetByEventType(ctx, "M2", "ITEM_THROWN")
	if len(byType) != 1 || byType[0].ID != "e3" {
		t.Errorf("Unexpected events by type %+v", byType)
	}

	if err := repo.Append(ctx, in[0]); err == nil {
		t.Errorf("Expected duplicate event IDs to be rejected")
	}
}

func TestPlayerRepositoryUpsertReplacesInventory(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLitePlayerRepository(openTestDB(t))
	snap := PlayerSnapshot{PlayerID: "P1", GameID: "M1", Name: "Scout"}

	err := repo.Upsert(ctx, snap, []InventoryRow{
		{PlayerID: "P1", Item: "Ammo", Count: 5},
		{PlayerID: "P1", Item: "BoxTest", Count: 1},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	snap.Name = "Renamed"
	err = repo.Upsert(ctx, snap, []InventoryRow{
		{PlayerID: "P1", Item: "Ammo", Count: 2},
		{PlayerID: "P1", Item: "Empty", Count: 0},
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	players, err := repo.GetByGameID(ctx, "M1")
	if err != nil || len(players) != 1 || players[0].Name != "Renamed" {
		t.Fatalf("Expected one renamed player, got %+v (%v)", players, err)
	}
	if players[0].LastUpdated.IsZero() {
		t.Errorf("Expected last_updated to be set")
	}

	inv, err := repo.GetInventory(ctx, "P1")
	if err != nil {
		t.Fatalf("inventory: %v", err)
	}
	if len(inv) != 1 || inv[0].Item != "Ammo" || inv[0].Count != 2 {
		t.Errorf("Expected only Ammo=2 after replace, got %+v", inv)
	}
}

func TestReconstructorUsesLastTotal(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteEventRepository(openTestDB(t))

	changes := []map[string]interface{}{
		{"player_id": "P1", "template": "Ammo", "delta": 10, "total": 10},
		{"player_id": "P1", "template": "Ammo", "delta": -4, "total": 6},
		{"player_id": "P2", "template": "Ammo", "delta": 4, "total": 4},
		{"player_id": "P2", "template": "Ammo", "delta": -4, "total": 0},
		{"player_id": "P2", "template": "Flag", "delta": 1, "total": 1},
	}
	for i, payload := range changes {
		repo.Append(ctx, GameEvent{
			ID: string(rune('a' + i)), GameID: "M1", Timestamp: time.Now(),
			EventType: inventoryChangedType, ActorID: payload["player_id"].(string), Payload: payload,
		})
	}
	repo.Append(ctx, GameEvent{ID: "noise", GameID: "M1", Timestamp: time.Now(), EventType: "ITEM_THROWN"})

	inv, err := NewReconstructor(repo).RebuildInventories(ctx, "M1")
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if inv["P1"]["Ammo"] != 6 {
		t.Errorf("Expected P1 Ammo=6, got %v", inv["P1"])
	}
	if _, ok := inv["P2"]["Ammo"]; ok || inv["P2"]["Flag"] != 1 {
		t.Errorf("Expected P2 to hold only a Flag, got %v", inv["P2"])
	}
}

func TestInitSQLiteOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "items.db")
	db, err := InitSQLite(path)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	db.Close()

	// Reopening must not fail on existing schemas.
	db, err = InitSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	db.Close()
}
