package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MRamiBalles/pickup-server/internal/domain/item"
	"github.com/MRamiBalles/pickup-server/internal/domain/player"
	"github.com/MRamiBalles/pickup-server/internal/engine"
	"github.com/MRamiBalles/pickup-server/internal/events"
	"github.com/MRamiBalles/pickup-server/internal/infra/storage"
	"github.com/MRamiBalles/pickup-server/internal/platform/config"
	"github.com/MRamiBalles/pickup-server/internal/platform/logger"
)

func newTestAPI(t *testing.T) (*engine.Engine, http.Handler) {
	t.Helper()
	reg := item.NewRegistry()
	reg.Register(item.Template{Name: "Ammo", PickupName: "some ammo", MaxInventory: item.Int(10)})
	eng := engine.NewEngine(reg, engine.Options{}, events.NewEventLog(nil), logger.Discard())
	p := player.NewPlayer("P1", "Scout")
	p.Items["Ammo"] = 4
	eng.RegisterPlayer(context.Background(), p)
	return eng, newAPI(eng)
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestAPIThrowPickupFlow(t *testing.T) {
	_, api := newTestAPI(t)

	rec, out := do(t, api, http.MethodPost, "/api/throw", `{"player_id":"P1","template":"Ammo","amount":3}`)
	if rec.Code != http.StatusOK || out["thrown"] != true {
		t.Fatalf("Expected a throw, got %d %v", rec.Code, out)
	}
	thrown := out["item"].(map[string]interface{})
	if thrown["count"] != float64(3) {
		t.Errorf("Expected count 3, got %v", thrown["count"])
	}

	_, out = do(t, api, http.MethodGet, "/api/inventory?player=P1", "")
	if inv := out["inventory"].(map[string]interface{}); inv["Ammo"] != float64(1) {
		t.Errorf("Expected 1 Ammo left, got %v", inv)
	}

	_, out = do(t, api, http.MethodGet, "/api/items", "")
	if items := out["items"].([]interface{}); len(items) != 1 {
		t.Errorf("Expected 1 world item, got %d", len(items))
	}

	body := `{"player_id":"P1","item_id":"` + thrown["id"].(string) + `"}`
	rec, out = do(t, api, http.MethodPost, "/api/pickup", body)
	if rec.Code != http.StatusOK || out["picked_up"] != true {
		t.Fatalf("Expected a pickup, got %d %v", rec.Code, out)
	}
	_, out = do(t, api, http.MethodGet, "/api/inventory?player=P1", "")
	if inv := out["inventory"].(map[string]interface{}); inv["Ammo"] != float64(4) {
		t.Errorf("Expected 4 Ammo back, got %v", inv)
	}
}

func TestAPIPlaceAndEndMission(t *testing.T) {
	_, api := newTestAPI(t)

	rec, out := do(t, api, http.MethodPost, "/api/place", `{"template":"BoxTest"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected place to succeed, got %d", rec.Code)
	}
	if placed := out["item"].(map[string]interface{}); placed["static"] != true || placed["rotate"] != true {
		t.Errorf("Expected a static rotating item, got %v", placed)
	}

	_, out = do(t, api, http.MethodPost, "/api/mission/end", "")
	if out["deleted"] != float64(1) {
		t.Errorf("Expected 1 deleted, got %v", out["deleted"])
	}
}

func TestAPIErrors(t *testing.T) {
	_, api := newTestAPI(t)
	cases := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, "/api/throw", "", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/throw", "{", http.StatusBadRequest},
		{http.MethodPost, "/api/throw", `{"player_id":"ghost","template":"Ammo"}`, http.StatusNotFound},
		{http.MethodPost, "/api/throw", `{"player_id":"P1","template":"BoxTest"}`, http.StatusConflict},
		{http.MethodPost, "/api/place", `{"template":"Nope"}`, http.StatusNotFound},
		{http.MethodPost, "/api/pickup", `{"player_id":"P1","item_id":"missing"}`, http.StatusNotFound},
		{http.MethodGet, "/api/inventory?player=ghost", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		rec, _ := do(t, api, tc.method, tc.path, tc.body)
		if rec.Code != tc.want {
			t.Errorf("%s %s: expected %d, got %d", tc.method, tc.path, tc.want, rec.Code)
		}
	}
}

func TestBootstrapSeedsThenRestores(t *testing.T) {
	ctx := context.Background()
	db, err := storage.InitSQLite(":memory:")
	if err != nil {
		t.Fatalf("init sqlite: %v", err)
	}
	defer db.Close()
	playerRepo := storage.NewSQLitePlayerRepository(db)
	eventRepo := storage.NewSQLiteEventRepository(db)
	recon := storage.NewReconstructor(eventRepo)

	cfg := config.Default()
	cfg.Players = []config.PlayerSeed{{ID: "P1", Name: "Scout", Items: map[string]int{"BoxTest": 3}}}

	first := engine.NewEngine(item.NewRegistry(), engine.Options{},
		events.NewEventLog(&SQLitePersisterAdapter{repo: eventRepo, gameID: cfg.GameID}), logger.Discard())
	if err := bootstrapPlayers(ctx, cfg, playerRepo, recon, first, logger.Discard()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := first.Throw(ctx, "P1", "BoxTest", nil); err != nil {
		t.Fatalf("throw: %v", err)
	}
	if err := snapshotPlayers(ctx, cfg.GameID, playerRepo, first); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	persisted, _ := eventRepo.GetByGameID(ctx, cfg.GameID)
	if len(persisted) == 0 {
		t.Errorf("Expected thrown events to be persisted")
	}

	// Seeds are ignored once the database holds the mission.
	cfg.Players[0].Items["BoxTest"] = 99
	second := engine.NewEngine(item.NewRegistry(), engine.Options{}, events.NewEventLog(nil), logger.Discard())
	if err := bootstrapPlayers(ctx, cfg, playerRepo, recon, second, logger.Discard()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	inv, err := second.Inventory(ctx, "P1")
	if err != nil || inv["BoxTest"] != 2 {
		t.Errorf("Expected restored BoxTest=2, got %v (%v)", inv, err)
	}
}

func TestBootstrapRejectsUnknownSeedItems(t *testing.T) {
	ctx := context.Background()
	db, _ := storage.InitSQLite(":memory:")
	defer db.Close()

	cfg := config.Default()
	cfg.Players = []config.PlayerSeed{{ID: "P1", Items: map[string]int{"Nope": 1}}}
	eng := engine.NewEngine(item.NewRegistry(), engine.Options{}, events.NewEventLog(nil), logger.Discard())

	err := bootstrapPlayers(ctx, cfg, storage.NewSQLitePlayerRepository(db),
		storage.NewReconstructor(storage.NewSQLiteEventRepository(db)), eng, logger.Discard())
	if err == nil {
		t.Errorf("Expected unknown seed template to fail")
	}
}

func TestRebuildFromEventsWhenSnapshotEmpty(t *testing.T) {
	ctx := context.Background()
	db, _ := storage.InitSQLite(":memory:")
	defer db.Close()
	playerRepo := storage.NewSQLitePlayerRepository(db)
	eventRepo := storage.NewSQLiteEventRepository(db)

	cfg := config.Default()
	eng := engine.NewEngine(item.NewRegistry(), engine.Options{},
		events.NewEventLog(&SQLitePersisterAdapter{repo: eventRepo, gameID: cfg.GameID}), logger.Discard())
	p := player.NewPlayer("P1", "Scout")
	eng.RegisterPlayer(ctx, p)
	view, _ := eng.Place(ctx, "BoxTest")
	if ok, err := eng.Pickup(ctx, "P1", view.ID); err != nil || !ok {
		t.Fatalf("pickup: %v %v", ok, err)
	}
	// Player row without inventory rows, as after a crash between snapshots.
	playerRepo.Upsert(ctx, storage.PlayerSnapshot{PlayerID: "P1", GameID: cfg.GameID, Name: "Scout"}, nil)

	restored := engine.NewEngine(item.NewRegistry(), engine.Options{}, events.NewEventLog(nil), logger.Discard())
	if err := bootstrapPlayers(ctx, cfg, playerRepo, storage.NewReconstructor(eventRepo), restored, logger.Discard()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	inv, _ := restored.Inventory(ctx, "P1")
	if inv["BoxTest"] != 1 {
		t.Errorf("Expected BoxTest=1 rebuilt from events, got %v", inv)
	}
}
