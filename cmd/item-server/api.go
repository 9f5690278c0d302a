package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MRamiBalles/pickup-server/internal/domain/item"
	"github.com/MRamiBalles/pickup-server/internal/engine"
	"github.com/MRamiBalles/pickup-server/internal/platform/metrics"
)

type throwRequest struct {
	PlayerID string `json:"player_id"`
	Template string `json:"template"`
	Amount   *int   `json:"amount,omitempty"`
}

type pickupRequest struct {
	PlayerID string `json:"player_id"`
	ItemID   string `json:"item_id"`
}

type placeRequest struct {
	Template string `json:"template"`
}

// newAPI returns the HTTP routes of the item server. /ws is registered by
// the caller because it needs the hub.
func newAPI(eng *engine.Engine) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/throw", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req throwRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}
		view, err := eng.Throw(r.Context(), req.PlayerID, req.Template, req.Amount)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]interface{}{"status": "ok", "thrown": view != nil, "item": view})
	})

	mux.HandleFunc("/api/pickup", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req pickupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}
		ok, err := eng.Pickup(r.Context(), req.PlayerID, req.ItemID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]interface{}{"status": "ok", "picked_up": ok})
	})

	mux.HandleFunc("/api/place", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req placeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}
		view, err := eng.Place(r.Context(), req.Template)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]interface{}{"status": "ok", "item": view})
	})

	mux.HandleFunc("/api/items", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		views, err := eng.WorldItems(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]interface{}{"items": views})
	})

	mux.HandleFunc("/api/inventory", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		inv, err := eng.Inventory(r.Context(), r.URL.Query().Get("player"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]interface{}{"inventory": inv})
	})

	mux.HandleFunc("/api/mission/end", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		n, err := eng.EndMission(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]interface{}{"status": "ok", "deleted": n})
	})

	mux.HandleFunc("/metrics", metrics.Handler())
	mux.HandleFunc("/metrics/prometheus", metrics.PrometheusHandler())
	return mux
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrUnknownPlayer),
		errors.Is(err, engine.ErrUnknownItem),
		errors.Is(err, item.ErrUnknownTemplate):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrEmptyInventory):
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}
