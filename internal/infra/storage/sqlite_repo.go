package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, event GameEvent) error {
	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO events (id, game_id, timestamp, sim_time_ms, event_type, actor_id, target_id, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		event.ID, event.GameID, event.Timestamp, event.SimTimeMs, event.EventType,
		event.ActorID, event.TargetID, string(payloadBytes),
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

const eventColumns = `id, game_id, timestamp, sim_time_ms, event_type, actor_id, target_id, payload`

func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]GameEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []GameEvent
	for rows.Next() {
		var e GameEvent
		var payloadStr string
		err := rows.Scan(
			&e.ID, &e.GameID, &e.Timestamp, &e.SimTimeMs, &e.EventType,
			&e.ActorID, &e.TargetID, &payloadStr,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payloadStr), &e.Payload); err != nil {
			return nil, fmt.Errorf("event %s payload: %w", e.ID, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *SQLiteEventRepository) GetByGameID(ctx context.Context, gameID string) ([]GameEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE game_id = ? ORDER BY rowid ASC`
	return r.getMany(ctx, query, gameID)
}

func (r *SQLiteEventRepository) GetByActorID(ctx context.Context, gameID, actorID string) ([]GameEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE game_id = ? AND actor_id = ? ORDER BY rowid ASC`
	return r.getMany(ctx, query, gameID, actorID)
}

func (r *SQLiteEventRepository) GetByEventType(ctx context.Context, gameID string, eventType string) ([]GameEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE game_id = ? AND event_type = ? ORDER BY rowid ASC`
	return r.getMany(ctx, query, gameID, eventType)
}

// ---------------------------------------------------------
// SQLitePlayerRepository
// ---------------------------------------------------------

type SQLitePlayerRepository struct {
	db *sql.DB
}

func NewSQLitePlayerRepository(db *sql.DB) *SQLitePlayerRepository {
	return &SQLitePlayerRepository{db: db}
}

func (r *SQLitePlayerRepository) Upsert(ctx context.Context, snapshot PlayerSnapshot, inventory []InventoryRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO players (player_id, game_id, name, last_updated)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(player_id) DO UPDATE SET
			game_id=excluded.game_id,
			name=excluded.name,
			last_updated=excluded.last_updated
	`
	if _, err := tx.ExecContext(ctx, query, snapshot.PlayerID, snapshot.GameID, snapshot.Name, time.Now()); err != nil {
		return fmt.Errorf("upsert player %s: %w", snapshot.PlayerID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM inventories WHERE player_id = ?`, snapshot.PlayerID); err != nil {
		return fmt.Errorf("clear inventory %s: %w", snapshot.PlayerID, err)
	}
	for _, row := range inventory {
		if row.Count <= 0 {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO inventories (player_id, item, count) VALUES (?, ?, ?)`,
			snapshot.PlayerID, row.Item, row.Count,
		)
		if err != nil {
			return fmt.Errorf("insert inventory %s/%s: %w", snapshot.PlayerID, row.Item, err)
		}
	}

	return tx.Commit()
}

func (r *SQLitePlayerRepository) GetByGameID(ctx context.Context, gameID string) ([]PlayerSnapshot, error) {
	query := `SELECT player_id, game_id, name, last_updated FROM players WHERE game_id = ? ORDER BY player_id`
	rows, err := r.db.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []PlayerSnapshot
	for rows.Next() {
		var p PlayerSnapshot
		if err := rows.Scan(&p.PlayerID, &p.GameID, &p.Name, &p.LastUpdated); err != nil {
			return nil, err
		}
		snaps = append(snaps, p)
	}
	return snaps, rows.Err()
}

func (r *SQLitePlayerRepository) GetInventory(ctx context.Context, playerID string) ([]InventoryRow, error) {
	query := `SELECT player_id, item, count FROM inventories WHERE player_id = ? ORDER BY item`
	rows, err := r.db.QueryContext(ctx, query, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var inv []InventoryRow
	for rows.Next() {
		var row InventoryRow
		if err := rows.Scan(&row.PlayerID, &row.Item, &row.Count); err != nil {
			return nil, err
		}
		inv = append(inv, row)
	}
	return inv, rows.Err()
}
