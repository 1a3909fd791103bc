package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/fortuna/icetime/internal/hockey"
	"github.com/fortuna/icetime/internal/store"
)

// EventRepository handles enriched event and shift access
type EventRepository struct {
	db *store.Database
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *store.Database) *EventRepository {
	return &EventRepository{db: db}
}

// GetByGame returns a game's enriched events in sort order
func (r *EventRepository) GetByGame(ctx context.Context, gameID int64) ([]hockey.EnrichedEvent, error) {
	rows, err := r.db.DB().QueryContext(ctx, `
		SELECT payload
		FROM game_events
		WHERE game_id = $1
		ORDER BY sort_order
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()
	return scanPayloads(rows)
}

// GetOnIceForPlayer returns the events a player was on the ice for,
// newest game first
func (r *EventRepository) GetOnIceForPlayer(ctx context.Context, playerID int64, limit int) ([]hockey.EnrichedEvent, error) {
	rows, err := r.db.DB().QueryContext(ctx, `
		SELECT payload
		FROM game_events
		WHERE home_on_ids @> ARRAY[$1::bigint] OR away_on_ids @> ARRAY[$1::bigint]
		ORDER BY game_id DESC, sort_order
		LIMIT $2
	`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying on-ice events: %w", err)
	}
	defer rows.Close()
	return scanPayloads(rows)
}

func scanPayloads(rows *sql.Rows) ([]hockey.EnrichedEvent, error) {
	var events []hockey.EnrichedEvent
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		var ev hockey.EnrichedEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("decoding event payload: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// onIceIDs lists the player ids of every matched player, including any
// beyond the materialized slots.
func onIceIDs(set hockey.OnIceSet) pq.Int64Array {
	ids := make(pq.Int64Array, 0, len(set.Players))
	for _, p := range set.Players {
		ids = append(ids, p.ID)
	}
	return ids
}

func replaceEvents(ctx context.Context, q querier, gameID int64, events []hockey.EnrichedEvent) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM game_events WHERE game_id = $1`, gameID); err != nil {
		return fmt.Errorf("clearing events: %w", err)
	}

	stmt, err := q.PrepareContext(ctx, `
		INSERT INTO game_events (game_id, event_id, sort_order, event_type, period, elapsed_seconds,
			event_team, strength, home_on_ids, away_on_ids, low_confidence, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`)
	if err != nil {
		return fmt.Errorf("prepare event insert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encoding event %d: %w", ev.EventID, err)
		}
		_, err = stmt.ExecContext(ctx,
			gameID, ev.EventID, ev.SortOrder, string(ev.Type), ev.Period, nullInt(ev.ElapsedSeconds),
			nullString(ev.EventTeam), nullString(ev.Strength), onIceIDs(ev.HomeOn), onIceIDs(ev.AwayOn),
			ev.LowConfidence, payload,
		)
		if err != nil {
			return fmt.Errorf("inserting event %d: %w", ev.EventID, err)
		}
	}
	return nil
}

// replaceShifts bulk loads a game's shifts with COPY.
func replaceShifts(ctx context.Context, q querier, gameID int64, shifts []hockey.Shift) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM game_shifts WHERE game_id = $1`, gameID); err != nil {
		return fmt.Errorf("clearing shifts: %w", err)
	}

	stmt, err := q.PrepareContext(ctx, pq.CopyIn("game_shifts",
		"game_id", "player_id", "shift_number", "period", "start_seconds", "end_seconds",
		"is_home", "is_goalie", "zone_start", "source"))
	if err != nil {
		return fmt.Errorf("prepare shift copy: %w", err)
	}
	defer stmt.Close()

	for _, s := range shifts {
		if !s.Resolved() {
			continue
		}
		_, err := stmt.ExecContext(ctx, gameID, s.PlayerID, s.ShiftNumber, s.Period,
			s.StartSeconds, s.EndSeconds, s.IsHome, s.IsGoalie, string(s.ZoneStart), s.Source)
		if err != nil {
			return fmt.Errorf("copying shift: %w", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("flushing shift copy: %w", err)
	}
	return nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
