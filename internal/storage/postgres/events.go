package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/melee/internal/game/combat"
)

// ErrEventExists is returned when a record with the same ID was already
// published.
var ErrEventExists = errors.New("combat event already recorded")

// EventRepository persists combat.EventRecords. It implements
// combat.EventSink.
type EventRepository struct {
	db *pgxpool.Pool
}

var _ combat.EventSink = (*EventRepository)(nil)

// NewEventRepository creates an EventRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Publish stores rec. A zero rec.ID is replaced with a fresh one.
//
// Postcondition: Returns ErrEventExists if rec.ID was already stored.
func (r *EventRepository) Publish(ctx context.Context, rec combat.EventRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding combat event: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO combat_events (id, tick, kind, actor, target, move, hit, record)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.Tick, string(rec.Kind), rec.Actor, rec.Target, rec.Move, rec.Hit(), body,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrEventExists
		}
		return fmt.Errorf("inserting combat event: %w", err)
	}
	return nil
}

// ListByActor returns the records in which actor acted or was targeted,
// ordered by tick. limit <= 0 returns every record.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *EventRepository) ListByActor(ctx context.Context, actor string, limit int) ([]combat.EventRecord, error) {
	query := `
		SELECT record FROM combat_events
		WHERE actor = $1 OR target = $1
		ORDER BY tick ASC, recorded_at ASC`
	args := []any{actor}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing combat events: %w", err)
	}
	defer rows.Close()

	recs := make([]combat.EventRecord, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scanning combat event row: %w", err)
		}
		var rec combat.EventRecord
		if err := json.Unmarshal(body, &rec); err != nil {
			return nil, fmt.Errorf("decoding combat event: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// HitsAgainst counts the stored hits on target.
func (r *EventRepository) HitsAgainst(ctx context.Context, target string) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM combat_events WHERE target = $1 AND hit`, target,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting hits: %w", err)
	}
	return n, nil
}
