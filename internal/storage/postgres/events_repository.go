package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eventboard/server/internal/domain/events"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EventRepository struct {
	pool *pgxpool.Pool
}

const eventColumns = `id, title, image, date, time, location, organizer_id, created_at, updated_at`

func (r *EventRepository) List(ctx context.Context) (_ []events.Event, err error) {
	defer observe("list_events", time.Now(), &err)
	rows, err := r.pool.Query(ctx, `SELECT `+eventColumns+` FROM events ORDER BY date, time, id`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	items := make([]events.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		items = append(items, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return items, nil
}

func (r *EventRepository) GetByID(ctx context.Context, id int64) (_ *events.Event, err error) {
	defer observe("get_event", time.Now(), &err)
	row := r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) Create(ctx context.Context, ownerID int64, fields events.Fields) (_ *events.Event, err error) {
	defer observe("create_event", time.Now(), &err)
	row := r.pool.QueryRow(ctx, `
INSERT INTO events (title, image, date, time, location, organizer_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+eventColumns,
		fields.Title, fields.Image, dateParam(fields), timeParam(fields), fields.Location, ownerID,
	)
	event, err := scanEvent(row)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

// Update rewrites the five mutable columns of a row owned by ownerID.
func (r *EventRepository) Update(ctx context.Context, ownerID, id int64, fields events.Fields) (_ *events.Event, err error) {
	defer observe("update_event", time.Now(), &err)
	q := r.pool
	row := q.QueryRow(ctx, `
UPDATE events
   SET title = $3, image = $4, date = $5, time = $6, location = $7, updated_at = now()
 WHERE id = $1 AND organizer_id = $2
RETURNING `+eventColumns,
		id, ownerID, fields.Title, fields.Image, dateParam(fields), timeParam(fields), fields.Location,
	)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, classifyMiss(ctx, q, id)
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) Delete(ctx context.Context, ownerID, id int64) (err error) {
	defer observe("delete_event", time.Now(), &err)
	q := r.pool
	tag, err := q.Exec(ctx, `DELETE FROM events WHERE id = $1 AND organizer_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return classifyMiss(ctx, q, id)
	}
	return nil
}

// classifyMiss explains why an owner-scoped write touched no rows: the event
// is gone, or it belongs to another organizer.
func classifyMiss(ctx context.Context, q *pgxpool.Pool, id int64) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("lookup event: %w", err)
	}
	if !exists {
		return events.ErrNotFound
	}
	return events.ErrForbidden
}

func dateParam(fields events.Fields) pgtype.Date {
	return pgtype.Date{Time: fields.Date, Valid: true}
}

func timeParam(fields events.Fields) pgtype.Time {
	return pgtype.Time{Microseconds: fields.Time.Microseconds(), Valid: true}
}

func scanEvent(row pgx.Row) (*events.Event, error) {
	var (
		e    events.Event
		date pgtype.Date
		tod  pgtype.Time
	)
	if err := row.Scan(&e.ID, &e.Title, &e.Image, &date, &tod, &e.Location, &e.OrganizerID, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Date = date.Time
	e.Time = events.TimeOfDayFromMicroseconds(tod.Microseconds)
	return &e, nil
}
