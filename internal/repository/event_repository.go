package repository

import (
	"context"
	"database/sql"

	"github.com/colorfest/ticket-booking/internal/model"
)

// EventRepo provides data access to the events table.  Customer-facing
// reads only ever see published events; organizer endpoints may read and
// mutate everything.  All timestamps are stored in UTC.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

const eventColumns = `id, title, description, venue_name, venue_address, starts_at, is_published`

func scanEvent(row interface{ Scan(...any) error }) (model.Event, error) {
	var ev model.Event
	err := row.Scan(&ev.ID, &ev.Title, &ev.Description, &ev.VenueName, &ev.VenueAddress, &ev.StartsAt, &ev.IsPublished)
	return ev, err
}

// ListPublished returns all events visible to customers, soonest first.
func (r *EventRepo) ListPublished(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE is_published = TRUE ORDER BY starts_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]model.Event, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// ListAll returns every event regardless of publish state, newest first.
// Used by the organizer dashboard.
func (r *EventRepo) ListAll(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY starts_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]model.Event, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// GetByID fetches a single event.  Returns ErrEventNotFound when the id
// does not exist.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// Create inserts a new event and populates its generated ID.
func (r *EventRepo) Create(ctx context.Context, ev *model.Event) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO events (title, description, venue_name, venue_address, starts_at, is_published)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ev.Title, ev.Description, ev.VenueName, ev.VenueAddress, ev.StartsAt.UTC(), ev.IsPublished)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)
	return nil
}

// Update rewrites the mutable fields of an event.  Returns
// ErrEventNotFound when no row matched.
func (r *EventRepo) Update(ctx context.Context, ev *model.Event) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE events SET title = ?, description = ?, venue_name = ?, venue_address = ?, starts_at = ?, is_published = ?
		 WHERE id = ?`,
		ev.Title, ev.Description, ev.VenueName, ev.VenueAddress, ev.StartsAt.UTC(), ev.IsPublished, ev.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// MySQL also reports 0 when the row exists but nothing changed;
		// confirm absence before reporting not found.
		if _, getErr := r.GetByID(ctx, ev.ID); getErr != nil {
			return getErr
		}
	}
	return nil
}

// Delete removes an event.  Ticket types and bookings cascade via
// foreign keys.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEventNotFound
	}
	return nil
}
