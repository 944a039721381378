package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/event-board/internal/apperror"
	"github.com/sakif/event-board/internal/model"
	"github.com/sakif/event-board/internal/repository"
)

// Compile-time check that *DB implements repository.EventRepository.
var _ repository.EventRepository = (*DB)(nil)

// eventSelect joins the creator so every read path returns the resolved
// {id, name, email} alongside the event — one query instead of N+1.
//
// LEFT JOIN, not INNER: with an inner join a dangling creator_id would make
// the event silently vanish from listings. We want to NOTICE that case (it
// means referential integrity was violated somehow) and surface it as a
// user-not-found error instead of hiding the row.
const eventSelect = `
	SELECT e.id, e.name, e.description, e.date, e.location, e.organizer,
	       e.creator_id, e.created_at, e.updated_at,
	       u.id, u.name, u.email
	FROM events e
	LEFT JOIN users u ON u.id = e.creator_id`

// Create inserts a new event. The foreign key on creator_id guarantees the
// creator exists at insert time.
func (db *DB) Create(ctx context.Context, event *model.Event) error {
	now := time.Now()
	event.ID = xid.New().String()
	event.CreatedAt = now
	event.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO events (id, name, description, date, location, organizer,
			creator_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Name,
		event.Description,
		event.Date,
		event.Location,
		event.Organizer,
		event.CreatorID,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating event: %w", err)
	}

	return nil
}

// GetByID retrieves a single event with its creator resolved.
// Returns apperror.ErrNotFound if the event doesn't exist.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Event, error) {
	row := db.conn.QueryRowContext(ctx, eventSelect+` WHERE e.id = ?`, id)

	event, err := scanEvent(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("event", id)
		}
		return nil, fmt.Errorf("sqlite: getting event %s: %w", id, err)
	}

	return event, nil
}

// List retrieves all events sorted by event date, ascending — the dashboard
// order, soonest first, regardless of when rows were inserted.
func (db *DB) List(ctx context.Context) ([]model.Event, error) {
	rows, err := db.conn.QueryContext(ctx, eventSelect+` ORDER BY e.date ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing events: %w", err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning event row: %w", err)
		}
		events = append(events, *event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating events: %w", err)
	}

	return events, nil
}

// Update writes the mutable fields of an event back to the database.
// The service owns WHICH fields changed (via the patch allow-list); the
// repository just persists the resulting record. creator_id and created_at
// are never touched.
func (db *DB) Update(ctx context.Context, event *model.Event) error {
	event.UpdatedAt = time.Now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE events
		 SET name = ?, description = ?, date = ?, location = ?, organizer = ?, updated_at = ?
		 WHERE id = ?`,
		event.Name,
		event.Description,
		event.Date,
		event.Location,
		event.Organizer,
		event.UpdatedAt,
		event.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating event %s: %w", event.ID, err)
	}

	return requireRowAffected(result, "event", event.ID)
}

// Delete removes an event by its ID.
func (db *DB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting event %s: %w", id, err)
	}

	return requireRowAffected(result, "event", id)
}

// scanner covers both *sql.Row and *sql.Rows so scanEvent works for the
// single-row and the iteration paths alike.
type scanner interface {
	Scan(dest ...any) error
}

// scanEvent reads one joined event row. A NULL creator side of the join
// means the creator_id points at nothing — that's a data-integrity problem
// surfaced as NotFound on the referenced user, never a silently dropped or
// creator-less event.
func scanEvent(s scanner) (*model.Event, error) {
	var (
		e            model.Event
		creatorID    sql.NullString
		creatorName  sql.NullString
		creatorEmail sql.NullString
	)

	err := s.Scan(
		&e.ID,
		&e.Name,
		&e.Description,
		&e.Date,
		&e.Location,
		&e.Organizer,
		&e.CreatorID,
		&e.CreatedAt,
		&e.UpdatedAt,
		&creatorID,
		&creatorName,
		&creatorEmail,
	)
	if err != nil {
		return nil, err
	}

	if !creatorID.Valid {
		return nil, apperror.NotFound("user", e.CreatorID)
	}

	e.Creator = &model.PublicUser{
		ID:    creatorID.String,
		Name:  creatorName.String,
		Email: creatorEmail.String,
	}

	return &e, nil
}
