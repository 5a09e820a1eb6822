// internal/adapter/storage/event_store.go

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"stagemap/internal/domain/event"
	"stagemap/internal/domain/geo"
)

// EventStore implements storage for events and their subsections
type EventStore struct {
	db *pgxpool.Pool
}

// NewEventStore creates a new event store
func NewEventStore(db *pgxpool.Pool) *EventStore {
	return &EventStore{
		db: db,
	}
}

const eventColumns = `
	e.id, e.title, e.description, e.date, e.latitude, e.longitude, e.location_name,
	c.id::text, c.name, e.boundary_coordinates, e.organizer_id, e.created_at`

// CreateEvent saves a new event and its subsections
func (s *EventStore) CreateEvent(ctx context.Context, e event.Event) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		boundary, err := encodePolygon(e.Boundary)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO events (
				id, title, description, date, latitude, longitude, location_name,
				category_id, boundary_coordinates, organizer_id, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			e.ID, e.Title, e.Description, e.Date, e.Location.Latitude, e.Location.Longitude,
			e.LocationName, categoryID(e.Category), boundary, e.OrganizerID, e.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("error inserting event: %w", err)
		}

		for _, sub := range e.Subsections {
			if err := upsertSubsection(ctx, tx, sub); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateEvent saves an event and reconciles its subsections by id: listed
// subsections are updated or inserted, the rest are deleted with their schedules
func (s *EventStore) UpdateEvent(ctx context.Context, e event.Event) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		boundary, err := encodePolygon(e.Boundary)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			UPDATE events SET
				title = $2, description = $3, date = $4, latitude = $5, longitude = $6,
				location_name = $7, category_id = $8, boundary_coordinates = $9
			WHERE id = $1`,
			e.ID, e.Title, e.Description, e.Date, e.Location.Latitude, e.Location.Longitude,
			e.LocationName, categoryID(e.Category), boundary,
		)
		if err != nil {
			return fmt.Errorf("error updating event: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return event.ErrEventNotFound
		}

		keep := make([]string, 0, len(e.Subsections))
		for _, sub := range e.Subsections {
			keep = append(keep, sub.ID)
		}

		if _, err := tx.Exec(ctx,
			`DELETE FROM event_subsections WHERE event_id = $1 AND NOT (id = ANY($2))`,
			e.ID, keep,
		); err != nil {
			return fmt.Errorf("error deleting removed subsections: %w", err)
		}

		for _, sub := range e.Subsections {
			if err := upsertSubsection(ctx, tx, sub); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetEvent retrieves an event with its subsections
func (s *EventStore) GetEvent(ctx context.Context, id string) (*event.Event, error) {
	if !validID(id) {
		return nil, event.ErrEventNotFound
	}

	query := `SELECT` + eventColumns + `
		FROM events e
		LEFT JOIN categories c ON c.id = e.category_id
		WHERE e.id = $1`

	e, err := scanEvent(s.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translateError(err, event.ErrEventNotFound)
	}

	events := []event.Event{*e}
	if err := s.attachSubsections(ctx, events); err != nil {
		return nil, err
	}

	return &events[0], nil
}

// ListEvents finds events matching the filter, ordered by date then creation
func (s *EventStore) ListEvents(ctx context.Context, filter event.Filter) ([]event.Event, error) {
	var (
		conditions []string
		args       []interface{}
	)

	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(e.title ILIKE $%d OR e.description ILIKE $%d OR e.location_name ILIKE $%d OR c.name ILIKE $%d)",
			n, n, n, n,
		))
	}

	if filter.OrganizerID != "" {
		if !validID(filter.OrganizerID) {
			return []event.Event{}, nil
		}
		args = append(args, filter.OrganizerID)
		conditions = append(conditions, fmt.Sprintf("e.organizer_id = $%d", len(args)))
	}

	if box := filter.Within; box != nil {
		args = append(args, box.MinLatitude, box.MaxLatitude, box.MinLongitude, box.MaxLongitude)
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"e.latitude BETWEEN $%d AND $%d AND e.longitude BETWEEN $%d AND $%d",
			n-3, n-2, n-1, n,
		))
	}

	query := `SELECT` + eventColumns + `
		FROM events e
		LEFT JOIN categories c ON c.id = e.category_id`
	if len(conditions) > 0 {
		query += "\nWHERE " + strings.Join(conditions, " AND ")
	}
	query += "\nORDER BY e.date, e.created_at, e.id"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying events: %w", err)
	}
	defer rows.Close()

	events := []event.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	if err := s.attachSubsections(ctx, events); err != nil {
		return nil, err
	}

	return events, nil
}

// CountEvents returns the number of stored events
func (s *EventStore) CountEvents(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting events: %w", err)
	}
	return n, nil
}

// attachSubsections loads the subsections of every event in one query
func (s *EventStore) attachSubsections(ctx context.Context, events []event.Event) error {
	if len(events) == 0 {
		return nil
	}

	ids := make([]string, len(events))
	index := make(map[string]int, len(events))
	for i, e := range events {
		ids[i] = e.ID
		index[e.ID] = i
		events[i].Subsections = []event.Subsection{}
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, event_id, name, description, boundary_coordinates, color, created_at
		FROM event_subsections
		WHERE event_id = ANY($1)
		ORDER BY created_at, id`, ids)
	if err != nil {
		return fmt.Errorf("error querying subsections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		sub, err := scanSubsection(rows)
		if err != nil {
			return err
		}
		i := index[sub.EventID]
		events[i].Subsections = append(events[i].Subsections, *sub)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating subsections: %w", err)
	}

	return nil
}

func (s *EventStore) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return translateError(err, nil)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

func upsertSubsection(ctx context.Context, tx pgx.Tx, sub event.Subsection) error {
	boundary, err := encodePolygon(sub.Boundary)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO event_subsections (id, event_id, name, description, boundary_coordinates, color, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			boundary_coordinates = EXCLUDED.boundary_coordinates,
			color = EXCLUDED.color
		WHERE event_subsections.event_id = EXCLUDED.event_id`,
		sub.ID, sub.EventID, sub.Name, sub.Description, boundary, sub.Color, sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error saving subsection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return event.ErrSubsectionNotFound
	}
	return nil
}

func scanEvent(row pgx.Row) (*event.Event, error) {
	var (
		e            event.Event
		catID, catNm *string
		boundary     []byte
	)

	err := row.Scan(
		&e.ID,
		&e.Title,
		&e.Description,
		&e.Date,
		&e.Location.Latitude,
		&e.Location.Longitude,
		&e.LocationName,
		&catID,
		&catNm,
		&boundary,
		&e.OrganizerID,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if catID != nil && catNm != nil {
		e.Category = &event.Category{ID: *catID, Name: *catNm}
	}

	if e.Boundary, err = decodePolygon(boundary); err != nil {
		return nil, fmt.Errorf("error decoding boundary of event %s: %w", e.ID, err)
	}

	return &e, nil
}

func scanSubsection(row pgx.Row) (*event.Subsection, error) {
	var (
		sub      event.Subsection
		boundary []byte
	)

	if err := row.Scan(&sub.ID, &sub.EventID, &sub.Name, &sub.Description, &boundary, &sub.Color, &sub.CreatedAt); err != nil {
		return nil, err
	}

	var err error
	if sub.Boundary, err = decodePolygon(boundary); err != nil {
		return nil, fmt.Errorf("error decoding boundary of subsection %s: %w", sub.ID, err)
	}

	return &sub, nil
}

func encodePolygon(p geo.Polygon) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("error marshaling boundary: %w", err)
	}
	return data, nil
}

func decodePolygon(data []byte) (geo.Polygon, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var p geo.Polygon
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return p, nil
}

func categoryID(c *event.Category) *string {
	if c == nil {
		return nil
	}
	return &c.ID
}

// escapeLike escapes LIKE wildcards so search text matches literally
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
