// internal/adapter/storage/stage_store.go

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"stagemap/internal/domain/event"
	"stagemap/internal/domain/schedule"
)

// StageStoreConfig contains configuration for the stage store
type StageStoreConfig struct {
	// MaxRetries bounds how often a write is retried after a serialization failure
	MaxRetries int
	// RetryBackoff is the pause before the first retry; it doubles each time
	RetryBackoff time.Duration
}

// StageStore implements storage for subsections and their programmes
type StageStore struct {
	db     *pgxpool.Pool
	config StageStoreConfig
}

// NewStageStore creates a new stage store
func NewStageStore(db *pgxpool.Pool, config StageStoreConfig) *StageStore {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = 10 * time.Millisecond
	}
	return &StageStore{
		db:     db,
		config: config,
	}
}

// GetSubsection retrieves a subsection by ID
func (s *StageStore) GetSubsection(ctx context.Context, id string) (*event.Subsection, error) {
	if !validID(id) {
		return nil, event.ErrSubsectionNotFound
	}

	sub, err := scanSubsection(s.db.QueryRow(ctx, `
		SELECT id, event_id, name, description, boundary_coordinates, color, created_at
		FROM event_subsections
		WHERE id = $1`, id))
	if err != nil {
		return nil, translateError(err, event.ErrSubsectionNotFound)
	}
	return sub, nil
}

// GetStageEvent retrieves a stage event by ID
func (s *StageStore) GetStageEvent(ctx context.Context, id string) (*event.StageEvent, error) {
	if !validID(id) {
		return nil, event.ErrStageEventNotFound
	}

	se, err := scanStageEvent(s.db.QueryRow(ctx, `
		SELECT id, subsection_id, title, description, start_time, end_time, created_at
		FROM stage_events
		WHERE id = $1`, id))
	if err != nil {
		return nil, translateError(err, event.ErrStageEventNotFound)
	}
	return se, nil
}

// ListStageEvents returns a stage's programme ordered by start time
func (s *StageStore) ListStageEvents(ctx context.Context, subsectionID string) ([]event.StageEvent, error) {
	if !validID(subsectionID) {
		return nil, event.ErrSubsectionNotFound
	}
	return listStageEvents(ctx, s.db, subsectionID)
}

// ApplyChange locks the subsection row, hands the current programme to plan
// and writes the planned change in a serializable transaction. Serialization
// failures are retried; plan may therefore run more than once.
func (s *StageStore) ApplyChange(ctx context.Context, subsectionID string, plan schedule.Planner) error {
	if !validID(subsectionID) {
		return event.ErrSubsectionNotFound
	}

	backoff := s.config.RetryBackoff
	for attempt := 0; ; attempt++ {
		err := s.applyOnce(ctx, subsectionID, plan)
		if err == nil || !isRetryable(err) || attempt >= s.config.MaxRetries {
			return translateError(err, nil)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func (s *StageStore) applyOnce(ctx context.Context, subsectionID string, plan schedule.Planner) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked string
	err = tx.QueryRow(ctx, `SELECT id FROM event_subsections WHERE id = $1 FOR UPDATE`, subsectionID).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return event.ErrSubsectionNotFound
	}
	if err != nil {
		return fmt.Errorf("error locking subsection: %w", err)
	}

	existing, err := listStageEvents(ctx, tx, subsectionID)
	if err != nil {
		return err
	}

	change, err := plan(existing)
	if err != nil {
		return err
	}

	for _, se := range change.Insert {
		if _, err := tx.Exec(ctx, `
			INSERT INTO stage_events (id, subsection_id, title, description, start_time, end_time, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			se.ID, subsectionID, se.Title, se.Description, se.StartTime, se.EndTime, se.CreatedAt,
		); err != nil {
			return fmt.Errorf("error inserting stage event: %w", err)
		}
	}

	if se := change.Update; se != nil {
		tag, err := tx.Exec(ctx, `
			UPDATE stage_events
			SET title = $3, description = $4, start_time = $5, end_time = $6
			WHERE id = $1 AND subsection_id = $2`,
			se.ID, subsectionID, se.Title, se.Description, se.StartTime, se.EndTime,
		)
		if err != nil {
			return fmt.Errorf("error updating stage event: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return event.ErrStageEventNotFound
		}
	}

	if change.DeleteID != "" {
		tag, err := tx.Exec(ctx, `DELETE FROM stage_events WHERE id = $1 AND subsection_id = $2`, change.DeleteID, subsectionID)
		if err != nil {
			return fmt.Errorf("error deleting stage event: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return event.ErrStageEventNotFound
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

// querier is the read surface shared by pgxpool.Pool and pgx.Tx
type querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

func listStageEvents(ctx context.Context, q querier, subsectionID string) ([]event.StageEvent, error) {
	rows, err := q.Query(ctx, `
		SELECT id, subsection_id, title, description, start_time, end_time, created_at
		FROM stage_events
		WHERE subsection_id = $1
		ORDER BY start_time, id`, subsectionID)
	if err != nil {
		return nil, fmt.Errorf("error querying stage events: %w", err)
	}
	defer rows.Close()

	items := []event.StageEvent{}
	for rows.Next() {
		se, err := scanStageEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *se)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stage events: %w", err)
	}
	return items, nil
}

func scanStageEvent(row pgx.Row) (*event.StageEvent, error) {
	var se event.StageEvent
	if err := row.Scan(&se.ID, &se.SubsectionID, &se.Title, &se.Description, &se.StartTime, &se.EndTime, &se.CreatedAt); err != nil {
		return nil, err
	}
	return &se, nil
}
