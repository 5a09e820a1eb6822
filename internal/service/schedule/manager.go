// internal/service/schedule/manager.go

package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stagemap/internal/domain/event"
	"stagemap/internal/domain/identity"
	"stagemap/internal/domain/messaging"
	"stagemap/internal/domain/schedule"
)

// StageStore defines the storage interface for stages and their programmes
type StageStore interface {
	// GetSubsection retrieves a subsection by ID
	GetSubsection(ctx context.Context, id string) (*event.Subsection, error)

	// GetStageEvent retrieves a stage event by ID
	GetStageEvent(ctx context.Context, id string) (*event.StageEvent, error)

	// ListStageEvents returns a stage's programme ordered by start time
	ListStageEvents(ctx context.Context, subsectionID string) ([]event.StageEvent, error)

	// ApplyChange locks the stage, passes its current programme to plan and
	// writes the planned change, all in one serializable transaction
	ApplyChange(ctx context.Context, subsectionID string, plan schedule.Planner) error
}

// EventReader looks up the event a stage belongs to
type EventReader interface {
	GetEvent(ctx context.Context, id string) (*event.Event, error)
}

// ScheduleManagerConfig contains configuration for the schedule manager
type ScheduleManagerConfig struct {
	// Location is the display timezone for HH:MM times
	Location *time.Location
	// CalendarName prefixes exported calendar names
	CalendarName string
}

// ScheduleManager implements the event.ScheduleManager interface
type ScheduleManager struct {
	stages    StageStore
	events    EventReader
	publisher messaging.Publisher
	logger    *zap.Logger
	config    ScheduleManagerConfig
	now       func() time.Time
}

// NewScheduleManager creates a new schedule manager
func NewScheduleManager(
	stages StageStore,
	events EventReader,
	publisher messaging.Publisher,
	logger *zap.Logger,
	config ScheduleManagerConfig,
) *ScheduleManager {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.CalendarName == "" {
		config.CalendarName = "stagemap"
	}

	return &ScheduleManager{
		stages:    stages,
		events:    events,
		publisher: publisher,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// Location returns the display timezone
func (m *ScheduleManager) Location() *time.Location {
	return m.config.Location
}

// StageStatus returns the live/next summary of a stage
func (m *ScheduleManager) StageStatus(ctx context.Context, subsectionID string) (*event.StageStatus, error) {
	sub, err := m.stages.GetSubsection(ctx, subsectionID)
	if err != nil {
		return nil, err
	}

	items, err := m.stages.ListStageEvents(ctx, subsectionID)
	if err != nil {
		return nil, fmt.Errorf("error listing stage events: %w", err)
	}

	now := m.now()
	snap := m.resolve(sub.ID, items, now)

	status := &event.StageStatus{
		SubsectionID:  sub.ID,
		Name:          sub.Name,
		UpcomingCount: snap.UpcomingCount,
		At:            now,
	}
	if snap.Live != nil {
		status.Live = &event.LiveSummary{Title: snap.Live.Title, Start: snap.Live.StartTime, End: snap.Live.EndTime}
	}
	if snap.Next != nil {
		status.Next = &event.NextSummary{Title: snap.Next.Title, Start: snap.Next.StartTime}
	}

	return status, nil
}

// StatusUpdate returns the wire form of a stage's current status
func (m *ScheduleManager) StatusUpdate(ctx context.Context, subsectionID string) (*messaging.StageStatusUpdate, error) {
	status, err := m.StageStatus(ctx, subsectionID)
	if err != nil {
		return nil, err
	}
	update := ToStatusUpdate(*status, m.config.Location)
	return &update, nil
}

// StageSchedule returns the full public programme of a stage
func (m *ScheduleManager) StageSchedule(ctx context.Context, subsectionID string) (*event.StageSchedule, error) {
	sub, err := m.stages.GetSubsection(ctx, subsectionID)
	if err != nil {
		return nil, err
	}

	parent, err := m.events.GetEvent(ctx, sub.EventID)
	if err != nil {
		return nil, fmt.Errorf("error fetching parent event: %w", err)
	}

	items, err := m.stages.ListStageEvents(ctx, subsectionID)
	if err != nil {
		return nil, fmt.Errorf("error listing stage events: %w", err)
	}

	now := m.now()
	snap := m.resolve(sub.ID, items, now)

	return &event.StageSchedule{
		Subsection: *sub,
		Event:      *parent,
		Live:       snap.Live,
		Upcoming:   snap.Upcoming,
		Past:       snap.Past,
		At:         now,
	}, nil
}

// AddStageEvent schedules a new item on a stage
func (m *ScheduleManager) AddStageEvent(ctx context.Context, actor *identity.User, subsectionID string, input event.StageEventInput) (*event.StageEvent, error) {
	if _, err := m.authorizeStage(ctx, actor, subsectionID); err != nil {
		return nil, err
	}

	input = normalize(input)
	if err := input.Validate(); err != nil {
		return nil, err
	}

	se := m.newStageEvent(subsectionID, input)

	err := m.stages.ApplyChange(ctx, subsectionID, func(existing []event.StageEvent) (schedule.Change, error) {
		if err := schedule.ValidateSlot(schedule.IntervalOf(se), existing, ""); err != nil {
			return schedule.Change{}, err
		}
		return schedule.Change{Insert: []event.StageEvent{se}}, nil
	})
	if err != nil {
		return nil, err
	}

	m.publishStatus(ctx, subsectionID)

	return &se, nil
}

// UpdateStageEvent edits a scheduled item. The item stays on its stage.
func (m *ScheduleManager) UpdateStageEvent(ctx context.Context, actor *identity.User, id string, input event.StageEventInput) (*event.StageEvent, error) {
	current, err := m.stages.GetStageEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := m.authorizeStage(ctx, actor, current.SubsectionID); err != nil {
		return nil, err
	}

	input = normalize(input)
	if err := input.Validate(); err != nil {
		return nil, err
	}

	updated := *current
	updated.Title = input.Title
	updated.Description = input.Description
	updated.StartTime = input.StartTime.UTC()
	updated.EndTime = input.EndTime.UTC()

	err = m.stages.ApplyChange(ctx, current.SubsectionID, func(existing []event.StageEvent) (schedule.Change, error) {
		if !containsID(existing, id) {
			return schedule.Change{}, event.ErrStageEventNotFound
		}
		if err := schedule.ValidateSlot(schedule.IntervalOf(updated), existing, id); err != nil {
			return schedule.Change{}, err
		}
		return schedule.Change{Update: &updated}, nil
	})
	if err != nil {
		return nil, err
	}

	m.publishStatus(ctx, current.SubsectionID)

	return &updated, nil
}

// DeleteStageEvent removes a scheduled item
func (m *ScheduleManager) DeleteStageEvent(ctx context.Context, actor *identity.User, id string) error {
	current, err := m.stages.GetStageEvent(ctx, id)
	if err != nil {
		return err
	}

	if _, err := m.authorizeStage(ctx, actor, current.SubsectionID); err != nil {
		return err
	}

	err = m.stages.ApplyChange(ctx, current.SubsectionID, func(existing []event.StageEvent) (schedule.Change, error) {
		if !containsID(existing, id) {
			return schedule.Change{}, event.ErrStageEventNotFound
		}
		return schedule.Change{DeleteID: id}, nil
	})
	if err != nil {
		return err
	}

	m.publishStatus(ctx, current.SubsectionID)

	return nil
}

// ImportSchedule adds every input item or none of them. Items are checked
// against the stored programme and against each other.
func (m *ScheduleManager) ImportSchedule(ctx context.Context, actor *identity.User, subsectionID string, inputs []event.StageEventInput) ([]event.StageEvent, error) {
	if _, err := m.authorizeStage(ctx, actor, subsectionID); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, &event.ValidationError{Field: "csvfile", Reason: "no rows to import"}
	}

	batch := make([]event.StageEvent, 0, len(inputs))
	for i, in := range inputs {
		in = normalize(in)
		if err := in.Validate(); err != nil {
			var verr *event.ValidationError
			if errors.As(err, &verr) {
				return nil, &event.ValidationError{Field: fmt.Sprintf("row %d: %s", i+1, verr.Field), Reason: verr.Reason}
			}
			return nil, err
		}
		batch = append(batch, m.newStageEvent(subsectionID, in))
	}

	err := m.stages.ApplyChange(ctx, subsectionID, func(existing []event.StageEvent) (schedule.Change, error) {
		accepted := append([]event.StageEvent(nil), existing...)
		for i, se := range batch {
			if err := schedule.ValidateSlot(schedule.IntervalOf(se), accepted, ""); err != nil {
				var verr *schedule.ValidationError
				if errors.As(err, &verr) {
					return schedule.Change{}, verr.WithPrefix(fmt.Sprintf("row %d: ", i+1))
				}
				return schedule.Change{}, err
			}
			accepted = append(accepted, se)
		}
		return schedule.Change{Insert: batch}, nil
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("stage schedule imported",
		zap.String("subsection_id", subsectionID),
		zap.Int("items", len(batch)),
	)

	m.publishStatus(ctx, subsectionID)

	return batch, nil
}

// ExportCalendar renders the stage programme as iCalendar
func (m *ScheduleManager) ExportCalendar(ctx context.Context, subsectionID string) ([]byte, error) {
	sub, err := m.stages.GetSubsection(ctx, subsectionID)
	if err != nil {
		return nil, err
	}

	parent, err := m.events.GetEvent(ctx, sub.EventID)
	if err != nil {
		return nil, fmt.Errorf("error fetching parent event: %w", err)
	}

	items, err := m.stages.ListStageEvents(ctx, subsectionID)
	if err != nil {
		return nil, fmt.Errorf("error listing stage events: %w", err)
	}

	return RenderCalendar(m.config.CalendarName, *parent, *sub, items, m.now()), nil
}

// authorizeStage checks that actor may manage the event owning subsectionID
func (m *ScheduleManager) authorizeStage(ctx context.Context, actor *identity.User, subsectionID string) (*event.Subsection, error) {
	if err := identity.Require(actor, identity.RoleOrganizer, identity.RoleAdmin); err != nil {
		return nil, err
	}

	sub, err := m.stages.GetSubsection(ctx, subsectionID)
	if err != nil {
		return nil, err
	}

	parent, err := m.events.GetEvent(ctx, sub.EventID)
	if err != nil {
		return nil, fmt.Errorf("error fetching parent event: %w", err)
	}

	if err := identity.RequireManage(actor, parent.OrganizerID); err != nil {
		return nil, err
	}

	return sub, nil
}

func (m *ScheduleManager) resolve(subsectionID string, items []event.StageEvent, now time.Time) schedule.Snapshot {
	snap := schedule.Resolve(items, now)
	if snap.Ambiguous() {
		m.logger.Warn("multiple stage events are live at once",
			zap.String("subsection_id", subsectionID),
			zap.Int("matches", snap.LiveMatches),
			zap.String("picked", snap.Live.ID),
		)
	}
	return snap
}

func (m *ScheduleManager) newStageEvent(subsectionID string, input event.StageEventInput) event.StageEvent {
	return event.StageEvent{
		ID:           uuid.New().String(),
		SubsectionID: subsectionID,
		Title:        input.Title,
		Description:  input.Description,
		StartTime:    input.StartTime.UTC(),
		EndTime:      input.EndTime.UTC(),
		CreatedAt:    m.now().UTC(),
	}
}

func (m *ScheduleManager) publishStatus(ctx context.Context, subsectionID string) {
	update, err := m.StatusUpdate(ctx, subsectionID)
	if err != nil {
		m.logger.Warn("failed to compute stage status", zap.String("subsection_id", subsectionID), zap.Error(err))
		return
	}

	if err := m.publisher.PublishStageStatus(ctx, *update); err != nil {
		m.logger.Warn("failed to publish stage status", zap.String("subsection_id", subsectionID), zap.Error(err))
	}
}

// ToStatusUpdate formats a stage status for the wire with HH:MM times in loc
func ToStatusUpdate(status event.StageStatus, loc *time.Location) messaging.StageStatusUpdate {
	update := messaging.StageStatusUpdate{
		ID:            status.SubsectionID,
		Name:          status.Name,
		UpcomingCount: status.UpcomingCount,
		At:            status.At,
	}
	if status.Live != nil {
		update.LiveEvent = &messaging.StageSlot{
			Title: status.Live.Title,
			Start: FormatClock(status.Live.Start, loc),
			End:   FormatClock(status.Live.End, loc),
		}
	}
	if status.Next != nil {
		update.NextEvent = &messaging.StageSlot{
			Title: status.Next.Title,
			Start: FormatClock(status.Next.Start, loc),
		}
	}
	return update
}

// FormatClock renders t as HH:MM in loc
func FormatClock(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("15:04")
}

func normalize(in event.StageEventInput) event.StageEventInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	return in
}

func containsID(items []event.StageEvent, id string) bool {
	for _, se := range items {
		if se.ID == id {
			return true
		}
	}
	return false
}
