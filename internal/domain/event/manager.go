// internal/domain/event/manager.go

package event

import (
	"context"
	"time"

	"stagemap/internal/domain/geo"
	"stagemap/internal/domain/identity"
)

// NearbyEvent is an event annotated with its distance from a query point
type NearbyEvent struct {
	Event      Event
	DistanceKm float64
}

// Manager defines the interface for event management. actor is the caller;
// nil means anonymous.
type Manager interface {
	// CreateEvent publishes a new event owned by actor
	CreateEvent(ctx context.Context, actor *identity.User, input Input) (*Event, error)

	// UpdateEvent edits an event and reconciles its subsections
	UpdateEvent(ctx context.Context, actor *identity.User, id string, input Input) (*Event, error)

	// GetEvent returns an event with its subsections
	GetEvent(ctx context.Context, id string) (*Event, error)

	// ListEvents returns events matching filter
	ListEvents(ctx context.Context, filter Filter) ([]Event, error)

	// ListOwnEvents returns the events organized by actor
	ListOwnEvents(ctx context.Context, actor *identity.User) ([]Event, error)

	// FindNearby returns events within the query radius, closest first
	FindNearby(ctx context.Context, query geo.ProximityQuery) ([]NearbyEvent, error)

	// LocateSubsection returns the subsection of an event whose boundary contains point
	LocateSubsection(ctx context.Context, eventID string, point geo.Coordinate) (*Subsection, error)

	// ListCategories returns every category ordered by name
	ListCategories(ctx context.Context) ([]Category, error)
}

// LiveSummary describes the item currently running on a stage
type LiveSummary struct {
	Title string
	Start time.Time
	End   time.Time
}

// NextSummary describes the next item on a stage
type NextSummary struct {
	Title string
	Start time.Time
}

// StageStatus is the compact now/next view of one stage
type StageStatus struct {
	SubsectionID  string
	Name          string
	Live          *LiveSummary
	Next          *NextSummary
	UpcomingCount int
	At            time.Time
}

// StageSchedule is the public programme of one stage
type StageSchedule struct {
	Subsection Subsection
	Event      Event
	Live       *StageEvent
	Upcoming   []StageEvent
	Past       []StageEvent
	At         time.Time
}

// ScheduleManager defines the interface for stage programme management
type ScheduleManager interface {
	// StageStatus returns the live/next summary of a stage
	StageStatus(ctx context.Context, subsectionID string) (*StageStatus, error)

	// StageSchedule returns the full public programme of a stage
	StageSchedule(ctx context.Context, subsectionID string) (*StageSchedule, error)

	// AddStageEvent schedules a new item on a stage
	AddStageEvent(ctx context.Context, actor *identity.User, subsectionID string, input StageEventInput) (*StageEvent, error)

	// UpdateStageEvent edits a scheduled item
	UpdateStageEvent(ctx context.Context, actor *identity.User, id string, input StageEventInput) (*StageEvent, error)

	// DeleteStageEvent removes a scheduled item
	DeleteStageEvent(ctx context.Context, actor *identity.User, id string) error

	// ImportSchedule adds every input item or none of them
	ImportSchedule(ctx context.Context, actor *identity.User, subsectionID string, inputs []StageEventInput) ([]StageEvent, error)

	// ExportCalendar renders the stage programme as iCalendar
	ExportCalendar(ctx context.Context, subsectionID string) ([]byte, error)
}
