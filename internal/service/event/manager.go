// internal/service/event/manager.go

package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stagemap/internal/domain/event"
	"stagemap/internal/domain/geo"
	"stagemap/internal/domain/identity"
	"stagemap/internal/domain/messaging"
	geoService "stagemap/internal/service/geo"
)

// EventStore defines the storage interface for events
type EventStore interface {
	// CreateEvent saves a new event and its subsections
	CreateEvent(ctx context.Context, e event.Event) error

	// UpdateEvent saves an event and reconciles its subsections by id
	UpdateEvent(ctx context.Context, e event.Event) error

	// GetEvent retrieves an event with its subsections
	GetEvent(ctx context.Context, id string) (*event.Event, error)

	// ListEvents finds events matching the filter
	ListEvents(ctx context.Context, filter event.Filter) ([]event.Event, error)
}

// CategoryStore defines the storage interface for categories
type CategoryStore interface {
	// GetCategory retrieves a category by ID
	GetCategory(ctx context.Context, id string) (*event.Category, error)

	// ListCategories returns every category ordered by name
	ListCategories(ctx context.Context) ([]event.Category, error)
}

// EventManager implements the event.Manager interface
type EventManager struct {
	events     EventStore
	categories CategoryStore
	proximity  *geoService.ProximityService
	publisher  messaging.Publisher
	logger     *zap.Logger
	now        func() time.Time
}

// NewEventManager creates a new event manager
func NewEventManager(
	events EventStore,
	categories CategoryStore,
	proximity *geoService.ProximityService,
	publisher messaging.Publisher,
	logger *zap.Logger,
) *EventManager {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &EventManager{
		events:     events,
		categories: categories,
		proximity:  proximity,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateEvent publishes a new event owned by actor
func (m *EventManager) CreateEvent(ctx context.Context, actor *identity.User, input event.Input) (*event.Event, error) {
	if err := identity.Require(actor, identity.RoleOrganizer, identity.RoleAdmin); err != nil {
		return nil, err
	}

	input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, err
	}
	for _, s := range input.Subsections {
		if s.ID != "" {
			return nil, &event.ValidationError{Field: "subsections.id", Reason: "new events cannot reference existing subsections"}
		}
	}

	category, err := m.resolveCategory(ctx, input.CategoryID)
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	e := event.Event{
		ID:          uuid.New().String(),
		OrganizerID: actor.ID,
		CreatedAt:   now,
	}
	applyInput(&e, input, category, now)

	if err := m.events.CreateEvent(ctx, e); err != nil {
		return nil, fmt.Errorf("error saving event: %w", err)
	}

	m.publishChange(ctx, messaging.ChangeCreated, e)

	m.logger.Info("event created",
		zap.String("event_id", e.ID),
		zap.String("organizer_id", e.OrganizerID),
		zap.Int("subsections", len(e.Subsections)),
	)

	return &e, nil
}

// UpdateEvent edits an event and reconciles its subsections. Subsections whose
// id is kept are updated in place so their schedules survive.
func (m *EventManager) UpdateEvent(ctx context.Context, actor *identity.User, id string, input event.Input) (*event.Event, error) {
	if err := identity.Require(actor, identity.RoleOrganizer, identity.RoleAdmin); err != nil {
		return nil, err
	}

	existing, err := m.events.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := identity.RequireManage(actor, existing.OrganizerID); err != nil {
		return nil, err
	}

	input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, err
	}

	known := make(map[string]event.Subsection, len(existing.Subsections))
	for _, s := range existing.Subsections {
		known[s.ID] = s
	}
	for i, s := range input.Subsections {
		if s.ID == "" {
			continue
		}
		if _, ok := known[s.ID]; !ok {
			return nil, &event.ValidationError{
				Field:  fmt.Sprintf("subsections[%d].id", i),
				Reason: "subsection does not belong to this event",
			}
		}
	}

	category, err := m.resolveCategory(ctx, input.CategoryID)
	if err != nil {
		return nil, err
	}

	e := *existing
	applyInput(&e, input, category, m.now().UTC())
	for i := range e.Subsections {
		if prev, ok := known[e.Subsections[i].ID]; ok {
			e.Subsections[i].CreatedAt = prev.CreatedAt
		}
	}

	if err := m.events.UpdateEvent(ctx, e); err != nil {
		return nil, fmt.Errorf("error saving event: %w", err)
	}

	m.publishChange(ctx, messaging.ChangeUpdated, e)

	return &e, nil
}

// GetEvent returns an event with its subsections
func (m *EventManager) GetEvent(ctx context.Context, id string) (*event.Event, error) {
	return m.events.GetEvent(ctx, id)
}

// ListEvents returns events matching filter
func (m *EventManager) ListEvents(ctx context.Context, filter event.Filter) ([]event.Event, error) {
	events, err := m.events.ListEvents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error listing events: %w", err)
	}
	return events, nil
}

// ListOwnEvents returns the events organized by actor
func (m *EventManager) ListOwnEvents(ctx context.Context, actor *identity.User) ([]event.Event, error) {
	if err := identity.Require(actor, identity.RoleOrganizer, identity.RoleAdmin); err != nil {
		return nil, err
	}
	return m.ListEvents(ctx, event.Filter{OrganizerID: actor.ID})
}

// FindNearby returns events within the query radius, closest first
func (m *EventManager) FindNearby(ctx context.Context, query geo.ProximityQuery) ([]event.NearbyEvent, error) {
	var filter event.Filter
	if box, ok := m.proximity.SearchBox(query); ok {
		filter.Within = box
	}

	candidates, err := m.events.ListEvents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error listing candidate events: %w", err)
	}

	return geoService.FilterNearby(candidates, query.Origin, query.RadiusKm), nil
}

// LocateSubsection returns the first subsection of an event whose boundary contains point
func (m *EventManager) LocateSubsection(ctx context.Context, eventID string, point geo.Coordinate) (*event.Subsection, error) {
	if err := point.Validate(); err != nil {
		return nil, err
	}

	e, err := m.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	for i := range e.Subsections {
		if e.Subsections[i].Boundary.Contains(point) {
			s := e.Subsections[i]
			return &s, nil
		}
	}

	return nil, event.ErrNoStageAtLocation
}

// ListCategories returns every category ordered by name
func (m *EventManager) ListCategories(ctx context.Context) ([]event.Category, error) {
	return m.categories.ListCategories(ctx)
}

func (m *EventManager) resolveCategory(ctx context.Context, id string) (*event.Category, error) {
	if id == "" {
		return nil, nil
	}

	c, err := m.categories.GetCategory(ctx, id)
	if errors.Is(err, event.ErrCategoryNotFound) {
		return nil, &event.ValidationError{Field: "category", Reason: "unknown category"}
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching category: %w", err)
	}
	return c, nil
}

func (m *EventManager) publishChange(ctx context.Context, kind messaging.ChangeKind, e event.Event) {
	change := messaging.EventChange{
		Kind:        kind,
		EventID:     e.ID,
		Title:       e.Title,
		OrganizerID: e.OrganizerID,
		At:          m.now().UTC(),
	}

	if err := m.publisher.PublishEventChange(ctx, change); err != nil {
		m.logger.Warn("failed to publish event change",
			zap.String("event_id", e.ID),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
}

// applyInput copies the writable fields onto e. New subsections get fresh
// ids and createdAt.
func applyInput(e *event.Event, input event.Input, category *event.Category, createdAt time.Time) {
	e.Title = input.Title
	e.Description = input.Description
	e.Date = input.Date
	e.Location = input.Location
	e.LocationName = input.LocationName
	e.Category = category
	e.Boundary = input.Boundary

	e.Subsections = make([]event.Subsection, 0, len(input.Subsections))
	for _, s := range input.Subsections {
		sub := event.Subsection{
			ID:          s.ID,
			EventID:     e.ID,
			Name:        s.Name,
			Description: s.Description,
			Boundary:    s.Boundary,
			Color:       s.Color,
			CreatedAt:   createdAt,
		}
		if sub.ID == "" {
			sub.ID = uuid.New().String()
		}
		e.Subsections = append(e.Subsections, sub)
	}
}
