// internal/domain/messaging/service.go

package messaging

import (
	"context"
	"fmt"
	"time"
)

// ChangeKind names what happened to an event
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
)

// EventChange is published when an organizer creates or edits an event
type EventChange struct {
	Kind        ChangeKind `json:"kind"`
	EventID     string     `json:"event_id"`
	Title       string     `json:"title"`
	OrganizerID string     `json:"organizer_id"`
	At          time.Time  `json:"at"`
}

// StageSlot is the wire form of a live or next programme item. Times are
// HH:MM in the display timezone.
type StageSlot struct {
	Title string `json:"title"`
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
}

// StageStatusUpdate is the now/next view of a stage as served over HTTP,
// the websocket feed and the bus
type StageStatusUpdate struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	LiveEvent     *StageSlot `json:"live_event"`
	NextEvent     *StageSlot `json:"next_event"`
	UpcomingCount int        `json:"upcoming_count"`
	At            time.Time  `json:"at"`
}

// Publisher pushes domain notifications onto the event bus
type Publisher interface {
	// PublishEventChange announces a created or updated event
	PublishEventChange(ctx context.Context, change EventChange) error

	// PublishStageStatus announces the current status of a stage
	PublishStageStatus(ctx context.Context, update StageStatusUpdate) error
}

// Subscription is an active bus subscription
type Subscription interface {
	Unsubscribe() error
}

// Subscriber receives stage status updates from the event bus
type Subscriber interface {
	// SubscribeStageStatus calls handler with every status update for one stage
	SubscribeStageStatus(subsectionID string, handler func(StageStatusUpdate)) (Subscription, error)
}

// Topics builds bus subjects under a common prefix
type Topics struct {
	Prefix string
}

// EventChange returns the subject for an event change of the given kind
func (t Topics) EventChange(kind ChangeKind) string {
	return fmt.Sprintf("%s.events.%s", t.Prefix, kind)
}

// StageStatus returns the subject carrying status updates for one stage
func (t Topics) StageStatus(subsectionID string) string {
	return fmt.Sprintf("%s.stages.%s.status", t.Prefix, subsectionID)
}

// NopPublisher discards every notification
type NopPublisher struct{}

func (NopPublisher) PublishEventChange(context.Context, EventChange) error { return nil }

func (NopPublisher) PublishStageStatus(context.Context, StageStatusUpdate) error { return nil }
