// internal/domain/schedule/resolver.go

package schedule

import (
	"errors"
	"sort"
	"time"

	"stagemap/internal/domain/event"
)

var (
	// ErrInvalidInterval is matched by errors.Is when end <= start
	ErrInvalidInterval = errors.New("end time must be after start time")

	// ErrOverlap is matched by errors.Is when a slot collides with another on the same stage
	ErrOverlap = errors.New("time slot overlaps with another event on this stage")
)

// ValidationError rejects a schedule write
type ValidationError struct {
	Reason string
	// ConflictID is the stage event that caused an overlap, if any
	ConflictID string
	cause      error
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Unwrap() error { return e.cause }

// WithPrefix returns a copy of e whose reason starts with prefix
func (e *ValidationError) WithPrefix(prefix string) *ValidationError {
	out := *e
	out.Reason = prefix + e.Reason
	return &out
}

// NewOverlapError reports a collision with the stage event conflictID
func NewOverlapError(conflictID string) *ValidationError {
	return &ValidationError{
		Reason:     "This time slot overlaps with another event on this stage.",
		ConflictID: conflictID,
		cause:      ErrOverlap,
	}
}

// NewIntervalError reports an end time that is not after the start time
func NewIntervalError() *ValidationError {
	return &ValidationError{Reason: "End time must be after start time.", cause: ErrInvalidInterval}
}

// Change is the set of writes applied to one stage in a single transaction
type Change struct {
	Insert   []event.StageEvent
	Update   *event.StageEvent
	DeleteID string
}

// Planner inspects the current schedule of a stage and decides what to write.
// It runs inside the transaction that applies its result.
type Planner func(existing []event.StageEvent) (Change, error)

// Interval is a half-open time range [Start, End)
type Interval struct {
	Start time.Time
	End   time.Time
}

// IntervalOf returns the interval covered by a stage event
func IntervalOf(se event.StageEvent) Interval {
	return Interval{Start: se.StartTime, End: se.EndTime}
}

// Overlaps reports whether two half-open intervals share any instant
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// ValidateSlot checks a new or edited interval against the rest of the stage's
// schedule. selfID excludes the item being edited; pass "" when creating.
// Ordering is checked before overlap.
func ValidateSlot(slot Interval, existing []event.StageEvent, selfID string) error {
	if !slot.Start.Before(slot.End) {
		return NewIntervalError()
	}

	for _, se := range existing {
		if selfID != "" && se.ID == selfID {
			continue
		}
		if Overlaps(slot, IntervalOf(se)) {
			return NewOverlapError(se.ID)
		}
	}

	return nil
}

// Snapshot partitions a stage's programme relative to one instant
type Snapshot struct {
	// Live is the first item, in input order, with start <= now <= end
	Live *event.StageEvent

	// LiveMatches counts every item satisfying the live predicate. More than
	// one means the stored schedule overlaps and Live is an arbitrary pick.
	LiveMatches int

	// Next is the upcoming item with the smallest start > now
	Next *event.StageEvent

	// UpcomingCount counts items with start > now
	UpcomingCount int

	// Upcoming lists items with start >= now, ascending by start
	Upcoming []event.StageEvent

	// Past lists items with end < now, most recent start first
	Past []event.StageEvent
}

// Ambiguous reports whether more than one item claims to be live
func (s Snapshot) Ambiguous() bool {
	return s.LiveMatches > 1
}

// IsLive reports whether se is running at now, both ends inclusive
func IsLive(se event.StageEvent, now time.Time) bool {
	return !se.StartTime.After(now) && !se.EndTime.Before(now)
}

// Resolve computes the live/next/upcoming/past view of items at now.
// items are not modified.
func Resolve(items []event.StageEvent, now time.Time) Snapshot {
	var snap Snapshot

	for i := range items {
		se := items[i]

		if IsLive(se, now) {
			snap.LiveMatches++
			if snap.Live == nil {
				live := se
				snap.Live = &live
			}
		}

		if se.StartTime.After(now) {
			snap.UpcomingCount++
			if snap.Next == nil || se.StartTime.Before(snap.Next.StartTime) {
				next := se
				snap.Next = &next
			}
		}

		if !se.StartTime.Before(now) {
			snap.Upcoming = append(snap.Upcoming, se)
		}

		if se.EndTime.Before(now) {
			snap.Past = append(snap.Past, se)
		}
	}

	sort.SliceStable(snap.Upcoming, func(i, j int) bool {
		return snap.Upcoming[i].StartTime.Before(snap.Upcoming[j].StartTime)
	})
	sort.SliceStable(snap.Past, func(i, j int) bool {
		return snap.Past[i].StartTime.After(snap.Past[j].StartTime)
	})

	return snap
}
