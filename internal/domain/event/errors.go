package event

import "errors"

var (
	ErrEventNotFound      = errors.New("event not found")
	ErrSubsectionNotFound = errors.New("subsection not found")
	ErrStageEventNotFound = errors.New("stage event not found")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrNoStageAtLocation  = errors.New("no stage at this location")
)

// ValidationError rejects a write with a human-readable reason
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}
