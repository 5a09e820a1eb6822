package event

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"stagemap/internal/domain/geo"
	"stagemap/internal/validation"
)

// DefaultSubsectionColor is the map color used when none is given
const DefaultSubsectionColor = "#ff7800"

// UncategorizedName is shown for events without a category
const UncategorizedName = "Uncategorized"

// Category is a lookup entity events may reference
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Event is a geolocated happening published by an organizer
type Event struct {
	ID           string
	Title        string
	Description  string
	Date         time.Time
	Location     geo.Coordinate
	LocationName string
	Category     *Category
	Boundary     geo.Polygon
	OrganizerID  string
	Subsections  []Subsection
	CreatedAt    time.Time
}

// CategoryName returns the category name or the uncategorized sentinel
func (e Event) CategoryName() string {
	if e.Category == nil {
		return UncategorizedName
	}
	return e.Category.Name
}

// Subsection is a named stage or area inside an event venue
type Subsection struct {
	ID          string
	EventID     string
	Name        string
	Description string
	Boundary    geo.Polygon
	Color       string
	CreatedAt   time.Time
}

// StageEvent is one scheduled programme item on a subsection
type StageEvent struct {
	ID           string
	SubsectionID string
	Title        string
	Description  string
	StartTime    time.Time
	EndTime      time.Time
	CreatedAt    time.Time
}

// Filter narrows event listings
type Filter struct {
	// Search is matched case-insensitively against title, description,
	// location name and category name
	Search string

	// OrganizerID restricts results to one organizer
	OrganizerID string

	// Within restricts results to a bounding box
	Within *geo.BoundingBox
}

// SubsectionInput describes a subsection to create or, when ID is set, update
type SubsectionInput struct {
	ID          string      `json:"id"`
	Name        string      `json:"name" validate:"required,max=200"`
	Description string      `json:"description"`
	Boundary    geo.Polygon `json:"boundary_coordinates" validate:"required"`
	Color       string      `json:"color" validate:"hexcolor,len=7"`
}

// Input holds the writable fields of an event
type Input struct {
	Title        string            `json:"title" validate:"required,max=200"`
	Description  string            `json:"description"`
	Date         time.Time         `json:"date" validate:"required"`
	Location     geo.Coordinate    `json:"location"`
	LocationName string            `json:"location_name" validate:"required,max=200"`
	CategoryID   string            `json:"category_id"`
	Boundary     geo.Polygon       `json:"boundary_coordinates"`
	Subsections  []SubsectionInput `json:"subsections" validate:"dive"`
}

// Normalize trims text fields and applies defaults
func (in *Input) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.LocationName = strings.TrimSpace(in.LocationName)
	in.CategoryID = strings.TrimSpace(in.CategoryID)
	for i := range in.Subsections {
		s := &in.Subsections[i]
		s.Name = strings.TrimSpace(s.Name)
		s.Color = strings.TrimSpace(s.Color)
		if s.Color == "" {
			s.Color = DefaultSubsectionColor
		}
	}
}

// Validate checks the input after Normalize
func (in Input) Validate() error {
	if err := validation.Struct(in); err != nil {
		return fromFieldError(err)
	}
	if err := in.Location.Validate(); err != nil {
		return &ValidationError{Field: "location", Reason: err.Error()}
	}
	if in.Boundary != nil {
		if err := in.Boundary.Validate(); err != nil {
			return &ValidationError{Field: "boundary_coordinates", Reason: err.Error()}
		}
	}

	seen := make(map[string]bool)
	for i, s := range in.Subsections {
		field := fmt.Sprintf("subsections[%d]", i)
		if err := s.Boundary.Validate(); err != nil {
			return &ValidationError{Field: field + ".boundary_coordinates", Reason: err.Error()}
		}
		if s.ID != "" {
			if seen[s.ID] {
				return &ValidationError{Field: field + ".id", Reason: "subsection listed twice"}
			}
			seen[s.ID] = true
		}
	}

	return nil
}

// StageEventInput holds the writable fields of a stage event
type StageEventInput struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required"`
}

// Validate checks the text fields; interval rules live in the schedule package
func (in StageEventInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if err := validation.Struct(in); err != nil {
		return fromFieldError(err)
	}
	return nil
}

func fromFieldError(err error) error {
	var fe *validation.FieldError
	if errors.As(err, &fe) {
		return &ValidationError{Field: fe.Field, Reason: fe.Reason}
	}
	return err
}
