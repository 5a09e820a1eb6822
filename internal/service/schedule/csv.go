// internal/service/schedule/csv.go

package schedule

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"stagemap/internal/domain/event"
)

// ScheduleRow is one line of an uploaded schedule CSV
type ScheduleRow struct {
	Title       string `csv:"title"`
	Description string `csv:"description"`
	StartTime   string `csv:"start_time"`
	EndTime     string `csv:"end_time"`
}

// ParseScheduleCSV reads schedule rows with RFC 3339 times. Any malformed row
// fails the whole file.
func ParseScheduleCSV(r io.Reader) ([]event.StageEventInput, error) {
	var rows []*ScheduleRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil, &event.ValidationError{Field: "csvfile", Reason: "file is empty"}
		}
		return nil, &event.ValidationError{Field: "csvfile", Reason: fmt.Sprintf("invalid CSV: %v", err)}
	}

	inputs := make([]event.StageEventInput, 0, len(rows))
	for i, row := range rows {
		start, err := parseRowTime(i, "start_time", row.StartTime)
		if err != nil {
			return nil, err
		}
		end, err := parseRowTime(i, "end_time", row.EndTime)
		if err != nil {
			return nil, err
		}

		inputs = append(inputs, event.StageEventInput{
			Title:       strings.TrimSpace(row.Title),
			Description: strings.TrimSpace(row.Description),
			StartTime:   start,
			EndTime:     end,
		})
	}

	return inputs, nil
}

func parseRowTime(index int, column, raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, &event.ValidationError{
			Field:  fmt.Sprintf("row %d: %s", index+1, column),
			Reason: "must be an RFC 3339 timestamp",
		}
	}
	return t, nil
}
