package schedule

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagemap/internal/domain/event"
)

func TestParseScheduleCSV(t *testing.T) {
	csvContent := `title,description,start_time,end_time
Opening, Welcome set ,2026-07-04T10:00:00Z,2026-07-04T11:00:00Z
Headliner,,2026-07-04T13:00:00+02:00,2026-07-04T14:00:00+02:00`

	inputs, err := ParseScheduleCSV(strings.NewReader(csvContent))
	require.NoError(t, err)
	require.Len(t, inputs, 2)

	assert.Equal(t, "Opening", inputs[0].Title)
	assert.Equal(t, "Welcome set", inputs[0].Description)
	assert.True(t, inputs[0].StartTime.Equal(time.Date(2026, 7, 4, 10, 0, 0, 0, time.UTC)))
	assert.True(t, inputs[1].StartTime.Equal(time.Date(2026, 7, 4, 11, 0, 0, 0, time.UTC)))
}

func TestParseScheduleCSV_BadTimestamp(t *testing.T) {
	csvContent := `title,description,start_time,end_time
Opening,,2026-07-04T10:00:00Z,2026-07-04T11:00:00Z
Broken,,tomorrow,2026-07-04T12:00:00Z`

	_, err := ParseScheduleCSV(strings.NewReader(csvContent))

	var verr *event.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "row 2: start_time", verr.Field)
}

func TestParseScheduleCSV_Empty(t *testing.T) {
	_, err := ParseScheduleCSV(strings.NewReader(""))

	var verr *event.ValidationError
	assert.True(t, errors.As(err, &verr))
}
