package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveWindow(t *testing.T) {
	tests := []struct {
		name          string
		lastEndEpoch  int64
		hasPrior      bool
		now           time.Time
		expectedStart time.Time
		expectedEnd   time.Time
		expectEmpty   bool
	}{
		{
			name:          "empty_table_starts_at_default",
			hasPrior:      false,
			now:           time.Date(2023, 1, 10, 8, 30, 0, 0, time.UTC),
			expectedStart: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			expectedEnd:   time.Date(2023, 1, 9, 0, 0, 0, 0, time.UTC),
		},
		{
			name:          "resumes_day_after_last_stored",
			lastEndEpoch:  time.Date(2024, 1, 5, 23, 59, 59, 0, time.UTC).Unix(),
			hasPrior:      true,
			now:           time.Date(2024, 1, 7, 3, 0, 0, 0, time.UTC),
			expectedStart: time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC),
			expectedEnd:   time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC),
		},
		{
			name:         "already_synced_through_yesterday",
			lastEndEpoch: time.Date(2024, 3, 14, 23, 59, 59, 0, time.UTC).Unix(),
			hasPrior:     true,
			now:          time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
			expectEmpty:  true,
		},
		{
			name:         "last_stored_day_is_today",
			lastEndEpoch: time.Date(2024, 3, 15, 23, 59, 59, 0, time.UTC).Unix(),
			hasPrior:     true,
			now:          time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
			expectEmpty:  true,
		},
		{
			name:          "now_time_of_day_is_ignored",
			lastEndEpoch:  time.Date(2024, 6, 1, 23, 59, 59, 0, time.UTC).Unix(),
			hasPrior:      true,
			now:           time.Date(2024, 6, 10, 23, 59, 59, 0, time.UTC),
			expectedStart: time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
			expectedEnd:   time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			window := ResolveWindow(tt.lastEndEpoch, tt.hasPrior, tt.now)

			assert.Equal(t, tt.expectEmpty, window.Empty())
			if !tt.expectEmpty {
				assert.Equal(t, tt.expectedStart, window.Start)
				assert.Equal(t, tt.expectedEnd, window.End)
			}
		})
	}
}

func TestWindowDays(t *testing.T) {
	window := Window{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, 7, window.Days())

	single := Window{Start: window.Start, End: window.Start}
	assert.Equal(t, 1, single.Days())

	empty := Window{Start: window.End, End: window.Start}
	assert.True(t, empty.Empty())
	assert.Equal(t, 0, empty.Days())
}

func TestDayEpochs(t *testing.T) {
	day := time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)

	startEpoch, endEpoch := DayEpochs(day)

	assert.Equal(t, int64(1704499200), startEpoch)
	assert.Equal(t, int64(1704585599), endEpoch)
	assert.Equal(t, startEpoch+86400-1, endEpoch)
}

func TestDayEpochs_MidDayInput(t *testing.T) {
	// A timestamp part-way through the day still maps to the full day
	day := time.Date(2024, 1, 6, 15, 42, 7, 0, time.UTC)

	startEpoch, endEpoch := DayEpochs(day)

	assert.Equal(t, int64(1704499200), startEpoch)
	assert.Equal(t, int64(1704585599), endEpoch)
}
