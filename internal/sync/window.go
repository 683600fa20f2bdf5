// Package sync resolves the window of unsynced days and drives the
// fetch-and-store loop that appends one session record per day.
package sync

import "time"

// secondsPerDay is the length of one calendar day in epoch seconds.
const secondsPerDay = 86400

// DefaultStartDate is where syncing begins when the table is empty.
var DefaultStartDate = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

// Window is a closed range of calendar days, both bounds UTC midnights.
type Window struct {
	Start time.Time
	End   time.Time
}

// Empty reports whether the window contains no days
func (w Window) Empty() bool {
	return w.Start.After(w.End)
}

// Days returns the number of days in the window, zero when empty
func (w Window) Days() int {
	if w.Empty() {
		return 0
	}
	return int(w.End.Sub(w.Start)/(secondsPerDay*time.Second)) + 1
}

// ResolveWindow computes the range of days to sync. The start is the day
// after the calendar day containing lastEndEpoch, or DefaultStartDate when
// no records exist. The end is yesterday in UTC: today is excluded so a
// partial day is never stored.
func ResolveWindow(lastEndEpoch int64, hasPrior bool, now time.Time) Window {
	end := midnight(now.UTC()).AddDate(0, 0, -1)

	start := DefaultStartDate
	if hasPrior {
		start = midnight(time.Unix(lastEndEpoch, 0).UTC()).AddDate(0, 0, 1)
	}

	return Window{Start: start, End: end}
}

// DayEpochs returns the inclusive epoch bounds of the calendar day:
// UTC midnight and the last second before the next midnight.
func DayEpochs(day time.Time) (startEpoch, endEpoch int64) {
	startEpoch = midnight(day.UTC()).Unix()
	endEpoch = startEpoch + secondsPerDay - 1
	return startEpoch, endEpoch
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
