package domain

import "time"

// DefaultTimeRange is the time range token used when a search omits one.
const DefaultTimeRange = "1w"

// defaultWindowDays applies to any token missing from windowDays.
const defaultWindowDays = 30

// CutoffLayout renders a cutoff as ISO-8601 without offset, second precision,
// matching the floating timestamps stored in the dataset.
const CutoffLayout = "2006-01-02T15:04:05"

const day = 24 * time.Hour

// windowDays maps time range tokens to lookback lengths in days.
var windowDays = map[string]int{
	"1w": 7,
	"2w": 14,
	"1m": 30,
	"3m": 90,
	"6m": 180,
	"1y": 365,
	"3y": 1095,
}

// TimeWindow is an immutable lookback window ending at the moment it was resolved.
type TimeWindow struct {
	Token    string
	Duration time.Duration
	Cutoff   time.Time
}

// ResolveWindow maps a time range token to a window ending now. Unknown and
// empty tokens resolve to the 30-day default; resolution never fails.
func ResolveWindow(token string) TimeWindow {
	return TimeWindow{
		Token:    token,
		Duration: WindowDuration(token),
		Cutoff:   clock.Now().Add(-WindowDuration(token)),
	}
}

// WindowDuration returns the lookback length for a token.
func WindowDuration(token string) time.Duration {
	days, ok := windowDays[token]
	if !ok {
		days = defaultWindowDays
	}
	return time.Duration(days) * day
}

// IsShortestWindow reports whether the token resolves to the shortest known
// lookback. Searches over the shortest window favour the newest records.
func IsShortestWindow(token string) bool {
	d := WindowDuration(token)
	for _, days := range windowDays {
		if time.Duration(days)*day < d {
			return false
		}
	}
	return true
}

// FormatCutoff renders the cutoff in loc using CutoffLayout. A nil loc keeps
// the cutoff's own zone.
func (w TimeWindow) FormatCutoff(loc *time.Location) string {
	t := w.Cutoff
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(CutoffLayout)
}
