package appd

import "time"

// Window is the time range metrics are queried over.
type Window struct {
	Start time.Time
	End   time.Time
}

// LastHours returns the window ending at now.
func LastHours(now time.Time, hours int) Window {
	return Window{Start: now.Add(-time.Duration(hours) * time.Hour), End: now}
}

// StartMillis returns the start as milliseconds since the epoch.
func (w Window) StartMillis() int64 { return w.Start.UnixMilli() }

// EndMillis returns the end as milliseconds since the epoch.
func (w Window) EndMillis() int64 { return w.End.UnixMilli() }
