package types

import "time"

// HistoryFilter narrows the history report. Zero values mean "no filter".
// End is inclusive to the last millisecond of its day.
type HistoryFilter struct {
	Search string
	Start  *time.Time
	End    *time.Time
}
