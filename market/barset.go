package market

import "time"

// BarSet is an ordered, read-only run of bars plus where they came from.
type BarSet struct {
	Instrument string
	Source     string
	Bars       []Bar
}

func (bs *BarSet) Len() int { return len(bs.Bars) }

// Start returns the time of the first bar, or the zero time for an empty set.
func (bs *BarSet) Start() time.Time {
	if len(bs.Bars) == 0 {
		return time.Time{}
	}
	return bs.Bars[0].Time
}

// End returns the time of the last bar, or the zero time for an empty set.
func (bs *BarSet) End() time.Time {
	if len(bs.Bars) == 0 {
		return time.Time{}
	}
	return bs.Bars[len(bs.Bars)-1].Time
}
