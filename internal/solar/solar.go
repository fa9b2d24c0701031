// Package solar provides the flare event model shared by every catalog tool.
//
// A flare is identified by its GOES peak time. Catalogs disagree about start
// and end times and sometimes about the class, so merged events keep the
// widest extent and the larger class reported by any source.
package solar

import (
	"sort"
	"time"

	"github.com/pkg/errors"
)

// SchemaVersion is the current unified flare schema version.
const SchemaVersion = 1

// Source catalog identifiers.
const (
	SourceHER    = "her"
	SourceGEV    = "gev"
	SourceHEK    = "hek"
	SourceMerged = "her+gev"
)

// ErrTimeOrder is returned by Validate when start <= peak <= end does not hold.
var ErrTimeOrder = errors.New("flare times out of order")

// Event represents a single flare in the unified catalog schema.
type Event struct {
	Start   time.Time `ch:"flare_start"`
	Peak    time.Time `ch:"flare_peak"`
	End     time.Time `ch:"flare_end"`
	Class   GOESClass `ch:"class"`
	AIALoc  string    `ch:"aia_loc"`  // Heliographic location reported by AIA (e.g. "N12W34")
	AIAXCen float64   `ch:"aia_xcen"` // Helioprojective X (arcsec)
	AIAYCen float64   `ch:"aia_ycen"` // Helioprojective Y (arcsec)
	Loc     string    `ch:"loc"`      // Heliographic location from the GOES event list
	NOAAAR  int32     `ch:"noaa_ar"`  // NOAA active region number, 0 if unknown
	Source  string    `ch:"source"`
}

// Duration returns End - Start.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// RisePhase returns the start and peak of the flare.
func (e Event) RisePhase() (time.Time, time.Time) {
	return e.Start, e.Peak
}

// FallPhase returns the peak and end of the flare.
func (e Event) FallPhase() (time.Time, time.Time) {
	return e.Peak, e.End
}

// Validate checks start <= peak <= end.
func (e Event) Validate() error {
	if e.Start.IsZero() || e.Peak.IsZero() || e.End.IsZero() {
		return errors.Wrap(ErrTimeOrder, "missing timestamp")
	}
	if e.Peak.Before(e.Start) || e.End.Before(e.Peak) {
		return errors.Wrapf(ErrTimeOrder, "start=%s peak=%s end=%s",
			e.Start.Format(TimeLayout), e.Peak.Format(TimeLayout), e.End.Format(TimeLayout))
	}
	return nil
}

// Within reports whether the flare lies strictly inside (from, to).
func (e Event) Within(from, to time.Time) bool {
	return e.Start.After(from) && e.End.Before(to)
}

// SortByPeak orders events by peak time, keeping ties in input order.
func SortByPeak(events []Event) {
	sort.SliceStable(events, func(i, j int) bool { return events[i].Peak.Before(events[j].Peak) })
}
