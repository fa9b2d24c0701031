package obsstats

import (
	"bytes"
	_ "embed"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/KI7MT/ki7mt-flare-lab/internal/catalog"
	"github.com/KI7MT/ki7mt-flare-lab/internal/solar"
)

// LifetimeFile is the conventional name of the operating range table.
const LifetimeFile = "instrument_observing_range_info.csv"

//go:embed lifetimes.csv
var defaultLifetimesCSV []byte

// Lifetime is one operating range of an instrument.
type Lifetime struct {
	Instrument string
	Start      time.Time
	End        time.Time
	Degraded   bool
}

// ReadLifetimes loads operating ranges from path, or the built-in ranges
// when path is empty. Open-ended ranges end at today.
func ReadLifetimes(path string, today time.Time) ([]Lifetime, error) {
	var (
		t   *catalog.Table
		err error
	)
	if path == "" {
		t, err = catalog.ReadTable(bytes.NewReader(defaultLifetimesCSV))
	} else {
		t, err = catalog.ReadTableFile(path)
	}
	if err != nil {
		return nil, errors.Wrap(err, "read lifetimes")
	}
	return ParseLifetimes(t, today)
}

// ParseLifetimes converts an instrument, range_start, range_end, degraded
// table. Dates are day first.
func ParseLifetimes(t *catalog.Table, today time.Time) ([]Lifetime, error) {
	if !t.Has("instrument", "range_start", "range_end") {
		return nil, errors.New("lifetime table needs instrument, range_start and range_end columns")
	}

	end := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	out := make([]Lifetime, 0, t.Len())
	for i, row := range t.Rows {
		l := Lifetime{
			Instrument: t.Get(row, "instrument"),
			End:        end,
			Degraded:   parseObserved(t.Get(row, "degraded")) > 0,
		}
		start, err := solar.ParseMixedTime(t.Get(row, "range_start"))
		if err != nil {
			return nil, errors.Wrapf(err, "lifetime row %d", i+1)
		}
		l.Start = start
		if v := t.Get(row, "range_end"); v != "" && !strings.EqualFold(v, "nan") {
			if l.End, err = solar.ParseMixedTime(v); err != nil {
				return nil, errors.Wrapf(err, "lifetime row %d", i+1)
			}
		}
		out = append(out, l)
	}
	return out, nil
}

// Span returns the earliest start and latest end recorded for instrument name.
func Span(lifetimes []Lifetime, name string) (Window, bool) {
	var w Window
	found := false
	for _, l := range lifetimes {
		if !strings.EqualFold(l.Instrument, name) {
			continue
		}
		if !found || l.Start.Before(w.Start) {
			w.Start = l.Start
		}
		if !found || l.End.After(w.End) {
			w.End = l.End
		}
		found = true
	}
	return w, found
}
