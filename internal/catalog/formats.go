package catalog

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/KI7MT/ki7mt-flare-lab/internal/solar"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Format maps a catalog's column names onto the unified event fields.
// Empty column names are absent from that catalog. An empty Layout means
// timestamps are parsed with solar.ParseMixedTime.
type Format struct {
	Name    string
	Layout  string
	Start   string
	Peak    string
	End     string
	Class   string
	AIALoc  string
	AIAXCen string
	AIAYCen string
	Loc     string
	NOAAAR  string
}

// HER is the HEK event report catalog export.
var HER = Format{
	Name:    solar.SourceHER,
	Layout:  solar.HERTimeLayout,
	Start:   "GEV_START",
	Peak:    "GEV_PEAK",
	End:     "GEV_END",
	Class:   "GOES_CLASS",
	AIALoc:  "AIA_LOC",
	AIAXCen: "AIA_XCEN",
	AIAYCen: "AIA_YCEN",
	NOAAAR:  "NOAA_AR",
}

// GEV is the GOES event list.
var GEV = Format{
	Name:   solar.SourceGEV,
	Layout: solar.GEVTimeLayout,
	Start:  "GSTART",
	Peak:   "GPEAK",
	End:    "GEND",
	Class:  "CLASS",
	Loc:    "LOC",
	NOAAAR: "NOAA_AR",
}

// Unified is the joined schema written by flare-join.
var Unified = Format{
	Name:    "unified",
	Start:   "flare_start",
	Peak:    "flare_peak",
	End:     "flare_end",
	Class:   "class",
	AIALoc:  "aia_loc",
	AIAXCen: "aia_xcen",
	AIAYCen: "aia_ycen",
	Loc:     "loc",
	NOAAAR:  "noaa_ar",
}

// Observed is the upper-case schema of the merged instrument observation list.
var Observed = Format{
	Name:    "observed",
	Start:   "FLARE_START",
	Peak:    "FLARE_PEAK",
	End:     "FLARE_END",
	Class:   "CLASS",
	AIALoc:  "AIA_LOC",
	AIAXCen: "AIA_XCEN",
	AIAYCen: "AIA_YCEN",
	Loc:     "LOC",
	NOAAAR:  "NOAA_AR",
}

// ParseEvents converts table rows into events. The peak column is required;
// rows with an unparseable peak are counted as failed and skipped. Missing
// start or end times are left zero for the join to fill in.
func ParseEvents(t *Table, f Format) ([]solar.Event, ParseStats, error) {
	var stats ParseStats
	if !t.Has(f.Peak) {
		return nil, stats, errors.Errorf("%s catalog: missing peak column %s", f.Name, f.Peak)
	}

	events := make([]solar.Event, 0, t.Len())
	errorCount := 0

	for i, row := range t.Rows {
		stats.TotalRowsRead++
		ev, err := f.parseRow(t, row)
		if err != nil {
			stats.FailedRows++
			errorCount++
			if errorCount <= MaxErrorsToLog {
				logrus.Warnf("%s catalog: parse error (row %d): %v", f.Name, i+1, err)
			}
			continue
		}
		stats.SuccessfullyParsed++
		events = append(events, ev)
	}

	if errorCount > MaxErrorsToLog {
		logrus.Warnf("%s catalog: ... and %d more parse errors (suppressed)", f.Name, errorCount-MaxErrorsToLog)
	}
	return events, stats, nil
}

func (f Format) parseRow(t *Table, row []string) (solar.Event, error) {
	ev := solar.Event{Source: f.Name}
	var err error

	if ev.Peak, err = f.parseTime(t.Get(row, f.Peak)); err != nil || ev.Peak.IsZero() {
		if err == nil {
			err = errors.New("empty peak time")
		}
		return solar.Event{}, errors.Wrap(err, "peak")
	}
	if ev.Start, err = f.parseTime(t.Get(row, f.Start)); err != nil {
		return solar.Event{}, errors.Wrap(err, "start")
	}
	if ev.End, err = f.parseTime(t.Get(row, f.End)); err != nil {
		return solar.Event{}, errors.Wrap(err, "end")
	}

	if f.Class != "" {
		if ev.Class, err = solar.ParseGOESClass(t.Get(row, f.Class)); err != nil {
			return solar.Event{}, err
		}
	}

	ev.AIALoc = cleanString(t.Get(row, f.AIALoc))
	ev.Loc = cleanString(t.Get(row, f.Loc))
	if ev.AIAXCen, err = parseFloat64(t.Get(row, f.AIAXCen)); err != nil {
		return solar.Event{}, errors.Wrap(err, "aia_xcen")
	}
	if ev.AIAYCen, err = parseFloat64(t.Get(row, f.AIAYCen)); err != nil {
		return solar.Event{}, errors.Wrap(err, "aia_ycen")
	}
	ar, err := parseFloat64(t.Get(row, f.NOAAAR))
	if err != nil {
		return solar.Event{}, errors.Wrap(err, "noaa_ar")
	}
	ev.NOAAAR = int32(ar)

	return ev, nil
}

func (f Format) parseTime(value string) (time.Time, error) {
	if value == "" || strings.EqualFold(value, "nat") || strings.EqualFold(value, "nan") {
		return time.Time{}, nil
	}
	if f.Layout == "" {
		return solar.ParseMixedTime(value)
	}
	return solar.ParseTime(value, f.Layout)
}

// ReadEventsFile reads a catalog CSV in the given format.
func ReadEventsFile(path string, f Format) ([]solar.Event, ParseStats, error) {
	t, err := ReadTableFile(path)
	if err != nil {
		return nil, ParseStats{}, err
	}
	events, stats, err := ParseEvents(t, f)
	if err != nil {
		return nil, stats, errors.Wrap(err, path)
	}
	return events, stats, nil
}

// =============================================================================
// Numeric Parsing Helpers
// =============================================================================

func parseFloat64(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, nil
	}
	return v, nil
}

func cleanString(s string) string {
	if strings.EqualFold(s, "nan") {
		return ""
	}
	return s
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
