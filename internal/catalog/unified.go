package catalog

import (
	"io"
	"os"
	"strconv"
	"time"

	"github.com/KI7MT/ki7mt-flare-lab/internal/solar"
	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
)

// UnifiedHeader is the column order of the joined catalog.
var UnifiedHeader = []string{
	"flare_start",
	"flare_peak",
	"flare_end",
	"class",
	"aia_loc",
	"aia_xcen",
	"aia_ycen",
	"loc",
	"noaa_ar",
}

// EventRecord renders an event in UnifiedHeader order. Fields a source did
// not provide are written empty.
func EventRecord(e solar.Event) []string {
	rec := []string{
		solar.FormatTime(e.Start),
		solar.FormatTime(e.Peak),
		solar.FormatTime(e.End),
		e.Class.String(),
		e.AIALoc,
		"",
		"",
		e.Loc,
		"",
	}
	if e.AIALoc != "" || e.AIAXCen != 0 || e.AIAYCen != 0 {
		rec[5] = formatFloat(e.AIAXCen)
		rec[6] = formatFloat(e.AIAYCen)
	}
	if e.NOAAAR != 0 {
		rec[8] = strconv.Itoa(int(e.NOAAAR))
	}
	return rec
}

// EventsTable builds a unified-schema table.
func EventsTable(events []solar.Event) *Table {
	t := NewTable(UnifiedHeader...)
	for _, e := range events {
		t.Append(EventRecord(e))
	}
	return t
}

// WriteEvents writes events as ".csv", ".csv.gz" or ".parquet" by extension.
func WriteEvents(path string, events []solar.Event) error {
	if IsParquet(path) {
		return writeEventsParquet(path, events)
	}
	return WriteTableFile(path, EventsTable(events))
}

// ReadEvents reads a unified catalog written by WriteEvents.
func ReadEvents(path string) ([]solar.Event, error) {
	if IsParquet(path) {
		return readEventsParquet(path)
	}
	events, _, err := ReadEventsFile(path, Unified)
	return events, err
}

// =============================================================================
// Parquet
// =============================================================================

// eventRow is the Parquet schema of the unified catalog. Times are Unix
// milliseconds, zero when unknown.
type eventRow struct {
	FlareStart int64   `parquet:"flare_start_ms"`
	FlarePeak  int64   `parquet:"flare_peak_ms"`
	FlareEnd   int64   `parquet:"flare_end_ms"`
	Class      string  `parquet:"class"`
	AIALoc     string  `parquet:"aia_loc"`
	AIAXCen    float64 `parquet:"aia_xcen"`
	AIAYCen    float64 `parquet:"aia_ycen"`
	Loc        string  `parquet:"loc"`
	NOAAAR     int32   `parquet:"noaa_ar"`
	Source     string  `parquet:"source"`
}

func toRow(e solar.Event) eventRow {
	return eventRow{
		FlareStart: unixMilli(e.Start),
		FlarePeak:  unixMilli(e.Peak),
		FlareEnd:   unixMilli(e.End),
		Class:      e.Class.String(),
		AIALoc:     e.AIALoc,
		AIAXCen:    e.AIAXCen,
		AIAYCen:    e.AIAYCen,
		Loc:        e.Loc,
		NOAAAR:     e.NOAAAR,
		Source:     e.Source,
	}
}

func fromRow(r eventRow) (solar.Event, error) {
	class, err := solar.ParseGOESClass(r.Class)
	if err != nil {
		return solar.Event{}, err
	}
	return solar.Event{
		Start:   fromUnixMilli(r.FlareStart),
		Peak:    fromUnixMilli(r.FlarePeak),
		End:     fromUnixMilli(r.FlareEnd),
		Class:   class,
		AIALoc:  r.AIALoc,
		AIAXCen: r.AIAXCen,
		AIAYCen: r.AIAYCen,
		Loc:     r.Loc,
		NOAAAR:  r.NOAAAR,
		Source:  r.Source,
	}, nil
}

func writeEventsParquet(path string, events []solar.Event) error {
	wc, err := Create(path)
	if err != nil {
		return err
	}

	rows := make([]eventRow, len(events))
	for i, e := range events {
		rows[i] = toRow(e)
	}

	writer := parquet.NewGenericWriter[eventRow](wc)
	if _, err := writer.Write(rows); err != nil {
		wc.Abort()
		return errors.Wrap(err, "parquet write")
	}
	if err := writer.Close(); err != nil {
		wc.Abort()
		return errors.Wrap(err, "parquet close")
	}
	return wc.Close()
}

func readEventsParquet(path string) ([]solar.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", path)
	}

	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, errors.Wrapf(err, "parquet open %s", path)
	}

	reader := parquet.NewGenericReader[eventRow](pf)
	defer reader.Close()

	var events []solar.Event
	rows := make([]eventRow, 1000)
	for {
		n, err := reader.Read(rows)
		for i := 0; i < n; i++ {
			ev, convErr := fromRow(rows[i])
			if convErr != nil {
				return nil, errors.Wrapf(convErr, "%s row %d", path, len(events))
			}
			events = append(events, ev)
		}
		if err == io.EOF || (err == nil && n == 0) {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "parquet read %s", path)
		}
	}
	return events, nil
}

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromUnixMilli(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
