package catalog

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/KI7MT/ki7mt-flare-lab/internal/solar"
)

const herCSV = `GEV_START,GEV_PEAK,GEV_END,GOES_CLASS,AIA_LOC,AIA_XCEN,AIA_YCEN,NOAA_AR
2011-01-01T00:10:00,2011-01-01T00:20:00,2011-01-01T00:40:00,C1.2,N12W34,-512.5,210.25,11140
2011-01-02T05:00:00,2011-01-02T05:30:00,2011-01-02T05:45:00,M1.0,S10E20,300,-150,0
2011-01-03T09:00:00,2011-01-03T09:05:00,2011-01-03T09:10:00,B5.0,N01E01,10,10,11142
`

const gevCSV = `GSTART,GPEAK,GEND,CLASS,LOC,NOAA_AR
01-Jan-2011 00:05:00,01-Jan-2011 00:20:00,01-Jan-2011 00:35:00,C1.5,N12W35,11141
02-JAN-2011 05:10:00,02-JAN-2011 05:30:00,02-JAN-2011 05:50:00,C9.0,S10E21,
04-Jan-2011 12:00:00,04-Jan-2011 12:30:00,04-Jan-2011 12:45:00,X1.1,N20W10,11150
`

func mustTable(t *testing.T, data string) *Table {
	t.Helper()
	tbl, err := ReadTable(strings.NewReader(data))
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	return tbl
}

func mustEvents(t *testing.T, data string, f Format) []solar.Event {
	t.Helper()
	events, stats, err := ParseEvents(mustTable(t, data), f)
	if err != nil {
		t.Fatalf("ParseEvents(%s): %v", f.Name, err)
	}
	if stats.FailedRows != 0 {
		t.Fatalf("ParseEvents(%s): %d failed rows", f.Name, stats.FailedRows)
	}
	return events
}

func TestJoinHERAndGEV(t *testing.T) {
	her := mustEvents(t, herCSV, HER)
	gev := mustEvents(t, gevCSV, GEV)

	joined, stats := Join(her, gev)
	if len(joined) != 4 {
		t.Fatalf("expected 4 joined rows, got %d", len(joined))
	}
	if stats.Matched != 2 || stats.HEROnly != 1 || stats.GEVOnly != 1 {
		t.Fatalf("unexpected join stats: %+v", stats)
	}

	first := joined[0]
	if !first.Start.Equal(time.Date(2011, 1, 1, 0, 5, 0, 0, time.UTC)) {
		t.Fatalf("merged start should be the earliest, got %v", first.Start)
	}
	if !first.End.Equal(time.Date(2011, 1, 1, 0, 40, 0, 0, time.UTC)) {
		t.Fatalf("merged end should be the latest, got %v", first.End)
	}
	if first.Class.String() != "C1.5" {
		t.Fatalf("merged class should be the larger, got %s", first.Class)
	}
	if first.AIALoc != "N12W34" || first.Loc != "N12W35" || first.NOAAAR != 11141 {
		t.Fatalf("unexpected merged fields: %+v", first)
	}

	second := joined[1]
	if second.Class.String() != "M1.0" {
		t.Fatalf("HER class M1.0 should win over C9.0, got %s", second.Class)
	}
	if second.NOAAAR != 0 {
		t.Fatalf("no active region from either catalog, got %d", second.NOAAAR)
	}

	if joined[2].Source != solar.SourceHER || joined[3].Source != solar.SourceGEV {
		t.Fatalf("unmatched rows out of order: %s, %s", joined[2].Source, joined[3].Source)
	}
	for i := 1; i < len(joined); i++ {
		if joined[i].Peak.Before(joined[i-1].Peak) {
			t.Fatalf("output not sorted by peak at %d", i)
		}
	}
}

func TestJoinDuplicatePeaksPairEveryRow(t *testing.T) {
	peak := time.Date(2012, 3, 7, 0, 24, 0, 0, time.UTC)
	her := []solar.Event{
		{Peak: peak, Class: solar.MustParseGOESClass("X5.4"), Source: solar.SourceHER},
		{Peak: peak, Class: solar.MustParseGOESClass("X1.3"), Source: solar.SourceHER},
	}
	gev := []solar.Event{
		{Peak: peak, Class: solar.MustParseGOESClass("X5.4"), Source: solar.SourceGEV},
		{Peak: peak, Class: solar.MustParseGOESClass("M9.0"), Source: solar.SourceGEV},
	}
	joined, stats := Join(her, gev)
	if len(joined) != 4 || stats.Matched != 4 {
		t.Fatalf("expected 4 pairs, got %d (%+v)", len(joined), stats)
	}
}

func TestJoinFallsBackToHERActiveRegion(t *testing.T) {
	her := mustEvents(t, herCSV, HER)
	gev := mustEvents(t, gevCSV, GEV)
	gev[0].NOAAAR = 0

	joined, _ := Join(her, gev)
	if joined[0].NOAAAR != 11140 {
		t.Fatalf("expected HER active region fallback, got %d", joined[0].NOAAAR)
	}
}

func TestParseEventsMissingPeakColumn(t *testing.T) {
	if _, _, err := ParseEvents(mustTable(t, "A,B\n1,2\n"), HER); err == nil {
		t.Fatalf("expected error for missing peak column")
	}
}

func TestParseEventsCountsBadRows(t *testing.T) {
	data := "GEV_START,GEV_PEAK,GEV_END,GOES_CLASS\n" +
		"2011-01-01T00:10:00,not-a-time,2011-01-01T00:40:00,C1.0\n" +
		"2011-01-01T00:10:00,2011-01-01T00:20:00,2011-01-01T00:40:00,Q1.0\n" +
		"2011-01-01T00:10:00,2011-01-01T00:20:00,2011-01-01T00:40:00,C1.0\n"
	events, stats, err := ParseEvents(mustTable(t, data), HER)
	if err != nil {
		t.Fatalf("ParseEvents: %v", err)
	}
	if len(events) != 1 || stats.FailedRows != 2 || stats.TotalRowsRead != 3 {
		t.Fatalf("unexpected result: %d events, %+v", len(events), stats)
	}
}

func TestWriteReadEvents(t *testing.T) {
	her := mustEvents(t, herCSV, HER)
	gev := mustEvents(t, gevCSV, GEV)
	joined, _ := Join(her, gev)

	dir := t.TempDir()
	for _, name := range []string{"joined.csv", "joined.csv.gz", "joined.parquet"} {
		path := filepath.Join(dir, name)
		if err := WriteEvents(path, joined); err != nil {
			t.Fatalf("WriteEvents(%s): %v", name, err)
		}
		back, err := ReadEvents(path)
		if err != nil {
			t.Fatalf("ReadEvents(%s): %v", name, err)
		}
		if len(back) != len(joined) {
			t.Fatalf("%s: read %d events, wrote %d", name, len(back), len(joined))
		}
		for i := range joined {
			want, got := joined[i], back[i]
			if !got.Peak.Equal(want.Peak) || !got.Start.Equal(want.Start) || !got.End.Equal(want.End) {
				t.Fatalf("%s row %d: times differ: %+v vs %+v", name, i, got, want)
			}
			if got.Class.String() != want.Class.String() || got.Loc != want.Loc || got.NOAAAR != want.NOAAAR {
				t.Fatalf("%s row %d: fields differ: %+v vs %+v", name, i, got, want)
			}
			if got.AIAXCen != want.AIAXCen || got.AIAYCen != want.AIAYCen {
				t.Fatalf("%s row %d: coordinates differ: %+v vs %+v", name, i, got, want)
			}
		}
	}
}

func TestEventRecordLeavesMissingFieldsEmpty(t *testing.T) {
	gev := mustEvents(t, gevCSV, GEV)
	rec := EventRecord(gev[1])
	if rec[5] != "" || rec[6] != "" || rec[8] != "" {
		t.Fatalf("expected empty AIA and AR fields, got %q", rec)
	}
	if rec[1] != "2011-01-02 05:30:00" {
		t.Fatalf("unexpected peak format %q", rec[1])
	}
}

func TestReadTableUnnamedIndex(t *testing.T) {
	tbl := mustTable(t, ",flare_peak\n0,2011-01-01 00:20:00\n\n1,2011-01-02 05:30:00\n")
	if tbl.Col("index") != 0 || tbl.Len() != 2 {
		t.Fatalf("unexpected table: header=%v rows=%d", tbl.Header, tbl.Len())
	}
	if tbl.Get(tbl.Rows[1], "FLARE_PEAK") != "2011-01-02 05:30:00" {
		t.Fatalf("case-insensitive lookup failed")
	}
}

func TestFilterByPeak(t *testing.T) {
	observed := mustTable(t, "INDEX,FLARE_PEAK,RSI_OBSERVED\n"+
		"0,2011-01-01 00:20:00,1\n"+
		"1,2011-01-02 05:30:00,0\n"+
		"2,2011-01-03 09:05:00,1\n")
	reference := mustTable(t, "gpeak,INDEX\n"+
		"02-Jan-2011 05:30:00,A\n"+
		"2011-01-03T09:05:00,B\n"+
		"2011-01-03 09:05:00,C\n"+
		"2015-01-01 00:00:00,D\n")

	out, stats, err := FilterByPeak(observed, "FLARE_PEAK", reference, "gpeak")
	if err != nil {
		t.Fatalf("FilterByPeak: %v", err)
	}
	if out.Len() != 3 || stats.Matched != 3 {
		t.Fatalf("expected 3 rows, got %d", out.Len())
	}
	if out.Col("INDEX_ref") < 0 {
		t.Fatalf("clashing reference column not suffixed: %v", out.Header)
	}
	if got := out.Get(out.Rows[0], "INDEX"); got != "1" {
		t.Fatalf("first match should be observed row 1, got %s", got)
	}
	if got := out.Get(out.Rows[2], "INDEX_ref"); got != "C" {
		t.Fatalf("duplicate reference peak should yield a second row, got %s", got)
	}
}
