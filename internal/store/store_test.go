package store

import (
	"strings"
	"testing"
	"time"

	"github.com/KI7MT/ki7mt-flare-lab/internal/catalog"
	"github.com/KI7MT/ki7mt-flare-lab/internal/instrument"
	"github.com/KI7MT/ki7mt-flare-lab/internal/solar"
)

func testEvents() []solar.Event {
	base := time.Date(2013, 11, 9, 6, 22, 0, 0, time.UTC)
	return []solar.Event{
		{
			Start: base, Peak: base.Add(16 * time.Minute), End: base.Add(25 * time.Minute),
			Class: solar.MustParseGOESClass("C2.6"), AIALoc: "N12W34", AIAXCen: 120.5, AIAYCen: -80.25,
			NOAAAR: 11890, Source: solar.SourceMerged,
		},
		{
			Start: base.Add(time.Hour), Peak: base.Add(70 * time.Minute), End: base.Add(80 * time.Minute),
			Class: solar.MustParseGOESClass("M1.0"), Loc: "S10E20", Source: solar.SourceGEV,
		},
	}
}

func TestDDL(t *testing.T) {
	stmts := DDL("flare")
	if len(stmts) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(stmts))
	}
	if !strings.Contains(stmts[1], "flare.events") || !strings.Contains(stmts[2], "flare.observations") {
		t.Errorf("unexpected DDL: %v", stmts)
	}
}

func TestEventBatch(t *testing.T) {
	b := NewEventBatch()
	for _, e := range testEvents() {
		b.AddEvent(e)
	}
	if b.Len() != 2 {
		t.Fatalf("Len = %d", b.Len())
	}
	if len(b.Input()) != 11 {
		t.Errorf("expected 11 columns, got %d", len(b.Input()))
	}
	if b.ClassRank.Row(1) != 41 {
		t.Errorf("class rank = %v", b.ClassRank.Row(1))
	}
	b.Reset()
	if b.Len() != 0 {
		t.Errorf("Reset left %d rows", b.Len())
	}
}

func TestObservationBatchSentinel(t *testing.T) {
	b := NewObservationBatch()
	b.AddObservation(Observation{Peak: time.Unix(0, 0), Record: instrument.SentinelRecord("rsi")})
	if b.Observed.Row(0) != -1 || b.Frac.Row(0) != -1 {
		t.Errorf("sentinel not preserved")
	}
}

func TestPivotUnpivotRoundTrip(t *testing.T) {
	events := testEvents()
	obs := []Observation{
		{Peak: events[0].Peak, Record: instrument.Record{Instrument: "rsi", Observed: 1, Triggered: 1, Frac: 0.95, FracRise: 0.9, FracFall: 1}},
		{Peak: events[0].Peak, Record: instrument.Record{Instrument: "fermi", Observed: 1, Frac: 0.5, FracRise: 0.25, FracFall: 0.75}},
		{Peak: events[1].Peak, Record: instrument.SentinelRecord("rsi")},
	}

	table := Pivot(events, obs)
	if table.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", table.Len())
	}
	if table.Col("FERMI_OBSERVED") >= table.Col("RSI_OBSERVED") {
		t.Errorf("instruments should be sorted by name: %v", table.Header)
	}
	if got := table.Get(table.Rows[1], "FERMI_OBSERVED"); got != "" {
		t.Errorf("missing record should be empty, got %q", got)
	}
	if got := table.Get(table.Rows[1], "RSI_FRAC_OBS"); got != "-1" {
		t.Errorf("sentinel fraction = %q", got)
	}
	if got := table.Get(table.Rows[0], "INDEX"); got != "0" {
		t.Errorf("index = %q", got)
	}

	gotEvents, gotObs, stats, err := Unpivot(table)
	if err != nil {
		t.Fatalf("Unpivot failed: %v", err)
	}
	if stats.FailedRows != 0 || len(gotEvents) != 2 {
		t.Fatalf("events = %d, failed = %d", len(gotEvents), stats.FailedRows)
	}
	if !gotEvents[0].Peak.Equal(events[0].Peak) || gotEvents[0].Class.String() != "C2.6" || gotEvents[0].NOAAAR != 11890 {
		t.Errorf("event 0 = %+v", gotEvents[0])
	}
	if len(gotObs) != 4 {
		t.Fatalf("expected 4 observations, got %d", len(gotObs))
	}

	found := false
	for _, o := range gotObs {
		if o.Instrument == "rsi" && o.Peak.Equal(events[0].Peak) {
			found = true
			if o.Record != obs[0].Record {
				t.Errorf("rsi record = %+v, want %+v", o.Record, obs[0].Record)
			}
		}
	}
	if !found {
		t.Error("rsi observation of first flare missing")
	}
}

func TestStoredRowsAreNotCollapsed(t *testing.T) {
	for _, stmt := range DDL("flare")[1:] {
		if strings.Contains(stmt, "Replacing") {
			t.Errorf("table must keep rows sharing a peak: %s", stmt)
		}
	}
	for _, q := range []string{eventsQuery, observationsQuery} {
		if strings.Contains(q, "FINAL") {
			t.Errorf("read-back must not merge rows: %s", q)
		}
	}

	// Two catalog rows at the same peak stay two flares after the pivot.
	events := testEvents()
	twin := events[0]
	twin.Class = solar.MustParseGOESClass("C3.1")
	events = append(events, twin)
	obs := []Observation{
		{Peak: events[0].Peak, Record: instrument.Record{Instrument: "rsi", Observed: 1}},
		{Peak: twin.Peak, Record: instrument.Record{Instrument: "rsi", Observed: 1}},
	}
	table := Pivot(events, obs)
	if table.Len() != 3 {
		t.Fatalf("expected 3 flares, got %d", table.Len())
	}
	if got := table.Get(table.Rows[2], "RSI_OBSERVED"); got != "1" {
		t.Errorf("twin flare observed = %q", got)
	}
}

func TestFromDateTime(t *testing.T) {
	if got := fromDateTime(time.Unix(0, 0)); !got.IsZero() {
		t.Errorf("epoch should map to zero time, got %v", got)
	}
	want := time.Date(2013, 11, 9, 6, 38, 0, 0, time.UTC)
	if got := fromDateTime(want.In(time.FixedZone("X", 3600))); !got.Equal(want) || got.Location() != time.UTC {
		t.Errorf("got %v", got)
	}
}

func TestUnpivotPhaseFlags(t *testing.T) {
	table := catalog.NewTable("INDEX", "FLARE_START", "FLARE_PEAK", "FLARE_END", "CLASS",
		"XRT_OBSERVED", "XRT_RISE_OBSERVED", "XRT_FALL_OBSERVED",
		"SOT_OBSERVED", "SOT_RISE_OBSERVED", "SOT_FALL_OBSERVED",
		"RSI_OBSERVED", "RSI_FRAC_OBS_RISE", "RSI_FRAC_OBS_FALL")
	table.Append([]string{"0", "2013-11-09 06:22:00", "2013-11-09 06:38:00", "2013-11-09 06:47:00", "C2.6",
		"True", "True", "False",
		"1", "0", "1",
		"1", "0.25", "0.75"})

	_, obs, _, err := Unpivot(table)
	if err != nil {
		t.Fatalf("Unpivot failed: %v", err)
	}
	got := make(map[string]instrument.Record)
	for _, o := range obs {
		got[o.Instrument] = o.Record
	}
	if len(got) != 3 {
		t.Fatalf("expected instruments rsi, sot, xrt; got %v", got)
	}
	if xrt := got["xrt"]; xrt.Observed != 1 || xrt.FracRise != 1 || xrt.FracFall != 0 {
		t.Errorf("xrt = %+v", xrt)
	}
	if sot := got["sot"]; sot.FracRise != 0 || sot.FracFall != 1 {
		t.Errorf("sot = %+v", sot)
	}
	if rsi := got["rsi"]; rsi.FracRise != 0.25 || rsi.FracFall != 0.75 {
		t.Errorf("rsi = %+v", rsi)
	}

	header := Pivot(nil, obs).Header
	for _, h := range header {
		if strings.HasPrefix(h, "XRT_RISE") || strings.HasPrefix(h, "SOT_FALL") {
			t.Errorf("phase flag became an instrument column: %s", h)
		}
	}
}
