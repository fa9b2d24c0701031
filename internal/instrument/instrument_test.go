package instrument

import (
	"bytes"
	"context"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/astrogo/fitsio"
	"github.com/pkg/errors"

	"github.com/KI7MT/ki7mt-flare-lab/internal/archive"
	"github.com/KI7MT/ki7mt-flare-lab/internal/interval"
	"github.com/KI7MT/ki7mt-flare-lab/internal/solar"
)

var t0 = time.Date(2013, 11, 9, 6, 22, 0, 0, time.UTC)

func at(sec int) time.Time { return t0.Add(time.Duration(sec) * time.Second) }

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestPrepareNudgesEdges(t *testing.T) {
	e := solar.Event{Start: at(0), Peak: at(0), End: at(0)}
	start, _, end, ok := prepare(e)
	if !ok {
		t.Fatalf("start==peak==end should be widened into a valid flare")
	}
	if !start.Equal(at(-60)) || !end.Equal(at(60)) {
		t.Errorf("got start=%v end=%v", start, end)
	}

	if _, _, _, ok := prepare(solar.Event{Start: at(100), Peak: at(50), End: at(200)}); ok {
		t.Errorf("peak before start should be rejected")
	}
	if _, _, _, ok := prepare(solar.Event{Peak: at(50), End: at(200)}); ok {
		t.Errorf("missing start should be rejected")
	}
}

func TestRecordColumns(t *testing.T) {
	cols := Columns("RSI")
	want := []string{"rsi_observed", "rsi_flare_triggered", "rsi_frac_obs", "rsi_frac_obs_rise", "rsi_frac_obs_fall"}
	if !reflect.DeepEqual(cols, want) {
		t.Fatalf("Columns = %v", cols)
	}
	vals := SentinelRecord(RHESSIName).Values()
	if !reflect.DeepEqual(vals, []string{"-1", "-1", "-1", "-1", "-1"}) {
		t.Fatalf("sentinel values = %v", vals)
	}
	if got := (Record{Observed: 1, Frac: 0.5}).Values(); got[0] != "1" || got[2] != "0.5" {
		t.Fatalf("values = %v", got)
	}
}

func TestDecompressCountrate(t *testing.T) {
	cases := map[float64]float64{0: 0, 1: 1, 15: 15, 16: 16, 17: 18, 31: 46, 32: 48, 300: countrateLookup[255]}
	for in, want := range cases {
		if got := DecompressCountrate(in); got != want {
			t.Errorf("DecompressCountrate(%v) = %v, want %v", in, got, want)
		}
	}
	for i := 1; i < 256; i++ {
		if countrateLookup[i] <= countrateLookup[i-1] {
			t.Fatalf("lookup not increasing at %d", i)
		}
	}
}

func samplesEvery4s(n int, fn func(i int) Sample) []Sample {
	out := make([]Sample, n)
	for i := range out {
		s := fn(i)
		s.Time = at(4 * i)
		out[i] = s
	}
	return out
}

func TestComputeRHESSI(t *testing.T) {
	// Samples at 0,4,...,36. Strictly inside (0, 40): 4..36, nine samples.
	// Eclipse from 24 s on. Peak at 15 s, nearest sample 16 s (index 3).
	samples := samplesEvery4s(10, func(i int) Sample {
		return Sample{Counts: []float64{5}, Eclipse: i >= 6, Flare: i == 2}
	})
	rec := ComputeRHESSI(samples, at(0), at(15), at(40))

	if rec.Observed != 1 || rec.Triggered != 1 {
		t.Fatalf("observed=%d triggered=%d", rec.Observed, rec.Triggered)
	}
	if !approx(rec.Frac, 5.0/9.0) {
		t.Errorf("frac = %v", rec.Frac)
	}
	if !approx(rec.FracRise, 1) {
		t.Errorf("rise = %v", rec.FracRise)
	}
	if !approx(rec.FracFall, 2.0/6.0) {
		t.Errorf("fall = %v", rec.FracFall)
	}
}

func TestComputeRHESSINoCounts(t *testing.T) {
	samples := samplesEvery4s(10, func(i int) Sample {
		return Sample{Counts: []float64{0, 0}, Flare: true}
	})
	rec := ComputeRHESSI(samples, at(0), at(15), at(40))
	if rec != ZeroRecord(RHESSIName) {
		t.Fatalf("expected zero record, got %+v", rec)
	}
}

func TestComputeRHESSIPeakOnFirstSample(t *testing.T) {
	samples := samplesEvery4s(5, func(i int) Sample {
		return Sample{Counts: []float64{1}}
	})
	rec := ComputeRHESSI(samples, at(0), at(3), at(20))
	if rec.FracRise != 0 {
		t.Errorf("empty rise phase should give 0, got %v", rec.FracRise)
	}
	if !approx(rec.FracFall, 1) {
		t.Errorf("fall = %v", rec.FracFall)
	}
}

func TestComputeFermi(t *testing.T) {
	windows := []interval.TimeRange{
		{Start: at(-100), End: at(30)},
		{Start: at(20), End: at(40)},
		{Start: at(80), End: at(90)},
	}
	// Flare 0..100, peak 50. Good time 0..40 and 80..90.
	rec := ComputeFermi(windows, at(0), at(50), at(100))
	if rec.Observed != 1 || rec.Triggered != 0 {
		t.Fatalf("observed=%d triggered=%d", rec.Observed, rec.Triggered)
	}
	if !approx(rec.Frac, 0.5) {
		t.Errorf("frac = %v", rec.Frac)
	}
	if !approx(rec.FracRise, 0.8) {
		t.Errorf("rise = %v", rec.FracRise)
	}
	if !approx(rec.FracFall, 0.2) {
		t.Errorf("fall = %v", rec.FracFall)
	}
}

func TestComputeFermiTouchingWindowIsNotObserved(t *testing.T) {
	windows := []interval.TimeRange{{Start: at(-50), End: at(0)}}
	rec := ComputeFermi(windows, at(0), at(50), at(100))
	if rec != ZeroRecord(FermiName) {
		t.Fatalf("expected zero record, got %+v", rec)
	}
}

type fakeSource struct {
	paths []string
	err   error
	calls int
}

func (f *fakeSource) SummaryFiles(ctx context.Context, start, end time.Time) ([]string, error) {
	f.calls++
	return f.paths, f.err
}

func (f *fakeSource) DailyFiles(ctx context.Context, start, end time.Time) ([]string, error) {
	f.calls++
	return f.paths, f.err
}

func TestObserveSentinelAndNoData(t *testing.T) {
	bad := solar.Event{Start: at(100), Peak: at(50), End: at(200)}
	good := solar.Event{Start: at(0), Peak: at(50), End: at(100)}
	noData := &fakeSource{err: errors.Wrap(archive.ErrNoData, "nothing")}

	observers := []Observer{NewRHESSI(noData), NewFermi(noData)}
	for _, o := range observers {
		rec, err := o.Observe(context.Background(), bad)
		if err != nil || !rec.IsSentinel() || rec.Instrument != o.Name() {
			t.Errorf("%s: expected sentinel, got %+v, %v", o.Name(), rec, err)
		}
		rec, err = o.Observe(context.Background(), good)
		if err != nil || rec != ZeroRecord(o.Name()) {
			t.Errorf("%s: expected zero record, got %+v, %v", o.Name(), rec, err)
		}
	}
	if noData.calls != 2 {
		t.Errorf("malformed flares must not reach the archive, calls=%d", noData.calls)
	}
}

func TestObservePropagatesArchiveErrors(t *testing.T) {
	src := &fakeSource{err: errors.New("connection reset")}
	_, err := NewFermi(src).Observe(context.Background(), solar.Event{Start: at(0), Peak: at(50), End: at(100)})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func writeGTI(t *testing.T, mjdrefi int, mjdreff float64, starts, stops []float64) []byte {
	t.Helper()
	var buf bytes.Buffer
	f, err := fitsio.Create(&buf)
	if err != nil {
		t.Fatalf("create fits: %v", err)
	}
	phdu, err := fitsio.NewPrimaryHDU(nil)
	if err != nil {
		t.Fatalf("primary hdu: %v", err)
	}
	if err := f.Write(phdu); err != nil {
		t.Fatalf("write primary: %v", err)
	}

	tbl, err := fitsio.NewTable("GTI", []fitsio.Column{
		{Name: "START", Format: "D"},
		{Name: "STOP", Format: "D"},
	}, fitsio.BINARY_TBL)
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	defer tbl.Close()
	if err := tbl.Header().Append(
		fitsio.Card{Name: "MJDREFI", Value: mjdrefi},
		fitsio.Card{Name: "MJDREFF", Value: mjdreff},
	); err != nil {
		t.Fatalf("header: %v", err)
	}
	for i := range starts {
		s, e := starts[i], stops[i]
		if err := tbl.Write(&s, &e); err != nil {
			t.Fatalf("write row: %v", err)
		}
	}
	if err := f.Write(tbl); err != nil {
		t.Fatalf("write table: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return buf.Bytes()
}

func TestReadGTI(t *testing.T) {
	// MJD 51910.5 is 2001-01-01 12:00 UTC.
	data := writeGTI(t, 51910, 0.5, []float64{0, 3600}, []float64{600, 7200})
	windows, err := ReadGTI(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadGTI failed: %v", err)
	}
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(windows))
	}
	ref := time.Date(2001, 1, 1, 12, 0, 0, 0, time.UTC)
	if !windows[0].Start.Equal(ref) || !windows[0].End.Equal(ref.Add(10*time.Minute)) {
		t.Errorf("window 0 = %v", windows[0])
	}
	if !windows[1].End.Equal(ref.Add(2 * time.Hour)) {
		t.Errorf("window 1 = %v", windows[1])
	}
}

func appendTable(t *testing.T, f *fitsio.File, name string, cols []fitsio.Column, rows ...[]interface{}) {
	t.Helper()
	tbl, err := fitsio.NewTable(name, cols, fitsio.BINARY_TBL)
	if err != nil {
		t.Fatalf("new table %s: %v", name, err)
	}
	defer tbl.Close()
	for _, row := range rows {
		if err := tbl.Write(row...); err != nil {
			t.Fatalf("write %s row: %v", name, err)
		}
	}
	if err := f.Write(tbl); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func writeSummary(t *testing.T, utRef float64, rates [][2]uint8, flags [][3]uint8) []byte {
	t.Helper()
	var buf bytes.Buffer
	f, err := fitsio.Create(&buf)
	if err != nil {
		t.Fatalf("create fits: %v", err)
	}
	phdu, err := fitsio.NewPrimaryHDU(nil)
	if err != nil {
		t.Fatalf("primary hdu: %v", err)
	}
	if err := f.Write(phdu); err != nil {
		t.Fatalf("write primary: %v", err)
	}

	cadence := float32(4)
	appendTable(t, f, "OBSSUMM_INFO",
		[]fitsio.Column{{Name: "UT_REF", Format: "D"}, {Name: "TIME_INTV", Format: "E"}},
		[]interface{}{&utRef, &cadence})

	rateRows := make([][]interface{}, len(rates))
	for i := range rates {
		rateRows[i] = []interface{}{&rates[i]}
	}
	appendTable(t, f, "OBSSUMM_RATE", []fitsio.Column{{Name: "COUNTRATE", Format: "2B"}}, rateRows...)

	ids := "SAA_FLAG ECLIPSE_FLAG FLARE_FLAG"
	appendTable(t, f, "OBSSUMM_FLAG_IDS", []fitsio.Column{{Name: "FLAG_IDS", Format: "48A"}}, []interface{}{&ids})

	flagRows := make([][]interface{}, len(flags))
	for i := range flags {
		flagRows[i] = []interface{}{&flags[i]}
	}
	appendTable(t, f, "OBSSUMM_FLAGS", []fitsio.Column{{Name: "FLAGS", Format: "3B"}}, flagRows...)

	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return buf.Bytes()
}

func TestReadSummary(t *testing.T) {
	data := writeSummary(t, 1e9,
		[][2]uint8{{17, 0}, {0, 0}, {31, 32}},
		[][3]uint8{{1, 0, 0}, {0, 1, 1}, {0, 0, 0}},
	)
	samples, err := ReadSummary(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadSummary failed: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}

	// 1e9 seconds after 1979-01-01.
	ref := time.Date(2010, 9, 9, 1, 46, 40, 0, time.UTC)
	for i, s := range samples {
		if want := ref.Add(time.Duration(4*i) * time.Second); !s.Time.Equal(want) {
			t.Errorf("sample %d time = %v, want %v", i, s.Time, want)
		}
	}

	if !reflect.DeepEqual(samples[0].Counts, []float64{18, 0}) {
		t.Errorf("sample 0 counts = %v", samples[0].Counts)
	}
	if samples[1].HasCounts() {
		t.Errorf("sample 1 should have no counts: %v", samples[1].Counts)
	}
	if !reflect.DeepEqual(samples[2].Counts, []float64{46, 48}) {
		t.Errorf("sample 2 counts = %v", samples[2].Counts)
	}

	if !samples[0].SAA || samples[0].Eclipse || samples[0].Flare {
		t.Errorf("sample 0 flags = %+v", samples[0])
	}
	if samples[1].SAA || !samples[1].Eclipse || !samples[1].Flare {
		t.Errorf("sample 1 flags = %+v", samples[1])
	}
	if !samples[2].Observable() {
		t.Errorf("sample 2 should be observable")
	}
}
