package instrument

import (
	"context"
	"io"
	"os"
	"reflect"
	"time"

	"github.com/astrogo/fitsio"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/KI7MT/ki7mt-flare-lab/internal/archive"
	"github.com/KI7MT/ki7mt-flare-lab/internal/interval"
	"github.com/KI7MT/ki7mt-flare-lab/internal/solar"
)

// mjdEpoch is Modified Julian Date zero.
var mjdEpoch = time.Date(1858, 11, 17, 0, 0, 0, 0, time.UTC)

// GTISource provides local GBM daily files for a time range.
type GTISource interface {
	DailyFiles(ctx context.Context, start, end time.Time) ([]string, error)
}

// Fermi computes observability from GBM good time intervals.
type Fermi struct {
	source GTISource
}

// NewFermi creates a Fermi observer reading files from source.
func NewFermi(source GTISource) *Fermi {
	return &Fermi{source: source}
}

// Name implements Observer.
func (f *Fermi) Name() string { return FermiName }

// Observe implements Observer.
func (f *Fermi) Observe(ctx context.Context, e solar.Event) (Record, error) {
	start, peak, end, ok := prepare(e)
	if !ok {
		return SentinelRecord(FermiName), nil
	}

	paths, err := f.source.DailyFiles(ctx, start, end)
	if archive.IsNoData(err) {
		logrus.Debugf("fermi: no data for flare peaking %s", peak.Format(solar.TimeLayout))
		return ZeroRecord(FermiName), nil
	}
	if err != nil {
		return Record{}, err
	}

	var windows []interval.TimeRange
	for _, p := range paths {
		w, err := ReadGTIFile(p)
		if err != nil {
			return Record{}, err
		}
		windows = append(windows, w...)
	}
	return ComputeFermi(windows, start, peak, end), nil
}

// ComputeFermi intersects good time windows with the whole flare and with
// each phase. Fractions are overlap over phase length.
func ComputeFermi(windows []interval.TimeRange, start, peak, end time.Time) Record {
	rec := ZeroRecord(FermiName)
	good := interval.Union(interval.FromTimes(windows))

	whole := coverage(good, start, end)
	if whole <= 0 {
		return rec
	}
	rec.Observed = 1
	rec.Frac = whole
	rec.FracRise = coverage(good, start, peak)
	rec.FracFall = coverage(good, peak, end)
	return rec
}

func coverage(good []interval.Interval[float64], from, to time.Time) float64 {
	phase := interval.FromTimes([]interval.TimeRange{{Start: from, End: to}})[0]
	width := phase.Width()
	if width <= 0 {
		return 0
	}
	return interval.Total(interval.Clip(good, phase.Start, phase.End)) / width
}

// ReadGTIFile parses the GTI extension of a GBM file.
func ReadGTIFile(path string) ([]interval.TimeRange, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer fh.Close()

	windows, err := ReadGTI(fh)
	if err != nil {
		return nil, errors.Wrapf(err, "gbm gti %s", path)
	}
	return windows, nil
}

// ReadGTI parses START/STOP mission elapsed times from the GTI extension,
// using the MJDREFI/MJDREFF reference of that extension.
func ReadGTI(r io.Reader) ([]interval.TimeRange, error) {
	f, err := fitsio.Open(r)
	if err != nil {
		return nil, errors.Wrap(err, "fits: open")
	}
	defer f.Close()

	tbl := findTableNamed(f, "GTI")
	if tbl == nil {
		return nil, errors.New("fits: no GTI extension")
	}

	ref, err := missionReference(tbl.Header())
	if err != nil {
		return nil, err
	}

	starts, err := readTableColumn(tbl, "START")
	if err != nil {
		return nil, err
	}
	stops, err := readTableColumn(tbl, "STOP")
	if err != nil {
		return nil, err
	}
	if len(starts) != len(stops) {
		return nil, errors.Errorf("fits: GTI has %d starts and %d stops", len(starts), len(stops))
	}

	out := make([]interval.TimeRange, 0, len(starts))
	for i := range starts {
		s, e := toFloats(starts[i]), toFloats(stops[i])
		if len(s) == 0 || len(e) == 0 {
			continue
		}
		out = append(out, interval.TimeRange{
			Start: ref.Add(secondsDuration(s[0])),
			End:   ref.Add(secondsDuration(e[0])),
		})
	}
	return out, nil
}

func missionReference(h *fitsio.Header) (time.Time, error) {
	card := h.Get("MJDREFI")
	if card == nil {
		return time.Time{}, errors.New("fits: GTI header has no MJDREFI")
	}
	days, ok := scalarFloat(reflect.ValueOf(card.Value))
	if !ok {
		return time.Time{}, errors.Errorf("fits: bad MJDREFI %v", card.Value)
	}
	if frac := h.Get("MJDREFF"); frac != nil {
		if v, ok := scalarFloat(reflect.ValueOf(frac.Value)); ok {
			days += v
		}
	}
	return mjdEpoch.Add(secondsDuration(days * 86400)), nil
}
