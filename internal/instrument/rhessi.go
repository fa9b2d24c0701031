package instrument

import (
	"context"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/astrogo/fitsio"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/KI7MT/ki7mt-flare-lab/internal/archive"
	"github.com/KI7MT/ki7mt-flare-lab/internal/solar"
)

// defaultSampleInterval is the observing summary cadence when the file does
// not say otherwise.
const defaultSampleInterval = 4.0

// utimeEpoch is the zero of RHESSI UT_REF times.
var utimeEpoch = time.Date(1979, 1, 1, 0, 0, 0, 0, time.UTC)

// countrateLookup expands the byte-compressed observing summary count rates.
var countrateLookup = buildCountrateLookup()

func buildCountrateLookup() [256]float64 {
	var lk [256]float64
	sum := 0.0
	for i := 0; i < 16; i++ {
		step := math.Pow(2, float64(i))
		for j := 0; j < 16; j++ {
			lk[16*i+j] = float64(j)*step + sum
		}
		if i < 15 {
			sum = lk[16*(i+1)-1] + step
		}
	}
	return lk
}

// DecompressCountrate maps one compressed count byte to counts per second.
func DecompressCountrate(b float64) float64 {
	i := int(b)
	if i < 0 {
		i = 0
	}
	if i > 255 {
		i = 255
	}
	return countrateLookup[i]
}

// Sample is one observing summary time step.
type Sample struct {
	Time    time.Time
	Counts  []float64
	SAA     bool
	Eclipse bool
	Flare   bool
}

// HasCounts reports whether any energy band recorded a non-zero rate.
func (s Sample) HasCounts() bool {
	for _, c := range s.Counts {
		if c != 0 {
			return true
		}
	}
	return false
}

// Observable reports whether the spacecraft was outside the SAA and in sunlight.
func (s Sample) Observable() bool {
	return !(s.SAA || s.Eclipse)
}

// SummarySource provides local observing summary files for a time range.
type SummarySource interface {
	SummaryFiles(ctx context.Context, start, end time.Time) ([]string, error)
}

// RHESSI computes observability from the RHESSI observing summary.
type RHESSI struct {
	source SummarySource
}

// NewRHESSI creates a RHESSI observer reading files from source.
func NewRHESSI(source SummarySource) *RHESSI {
	return &RHESSI{source: source}
}

// Name implements Observer.
func (r *RHESSI) Name() string { return RHESSIName }

// Observe implements Observer.
func (r *RHESSI) Observe(ctx context.Context, e solar.Event) (Record, error) {
	start, peak, end, ok := prepare(e)
	if !ok {
		return SentinelRecord(RHESSIName), nil
	}

	paths, err := r.source.SummaryFiles(ctx, start, end)
	if archive.IsNoData(err) {
		logrus.Debugf("rhessi: no data for flare peaking %s", peak.Format(solar.TimeLayout))
		return ZeroRecord(RHESSIName), nil
	}
	if err != nil {
		return Record{}, err
	}

	var samples []Sample
	for _, p := range paths {
		s, err := ReadSummaryFile(p)
		if err != nil {
			return Record{}, err
		}
		samples = append(samples, s...)
	}
	return ComputeRHESSI(samples, start, peak, end), nil
}

// ComputeRHESSI derives the record from samples. Only samples strictly inside
// (start, end) count. Rise covers samples before the one nearest the peak,
// fall covers that sample onwards.
func ComputeRHESSI(samples []Sample, start, peak, end time.Time) Record {
	rec := ZeroRecord(RHESSIName)

	var during []Sample
	for _, s := range samples {
		if s.Time.After(start) && s.Time.Before(end) {
			during = append(during, s)
		}
	}

	observed := false
	for _, s := range during {
		if s.HasCounts() {
			observed = true
			break
		}
	}
	if !observed {
		return rec
	}
	rec.Observed = 1

	peakIdx := 0
	best := time.Duration(math.MaxInt64)
	for i, s := range during {
		d := s.Time.Sub(peak)
		if d < 0 {
			d = -d
		}
		if d < best {
			best, peakIdx = d, i
		}
	}

	for _, s := range during {
		if s.Flare {
			rec.Triggered = 1
			break
		}
	}
	rec.Frac = observableFraction(during)
	rec.FracRise = observableFraction(during[:peakIdx])
	rec.FracFall = observableFraction(during[peakIdx:])
	return rec
}

func observableFraction(samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	n := 0
	for _, s := range samples {
		if s.Observable() {
			n++
		}
	}
	return float64(n) / float64(len(samples))
}

// ReadSummaryFile parses one observing summary FITS file.
func ReadSummaryFile(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	samples, err := ReadSummary(f)
	if err != nil {
		return nil, errors.Wrapf(err, "rhessi summary %s", path)
	}
	return samples, nil
}

// ReadSummary parses observing summary FITS data: the reference time and
// cadence, compressed count rates, and per-sample flags.
func ReadSummary(r io.Reader) ([]Sample, error) {
	f, err := fitsio.Open(r)
	if err != nil {
		return nil, errors.Wrap(err, "fits: open")
	}
	defer f.Close()

	refCells, err := readColumn(f, "UT_REF")
	if err != nil {
		return nil, err
	}
	if len(refCells) == 0 || len(toFloats(refCells[0])) == 0 {
		return nil, errors.New("fits: empty UT_REF")
	}
	ref := utimeEpoch.Add(secondsDuration(toFloats(refCells[0])[0]))

	step, ok := headerFloat(f, "TIME_INTV")
	if !ok {
		if cells, err := readColumn(f, "TIME_INTV"); err == nil && len(cells) > 0 && len(toFloats(cells[0])) > 0 {
			step = toFloats(cells[0])[0]
		} else {
			step = defaultSampleInterval
		}
	}

	rateCells, err := readColumn(f, "COUNTRATE")
	if err != nil {
		return nil, err
	}

	idCells, err := readColumn(f, "FLAG_IDS")
	if err != nil {
		return nil, err
	}
	var flagNames []string
	if len(idCells) > 0 {
		flagNames = toStrings(idCells[0])
	}
	saaIdx := flagIndex(flagNames, "saa_flag")
	eclipseIdx := flagIndex(flagNames, "eclipse_flag")
	flareIdx := flagIndex(flagNames, "flare_flag")

	flagCells, err := readColumn(f, "FLAGS")
	if err != nil {
		return nil, err
	}

	samples := make([]Sample, len(rateCells))
	for i, cell := range rateCells {
		raw := toFloats(cell)
		counts := make([]float64, len(raw))
		for j, b := range raw {
			counts[j] = DecompressCountrate(b)
		}
		samples[i] = Sample{
			Time:   ref.Add(secondsDuration(step * float64(i))),
			Counts: counts,
		}
		if i < len(flagCells) {
			flags := toFloats(flagCells[i])
			samples[i].SAA = flagSet(flags, saaIdx)
			samples[i].Eclipse = flagSet(flags, eclipseIdx)
			samples[i].Flare = flagSet(flags, flareIdx)
		}
	}
	return samples, nil
}

func flagIndex(names []string, want string) int {
	for i, n := range names {
		if strings.EqualFold(strings.TrimSpace(n), want) {
			return i
		}
	}
	return -1
}

func flagSet(flags []float64, idx int) bool {
	return idx >= 0 && idx < len(flags) && flags[idx] != 0
}

func secondsDuration(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
