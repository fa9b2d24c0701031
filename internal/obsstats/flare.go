package obsstats

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/KI7MT/ki7mt-flare-lab/internal/catalog"
	"github.com/KI7MT/ki7mt-flare-lab/internal/instrument"
	"github.com/KI7MT/ki7mt-flare-lab/internal/solar"
)

// Observation list columns shared by every instrument.
const (
	ColIndex   = "INDEX"
	ColStart   = "FLARE_START"
	ColPeak    = "FLARE_PEAK"
	ColEnd     = "FLARE_END"
	ColClass   = "CLASS"
	ColAIAXCen = "AIA_XCEN"
	ColAIAYCen = "AIA_YCEN"
)

// Flare is one row of the observation list.
type Flare struct {
	Index   string
	Start   time.Time
	Peak    time.Time
	End     time.Time
	Class   string
	AIAXCen float64
	AIAYCen float64

	Observed map[string]int     // by instrument short name
	Rise     map[string]float64 // rise-phase fraction, instruments with fractions only
	Fall     map[string]float64
}

// Letter returns the GOES class letter, or "" for an unclassified flare.
func (f Flare) Letter() string {
	c := strings.TrimSpace(f.Class)
	if c == "" {
		return ""
	}
	return strings.ToUpper(c[:1])
}

// Duration returns End - Start.
func (f Flare) Duration() time.Duration {
	return f.End.Sub(f.Start)
}

// ObservedBy reports whether instrument short observed the flare.
func (f Flare) ObservedBy(short string) bool {
	return f.Observed[short] > 0
}

// ObservationCount is the number of instruments that observed the flare.
func (f Flare) ObservationCount(insts []Instrument) int {
	n := 0
	for _, inst := range insts {
		if f.ObservedBy(inst.Short) {
			n++
		}
	}
	return n
}

// MeanPhaseFraction averages the rise and fall fractions of inst.
func (f Flare) MeanPhaseFraction(short string) float64 {
	return (f.Rise[short] + f.Fall[short]) / 2
}

// FromTable converts an observation list. Rows with unreadable times are
// skipped and counted.
func FromTable(t *catalog.Table, insts []Instrument) ([]Flare, catalog.ParseStats, error) {
	var stats catalog.ParseStats

	required := []string{ColStart, ColEnd, ColClass}
	for _, inst := range insts {
		required = append(required, inst.ObservedColumn())
	}
	for _, col := range required {
		if !t.Has(col) {
			return nil, stats, errors.Errorf("observation list has no %s column", col)
		}
	}

	flares := make([]Flare, 0, t.Len())
	for _, row := range t.Rows {
		stats.TotalRowsRead++
		f, err := flareFromRow(t, row, insts)
		if err != nil {
			stats.FailedRows++
			if stats.FailedRows <= catalog.MaxErrorsToLog {
				logrus.Warnf("obsstats: row %d: %v", stats.TotalRowsRead, err)
			}
			continue
		}
		flares = append(flares, f)
		stats.SuccessfullyParsed++
	}

	if stats.FailedRows > catalog.MaxErrorsToLog {
		logrus.Warnf("obsstats: ... and %d more row errors", stats.FailedRows-catalog.MaxErrorsToLog)
	}
	return flares, stats, nil
}

func flareFromRow(t *catalog.Table, row []string, insts []Instrument) (Flare, error) {
	f := Flare{
		Index:    t.Get(row, ColIndex),
		Class:    t.Get(row, ColClass),
		Observed: make(map[string]int, len(insts)),
		Rise:     make(map[string]float64),
		Fall:     make(map[string]float64),
	}

	var err error
	if f.Start, err = solar.ParseMixedTime(t.Get(row, ColStart)); err != nil {
		return f, errors.Wrap(err, ColStart)
	}
	if f.End, err = solar.ParseMixedTime(t.Get(row, ColEnd)); err != nil {
		return f, errors.Wrap(err, ColEnd)
	}
	if v := t.Get(row, ColPeak); v != "" {
		if f.Peak, err = solar.ParseMixedTime(v); err != nil {
			return f, errors.Wrap(err, ColPeak)
		}
	}
	f.AIAXCen = parseNumber(t.Get(row, ColAIAXCen))
	f.AIAYCen = parseNumber(t.Get(row, ColAIAYCen))

	for _, inst := range insts {
		f.Observed[inst.Short] = parseObserved(t.Get(row, inst.ObservedColumn()))
		if inst.Fractions {
			f.Rise[inst.Short] = parseNumber(t.Get(row, inst.RiseColumn()))
			f.Fall[inst.Short] = parseNumber(t.Get(row, inst.FallColumn()))
		}
	}
	return f, nil
}

func parseObserved(s string) int { return instrument.ParseFlag(s) }

func parseNumber(s string) float64 { return instrument.ParseFraction(s) }
