// Package instrument decides, per flare, whether an instrument could observe
// it and what fraction of the rise and fall phases it covered.
package instrument

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/KI7MT/ki7mt-flare-lab/internal/solar"
)

// Instrument short names used as column prefixes.
const (
	RHESSIName = "rsi"
	FermiName  = "fermi"
)

// edgeNudge widens a flare whose peak coincides with its start or end.
const edgeNudge = 60 * time.Second

// Record is the observability of one flare by one instrument.
// Observed and Triggered are 1/0, or -1 for a flare with malformed times.
type Record struct {
	Instrument string
	Observed   int
	Triggered  int
	Frac       float64
	FracRise   float64
	FracFall   float64
}

// SentinelRecord marks a flare whose times could not be ordered.
func SentinelRecord(inst string) Record {
	return Record{
		Instrument: inst,
		Observed:   -1,
		Triggered:  -1,
		Frac:       -1,
		FracRise:   -1,
		FracFall:   -1,
	}
}

// ZeroRecord is returned when the archive had no data for the flare.
func ZeroRecord(inst string) Record {
	return Record{Instrument: inst}
}

// IsSentinel reports whether r came from a malformed flare.
func (r Record) IsSentinel() bool {
	return r.Observed < 0
}

// Columns returns the CSV column names for inst.
func Columns(inst string) []string {
	p := strings.ToLower(inst)
	return []string{
		p + "_observed",
		p + "_flare_triggered",
		p + "_frac_obs",
		p + "_frac_obs_rise",
		p + "_frac_obs_fall",
	}
}

// Values returns the record in Columns order.
func (r Record) Values() []string {
	return []string{
		strconv.Itoa(r.Observed),
		strconv.Itoa(r.Triggered),
		formatFrac(r.Frac),
		formatFrac(r.FracRise),
		formatFrac(r.FracFall),
	}
}

func formatFrac(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Observer computes a Record for a flare.
type Observer interface {
	Name() string
	Observe(ctx context.Context, e solar.Event) (Record, error)
}

// prepare applies the one-minute widening and checks start < peak < end.
func prepare(e solar.Event) (start, peak, end time.Time, ok bool) {
	start, peak, end = e.Start, e.Peak, e.End
	if start.Equal(peak) {
		start = start.Add(-edgeNudge)
	}
	if peak.Equal(end) {
		end = end.Add(edgeNudge)
	}
	if start.IsZero() || peak.IsZero() || end.IsZero() {
		return start, peak, end, false
	}
	return start, peak, end, start.Before(peak) && peak.Before(end)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ParseFlag reads an observed or triggered cell: 1/0, True/False, or a
// numeric sentinel. Blank and NaN cells read as 0.
func ParseFlag(s string) int {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "true":
		return 1
	case "false", "", "nan":
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0
	}
	return int(math.Round(v))
}

// ParseFraction reads a fraction cell, treating blanks and NaN as zero.
func ParseFraction(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) {
		return 0
	}
	return v
}
