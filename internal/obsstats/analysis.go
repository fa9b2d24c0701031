package obsstats

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/KI7MT/ki7mt-flare-lab/internal/solar"
)

// Window is an open time range (Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// CommonWindow is the period in which every instrument was operating.
var CommonWindow = Window{
	Start: time.Date(2013, 7, 17, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2014, 5, 27, 0, 0, 0, 0, time.UTC),
}

// Filter returns flares that start after w.Start and end before w.End.
func (w Window) Filter(flares []Flare) []Flare {
	var out []Flare
	for _, f := range flares {
		if f.Start.After(w.Start) && f.End.Before(w.End) {
			out = append(out, f)
		}
	}
	return out
}

// Count is a labelled tally.
type Count struct {
	Label string
	Count int
}

// FullyObserved returns flares seen by every instrument.
func FullyObserved(flares []Flare, insts []Instrument) []Flare {
	var out []Flare
	for _, f := range flares {
		if f.ObservationCount(insts) == len(insts) {
			out = append(out, f)
		}
	}
	return out
}

// ObservedBy returns flares instrument short observed.
func ObservedBy(flares []Flare, short string) []Flare {
	var out []Flare
	for _, f := range flares {
		if f.ObservedBy(short) {
			out = append(out, f)
		}
	}
	return out
}

// PercentObserved is the share of flares seen by at least one instrument.
func PercentObserved(flares []Flare, insts []Instrument) float64 {
	n := 0
	for _, f := range flares {
		if f.ObservationCount(insts) > 0 {
			n++
		}
	}
	return percent(n, len(flares))
}

// MeanDuration averages flare durations.
func MeanDuration(flares []Flare) time.Duration {
	if len(flares) == 0 {
		return 0
	}
	var sum time.Duration
	for _, f := range flares {
		sum += f.Duration()
	}
	return sum / time.Duration(len(flares))
}

// DurationsByClass groups durations in minutes by class letter. Letters are
// returned in GOES order.
func DurationsByClass(flares []Flare) ([]string, map[string][]float64) {
	groups := make(map[string][]float64)
	for _, f := range flares {
		l := f.Letter()
		if l == "" {
			continue
		}
		groups[l] = append(groups[l], f.Duration().Minutes())
	}

	var letters []string
	for _, l := range solar.Letters() {
		if _, ok := groups[l]; ok {
			letters = append(letters, l)
		}
	}
	return letters, groups
}

// ObservationCounts tallies flares by how many instruments observed them.
func ObservationCounts(flares []Flare, insts []Instrument) []Count {
	tally := make(map[int]int)
	for _, f := range flares {
		tally[f.ObservationCount(insts)]++
	}
	keys := make([]int, 0, len(tally))
	for k := range tally {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	out := make([]Count, 0, len(keys))
	for _, k := range keys {
		out = append(out, Count{Label: strconv.Itoa(k), Count: tally[k]})
	}
	return out
}

// ClassDistribution tallies flares by class letter in GOES order.
func ClassDistribution(flares []Flare) []Count {
	tally := make(map[string]int)
	for _, f := range flares {
		if l := f.Letter(); l != "" {
			tally[l]++
		}
	}
	var out []Count
	for _, l := range solar.Letters() {
		if n, ok := tally[l]; ok {
			out = append(out, Count{Label: l, Count: n})
		}
	}
	return out
}

// percent returns 100*n/d rounded to one decimal, or 0 when d is zero.
func percent(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return math.Round(1000*float64(n)/float64(d)) / 10
}
