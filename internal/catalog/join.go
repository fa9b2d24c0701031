package catalog

import (
	"time"

	"github.com/KI7MT/ki7mt-flare-lab/internal/solar"
)

// JoinStats summarises a catalog join.
type JoinStats struct {
	Matched int // Output rows built from both catalogs
	HEROnly int // Output rows with no GEV row at the same peak
	GEVOnly int // Output rows with no HER row at the same peak
}

// Join performs an outer join of HER and GEV events on peak time.
//
// Every HER row pairs with every GEV row sharing its peak. A merged row spans
// the earliest start and latest end of the pair and takes the larger GOES
// class. AIA fields come from HER; location and active region come from GEV,
// with HER's active region used when GEV has none. Output is ordered by peak.
func Join(her, gev []solar.Event) ([]solar.Event, JoinStats) {
	var stats JoinStats

	byPeak := make(map[int64][]int, len(gev))
	for i, g := range gev {
		k := g.Peak.UnixNano()
		byPeak[k] = append(byPeak[k], i)
	}
	matchedGEV := make([]bool, len(gev))

	out := make([]solar.Event, 0, len(her)+len(gev))
	for _, h := range her {
		idx := byPeak[h.Peak.UnixNano()]
		if len(idx) == 0 {
			out = append(out, single(h))
			stats.HEROnly++
			continue
		}
		for _, gi := range idx {
			out = append(out, merge(h, gev[gi]))
			matchedGEV[gi] = true
			stats.Matched++
		}
	}
	for i, g := range gev {
		if !matchedGEV[i] {
			out = append(out, single(g))
			stats.GEVOnly++
		}
	}

	solar.SortByPeak(out)
	return out, stats
}

func merge(h, g solar.Event) solar.Event {
	ev := solar.Event{
		Start:   earliest(h.Start, g.Start),
		Peak:    h.Peak,
		End:     latest(h.End, g.End),
		Class:   solar.MaxClass(h.Class, g.Class),
		AIALoc:  h.AIALoc,
		AIAXCen: h.AIAXCen,
		AIAYCen: h.AIAYCen,
		Loc:     g.Loc,
		NOAAAR:  g.NOAAAR,
		Source:  solar.SourceMerged,
	}
	if ev.NOAAAR == 0 {
		ev.NOAAAR = h.NOAAAR
	}
	return ev
}

// single normalises an unmatched row the same way a merged one is: the class
// passes through the rank encoding so both paths format identically.
func single(e solar.Event) solar.Event {
	e.Class = solar.ClassFromRank(e.Class.Rank())
	return e
}

// earliest returns the earlier non-zero time.
func earliest(a, b time.Time) time.Time {
	switch {
	case a.IsZero():
		return b
	case b.IsZero():
		return a
	case b.Before(a):
		return b
	}
	return a
}

// latest returns the later non-zero time.
func latest(a, b time.Time) time.Time {
	switch {
	case a.IsZero():
		return b
	case b.IsZero():
		return a
	case b.After(a):
		return b
	}
	return a
}
