package obsstats

// Observed values that mark a flare with malformed times.
const (
	SentinelUnsigned = 255
	SentinelSigned   = -1
)

// CleanStats counts what Clean removed.
type CleanStats struct {
	Input    int
	Sentinel int // malformed start/peak/end for some instrument
	NoCoords int // an AIA coordinate is zero
	NoXY     int // both AIA coordinates are zero; included in NoCoords
	AClass   int
	Kept     int
}

// Clean drops flares with sentinel observations, missing AIA coordinates,
// or an A-class rating, in that order.
func Clean(flares []Flare, insts []Instrument) ([]Flare, CleanStats) {
	stats := CleanStats{Input: len(flares)}
	out := make([]Flare, 0, len(flares))

	for _, f := range flares {
		if hasSentinel(f, insts) {
			stats.Sentinel++
			continue
		}
		if f.AIAXCen == 0 || f.AIAYCen == 0 {
			if f.AIAXCen == 0 && f.AIAYCen == 0 {
				stats.NoXY++
			}
			stats.NoCoords++
			continue
		}
		if f.Letter() == "A" {
			stats.AClass++
			continue
		}
		out = append(out, f)
	}
	stats.Kept = len(out)
	return out, stats
}

func hasSentinel(f Flare, insts []Instrument) bool {
	for _, inst := range insts {
		v := f.Observed[inst.Short]
		if v == SentinelUnsigned || v == SentinelSigned {
			return true
		}
	}
	return false
}
