package obsstats

import (
	"math/bits"
	"sort"
	"strconv"

	"github.com/KI7MT/ki7mt-flare-lab/internal/catalog"
)

// SubsetOrder selects how Subsets sorts its result.
type SubsetOrder int

const (
	// ByCardinality sorts largest subsets first.
	ByCardinality SubsetOrder = iota
	// ByDegree sorts by number of instruments, then size.
	ByDegree
)

// ParseSubsetOrder maps "cardinality" or "degree" to a SubsetOrder.
func ParseSubsetOrder(s string) (SubsetOrder, bool) {
	switch s {
	case "cardinality", "":
		return ByCardinality, true
	case "degree":
		return ByDegree, true
	}
	return ByCardinality, false
}

// Subset is the number of flares observed by exactly Members.
type Subset struct {
	Members []string
	Count   int

	mask uint64
}

// Degree is the number of instruments in the subset.
func (s Subset) Degree() int {
	return len(s.Members)
}

// Subsets counts flares per exact combination of observing instruments,
// dropping combinations seen fewer than minSize times.
func Subsets(flares []Flare, insts []Instrument, minSize int, order SubsetOrder) []Subset {
	tally := make(map[uint64]int)
	for _, f := range flares {
		var mask uint64
		for i, inst := range insts {
			if f.ObservedBy(inst.Short) {
				mask |= 1 << uint(i)
			}
		}
		tally[mask]++
	}

	var out []Subset
	for mask, n := range tally {
		if n < minSize {
			continue
		}
		s := Subset{Count: n, mask: mask, Members: make([]string, 0, bits.OnesCount64(mask))}
		for i, inst := range insts {
			if mask&(1<<uint(i)) != 0 {
				s.Members = append(s.Members, inst.Name)
			}
		}
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if order == ByDegree && a.Degree() != b.Degree() {
			return a.Degree() < b.Degree()
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.mask < b.mask
	})
	return out
}

// SubsetsTable renders subsets with one 0/1 column per instrument.
func SubsetsTable(subsets []Subset, insts []Instrument) *catalog.Table {
	header := make([]string, 0, len(insts)+2)
	for _, inst := range insts {
		header = append(header, inst.Name)
	}
	header = append(header, "degree", "count")

	t := catalog.NewTable(header...)
	for _, s := range subsets {
		row := make([]string, 0, len(header))
		for i := range insts {
			row = append(row, strconv.Itoa(int(s.mask>>uint(i)&1)))
		}
		row = append(row, strconv.Itoa(s.Degree()), strconv.Itoa(s.Count))
		t.Append(row)
	}
	return t
}
