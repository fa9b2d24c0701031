package catalog

import (
	"github.com/KI7MT/ki7mt-flare-lab/internal/solar"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// FilterStats summarises a reference-list filter.
type FilterStats struct {
	ObservedRows  int
	ReferenceRows int
	Matched       int // Output rows
	Unparseable   int // Rows skipped because the peak did not parse
}

// FilterByPeak keeps the rows of observed whose peak time appears in
// reference, appending the reference columns. It is an inner join: a peak
// listed twice in reference yields two output rows. Reference columns whose
// names clash with observed ones get a "_ref" suffix; the reference peak
// column is kept under its own name.
func FilterByPeak(observed *Table, observedPeak string, reference *Table, referencePeak string) (*Table, FilterStats, error) {
	stats := FilterStats{ObservedRows: observed.Len(), ReferenceRows: reference.Len()}

	oi := observed.Col(observedPeak)
	if oi < 0 {
		return nil, stats, errors.Errorf("observed list: missing column %s", observedPeak)
	}
	ri := reference.Col(referencePeak)
	if ri < 0 {
		return nil, stats, errors.Errorf("reference list: missing column %s", referencePeak)
	}

	refByPeak := make(map[int64][]int, reference.Len())
	for i, row := range reference.Rows {
		t, err := solar.ParseMixedTime(reference.Get(row, referencePeak))
		if err != nil {
			stats.Unparseable++
			continue
		}
		k := t.UnixNano()
		refByPeak[k] = append(refByPeak[k], i)
	}

	header := append([]string(nil), observed.Header...)
	for _, h := range reference.Header {
		if observed.Col(h) >= 0 {
			h += "_ref"
		}
		header = append(header, h)
	}
	out := NewTable(header...)

	for _, row := range observed.Rows {
		t, err := solar.ParseMixedTime(observed.Get(row, observedPeak))
		if err != nil {
			stats.Unparseable++
			continue
		}
		for _, ri := range refByPeak[t.UnixNano()] {
			combined := make([]string, 0, len(header))
			combined = append(combined, pad(row, len(observed.Header))...)
			combined = append(combined, pad(reference.Rows[ri], len(reference.Header))...)
			out.Append(combined)
			stats.Matched++
		}
	}

	if stats.Unparseable > 0 {
		logrus.Warnf("filter: skipped %d rows with unparseable peak times", stats.Unparseable)
	}
	return out, stats, nil
}

func pad(row []string, n int) []string {
	if len(row) >= n {
		return row[:n]
	}
	out := make([]string, n)
	copy(out, row)
	return out
}
