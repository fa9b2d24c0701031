// Package interval provides closed-interval arithmetic over sorted interval
// lists. It is used to find the part of a flare that falls inside an
// instrument's observable windows.
package interval

import (
	"sort"
	"time"
)

// Number is any ordered numeric type an interval can be built from.
type Number interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64
}

// Interval is a closed range [Start, End].
type Interval[T Number] struct {
	Start T
	End   T
}

// Width returns End - Start, or zero for inverted intervals.
func (iv Interval[T]) Width() T {
	if iv.End < iv.Start {
		return 0
	}
	return iv.End - iv.Start
}

// Contains reports whether other lies entirely within iv.
func (iv Interval[T]) Contains(other Interval[T]) bool {
	return iv.Start <= other.Start && other.End <= iv.End
}

// Intersect returns every positive-width overlap between an interval of a and
// an interval of b. Inputs are sorted by start on copies, so callers may pass
// them in any order. Intervals that only touch at an endpoint produce no
// output. Adjacent overlaps are not merged.
func Intersect[T Number](a, b []Interval[T]) []Interval[T] {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}

	as := sortedCopy(a)
	bs := sortedCopy(b)

	var out []Interval[T]
	i, j := 0, 0
	for i < len(as) && j < len(bs) {
		lo := max(as[i].Start, bs[j].Start)
		hi := min(as[i].End, bs[j].End)
		if lo < hi {
			out = append(out, Interval[T]{Start: lo, End: hi})
		}

		// Advance whichever interval finishes first
		if as[i].End <= bs[j].End {
			i++
		} else {
			j++
		}
	}
	return out
}

// Clip intersects intervals with the single window [lo, hi].
func Clip[T Number](intervals []Interval[T], lo, hi T) []Interval[T] {
	return Intersect(intervals, []Interval[T]{{Start: lo, End: hi}})
}

// Union merges overlapping or touching intervals into a sorted, disjoint list.
func Union[T Number](intervals []Interval[T]) []Interval[T] {
	if len(intervals) == 0 {
		return nil
	}
	sorted := sortedCopy(intervals)
	out := []Interval[T]{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &out[len(out)-1]
		if iv.Start <= last.End {
			last.End = max(last.End, iv.End)
			continue
		}
		out = append(out, iv)
	}
	return out
}

// Total returns the summed width of intervals.
func Total[T Number](intervals []Interval[T]) T {
	var sum T
	for _, iv := range intervals {
		sum += iv.Width()
	}
	return sum
}

// TimeRange is a closed window between two instants.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// FromTimes converts time windows to Unix-second float intervals.
func FromTimes(ranges []TimeRange) []Interval[float64] {
	out := make([]Interval[float64], 0, len(ranges))
	for _, r := range ranges {
		out = append(out, Interval[float64]{Start: unixSeconds(r.Start), End: unixSeconds(r.End)})
	}
	return out
}

// ToTimes converts Unix-second float intervals back to UTC time windows.
func ToTimes(intervals []Interval[float64]) []TimeRange {
	out := make([]TimeRange, 0, len(intervals))
	for _, iv := range intervals {
		out = append(out, TimeRange{Start: fromUnixSeconds(iv.Start), End: fromUnixSeconds(iv.End)})
	}
	return out
}

func sortedCopy[T Number](in []Interval[T]) []Interval[T] {
	out := make([]Interval[T], len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func fromUnixSeconds(s float64) time.Time {
	sec := int64(s)
	nsec := int64((s - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}
