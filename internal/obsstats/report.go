package obsstats

import "time"

// AllLabel keys the class distribution of every flare in Report.
const AllLabel = "All"

// Options tunes Analyze.
type Options struct {
	Window        Window
	MinSubsetSize int
	SubsetOrder   SubsetOrder
}

// Report holds every statistic the stats tool prints or plots.
type Report struct {
	Instruments []Instrument
	Clean       CleanStats

	Flares        []Flare // cleaned
	Common        []Flare // cleaned, inside the common window
	FullyObserved []Flare

	PercentObserved float64
	MeanDuration    time.Duration

	DurationLetters []string
	Durations       map[string][]float64

	ObservationCounts       []Count
	CommonObservationCounts []Count

	Success []SuccessRow
	Subsets []Subset

	// ClassDistribution is keyed by instrument name, plus AllLabel.
	ClassDistribution map[string][]Count
}

// Analyze cleans raw and computes the full report.
func Analyze(raw []Flare, insts []Instrument, lifetimes []Lifetime, opts Options) *Report {
	if opts.Window.Start.IsZero() && opts.Window.End.IsZero() {
		opts.Window = CommonWindow
	}

	flares, cleanStats := Clean(raw, insts)
	common := opts.Window.Filter(flares)

	r := &Report{
		Instruments:             insts,
		Clean:                   cleanStats,
		Flares:                  flares,
		Common:                  common,
		FullyObserved:           FullyObserved(flares, insts),
		PercentObserved:         PercentObserved(flares, insts),
		MeanDuration:            MeanDuration(flares),
		ObservationCounts:       ObservationCounts(flares, insts),
		CommonObservationCounts: ObservationCounts(common, insts),
		Success:                 SuccessTable(flares, common, insts, lifetimes),
		Subsets:                 Subsets(flares, insts, opts.MinSubsetSize, opts.SubsetOrder),
		ClassDistribution:       make(map[string][]Count, len(insts)+1),
	}
	r.DurationLetters, r.Durations = DurationsByClass(flares)

	r.ClassDistribution[AllLabel] = ClassDistribution(flares)
	for _, inst := range insts {
		r.ClassDistribution[inst.Name] = ClassDistribution(ObservedBy(flares, inst.Short))
	}
	return r
}
